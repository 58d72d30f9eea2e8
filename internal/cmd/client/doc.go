// Package client provides the `mqtap` command-line client.
//
// The CLI talks to the mqtap HTTP API to inspect a running tap from a
// terminal. It is primarily intended for developers and operators.
//
// Installation
//
//	go install github.com/rzbill/mqtap/cmd/mqtap@latest
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. When using the standalone binary, it
// reads MQTAP_HTTP and defaults to http://127.0.0.1:8077.
//
// Usage
//
//	mqtap stats
//	mqtap tree
//
//	mqtap messages --limit 50 --filter 'topic.startsWith("home/")'
//
//	# Follow the live stream (SSE under the hood)
//	mqtap tail
//	mqtap tail --filter 'qos >= 1' --limit 100
//
//	mqtap capture sessions
//	mqtap capture messages --session 01J... --limit 20 --reverse
//	mqtap capture purge --session 01J... --confirm
//
// Notes
//
//   - tail connects to GET /v1/tail and prints one JSON object per
//     message. Filters are CEL expressions evaluated server-side.
//   - capture messages pages through the durable record of a past
//     session; the printed next token feeds --start on the next call.
package client
