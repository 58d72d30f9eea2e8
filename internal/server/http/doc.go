// Package httpserver exposes the tap over JSON endpoints, an SSE live
// tail, and Prometheus metrics.
//
// Example:
//
//	s := httpserver.New(httpserver.Deps{Manager: mgr, Tap: tp})
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8077")
package httpserver
