// Package filter compiles CEL expressions for selecting tapped messages.
//
// Filters run in the live tail path and against stored captures, so the
// same variable surface is exposed in both: topic, segments, qos,
// retained, text, json, size, ts_ms, and now_ms.
package filter
