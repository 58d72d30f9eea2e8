// Package log provides structured logging for mqtap components.
//
// Loggers carry typed fields and route records through log/slog into a
// pluggable formatter/output pipeline:
//
//	l := log.NewLogger(log.WithLevel(log.DebugLevel))
//	l = l.With(log.Component("pump"), log.Str("session", id))
//	l.Info("session started", log.Int("capacity", 4096))
//
// RedirectStdLog captures stdlib log output (Pebble, paho) into a Logger.
package log
