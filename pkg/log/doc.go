// Package log provides the structured logging abstraction shared by every
// snapmerge component.
//
// Components receive a Logger at construction time; nothing in snapmerge
// logs through a package-level logger. The zerolog adapter is what the CLI
// wires in, the no-op logger is what tests use:
//
//	logger := log.NewZerologAdapter(zerolog.InfoLevel)
//	collector := app.NewCollector(cfg, source, store, app.WithLogger(logger))
//
// Fields are typed key/value pairs so adapters can map them onto the
// underlying library without reflection on the hot path.
package log
