// Package logging provides module-scoped structured logging on top of
// log/slog.
//
// Each module obtains its logger via GetLogger(module); levels can be set
// globally and overridden per module through Config. Output goes to stdout
// in text or JSON format and, when running under systemd, to the journal.
package logging
