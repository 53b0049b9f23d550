// Package logging provides structured logging helpers for groupcal.
//
// All logging goes through log/slog. This package keeps attribute names
// consistent and makes sure user names and tokens never reach a log line in
// clear text.
//
//	logger := logging.WithOperation(slog.Default(), "calendar.list")
//	logger.Info("events loaded",
//	    logging.Status(logging.StatusSuccess),
//	    logging.UserHash(account.Username))
//
// While the terminal UI is running the screen belongs to bubbletea, so logs
// are written to a file under $XDG_STATE_HOME instead of stderr.
package logging
