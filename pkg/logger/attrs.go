package logger

import "log/slog"

// Error returns the conventional attribute for an error value, tolerant
// of nil so call sites do not need a guard.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// Component tags log records with the subsystem that produced them.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
