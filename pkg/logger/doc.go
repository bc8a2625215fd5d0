// Package logger builds configured log/slog loggers.
//
// All components log through *slog.Logger handles created here. The
// factory supports JSON and text handlers, static service attributes,
// and context extractors that attach request-scoped values (request id,
// user id) to every record.
package logger
