// Package logger builds configured slog loggers for the notification
// engine: JSON or text output, environment presets, static service
// attributes and per-call context extraction.
//
// Example:
//
//	log := logger.New(
//		logger.WithProduction("notifykit"),
//		logger.WithAttr(slog.String("version", version)),
//	)
//	logger.SetAsDefault(log)
package logger
