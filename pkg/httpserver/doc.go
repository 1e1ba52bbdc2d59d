// Package httpserver runs an http.Server with graceful shutdown on
// context cancellation or SIGINT/SIGTERM, plus a health check handler
// for liveness and readiness probes.
//
// Example:
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
package httpserver
