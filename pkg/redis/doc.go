// Package redis connects to a Redis server with retry and exposes a
// readiness probe. The engine uses Redis to fan real-time notifications
// out across instances (see pkg/fanout).
//
// Example:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
package redis
