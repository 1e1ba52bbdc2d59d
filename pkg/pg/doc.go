// Package pg provides the PostgreSQL plumbing shared by the engine's
// durable stores: pgx pool connection with retry, goose migrations and
// small error helpers.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    return err
//	}
package pg
