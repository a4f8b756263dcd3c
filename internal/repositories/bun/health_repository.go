package bun

import "context"

// HealthRepository reports database reachability for health checks.
type HealthRepository struct {
	db *database
}

// Ping verifies the connection pool can reach the database.
func (r *HealthRepository) Ping(ctx context.Context) error {
	return WrapError("ping", r.db.db.PingContext(ctx))
}
