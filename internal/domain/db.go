package domain

import "context"

// Database is the lifecycle of the store behind the ledger and repositories.
// Implementations own their migration files.
type Database interface {
	Migrate(ctx context.Context) error
	Close() error
}
