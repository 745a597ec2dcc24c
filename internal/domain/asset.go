package domain

import (
	"context"
	"time"
)

type AssetKind string

const (
	AssetKindPhoto AssetKind = "photo"
	AssetKindVideo AssetKind = "video"
)

// Asset is a logical media item. Its renditions are tracked as Editions.
type Asset struct {
	ID          string
	OwnerUserID int64
	Kind        AssetKind
	CreatedAt   time.Time
}

// AssetRepository handles asset metadata persistence. Delete exists only to
// roll back an ingest whose original could not be registered.
type AssetRepository interface {
	Create(ctx context.Context, asset *Asset) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Asset, error)
	// GetOwnerUserID returns the owning user of an asset. Used for ownership checks.
	GetOwnerUserID(ctx context.Context, id string) (int64, error)
}
