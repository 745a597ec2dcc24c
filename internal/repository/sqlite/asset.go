package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/gallery/internal/domain"
)

// AssetRepository implements domain.AssetRepository using SQLite.
type AssetRepository struct {
	db *sql.DB
}

// NewAssetRepository creates a new SQLite-backed AssetRepository.
func NewAssetRepository(db *DB) *AssetRepository {
	return &AssetRepository{db: db.SqlDB}
}

func (r *AssetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO assets (id, owner_user_id, kind, created_at) VALUES (?, ?, ?, ?)`,
		asset.ID, asset.OwnerUserID, string(asset.Kind), now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: asset %s already exists", domain.ErrConflict, asset.ID)
		}
		return fmt.Errorf("insert asset: %w", err)
	}
	asset.CreatedAt = now
	return nil
}

func (r *AssetRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AssetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	asset := &domain.Asset{}
	var kind string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_user_id, kind, created_at FROM assets WHERE id = ?`, id,
	).Scan(&asset.ID, &asset.OwnerUserID, &kind, &asset.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}
	asset.Kind = domain.AssetKind(kind)
	return asset, nil
}

func (r *AssetRepository) GetOwnerUserID(ctx context.Context, id string) (int64, error) {
	var userID int64
	err := r.db.QueryRowContext(ctx,
		"SELECT owner_user_id FROM assets WHERE id = ?", id,
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("get asset owner: %w", err)
	}
	return userID, nil
}
