package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/gallery/internal/domain"
)

const editionColumns = `asset_id, version_number, directory, file_name, content_type,
	byte_size, width, height, is_original, is_current, edits_applied, created_at`

// EditionLedger implements domain.EditionLedger using SQLite.
// Uniqueness of the current and original rows per asset is also enforced by
// partial unique indexes, so a bug above this layer fails loudly instead of
// corrupting the ledger.
type EditionLedger struct {
	db *sql.DB
}

// NewEditionLedger creates a new SQLite-backed EditionLedger.
func NewEditionLedger(db *DB) *EditionLedger {
	return &EditionLedger{db: db.SqlDB}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEdition(row rowScanner) (*domain.Edition, error) {
	var (
		e                     domain.Edition
		byteSize, w, h        sql.NullInt64
		isOriginal, isCurrent bool
		edits                 string
	)
	if err := row.Scan(&e.AssetID, &e.VersionNumber, &e.Location.Directory, &e.Location.FileName,
		&e.ContentType, &byteSize, &w, &h, &isOriginal, &isCurrent, &edits, &e.CreatedAt); err != nil {
		return nil, err
	}
	if byteSize.Valid {
		e.ByteSize = &byteSize.Int64
	}
	if w.Valid {
		v := int(w.Int64)
		e.Width = &v
	}
	if h.Valid {
		v := int(h.Int64)
		e.Height = &v
	}
	e.IsOriginal = isOriginal
	e.IsCurrent = isCurrent
	if err := json.Unmarshal([]byte(edits), &e.EditsApplied); err != nil {
		return nil, fmt.Errorf("decode edits_applied: %w", err)
	}
	if e.EditsApplied == nil {
		e.EditsApplied = []domain.EditRecord{}
	}
	return &e, nil
}

func (r *EditionLedger) ListEditions(ctx context.Context, assetID string) ([]domain.Edition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+editionColumns+` FROM editions WHERE asset_id = ? ORDER BY version_number`, assetID)
	if err != nil {
		return nil, fmt.Errorf("list editions: %w", err)
	}
	defer rows.Close()

	editions := []domain.Edition{}
	for rows.Next() {
		e, err := scanEdition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edition: %w", err)
		}
		editions = append(editions, *e)
	}
	return editions, rows.Err()
}

func (r *EditionLedger) GetCurrent(ctx context.Context, assetID string) (*domain.Edition, error) {
	e, err := scanEdition(r.db.QueryRowContext(ctx,
		`SELECT `+editionColumns+` FROM editions WHERE asset_id = ? AND is_current = 1`, assetID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get current edition: %w", err)
	}
	return e, nil
}

func (r *EditionLedger) GetEdition(ctx context.Context, assetID string, version int) (*domain.Edition, error) {
	e, err := scanEdition(r.db.QueryRowContext(ctx,
		`SELECT `+editionColumns+` FROM editions WHERE asset_id = ? AND version_number = ?`, assetID, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get edition: %w", err)
	}
	return e, nil
}

func (r *EditionLedger) NextVersionNumber(ctx context.Context, assetID string) (int, error) {
	var last int
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(
			COALESCE((SELECT last_version FROM edition_sequences WHERE asset_id = ?), 0),
			COALESCE((SELECT MAX(version_number) FROM editions WHERE asset_id = ?), 0)
		)`, assetID, assetID,
	).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("next version number: %w", err)
	}
	return last + 1, nil
}

// InsertEdition stores the edition with its flags as given. Inserting a
// second current or original row for an asset fails with ErrConflict.
func (r *EditionLedger) InsertEdition(ctx context.Context, edition *domain.Edition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertEdition(ctx, tx, edition, edition.IsCurrent); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *EditionLedger) SetCurrent(ctx context.Context, assetID string, version int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := setCurrent(ctx, tx, assetID, version); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *EditionLedger) AppendCurrent(ctx context.Context, edition *domain.Edition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertEdition(ctx, tx, edition, false); err != nil {
		return err
	}
	if err := setCurrent(ctx, tx, edition.AssetID, edition.VersionNumber); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit edition: %w", err)
	}
	edition.IsCurrent = true
	return nil
}

func (r *EditionLedger) DeleteEdition(ctx context.Context, assetID string, version int) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM editions WHERE asset_id = ? AND version_number = ?", assetID, version)
	if err != nil {
		return fmt.Errorf("delete edition: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func insertEdition(ctx context.Context, tx *sql.Tx, e *domain.Edition, current bool) error {
	edits := e.EditsApplied
	if edits == nil {
		edits = []domain.EditRecord{}
	}
	editsJSON, err := json.Marshal(edits)
	if err != nil {
		return fmt.Errorf("encode edits_applied: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO editions (`+editionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.AssetID, e.VersionNumber, e.Location.Directory, e.Location.FileName, e.ContentType,
		nullInt64(e.ByteSize), nullInt(e.Width), nullInt(e.Height),
		e.IsOriginal, current, string(editsJSON), now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: edition %s v%d violates ledger uniqueness", domain.ErrConflict, e.AssetID, e.VersionNumber)
		}
		return fmt.Errorf("insert edition: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO edition_sequences (asset_id, last_version) VALUES (?, ?)
		 ON CONFLICT(asset_id) DO UPDATE SET last_version = MAX(last_version, excluded.last_version)`,
		e.AssetID, e.VersionNumber,
	)
	if err != nil {
		return fmt.Errorf("advance edition sequence: %w", err)
	}

	e.EditsApplied = edits
	e.CreatedAt = now
	return nil
}

// setCurrent clears then sets the current flag. Both statements run inside
// tx, so no reader observes zero or two current rows.
func setCurrent(ctx context.Context, tx *sql.Tx, assetID string, version int) error {
	if _, err := tx.ExecContext(ctx,
		"UPDATE editions SET is_current = 0 WHERE asset_id = ? AND is_current = 1", assetID,
	); err != nil {
		return fmt.Errorf("clear current edition: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		"UPDATE editions SET is_current = 1 WHERE asset_id = ? AND version_number = ?", assetID, version,
	)
	if err != nil {
		return fmt.Errorf("set current edition: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
