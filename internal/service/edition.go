package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/msomdec/gallery/internal/domain"
	"golang.org/x/sync/semaphore"
)

// EditionConfig bounds transform work.
type EditionConfig struct {
	// TransformTimeout caps a single transform. Zero means no limit.
	TransformTimeout time.Duration
	// MaxConcurrentTransforms caps transforms running across all assets.
	MaxConcurrentTransforms int
}

// EditionService manages the lifecycle of an asset's editions: registering
// the original, applying edits, restoring and deleting versions. Mutations
// of one asset are serialised; different assets proceed in parallel.
type EditionService struct {
	ledger  domain.EditionLedger
	files   domain.FileStore
	engine  domain.TransformEngine
	locks   *assetLocks
	sem     *semaphore.Weighted
	timeout time.Duration
	now     func() time.Time
}

// NewEditionService creates a new EditionService.
func NewEditionService(ledger domain.EditionLedger, files domain.FileStore, engine domain.TransformEngine, cfg EditionConfig) *EditionService {
	limit := cfg.MaxConcurrentTransforms
	if limit < 1 {
		limit = 1
	}
	return &EditionService{
		ledger:  ledger,
		files:   files,
		engine:  engine,
		locks:   newAssetLocks(),
		sem:     semaphore.NewWeighted(int64(limit)),
		timeout: cfg.TransformTimeout,
		now:     time.Now,
	}
}

// CreateOriginalVersion registers the file at filePath/fileName as version 1
// of the asset. It fails with ErrConflict if the asset already has editions.
// Files that cannot be probed as images (video) are registered without
// dimensions.
func (s *EditionService) CreateOriginalVersion(ctx context.Context, assetID, filePath, fileName string) (*domain.Edition, error) {
	assetID = strings.TrimSpace(assetID)
	if assetID == "" || filePath == "" || fileName == "" {
		return nil, fmt.Errorf("%w: asset id, file path and file name are required", domain.ErrInvalidInput)
	}
	if strings.ContainsAny(fileName, `/\`) {
		return nil, fmt.Errorf("%w: file name must not contain path separators", domain.ErrInvalidInput)
	}

	unlock, err := s.locks.Lock(ctx, assetID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.ledger.ListEditions(ctx, assetID)
	if err != nil {
		return nil, storageErr("list editions", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: asset %s already has %d edition(s)", domain.ErrConflict, assetID, len(existing))
	}

	loc := domain.Location{Directory: filePath, FileName: fileName}
	data, err := s.files.Get(ctx, loc.Key())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: original file %s", domain.ErrNotFound, loc.Key())
		}
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrStorageFailed, loc.Key(), err)
	}

	size := int64(len(data))
	original := &domain.Edition{
		AssetID:       assetID,
		VersionNumber: 1,
		Location:      loc,
		ByteSize:      &size,
		IsOriginal:    true,
		IsCurrent:     true,
		EditsApplied:  []domain.EditRecord{},
	}
	w, h, format, err := s.engine.Probe(data)
	switch {
	case err == nil:
		original.Width, original.Height = &w, &h
		original.ContentType = domain.ContentTypeForFormat(format)
	case errors.Is(err, domain.ErrInvalidInput):
		return nil, err
	default:
		original.ContentType = http.DetectContentType(data)
	}

	if err := s.ledger.InsertEdition(ctx, original); err != nil {
		return nil, storageErr("insert original edition", err)
	}

	slog.Info("original edition registered", "asset_id", assetID, "key", loc.Key(), "content_type", original.ContentType)
	return original, nil
}

// ApplyEdit renders t against the current edition and makes the result the
// new current edition.
func (s *EditionService) ApplyEdit(ctx context.Context, assetID string, t domain.Transform) (*domain.Edition, error) {
	if assetID == "" {
		return nil, fmt.Errorf("%w: asset id is required", domain.ErrInvalidInput)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: missing transform", domain.ErrInvalidInput)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, assetID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.processAndSaveVersion(ctx, assetID, t)
}

func (s *EditionService) Crop(ctx context.Context, assetID string, x, y, width, height int) (*domain.Edition, error) {
	return s.ApplyEdit(ctx, assetID, domain.Crop{X: x, Y: y, Width: width, Height: height})
}

func (s *EditionService) Rotate(ctx context.Context, assetID string, degrees int) (*domain.Edition, error) {
	return s.ApplyEdit(ctx, assetID, domain.Rotate{Degrees: degrees})
}

func (s *EditionService) Resize(ctx context.Context, assetID string, width, height int, fit domain.ResizeFit) (*domain.Edition, error) {
	return s.ApplyEdit(ctx, assetID, domain.Resize{Width: width, Height: height, Fit: fit})
}

func (s *EditionService) Flip(ctx context.Context, assetID string, direction domain.FlipDirection) (*domain.Edition, error) {
	return s.ApplyEdit(ctx, assetID, domain.Flip{Direction: direction})
}

// RestoreVersion makes an existing edition current. No bytes are written and
// no version is created. Restoring the current edition is a no-op.
func (s *EditionService) RestoreVersion(ctx context.Context, assetID string, version int) (*domain.Edition, error) {
	if version < 1 {
		return nil, fmt.Errorf("%w: version must be positive", domain.ErrInvalidInput)
	}

	unlock, err := s.locks.Lock(ctx, assetID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	target, err := s.ledger.GetEdition(ctx, assetID, version)
	if err != nil {
		return nil, storageErr("get edition", err)
	}
	if target.IsCurrent {
		return target, nil
	}

	if err := s.ledger.SetCurrent(ctx, assetID, version); err != nil {
		return nil, storageErr("set current edition", err)
	}
	target.IsCurrent = true

	slog.Info("edition restored", "asset_id", assetID, "version", version)
	return target, nil
}

// DeleteEdition removes a non-original, non-current edition and its bytes.
// If the bytes cannot be removed the edition is still gone from the ledger.
func (s *EditionService) DeleteEdition(ctx context.Context, assetID string, version int) error {
	if version < 1 {
		return fmt.Errorf("%w: version must be positive", domain.ErrInvalidInput)
	}

	unlock, err := s.locks.Lock(ctx, assetID)
	if err != nil {
		return err
	}
	defer unlock()

	target, err := s.ledger.GetEdition(ctx, assetID, version)
	if err != nil {
		return storageErr("get edition", err)
	}
	switch {
	case target.IsOriginal:
		return fmt.Errorf("%w: cannot delete the original edition", domain.ErrInvalidOperation)
	case target.IsCurrent:
		return fmt.Errorf("%w: cannot delete the current edition; restore another version first", domain.ErrInvalidOperation)
	}

	if err := s.ledger.DeleteEdition(ctx, assetID, version); err != nil {
		return storageErr("delete edition", err)
	}
	if err := s.files.Delete(ctx, target.Location.Key()); err != nil {
		slog.Error("failed to delete edition file", "asset_id", assetID, "version", version, "key", target.Location.Key(), "error", err)
	}

	slog.Info("edition deleted", "asset_id", assetID, "version", version)
	return nil
}

// GetCurrentVersion returns the current edition, or nil when the asset has
// none.
func (s *EditionService) GetCurrentVersion(ctx context.Context, assetID string) (*domain.Edition, error) {
	current, err := s.ledger.GetCurrent(ctx, assetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, storageErr("get current edition", err)
	}
	return current, nil
}

// ListVersions returns every edition of the asset, oldest first.
func (s *EditionService) ListVersions(ctx context.Context, assetID string) ([]domain.Edition, error) {
	editions, err := s.ledger.ListEditions(ctx, assetID)
	if err != nil {
		return nil, storageErr("list editions", err)
	}
	return editions, nil
}

// ReadEditionFile returns an edition together with its stored bytes.
func (s *EditionService) ReadEditionFile(ctx context.Context, assetID string, version int) (*domain.Edition, []byte, error) {
	edition, err := s.ledger.GetEdition(ctx, assetID, version)
	if err != nil {
		return nil, nil, storageErr("get edition", err)
	}
	data, err := s.files.Get(ctx, edition.Location.Key())
	if err != nil {
		return nil, nil, storageErr("read "+edition.Location.Key(), err)
	}
	return edition, data, nil
}
