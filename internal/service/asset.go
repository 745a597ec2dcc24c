package service

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/gallery/internal/domain"
)

// MaxUploadBytes is the largest original accepted by Ingest.
const MaxUploadBytes = 25 << 20

const (
	originalsDir   = "originals"
	cleanupTimeout = 10 * time.Second
)

var uploadKinds = map[string]domain.AssetKind{
	"image/jpeg":      domain.AssetKindPhoto,
	"image/png":       domain.AssetKindPhoto,
	"image/gif":       domain.AssetKindPhoto,
	"image/bmp":       domain.AssetKindPhoto,
	"image/tiff":      domain.AssetKindPhoto,
	"image/webp":      domain.AssetKindPhoto,
	"video/mp4":       domain.AssetKindVideo,
	"video/quicktime": domain.AssetKindVideo,
}

// AssetService registers uploaded media and answers ownership questions.
type AssetService struct {
	assets   domain.AssetRepository
	files    domain.FileStore
	editions *EditionService
}

// NewAssetService creates a new AssetService.
func NewAssetService(assets domain.AssetRepository, files domain.FileStore, editions *EditionService) *AssetService {
	return &AssetService{assets: assets, files: files, editions: editions}
}

// Ingest stores an uploaded file as a new asset owned by userID and
// registers it as the asset's original edition.
func (s *AssetService) Ingest(ctx context.Context, userID int64, fileName, contentType string, data []byte) (*domain.Asset, *domain.Edition, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: file is empty", domain.ErrInvalidInput)
	}
	if len(data) > MaxUploadBytes {
		return nil, nil, fmt.Errorf("%w: file exceeds %d MB", domain.ErrInvalidInput, MaxUploadBytes>>20)
	}

	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), `\`, "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return nil, nil, fmt.Errorf("%w: file name is required", domain.ErrInvalidInput)
	}

	kind, err := detectKind(contentType, data)
	if err != nil {
		return nil, nil, err
	}

	asset := &domain.Asset{
		ID:          uuid.NewString(),
		OwnerUserID: userID,
		Kind:        kind,
	}
	dir := path.Join(originalsDir, asset.ID)
	key := path.Join(dir, name)

	if err := s.files.Save(ctx, key, data); err != nil {
		return nil, nil, fmt.Errorf("%w: write %s: %w", domain.ErrStorageFailed, key, err)
	}
	if err := s.assets.Create(ctx, asset); err != nil {
		if delErr := s.files.Delete(ctx, key); delErr != nil {
			slog.Error("failed to remove upload after asset create failed", "key", key, "error", delErr)
		}
		return nil, nil, storageErr("create asset", err)
	}

	original, err := s.editions.CreateOriginalVersion(ctx, asset.ID, dir, name)
	if err != nil {
		s.discard(asset.ID, key)
		return nil, nil, err
	}

	slog.Info("asset ingested", "asset_id", asset.ID, "user_id", userID, "kind", kind, "bytes", len(data))
	return asset, original, nil
}

// discard removes an asset whose original could not be registered. It runs
// on a fresh context so a cancelled request still cleans up.
func (s *AssetService) discard(assetID, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := s.assets.Delete(ctx, assetID); err != nil {
		slog.Error("failed to remove asset after original registration failed", "asset_id", assetID, "error", err)
	}
	if err := s.files.Delete(ctx, key); err != nil {
		slog.Error("failed to remove upload after original registration failed", "key", key, "error", err)
	}
}

// Owner verifies that userID owns the asset. It returns ErrNotFound for an
// unknown asset and ErrUnauthorized for someone else's.
func (s *AssetService) Owner(ctx context.Context, userID int64, assetID string) error {
	ownerID, err := s.assets.GetOwnerUserID(ctx, assetID)
	if err != nil {
		return storageErr("get asset owner", err)
	}
	if ownerID != userID {
		return domain.ErrUnauthorized
	}
	return nil
}

// Get returns the asset's metadata.
func (s *AssetService) Get(ctx context.Context, assetID string) (*domain.Asset, error) {
	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, storageErr("get asset", err)
	}
	return asset, nil
}

// detectKind trusts a declared media type when it is one we accept and
// falls back to sniffing otherwise.
func detectKind(declared string, data []byte) (domain.AssetKind, error) {
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		if kind, ok := uploadKinds[mt]; ok {
			return kind, nil
		}
	}
	sniffed := http.DetectContentType(data)
	if mt, _, err := mime.ParseMediaType(sniffed); err == nil {
		if kind, ok := uploadKinds[mt]; ok {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported media type %q", domain.ErrInvalidInput, declared)
}
