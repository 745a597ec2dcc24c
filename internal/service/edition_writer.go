package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/msomdec/gallery/internal/domain"
)

const versionsDir = "versions"

var versionSuffix = regexp.MustCompile(`_v\d+$`)

// DeriveLocation returns where version n of an asset is stored, given the
// asset's current edition and the extension of the rendered bytes. Edits of
// the original go to <dir>/versions/<assetID>/; later edits stay beside the
// current edition. The file name is the original stem plus _v<n>.
func DeriveLocation(current *domain.Edition, assetID string, n int, ext string) domain.Location {
	dir := current.Location.Directory
	if current.IsOriginal {
		dir = path.Join(dir, versionsDir, assetID)
	}

	name := current.Location.FileName
	currentExt := path.Ext(name)
	stem := versionSuffix.ReplaceAllString(strings.TrimSuffix(name, currentExt), "")
	if ext == "" {
		ext = currentExt
	}
	return domain.Location{
		Directory: dir,
		FileName:  stem + "_v" + strconv.Itoa(n) + ext,
	}
}

// processAndSaveVersion renders t against the current edition and records the
// result as the new current edition. The caller holds the asset lock.
func (s *EditionService) processAndSaveVersion(ctx context.Context, assetID string, t domain.Transform) (*domain.Edition, error) {
	current, err := s.ledger.GetCurrent(ctx, assetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: asset %s has no current edition", domain.ErrNotFound, assetID)
		}
		return nil, storageErr("load current edition", err)
	}

	if c, ok := t.(domain.Crop); ok && current.Width != nil && current.Height != nil {
		if !c.WithinBounds(*current.Width, *current.Height) {
			return nil, fmt.Errorf("%w: crop %dx%d+%d+%d exceeds image %dx%d", domain.ErrInvalidInput,
				c.Width, c.Height, c.X, c.Y, *current.Width, *current.Height)
		}
	}

	n, err := s.ledger.NextVersionNumber(ctx, assetID)
	if err != nil {
		return nil, storageErr("next version number", err)
	}

	src, err := s.files.Get(ctx, current.Location.Key())
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrStorageFailed, current.Location.Key(), err)
	}

	rendered, err := s.render(ctx, src, t)
	if err != nil {
		return nil, err
	}

	loc := DeriveLocation(current, assetID, n, domain.ExtensionForFormat(rendered.Format))
	if err := s.saveFile(ctx, loc.Key(), rendered.Data); err != nil {
		return nil, err
	}

	size := int64(len(rendered.Data))
	width, height := rendered.Width, rendered.Height
	next := &domain.Edition{
		AssetID:       assetID,
		VersionNumber: n,
		Location:      loc,
		ContentType:   domain.ContentTypeForFormat(rendered.Format),
		ByteSize:      &size,
		Width:         &width,
		Height:        &height,
		IsCurrent:     true,
		EditsApplied: append(slices.Clone(current.EditsApplied), domain.EditRecord{
			Type:      t.Kind(),
			Timestamp: s.now().UTC(),
		}),
	}

	if err := s.ledger.AppendCurrent(ctx, next); err != nil {
		slog.Error("orphaned edition file", "asset_id", assetID, "version", n, "key", loc.Key(), "error", err)
		return nil, fmt.Errorf("%w: record edition v%d: %w", domain.ErrStorageFailed, n, err)
	}

	slog.Info("edition created", "asset_id", assetID, "version", n, "edit", t.Kind(), "from_version", current.VersionNumber)
	return next, nil
}

// saveFile writes rendered bytes. A file already at key can only be left
// over from an attempt whose ledger write failed, since version numbers
// are never reissued, so it is replaced.
func (s *EditionService) saveFile(ctx context.Context, key string, data []byte) error {
	err := s.files.Save(ctx, key, data)
	if errors.Is(err, domain.ErrConflict) {
		slog.Warn("replacing orphaned edition file", "key", key)
		if err = s.files.Delete(ctx, key); err == nil {
			err = s.files.Save(ctx, key, data)
		}
	}
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrStorageFailed, key, err)
	}
	return nil
}

// render runs the engine under the transform timeout and the global
// concurrency limit. The engine keeps its semaphore slot until it returns,
// even when the caller has already given up on it.
func (s *EditionService) render(ctx context.Context, src []byte, t domain.Transform) (*domain.Rendered, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: waiting for transform slot: %w", domain.ErrTransformFailed, err)
	}

	type result struct {
		rendered *domain.Rendered
		err      error
	}
	done := make(chan result, 1)
	go func() {
		defer s.sem.Release(1)
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("%w: %s: panic: %v", domain.ErrTransformFailed, t.Kind(), p)}
			}
		}()
		r, err := s.engine.Apply(ctx, src, t)
		done <- result{r, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, domain.ErrInvalidInput) || errors.Is(res.err, domain.ErrTransformFailed) {
				return nil, res.err
			}
			return nil, fmt.Errorf("%w: %w", domain.ErrTransformFailed, res.err)
		}
		return res.rendered, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrTransformFailed, t.Kind(), ctx.Err())
	}
}

// storageErr passes domain errors through and classifies everything else
// as a storage fault.
func storageErr(op string, err error) error {
	for _, known := range []error{domain.ErrNotFound, domain.ErrConflict, domain.ErrStorageFailed} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageFailed, op, err)
}
