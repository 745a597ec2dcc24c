package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/msomdec/gallery/internal/domain"
	"github.com/msomdec/gallery/internal/repository/sqlite"
)

func intPtr(v int) *int { return &v }

func newEdition(assetID string, version int, original bool) *domain.Edition {
	size := int64(1024)
	return &domain.Edition{
		AssetID:       assetID,
		VersionNumber: version,
		Location:      domain.Location{Directory: "originals/" + assetID, FileName: "a.jpg"},
		ContentType:   "image/jpeg",
		ByteSize:      &size,
		Width:         intPtr(800),
		Height:        intPtr(600),
		IsOriginal:    original,
	}
}

func seedOriginal(t *testing.T, ledger *sqlite.EditionLedger, assetID string) {
	t.Helper()
	e := newEdition(assetID, 1, true)
	e.IsCurrent = true
	if err := ledger.InsertEdition(context.Background(), e); err != nil {
		t.Fatalf("InsertEdition original: %v", err)
	}
}

func TestEditionLedger_ListEditions_UnknownAsset(t *testing.T) {
	db := newTestDB(t)
	ledger := sqlite.NewEditionLedger(db)

	editions, err := ledger.ListEditions(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ListEditions: %v", err)
	}
	if editions == nil || len(editions) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", editions)
	}
}

func TestEditionLedger_InsertAndGet(t *testing.T) {
	db := newTestDB(t)
	ledger := sqlite.NewEditionLedger(db)
	ctx := context.Background()
	seedOriginal(t, ledger, "p1")

	e, err := ledger.GetEdition(ctx, "p1", 1)
	if err != nil {
		t.Fatalf("GetEdition: %v", err)
	}
	if !e.IsOriginal || !e.IsCurrent {
		t.Fatalf("expected original+current, got original=%v current=%v", e.IsOriginal, e.IsCurrent)
	}
	if e.Width == nil || *e.Width != 800 || e.Height == nil || *e.Height != 600 {
		t.Fatalf("unexpected dimensions: %v x %v", e.Width, e.Height)
	}
	if e.EditsApplied == nil || len(e.EditsApplied) != 0 {
		t.Fatalf("expected empty edit history, got %v", e.EditsApplied)
	}
	if e.Location.Key() != "originals/p1/a.jpg" {
		t.Fatalf("unexpected key %q", e.Location.Key())
	}
}

func TestEditionLedger_NullableDimensions(t *testing.T) {
	db := newTestDB(t)
	ledger := sqlite.NewEditionLedger(db)
	ctx := context.Background()

	e := &domain.Edition{
		AssetID:       "v1",
		VersionNumber: 1,
		Location:      domain.Location{Directory: "originals/v1", FileName: "clip.mp4"},
		IsOriginal:    true,
		IsCurrent:     true,
	}
	if err := ledger.InsertEdition(ctx, e); err != nil {
		t.Fatalf("InsertEdition: %v", err)
	}

	got, err := ledger.GetCurrent(ctx, "v1")
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if got.Width != nil || got.Height != nil || got.ByteSize != nil {
		t.Fatal("expected nil dimensions for unprobed original")
	}
}

func TestEditionLedger_GetCurrent_NotFound(t *testing.T) {
	db := newTestDB(t)
	ledger := sqlite.NewEditionLedger(db)

	_, err := ledger.GetCurrent(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEditionLedger_AppendCurrent_FlipsPointer(t *testing.T) {
	db := newTestDB(t)
	ledger := sqlite.NewEditionLedger(db)
	ctx := context.Background()
	seedOriginal(t, ledger, "p1")

	next, err := ledger.NextVersionNumber(ctx, "p1")
	if err != nil {
		t.Fatalf("NextVersionNumber: %v", err)
	}
	if next != 2 {
		t.Fatalf("expected next version 2, got %d", next)
	}

	e := newEdition("p1", next, false)
	e.EditsApplied = []domain.EditRecord{{Type: domain.EditRotate, Timestamp: time.Now().UTC()}}
	if err := ledger.AppendCurrent(ctx, e); err != nil {
		t.Fatalf("AppendCurrent: %v", err)
	}

	current, err := ledger.GetCurrent(ctx, "p1")
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if current.VersionNumber != 2 {
		t.Fatalf("expected v2 current, got v%d", current.VersionNumber)
	}
	if len(current.EditsApplied) != 1 || current.EditsApplied[0].Type != domain.EditRotate {
		t.Fatalf("unexpected history %v", current.EditsApplied)
	}

	v1, err := ledger.GetEdition(ctx, "p1", 1)
	if err != nil {
		t.Fatalf("GetEdition v1: %v", err)
	}
	if v1.IsCurrent {
		t.Fatal("expected v1 demoted")
	}
}

func TestEditionLedger_InsertSecondCurrentRejected(t *testing.T) {
	db := newTestDB(t)
	ledger := sqlite.NewEditionLedger(db)
	seedOriginal(t, ledger, "p1")

	e := newEdition("p1", 2, false)
	e.IsCurrent = true
	err := ledger.InsertEdition(context.Background(), e)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestEditionLedger_InsertSecondOriginalRejected(t *testing.T) {
	db := newTestDB(t)
	ledger := sqlite.NewEditionLedger(db)
	seedOriginal(t, ledger, "p1")

	err := ledger.InsertEdition(context.Background(), newEdition("p1", 2, true))
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestEditionLedger_SetCurrent_MissingTargetKeepsPointer(t *testing.T) {
	db := newTestDB(t)
	ledger := sqlite.NewEditionLedger(db)
	ctx := context.Background()
	seedOriginal(t, ledger, "p1")

	err := ledger.SetCurrent(ctx, "p1", 9)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	current, err := ledger.GetCurrent(ctx, "p1")
	if err != nil {
		t.Fatalf("GetCurrent after failed SetCurrent: %v", err)
	}
	if current.VersionNumber != 1 {
		t.Fatalf("expected v1 still current, got v%d", current.VersionNumber)
	}
}

func TestEditionLedger_DeleteNeverReusesVersion(t *testing.T) {
	db := newTestDB(t)
	ledger := sqlite.NewEditionLedger(db)
	ctx := context.Background()
	seedOriginal(t, ledger, "p1")

	if err := ledger.AppendCurrent(ctx, newEdition("p1", 2, false)); err != nil {
		t.Fatalf("AppendCurrent: %v", err)
	}
	if err := ledger.SetCurrent(ctx, "p1", 1); err != nil {
		t.Fatalf("SetCurrent: %v", err)
	}
	if err := ledger.DeleteEdition(ctx, "p1", 2); err != nil {
		t.Fatalf("DeleteEdition: %v", err)
	}

	next, err := ledger.NextVersionNumber(ctx, "p1")
	if err != nil {
		t.Fatalf("NextVersionNumber: %v", err)
	}
	if next != 3 {
		t.Fatalf("expected next version 3 after deleting v2, got %d", next)
	}

	if err := ledger.DeleteEdition(ctx, "p1", 2); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestEditionLedger_ListOrdered(t *testing.T) {
	db := newTestDB(t)
	ledger := sqlite.NewEditionLedger(db)
	ctx := context.Background()
	seedOriginal(t, ledger, "p1")

	for v := 2; v <= 4; v++ {
		if err := ledger.AppendCurrent(ctx, newEdition("p1", v, false)); err != nil {
			t.Fatalf("AppendCurrent v%d: %v", v, err)
		}
	}

	editions, err := ledger.ListEditions(ctx, "p1")
	if err != nil {
		t.Fatalf("ListEditions: %v", err)
	}
	if len(editions) != 4 {
		t.Fatalf("expected 4 editions, got %d", len(editions))
	}
	currents := 0
	for i, e := range editions {
		if e.VersionNumber != i+1 {
			t.Fatalf("position %d: expected v%d, got v%d", i, i+1, e.VersionNumber)
		}
		if e.IsCurrent {
			currents++
		}
	}
	if currents != 1 || !editions[3].IsCurrent {
		t.Fatalf("expected only v4 current, got %d current rows", currents)
	}
}
