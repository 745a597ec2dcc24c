package domain

import (
	"context"
	"path"
	"time"
)

// Location is where the rendered bytes of an Edition live.
type Location struct {
	Directory string
	FileName  string
}

// Key returns the FileStore key for the location.
func (l Location) Key() string {
	return path.Join(l.Directory, l.FileName)
}

// EditRecord is one entry of an Edition's cumulative edit history.
type EditRecord struct {
	Type      EditKind  `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Edition is one immutable rendition of an Asset.
// Only IsCurrent ever changes after insertion.
type Edition struct {
	AssetID       string
	VersionNumber int
	Location      Location
	ContentType   string
	ByteSize      *int64
	Width         *int // nil when the bytes are not a decodable image
	Height        *int
	IsOriginal    bool
	IsCurrent     bool
	EditsApplied  []EditRecord
	CreatedAt     time.Time
}

// EditionLedger is the authoritative record of every Edition of every Asset.
type EditionLedger interface {
	// ListEditions returns all editions ordered by version ascending.
	// An unknown asset yields an empty slice, not an error.
	ListEditions(ctx context.Context, assetID string) ([]Edition, error)
	// GetCurrent returns ErrNotFound when the asset has no current edition.
	GetCurrent(ctx context.Context, assetID string) (*Edition, error)
	GetEdition(ctx context.Context, assetID string, version int) (*Edition, error)
	// NextVersionNumber is one past the highest version ever stored, or 1.
	NextVersionNumber(ctx context.Context, assetID string) (int, error)
	InsertEdition(ctx context.Context, edition *Edition) error
	// SetCurrent clears the current flag on every edition of the asset and
	// sets it on the target, atomically.
	SetCurrent(ctx context.Context, assetID string, version int) error
	// AppendCurrent inserts the edition and makes it current in one step.
	AppendCurrent(ctx context.Context, edition *Edition) error
	DeleteEdition(ctx context.Context, assetID string, version int) error
}
