package handler

import (
	"fmt"
	"time"

	"github.com/msomdec/gallery/internal/domain"
)

// UserDTO is the JSON representation of a user.
type UserDTO struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   string `json:"createdAt"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt.Format(time.RFC3339),
	}
}

// AssetDTO is the JSON representation of an asset.
type AssetDTO struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	CreatedAt string `json:"createdAt"`
}

func toAssetDTO(a *domain.Asset) AssetDTO {
	return AssetDTO{
		ID:        a.ID,
		Kind:      string(a.Kind),
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

// EditRecordDTO is one entry of an edition's edit history.
type EditRecordDTO struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// EditionDTO is the JSON representation of an edition.
type EditionDTO struct {
	AssetID      string          `json:"assetId"`
	Version      int             `json:"version"`
	Directory    string          `json:"directory"`
	FileName     string          `json:"fileName"`
	ContentType  string          `json:"contentType"`
	ByteSize     *int64          `json:"byteSize"`
	Width        *int            `json:"width"`
	Height       *int            `json:"height"`
	IsOriginal   bool            `json:"isOriginal"`
	IsCurrent    bool            `json:"isCurrent"`
	EditsApplied []EditRecordDTO `json:"editsApplied"`
	CreatedAt    string          `json:"createdAt"`
}

func toEditionDTO(e *domain.Edition) EditionDTO {
	edits := make([]EditRecordDTO, len(e.EditsApplied))
	for i, rec := range e.EditsApplied {
		edits[i] = EditRecordDTO{Type: string(rec.Type), Timestamp: rec.Timestamp.Format(time.RFC3339Nano)}
	}
	return EditionDTO{
		AssetID:      e.AssetID,
		Version:      e.VersionNumber,
		Directory:    e.Location.Directory,
		FileName:     e.Location.FileName,
		ContentType:  e.ContentType,
		ByteSize:     e.ByteSize,
		Width:        e.Width,
		Height:       e.Height,
		IsOriginal:   e.IsOriginal,
		IsCurrent:    e.IsCurrent,
		EditsApplied: edits,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
}

func toEditionDTOs(editions []domain.Edition) []EditionDTO {
	dtos := make([]EditionDTO, len(editions))
	for i := range editions {
		dtos[i] = toEditionDTO(&editions[i])
	}
	return dtos
}

// editRequest is the body of POST /api/assets/{id}/edits. Which fields
// apply depends on Type.
type editRequest struct {
	Type      string `json:"type"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Degrees   int    `json:"degrees"`
	Fit       string `json:"fit"`
	Direction string `json:"direction"`
}

func (req editRequest) toTransform() (domain.Transform, error) {
	switch domain.EditKind(req.Type) {
	case domain.EditCrop:
		return domain.Crop{X: req.X, Y: req.Y, Width: req.Width, Height: req.Height}, nil
	case domain.EditRotate:
		return domain.Rotate{Degrees: req.Degrees}, nil
	case domain.EditResize:
		fit := domain.ResizeFit(req.Fit)
		if fit == "" {
			fit = domain.FitCover
		}
		return domain.Resize{Width: req.Width, Height: req.Height, Fit: fit}, nil
	case domain.EditFlip:
		return domain.Flip{Direction: domain.FlipDirection(req.Direction)}, nil
	}
	return nil, fmt.Errorf("%w: unknown edit type %q", domain.ErrInvalidInput, req.Type)
}
