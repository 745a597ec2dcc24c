package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/msomdec/gallery/internal/domain"
	"github.com/msomdec/gallery/internal/service"
)

const multipartMemory = 8 << 20

// AssetHandler serves uploads and the edition history of an asset.
type AssetHandler struct {
	assets   *service.AssetService
	editions *service.EditionService
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(assets *service.AssetService, editions *service.EditionService) *AssetHandler {
	return &AssetHandler{assets: assets, editions: editions}
}

// HandleUpload stores a multipart "file" field as a new asset.
// POST /api/assets
// Response: {"asset": {...}, "edition": {...}}
func (h *AssetHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large.")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form.")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read upload.")
		return
	}

	asset, original, err := h.assets.Ingest(r.Context(), user.ID, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		writeServiceError(w, "ingest asset", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"asset":   toAssetDTO(asset),
		"edition": toEditionDTO(original),
	})
}

// HandleGet returns the asset's metadata with its current edition.
// GET /api/assets/{id}
// Response: {"asset": {...}, "current": {...} | null}
func (h *AssetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.ownedAsset(w, r)
	if !ok {
		return
	}
	asset, err := h.assets.Get(r.Context(), assetID)
	if err != nil {
		writeServiceError(w, "get asset", err)
		return
	}
	current, err := h.editions.GetCurrentVersion(r.Context(), assetID)
	if err != nil {
		writeServiceError(w, "get current version", err)
		return
	}
	var currentDTO *EditionDTO
	if current != nil {
		dto := toEditionDTO(current)
		currentDTO = &dto
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset":   toAssetDTO(asset),
		"current": currentDTO,
	})
}

// HandleListVersions returns every edition of the asset, oldest first.
// GET /api/assets/{id}/versions
func (h *AssetHandler) HandleListVersions(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.ownedAsset(w, r)
	if !ok {
		return
	}
	editions, err := h.editions.ListVersions(r.Context(), assetID)
	if err != nil {
		writeServiceError(w, "list versions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": toEditionDTOs(editions)})
}

// HandleCurrentVersion returns the current edition.
// GET /api/assets/{id}/versions/current
func (h *AssetHandler) HandleCurrentVersion(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.ownedAsset(w, r)
	if !ok {
		return
	}
	current, err := h.editions.GetCurrentVersion(r.Context(), assetID)
	if err != nil {
		writeServiceError(w, "get current version", err)
		return
	}
	if current == nil {
		writeError(w, http.StatusNotFound, "Asset has no current version.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"version": toEditionDTO(current)})
}

// HandleApplyEdit renders an edit and returns the new current edition.
// POST /api/assets/{id}/edits
// Request: {"type":"rotate","degrees":90} | {"type":"crop","x":0,"y":0,"width":10,"height":10} | ...
func (h *AssetHandler) HandleApplyEdit(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.ownedAsset(w, r)
	if !ok {
		return
	}

	var req editRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	t, err := req.toTransform()
	if err != nil {
		writeServiceError(w, "apply edit", err)
		return
	}

	edition, err := h.editions.ApplyEdit(r.Context(), assetID, t)
	if err != nil {
		writeServiceError(w, "apply edit", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"version": toEditionDTO(edition)})
}

// HandleRestore makes an existing edition current.
// POST /api/assets/{id}/versions/{version}/restore
func (h *AssetHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.ownedAsset(w, r)
	if !ok {
		return
	}
	version, ok := versionParam(w, r)
	if !ok {
		return
	}

	edition, err := h.editions.RestoreVersion(r.Context(), assetID, version)
	if err != nil {
		writeServiceError(w, "restore version", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"version": toEditionDTO(edition)})
}

// HandleDelete removes a non-original, non-current edition.
// DELETE /api/assets/{id}/versions/{version}
func (h *AssetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.ownedAsset(w, r)
	if !ok {
		return
	}
	version, ok := versionParam(w, r)
	if !ok {
		return
	}

	if err := h.editions.DeleteEdition(r.Context(), assetID, version); err != nil {
		writeServiceError(w, "delete version", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleFile streams the stored bytes of an edition. Editions never change,
// so responses are cacheable indefinitely.
// GET /api/assets/{id}/versions/{version}/file
func (h *AssetHandler) HandleFile(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.ownedAsset(w, r)
	if !ok {
		return
	}
	version, ok := versionParam(w, r)
	if !ok {
		return
	}

	edition, data, err := h.editions.ReadEditionFile(r.Context(), assetID, version)
	if err != nil {
		writeServiceError(w, "read version file", err)
		return
	}

	w.Header().Set("Content-Type", edition.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ownedAsset resolves {id} and checks it belongs to the caller. Other
// users' assets are reported as missing.
func (h *AssetHandler) ownedAsset(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := UserFromContext(r.Context())
	assetID := r.PathValue("id")

	err := h.assets.Owner(r.Context(), user.ID, assetID)
	if err == nil {
		return assetID, true
	}
	if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Asset not found.")
		return "", false
	}
	writeServiceError(w, "check asset owner", err)
	return "", false
}

func versionParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	version, err := strconv.Atoi(r.PathValue("version"))
	if err != nil || version < 1 {
		writeError(w, http.StatusBadRequest, "Invalid version.")
		return 0, false
	}
	return version, true
}
