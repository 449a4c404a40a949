package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ramonehamilton/MTG-Collection/internal/api/response"
	"github.com/ramonehamilton/MTG-Collection/internal/collection"
	"github.com/ramonehamilton/MTG-Collection/internal/storage/models"
)

// maxUploadSize caps import uploads.
const maxUploadSize = 32 << 20

// CollectionHandler handles collection-related API requests.
type CollectionHandler struct {
	svc *collection.Service
}

// NewCollectionHandler creates a new CollectionHandler.
func NewCollectionHandler(svc *collection.Service) *CollectionHandler {
	return &CollectionHandler{svc: svc}
}

// GetCollection returns every owned card.
func (h *CollectionHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Success(w, cards)
}

// GetSummary returns the collection size and value.
func (h *CollectionHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Success(w, summary)
}

// Import imports an uploaded export. The file is either the multipart
// field "file" or the raw request body. The format follows the "format"
// query parameter, then the file name.
func (h *CollectionHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, name, err := uploadedFile(w, r)
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	defer func() { _ = body.Close() }()

	format := collection.Format(strings.ToLower(r.URL.Query().Get("format")))
	if format == "" {
		format = collection.FormatForFile(name)
	}

	result, err := h.svc.Import(r.Context(), body, collection.ImportOptions{Source: name, Format: format})
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Success(w, result)
}

// uploadedFile returns the upload and its name.
func uploadedFile(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", errors.New("multipart upload must include a \"file\" field")
		}
		return file, header.Filename, nil
	}

	name := r.URL.Query().Get("filename")
	if name == "" {
		name = "upload"
	}
	return r.Body, name, nil
}

// ReplaceCollection replaces every owned card with the request body.
func (h *CollectionHandler) ReplaceCollection(w http.ResponseWriter, r *http.Request) {
	var cards []*models.CollectionCard
	if err := json.NewDecoder(r.Body).Decode(&cards); err != nil {
		response.BadRequest(w, errors.New("invalid request body"))
		return
	}

	saved, err := h.svc.Replace(r.Context(), cards)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Success(w, saved)
}

// SetQuantityRequest edits one card's owned quantity.
type SetQuantityRequest struct {
	Identity string `json:"identity"`
	Set      string `json:"set"`
	Quantity *int   `json:"quantity"`
}

// SetQuantity edits one card's owned quantity.
func (h *CollectionHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var req SetQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, errors.New("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Identity) == "" || req.Quantity == nil {
		response.BadRequest(w, errors.New("identity and quantity are required"))
		return
	}

	card, err := h.svc.SetQuantity(r.Context(), req.Identity, req.Set, *req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Success(w, card)
}

// GetHistory returns recent imports. "limit" defaults to 20.
func (h *CollectionHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(w, errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	history, err := h.svc.History(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Success(w, history)
}
