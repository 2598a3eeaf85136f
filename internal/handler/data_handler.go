package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/oculab/growthtrack/internal/service"
)

// maxDataSize caps uploaded data files at 4 MiB.
const maxDataSize = 4 << 20

// DataHandler serves session-scoped data I/O and institution listings.
type DataHandler struct {
	dataSvc *service.DataService
	logger  zerolog.Logger
}

// NewDataHandler creates a new DataHandler.
func NewDataHandler(dataSvc *service.DataService, logger zerolog.Logger) *DataHandler {
	return &DataHandler{
		dataSvc: dataSvc,
		logger:  logger.With().Str("handler", "data").Logger(),
	}
}

// Save handles PUT /api/v1/data/{filename}. The body must be valid JSON; it
// is stored under the session's data directory, replacing any previous
// content.
func (h *DataHandler) Save(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxDataSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > maxDataSize {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	filename := chi.URLParam(r, "filename")
	if err := h.dataSvc.Save(r.Context(), sess, filename, value); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "file": filename})
}

// Load handles GET /api/v1/data/{filename} and returns the stored JSON
// verbatim.
func (h *DataHandler) Load(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}

	filename := chi.URLParam(r, "filename")
	data, err := h.dataSvc.Load(r.Context(), sess, filename)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ListPatients handles GET /api/v1/institution/patients. It enumerates the
// patient directories in the caller's institutional shared directory.
func (h *DataHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}
	if !sess.User.HasInstitution() {
		writeError(w, http.StatusForbidden, "no institution on record")
		return
	}

	ids, err := h.dataSvc.ListInstitutionPatientIDs(r.Context(), sess.User.InstitutionName)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"patientIds": ids})
}

// ListUsers handles GET /api/v1/institution/users. It returns every user of
// the caller's institution that shares data, passwords stripped.
func (h *DataHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}
	if !sess.User.HasInstitution() {
		writeError(w, http.StatusForbidden, "no institution on record")
		return
	}

	users, err := h.dataSvc.ListInstitutionUsers(r.Context(), sess.User.InstitutionName)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}
