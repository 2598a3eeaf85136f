package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/oculab/growthtrack/internal/chart"
	"github.com/oculab/growthtrack/internal/service"
)

// ChartHandler builds axial length growth charts from stored measurement
// files.
type ChartHandler struct {
	dataSvc *service.DataService
	logger  zerolog.Logger
}

// NewChartHandler creates a new ChartHandler.
func NewChartHandler(dataSvc *service.DataService, logger zerolog.Logger) *ChartHandler {
	return &ChartHandler{
		dataSvc: dataSvc,
		logger:  logger.With().Str("handler", "chart").Logger(),
	}
}

// measurementFile is the stored shape of a measurement series.
type measurementFile struct {
	PatientName  string              `json:"patientName"`
	Measurements []chart.Measurement `json:"measurements"`
}

// AxialLength handles GET /api/v1/chart/axial-length?file=<name>. Without a
// file parameter, or when the file holds no parsable measurements, the
// reference curves alone are returned.
func (h *ChartHandler) AxialLength(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}

	var mf measurementFile
	if file := r.URL.Query().Get("file"); file != "" {
		raw, err := h.dataSvc.Load(r.Context(), sess, file)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if err := json.Unmarshal(raw, &mf); err != nil {
			h.logger.Warn().Str("file", file).Msg("measurement file has unexpected shape")
		}
	}

	writeJSON(w, http.StatusOK, chart.Build(mf.PatientName, mf.Measurements))
}
