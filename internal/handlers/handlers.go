package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Brownie44l1/alzdetect/internal/apperr"
	"github.com/Brownie44l1/alzdetect/internal/cache"
	"github.com/Brownie44l1/alzdetect/internal/model"
	"github.com/Brownie44l1/alzdetect/internal/pipeline"
	"github.com/Brownie44l1/alzdetect/internal/report"
	"github.com/Brownie44l1/alzdetect/internal/store"
)

const maxUploadBytes = 10 << 20

type Predictor interface {
	Predict(input []float32) (*model.Prediction, error)
	Ready() bool
}

type RecordStore interface {
	List(ctx context.Context, limit int) ([]store.Record, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	pipeline  *pipeline.Pipeline
	predictor Predictor
	records   RecordStore
	results   cache.Cache
	logger    *zap.Logger
}

func NewHandler(p *pipeline.Pipeline, predictor Predictor, records RecordStore, results cache.Cache, logger *zap.Logger) *Handler {
	return &Handler{
		pipeline:  p,
		predictor: predictor,
		records:   records,
		results:   results,
		logger:    logger,
	}
}

type errorBody struct {
	Kind    apperr.Kind `json:"kind,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Message string      `json:"message"`
}

type predictResponse struct {
	State            pipeline.State    `json:"state"`
	Record           *store.Record     `json:"record,omitempty"`
	Prediction       *model.Prediction `json:"prediction,omitempty"`
	Persisted        bool              `json:"persisted"`
	PersistenceError string            `json:"persistence_error,omitempty"`
	ReportURL        string            `json:"report_url,omitempty"`
	Error            *errorBody        `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "healthy", "model": "loaded", "database": "up"}
	if !h.predictor.Ready() {
		status["status"] = "degraded"
		status["model"] = "unavailable"
	}
	if err := h.records.Ping(r.Context()); err != nil {
		h.logger.Warn("database ping failed", zap.Error(err))
		status["status"] = "degraded"
		status["database"] = "down"
	}
	writeJSON(w, http.StatusOK, status)
}

// Predict runs the full pipeline for a multipart patient form.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	sub := pipeline.Submission{
		Name:    r.FormValue("name"),
		Age:     r.FormValue("age"),
		Gender:  r.FormValue("gender"),
		Contact: r.FormValue("contact"),
	}

	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		sub.Image, err = io.ReadAll(file)
		if err != nil {
			http.Error(w, "Failed to read uploaded image", http.StatusBadRequest)
			return
		}
		h.logger.Debug("received scan", zap.String("filename", header.Filename), zap.Int64("size", header.Size))
	} else if !errors.Is(err, http.ErrMissingFile) {
		http.Error(w, "Failed to read uploaded image", http.StatusBadRequest)
		return
	}

	out := h.pipeline.Run(r.Context(), sub)

	resp := predictResponse{State: out.State, Prediction: out.Prediction, Record: out.Record, Persisted: out.Persisted}
	switch out.State {
	case pipeline.Complete:
		if out.PersistErr != nil {
			resp.PersistenceError = "the result could not be saved"
		}
		if out.ReportReady {
			resp.ReportURL = "/reports/" + out.Record.ID
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		resp.Error = toErrorBody(out.Err)
		writeJSON(w, statusFor(out.Err), resp)
	}
}

// Classify accepts an already normalized tensor and returns the prediction
// without storing anything.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req model.PredictionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	result, err := h.predictor.Predict(req.Image)
	if err != nil {
		status := http.StatusInternalServerError
		if apperr.ReasonOf(err) == model.ReasonMalformedTensor {
			status = http.StatusBadRequest
		}
		h.logger.Warn("tensor classification failed", zap.Int("status", status), zap.Error(err))
		writeJSON(w, status, toErrorBody(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := h.records.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list records", zap.Error(err))
		http.Error(w, "Failed to load records", http.StatusServiceUnavailable)
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// Report renders the PDF for a recently completed prediction.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := h.results.Get(r.Context(), id)
	if errors.Is(err, cache.ErrNotFound) {
		http.Error(w, "Report not found or expired", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load cached result", zap.String("record_id", id), zap.Error(err))
		http.Error(w, "Failed to load result", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, *entry); err != nil {
		h.logger.Error("failed to render report", zap.String("record_id", id), zap.Error(err))
		http.Error(w, "Failed to render report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(id)))
	_, _ = buf.WriteTo(w)
}

func toErrorBody(err error) *errorBody {
	var e *apperr.Error
	if errors.As(err, &e) {
		return &errorBody{Kind: e.Kind, Reason: e.Reason, Message: e.Message}
	}
	return &errorBody{Message: "Prediction failed"}
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindUnsupportedImage:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
