package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/vnprr/SnapDish/internal/middleware"
	apierrors "github.com/vnprr/SnapDish/internal/pkg/errors"
	"github.com/vnprr/SnapDish/internal/pkg/response"
	"github.com/vnprr/SnapDish/internal/vision"
)

// ClassifyHandler serves food photo predictions.
type ClassifyHandler struct {
	analyzer       Analyzer
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewClassifyHandler creates a new classify handler.
func NewClassifyHandler(analyzer Analyzer, maxUploadBytes int64, logger *slog.Logger) *ClassifyHandler {
	return &ClassifyHandler{analyzer: analyzer, maxUploadBytes: maxUploadBytes, logger: logger}
}

// Classify handles POST /classify with a multipart "file" image.
func (h *ClassifyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r, h.maxUploadBytes); err != nil {
		response.Error(w, err)
		return
	}

	data, err := formFile(r, "file")
	if err != nil {
		response.Error(w, err)
		return
	}
	if len(data) == 0 {
		response.Error(w, apierrors.NewValidationError("file", "file is required"))
		return
	}

	prediction, err := h.analyzer.Analyze(r.Context(), data)
	if err != nil {
		if errors.Is(err, vision.ErrInvalidImage) {
			middleware.ObservePrediction("invalid_image")
		} else {
			middleware.ObservePrediction("error")
		}
		writeError(w, h.logger, err, "")
		return
	}
	middleware.ObservePrediction("ok")

	h.logger.Debug("classified image",
		"class", prediction.PredictedClass,
		"probability", prediction.Probability,
		"calories", prediction.EstimatedCalories,
	)
	response.OK(w, prediction)
}
