package demo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnprr/SnapDish/internal/vision"
)

type stubAnalyzer struct {
	prediction *vision.Prediction
	err        error
}

func (s stubAnalyzer) Analyze(context.Context, []byte) (*vision.Prediction, error) {
	return s.prediction, s.err
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", "meal.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newServer(a Analyzer) http.Handler {
	return NewServer(a, 1<<20, slog.New(slog.NewTextHandler(io.Discard, nil))).Routes()
}

func TestIndex(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer(stubAnalyzer{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `enctype="multipart/form-data"`)
	assert.NotContains(t, rec.Body.String(), `class="error"`)
}

func TestUpload(t *testing.T) {
	t.Run("renders prediction", func(t *testing.T) {
		a := stubAnalyzer{prediction: &vision.Prediction{
			PredictedClass:    "ramen",
			Probability:       0.876543,
			EstimatedCalories: 512.346,
		}}
		rec := httptest.NewRecorder()
		newServer(a).ServeHTTP(rec, uploadRequest(t, pngBytes(t)))

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "ramen")
		assert.Contains(t, body, "0.8765")
		assert.Contains(t, body, "512.35")
		assert.Contains(t, body, `src="data:image/png;base64,`)
	})

	t.Run("prediction failure is inline", func(t *testing.T) {
		a := stubAnalyzer{err: fmt.Errorf("%w: model offline", vision.ErrPrediction)}
		rec := httptest.NewRecorder()
		newServer(a).ServeHTTP(rec, uploadRequest(t, pngBytes(t)))

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "An error occurred during prediction")
		assert.Contains(t, body, `<form method="post"`)
	})

	t.Run("unreadable image", func(t *testing.T) {
		a := stubAnalyzer{err: fmt.Errorf("%w: unknown format", vision.ErrInvalidImage)}
		rec := httptest.NewRecorder()
		newServer(a).ServeHTTP(rec, uploadRequest(t, []byte("not an image")))

		body := rec.Body.String()
		assert.Contains(t, body, "does not look like an image")
		assert.NotContains(t, body, "<img")
	})

	t.Run("missing file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newServer(stubAnalyzer{err: errors.New("unused")}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Please choose an image to upload.")
	})
}
