package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	apierrors "github.com/vnprr/SnapDish/internal/pkg/errors"
)

// timeLayouts are the accepted timestamp forms. Layouts without a zone are
// read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime parses an ISO-8601 timestamp.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", s)
}

// parseForm parses the query string and, for multipart or urlencoded
// bodies, the body. The body is capped at maxBytes.
func parseForm(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if r.ContentLength > maxBytes {
		return apierrors.ErrPayloadTooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var err error
	if mediaType == "multipart/form-data" {
		err = r.ParseMultipartForm(maxBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierrors.ErrPayloadTooLarge
		}
		return apierrors.ErrBadRequest.WithMessage("Invalid form data")
	}
	return nil
}

// formFile reads the named upload. It returns nil bytes when the request
// carries no such file or the file is empty. parseForm must have been called.
func formFile(r *http.Request, field string) ([]byte, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apierrors.ErrBadRequest.WithMessage("Invalid file upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apierrors.ErrBadRequest.WithMessage("Failed to read uploaded file")
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// hasParam reports whether the parsed form carries key at all.
func hasParam(r *http.Request, key string) bool {
	_, ok := r.Form[key]
	return ok
}

// intParam parses a required or optional integer parameter.
func intParam(r *http.Request, key string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(r.Form.Get(key)))
	if err != nil {
		return 0, apierrors.NewValidationError(key, key+" must be an integer")
	}
	return v, nil
}

// caloriesParam parses a non-negative calorie count.
func caloriesParam(r *http.Request) (int, error) {
	calories, err := intParam(r, "calories")
	if err != nil {
		return 0, err
	}
	if calories < 0 {
		return 0, apierrors.NewValidationError("calories", "calories cannot be negative")
	}
	return calories, nil
}

// timeParam parses the time parameter.
func timeParam(r *http.Request) (time.Time, error) {
	t, err := parseTime(r.Form.Get("time"))
	if err != nil {
		return time.Time{}, apierrors.NewValidationError("time", err.Error())
	}
	return t, nil
}
