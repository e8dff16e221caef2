package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/podforge/podforge/internal/schema"
)

const maxUploadBytes = 32 << 20

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// IsHTTPError checks whether an error is an *HTTPError.
func IsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// ExportUploads carries the optional file parts of an export request.
type ExportUploads struct {
	UserVoice io.Reader
	Music     io.Reader
}

// ParseExportRequest decodes and validates an export request. JSON and
// msgpack bodies carry the payload alone; multipart bodies carry a "payload"
// JSON part plus optional "user_voice" and "background_music" file parts.
func ParseExportRequest(r *http.Request) (*schema.ExportRequest, ExportUploads, error) {
	var (
		req     schema.ExportRequest
		uploads ExportUploads
	)

	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}

	switch strings.ToLower(mediaType) {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, uploads, &HTTPError{Status: http.StatusBadRequest, Message: "Invalid request body"}
		}
	case "application/msgpack":
		if err := msgpack.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, uploads, &HTTPError{Status: http.StatusBadRequest, Message: "Invalid request body"}
		}
	case "multipart/form-data":
		uploads, err = parseExportMultipart(r, &req)
		if err != nil {
			return nil, uploads, err
		}
	default:
		return nil, uploads, &HTTPError{Status: http.StatusUnsupportedMediaType, Message: "Unsupported content type"}
	}

	if err := req.Validate(); err != nil {
		return nil, uploads, &HTTPError{Status: http.StatusBadRequest, Message: err.Error()}
	}

	return &req, uploads, nil
}

func parseExportMultipart(r *http.Request, req *schema.ExportRequest) (ExportUploads, error) {
	var uploads ExportUploads

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return uploads, &HTTPError{Status: http.StatusBadRequest, Message: "Invalid multipart form"}
	}

	payloads, ok := r.MultipartForm.Value["payload"]
	if !ok || len(payloads) == 0 {
		return uploads, &HTTPError{Status: http.StatusBadRequest, Message: "Missing payload part"}
	}
	if err := json.Unmarshal([]byte(payloads[0]), req); err != nil {
		return uploads, &HTTPError{Status: http.StatusBadRequest, Message: "Invalid multipart payload"}
	}

	uploads.UserVoice, ok = openFilePart(r, "user_voice")
	if !ok {
		return uploads, &HTTPError{Status: http.StatusBadRequest, Message: "Invalid file upload"}
	}
	uploads.Music, ok = openFilePart(r, "background_music")
	if !ok {
		return uploads, &HTTPError{Status: http.StatusBadRequest, Message: "Invalid file upload"}
	}

	return uploads, nil
}

// openFilePart opens the named file part if present. A missing part is not
// an error; a present-but-unreadable one is.
func openFilePart(r *http.Request, name string) (io.Reader, bool) {
	files, ok := r.MultipartForm.File[name]
	if !ok || len(files) == 0 {
		return nil, true
	}
	f, err := files[0].Open()
	if err != nil {
		return nil, false
	}
	return f, true
}
