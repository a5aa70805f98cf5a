package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/star/satconsole/internal/upload"
)

// maxFieldBytes bounds the plain form fields of a multipart upload.
const maxFieldBytes = 256

type uploadsResponse struct {
	Uploads []upload.Task `json:"uploads"`
	Count   int           `json:"count"`
}

type createUploadsRequest struct {
	Files []upload.File `json:"files"`
}

func (s *Server) listUploads(w http.ResponseWriter, r *http.Request) {
	tasks := s.deps.Queue.List()
	writeJSON(w, http.StatusOK, uploadsResponse{Uploads: tasks, Count: len(tasks)})
}

func (s *Server) uploadHistory(w http.ResponseWriter, r *http.Request) {
	tasks := upload.History()
	writeJSON(w, http.StatusOK, uploadsResponse{Uploads: tasks, Count: len(tasks)})
}

func (s *Server) getUpload(w http.ResponseWriter, r *http.Request) {
	t, ok := s.deps.Queue.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "upload not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// deleteUpload is idempotent: unknown IDs also answer 204.
func (s *Server) deleteUpload(w http.ResponseWriter, r *http.Request) {
	s.deps.Queue.Remove(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// createUploads accepts either a JSON list of file descriptors or a
// multipart form of real files. File contents are counted and discarded.
func (s *Server) createUploads(w http.ResponseWriter, r *http.Request) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	var files []upload.File
	switch mediaType {
	case "multipart/form-data":
		// Large files outlive the server's default write deadline.
		if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
			s.logger.Debug("could not clear write deadline", "component", "api", "error", err)
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
		files, err = readMultipartFiles(r)
	case "application/json", "":
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		files, err = readJSONFiles(r.Body)
	default:
		writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json or multipart/form-data")
		return
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tasks, err := s.deps.Queue.Enqueue(files)
	if err != nil {
		if errors.Is(err, upload.ErrQueueClosed) {
			writeError(w, http.StatusServiceUnavailable, "upload queue is shutting down")
			return
		}
		s.logger.Error("enqueue failed", "component", "api", "error", err)
		writeError(w, http.StatusInternalServerError, "enqueue failed")
		return
	}
	writeJSON(w, http.StatusCreated, uploadsResponse{Uploads: tasks, Count: len(tasks)})
}

func readJSONFiles(body io.Reader) ([]upload.File, error) {
	var req createUploadsRequest
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	for i, f := range req.Files {
		if strings.TrimSpace(f.Name) == "" {
			return nil, fmt.Errorf("files[%d]: name is required", i)
		}
		if f.SizeBytes < 0 {
			return nil, fmt.Errorf("files[%d]: size_bytes must not be negative", i)
		}
	}
	return req.Files, nil
}

// readMultipartFiles streams every "file" part, recording its name and
// length. Optional "satellite" and "data_type" fields tag all files in the
// request regardless of where they appear in the form.
func readMultipartFiles(r *http.Request) ([]upload.File, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("invalid multipart body: %w", err)
	}

	var files []upload.File
	var satellite, dataType string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading multipart body: %w", err)
		}

		switch part.FormName() {
		case "file":
			name := part.FileName()
			if name == "" {
				part.Close()
				return nil, errors.New("file part without a file name")
			}
			n, err := io.Copy(io.Discard, part)
			part.Close()
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", name, err)
			}
			files = append(files, upload.File{Name: name, SizeBytes: n})
		case "satellite", "data_type":
			value, err := readField(part)
			if err != nil {
				return nil, err
			}
			if part.FormName() == "satellite" {
				satellite = value
			} else {
				dataType = value
			}
		default:
			// Unknown parts are drained and ignored.
			_, err := io.Copy(io.Discard, part)
			part.Close()
			if err != nil {
				return nil, fmt.Errorf("reading form part %q: %w", part.FormName(), err)
			}
		}
	}

	for i := range files {
		files[i].Satellite = satellite
		files[i].DataType = dataType
	}
	return files, nil
}

func readField(part io.ReadCloser) (string, error) {
	defer part.Close()
	b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading form field: %w", err)
	}
	if len(b) > maxFieldBytes {
		return "", fmt.Errorf("form field longer than %d bytes", maxFieldBytes)
	}
	return strings.TrimSpace(string(b)), nil
}
