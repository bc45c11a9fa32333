package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/hematrace/labxtract/internal/extract"
	"github.com/hematrace/labxtract/internal/parser"
	"github.com/hematrace/labxtract/internal/pipeline"
)

// ocrResponse is the reply for both /ocr and /ocr/append.
type ocrResponse struct {
	SessionID     string            `json:"session_id"`
	DocumentNames []string          `json:"document_names"`
	ExtractedData *extract.Result   `json:"extracted_data"`
	Errors        map[string]string `json:"errors,omitempty"`
}

func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	combined, names, failures, ok := s.processUpload(w, r)
	if !ok {
		return
	}

	id := s.sessions.Create(combined, names)
	writeJSON(w, http.StatusOK, ocrResponse{
		SessionID:     id,
		DocumentNames: names,
		ExtractedData: combined,
		Errors:        failures,
	})
}

func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	// Session is checked before any OCR work so an unknown id fails fast.
	id := r.FormValue("session_id")
	if id == "" {
		jsonError(w, "session_id is required", http.StatusBadRequest)
		return
	}
	if _, err := s.sessions.Get(id); err != nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	combined, names, failures, ok := s.processUpload(w, r)
	if !ok {
		return
	}

	entry, err := s.sessions.Append(id, combined, names)
	if err != nil {
		// Session expired between the check and the merge.
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ocrResponse{
		SessionID:     id,
		DocumentNames: entry.Documents,
		ExtractedData: entry.Combined,
		Errors:        failures,
	})
}

// processUpload parses the multipart form, stages the files into scoped
// temp files, runs the batch pipeline, and combines the results. When it
// returns ok=false an error response has already been written.
func (s *Server) processUpload(w http.ResponseWriter, r *http.Request) (*extract.Result, []string, map[string]string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, nil, nil, false
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return nil, nil, nil, false
	}

	inputs, cleanup, failures := s.stageUploads(files)
	defer cleanup()

	results := s.processor.ProcessBatch(r.Context(), inputs)
	combined, names, procFailures := pipeline.Combine(results)
	for name, msg := range procFailures {
		failures[name] = msg
	}

	if combined == nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":  "no document could be processed",
			"errors": failures,
		})
		return nil, nil, nil, false
	}
	return combined, names, failures, true
}

// stageUploads writes accepted files to temp files and returns the pipeline
// inputs, a cleanup function that removes every temp file, and per-file
// rejection reasons. Temp files are removed on every exit path via the
// returned cleanup.
func (s *Server) stageUploads(files []*multipart.FileHeader) ([]pipeline.Input, func(), map[string]string) {
	var inputs []pipeline.Input
	var paths []string
	failures := make(map[string]string)

	cleanup := func() {
		for _, p := range paths {
			if err := os.Remove(p); err != nil {
				s.log.Warn("temp file cleanup failed", "path", p, "error", err)
			}
		}
	}

	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !parser.IsSupportedExtension(filename) {
			failures[filename] = "unsupported file type: " + filepath.Ext(filename)
			continue
		}

		path, err := s.stageOne(fh, filename)
		if err != nil {
			failures[filename] = err.Error()
			continue
		}
		paths = append(paths, path)
		inputs = append(inputs, pipeline.Input{Name: filename, Path: path})
	}
	return inputs, cleanup, failures
}

func (s *Server) stageOne(fh *multipart.FileHeader, filename string) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	tmp, err := os.CreateTemp("", "labxtract-upload-*"+filepath.Ext(filename))
	if err != nil {
		return "", err
	}
	path := tmp.Name()

	n, err := io.Copy(tmp, io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > s.cfg.MaxUploadBytes {
		err = &sizeError{limit: s.cfg.MaxUploadBytes}
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

type sizeError struct {
	limit int64
}

func (e *sizeError) Error() string {
	return fmt.Sprintf("file exceeds max size of %d bytes", e.limit)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
