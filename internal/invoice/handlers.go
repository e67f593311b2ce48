package invoice

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
)

// maxBatchSize bounds one multipart upload. Scanned invoices run a few MB per
// file; 100MB covers a generous batch of phone photos.
const maxBatchSize = int64(100 << 20)

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError sends a JSON error payload the UI can surface verbatim
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseIndex reads the {index} path value
func parseIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return 0, fmt.Errorf("invalid record index %q", r.PathValue("index"))
	}
	return index, nil
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleAddBatch accepts a multipart selection of invoice files and queues
// them for extraction. Unsupported files are dropped silently; a selection
// with zero valid files gets a warning and changes nothing.
func (s *Server) handleAddBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxBatchSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "No se pudo leer la carga de archivos")
		return
	}

	var files []BatchFile
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			f, err := header.Open()
			if err != nil {
				slog.Error("Error opening uploaded file", "file", header.Filename, "error", err)
				writeError(w, http.StatusInternalServerError, "No se pudo leer el archivo "+header.Filename)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				slog.Error("Error reading uploaded file", "file", header.Filename, "error", err)
				writeError(w, http.StatusInternalServerError, "No se pudo leer el archivo "+header.Filename)
				return
			}
			files = append(files, BatchFile{
				Name:        header.Filename,
				Data:        data,
				ContentType: header.Header.Get("Content-Type"),
			})
		}
	}

	added, err := s.session.AddBatch(files)
	if err != nil {
		if errors.Is(err, ErrNoValidFiles) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("Error adding batch", "error", err)
		writeError(w, http.StatusInternalServerError, "No se pudo encolar el lote")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"added":   added,
		"records": s.session.Records(),
	})
}

// handleListRecords returns a live snapshot of the collection
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"busy":    s.session.Busy(),
		"records": s.session.Records(),
	})
}

// handleUpdateRecord merges edited fields into one record
func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch FieldPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.session.UpdateRecord(index, patch); err != nil {
		if errors.Is(err, ErrBusy) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"records": s.session.Records()})
}

// handleBulkUpdate merges the same fields into a selected subset of records
func (s *Server) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Indices []int      `json:"indices"`
		Fields  FieldPatch `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.session.BulkUpdate(req.Indices, req.Fields); err != nil {
		if errors.Is(err, ErrBusy) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"records": s.session.Records()})
}

// handleDeleteRecord removes one record; later records shift down one index
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.session.DeleteRecord(index); err != nil {
		if errors.Is(err, ErrBusy) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleExport streams the Monday import workbook as a download
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.session.Export()
	if err != nil {
		if errors.Is(err, ErrNoExportableRecords) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		slog.Error("Error exporting records", "error", err)
		writeError(w, http.StatusInternalServerError, "No se pudo generar el archivo")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(data)
}

// handleReset discards the whole session
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.session.Reset()
	w.WriteHeader(http.StatusNoContent)
}
