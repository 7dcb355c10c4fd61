package expense

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleReceipts accepts a single receipt upload, runs it through the
// pipeline, and appends the finalized record to the name+monat report.
func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		corsError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 50MB cap to handle high-resolution phone photos.
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		corsError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		corsError(w, "Missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("Error reading upload", "error", err)
		corsError(w, "Error reading file", http.StatusBadRequest)
		return
	}

	record, err := s.processor.ProcessUpload(r.Context(), header.Filename, data, header.Header.Get("Content-Type"))
	if err != nil {
		slog.Error("Failed to process receipt",
			"filename", header.Filename,
			"file_size", len(data),
			"error", err,
		)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	name := r.FormValue("name")
	monat := r.FormValue("monat")
	if _, err := s.db.AppendRecords(name, monat, []*Record{record}); err != nil {
		slog.Error("Failed to save record", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// handleAbrechnungen returns stored expense reports. With name and monat
// query parameters a single report is returned, otherwise all of them.
func (s *Server) handleAbrechnungen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		corsError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	monat := r.URL.Query().Get("monat")
	if name != "" || monat != "" {
		abrechnung, err := s.db.GetAbrechnung(name, monat)
		if err != nil {
			corsError(w, "Not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, abrechnung)
		return
	}

	abrechnungen, err := s.db.ListAbrechnungen()
	if err != nil {
		slog.Error("Error listing abrechnungen", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, abrechnungen)
}
