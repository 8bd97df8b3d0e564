package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"studynotes/internal/notes/model"
	"studynotes/internal/notes/service"
	"studynotes/pkg/logger"
)

const maxBodyBytes = 10 << 20

type NotesHandler struct {
	Service *service.NotesService
	// Clients, if set, reports connected tabs in the health response.
	Clients func() int
}

func NewNotesHandler(service *service.NotesService) *NotesHandler {
	return &NotesHandler{Service: service}
}

// GetNotes always answers 200. An empty object means either no notes yet or
// a store that could not be read; the failure is in the server log.
func (h *NotesHandler) GetNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	doc := h.Service.Load(r.Context())
	writeJSON(w, http.StatusOK, doc)
}

// SaveNotes replaces the whole document with the request body. The response
// body always carries the success flag; the status code says the same thing.
func (h *NotesHandler) SaveNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to read notes body: %v", err)
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, model.SaveResponse{Success: false, Error: "Invalid request body"})
		return
	}

	doc, err := model.DecodeStrict(raw)
	if err != nil {
		logger.Sugar.Errorf("Handler: Invalid notes document: %v", err)
		writeJSON(w, http.StatusBadRequest, model.SaveResponse{Success: false, Error: "Invalid notes document"})
		return
	}

	if err := h.Service.Save(r.Context(), doc); err != nil {
		logger.Sugar.Errorf("Handler: Failed to save notes: %v", err)
		writeJSON(w, http.StatusInternalServerError, model.SaveResponse{Success: false, Error: "Failed to save notes"})
		return
	}

	writeJSON(w, http.StatusOK, model.SaveResponse{Success: true})
}

func (h *NotesHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if h.Clients != nil {
		body["clients"] = h.Clients()
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Handler: Failed to write response: %v", err)
	}
}
