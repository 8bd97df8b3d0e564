package router

import (
	"net/http"

	notesHandler "studynotes/internal/notes"
	"studynotes/middleware"
	"studynotes/socket"
	"studynotes/web"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Setup wires the notes API, the websocket hub and, when ui is non-nil, the
// study page onto one handler.
func Setup(notes *notesHandler.NotesHandler, hub *socket.Hub, ui *web.Handler, corsOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)

	// Notes API
	for _, prefix := range []string{"", "/api"} {
		r.HandleFunc(prefix+"/notes", notes.GetNotes).Methods(http.MethodGet)
		r.HandleFunc(prefix+"/notes", notes.SaveNotes).Methods(http.MethodPost)
	}

	// WebSocket
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, w, r)
	}).Methods(http.MethodGet)

	r.HandleFunc("/healthz", notes.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if ui != nil {
		ui.Register(r)
	}

	return middleware.Recovery(middleware.CORS(corsOrigins)(r))
}
