package web

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/steno-audio/steno/archive"
	"github.com/steno-audio/steno/board"
)

// Handler serves the live board over HTTP. The archive store is optional;
// when nil the session history endpoint is not registered.
type Handler struct {
	board  *board.Board
	store  *archive.Store
	logger *log.Logger
}

func NewHandler(b *board.Board, store *archive.Store, logger *log.Logger) *Handler {
	return &Handler{
		board:  b,
		store:  store,
		logger: logger,
	}
}

func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", h.handleIndex)
	r.Get("/api/clients", h.handleClients)
	r.Get("/api/transcript", h.handleTranscript)
	r.Get("/transcript.txt", h.handleExport)
	r.Handle("/metrics", promhttp.Handler())
	if h.store != nil {
		r.Get("/api/sessions", h.handleSessions)
	}

	return r
}

// Serve blocks on the listener until it fails.
func (h *Handler) Serve(port int) error {
	h.logger.Info("http", "url", fmt.Sprintf("http://localhost:%d", port))
	return http.ListenAndServe(fmt.Sprintf(":%d", port), h.Router())
}

func (h *Handler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	tmpl := template.Must(template.New("index").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Live Transcript</title>
    <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-gray-100">
    <div class="container mx-auto px-4 py-8">
        <h1 class="text-3xl font-bold mb-6">Live Transcript</h1>
        <div class="grid grid-cols-1 md:grid-cols-3 gap-6">
            <div class="md:col-span-2 space-y-4">
                {{range .Blocks}}
                <div class="bg-white shadow rounded-lg p-4">
                    <p class="text-gray-600 text-sm">{{.Time.Format "15:04"}} &middot; {{.Name}}</p>
                    <p class="text-lg">{{.Text}}</p>
                </div>
                {{else}}
                <p class="text-gray-500">No speech yet.</p>
                {{end}}
            </div>
            <div>
                <h2 class="text-xl font-semibold mb-4">Clients</h2>
                <div class="space-y-2">
                    {{range .Clients}}
                    <div class="bg-white shadow rounded-lg p-3 flex items-center gap-3">
                        {{if .Active}}
                        <span class="w-3 h-3 rounded-full bg-green-500"></span>
                        {{else}}
                        <span class="w-3 h-3 rounded-full bg-gray-300"></span>
                        {{end}}
                        <span class="font-medium">{{.Name}}</span>
                        <span class="ml-auto text-sm text-gray-500">{{.Language}}</span>
                    </div>
                    {{else}}
                    <p class="text-gray-500">No clients connected.</p>
                    {{end}}
                </div>
            </div>
        </div>
    </div>
</body>
</html>
`))

	data := struct {
		Clients []board.Client
		Blocks  []board.Block
	}{
		Clients: h.board.Clients(),
		Blocks:  h.board.Blocks(),
	}

	w.Header().Set("Content-Type", "text/html")
	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to execute template", "error", err.Error())
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *Handler) handleClients(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.board.Clients())
}

func (h *Handler) handleTranscript(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.board.Blocks())
}

func (h *Handler) handleExport(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(h.board.Export())); err != nil {
		h.logger.Error("failed to write transcript", "error", err.Error())
	}
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions(r.Context())
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err.Error())
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []archive.Session{}
	}
	h.writeJSON(w, sessions)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err.Error())
	}
}
