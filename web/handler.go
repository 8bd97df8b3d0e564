// Package web serves the study notes page: topic tabs, search, the section
// composer and export, rendered server side from the study app state.
package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"studynotes/internal/study"
	"studynotes/internal/study/mathrender"
	"studynotes/pkg/logger"

	"github.com/gorilla/mux"
)

//go:embed templates/*.html
var templateFS embed.FS

// Notices shown after a redirect, keyed by the msg query parameter.
var notices = map[string]string{
	"busy":    "Finish or cancel the section you are editing first.",
	"empty":   "A section needs some content before it can be saved.",
	"gone":    "That section was removed while you were editing it. Saving will add it as a new section.",
	"topic":   "Unknown topic.",
	"missing": "That section no longer exists.",
}

type Handler struct {
	Shell *study.AppShell

	math *mathrender.Cache
	tmpl *template.Template
}

type topicTab struct {
	Name     string
	Selected bool
	URL      string
}

type sectionItem struct {
	ID      string
	HTML    template.HTML
	Math    bool
	Editing bool
}

type pageData struct {
	Topics          []topicTab
	Topic           string
	Search          string
	Sections        []sectionItem
	Composing       bool
	EditingID       string
	Buffer          string
	EmptyMessage    string
	NoMatches       bool
	SaveError       string
	Notice          string
	ScrollThreshold int
	ScrollY         int
	ShowScrollTop   bool
}

func NewHandler(shell *study.AppShell) (*Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	return &Handler{Shell: shell, math: mathrender.NewCache(), tmpl: tmpl}, nil
}

// Register mounts the page routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/", h.Index).Methods(http.MethodGet)
	r.HandleFunc("/export", h.Export).Methods(http.MethodGet)
	r.HandleFunc("/sections/delete", h.DeleteSection).Methods(http.MethodPost)
	r.HandleFunc("/compose/new", h.ComposeNew).Methods(http.MethodPost)
	r.HandleFunc("/compose/edit", h.ComposeEdit).Methods(http.MethodPost)
	r.HandleFunc("/compose/cancel", h.ComposeCancel).Methods(http.MethodPost)
	r.HandleFunc("/compose/commit", h.ComposeCommit).Methods(http.MethodPost)
}

// Index renders the selected topic. ?topic= switches topics and ?q= sets
// the global search term; both stick until changed.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if topic := q.Get("topic"); topic != "" && !h.Shell.SelectTopic(topic) {
		q.Set("msg", "topic")
	}
	if _, ok := q["q"]; ok {
		h.Shell.SetSearch(q.Get("q"))
	}

	data := h.page()
	data.Notice = notices[q.Get("msg")]
	data.ScrollY = scrollOffset(q.Get("y"))
	data.ShowScrollTop = study.ShowScrollButton(data.ScrollY)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		logger.Sugar.Errorf("Web: Failed to render page: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

func (h *Handler) page() pageData {
	shell := h.Shell
	search := shell.SearchTerm()
	data := pageData{
		Search:          search,
		NoMatches:       !shell.HasMatchingContent(),
		ScrollThreshold: study.ScrollThreshold,
	}
	if err := shell.Store.LastSaveError(); err != nil {
		data.SaveError = "Your last change could not be saved to the server. It is kept here and will be sent with the next change."
	}

	selected := shell.SelectedTopic()
	for _, topic := range shell.Store.Topics() {
		data.Topics = append(data.Topics, topicTab{
			Name:     topic,
			Selected: topic == selected,
			URL:      "/?topic=" + url.QueryEscape(topic),
		})
	}

	keep := make(map[string]bool)
	shell.WithView(func(v *study.TopicView) {
		data.Topic = v.Topic
		data.Composing = v.Mode() != study.Idle
		data.EditingID = v.EditingID()
		data.Buffer = v.Buffer()
		data.EmptyMessage = v.EmptyMessage(search)
		for _, sec := range v.Visible(search) {
			keep[sec.ID] = true
			data.Sections = append(data.Sections, sectionItem{
				ID:      sec.ID,
				HTML:    h.math.Render(sec.ID, sec.Text),
				Math:    mathrender.HasMath(sec.Text),
				Editing: v.Mode() == study.ComposingEdit && v.EditingID() == sec.ID,
			})
		}
	})
	h.math.Retain(keep)
	return data
}

func (h *Handler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("id")
	h.Shell.WithView(func(v *study.TopicView) {
		v.Remove(id)
	})
	redirect(w, r, "")
}

func (h *Handler) ComposeNew(w http.ResponseWriter, r *http.Request) {
	var err error
	h.Shell.WithView(func(v *study.TopicView) {
		err = v.StartAdd()
	})
	redirect(w, r, noticeFor(err))
}

func (h *Handler) ComposeEdit(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("id")
	var err error
	h.Shell.WithView(func(v *study.TopicView) {
		err = v.StartEdit(id)
	})
	redirect(w, r, noticeFor(err))
}

func (h *Handler) ComposeCancel(w http.ResponseWriter, r *http.Request) {
	h.Shell.WithView(func(v *study.TopicView) {
		v.Cancel()
	})
	redirect(w, r, "")
}

func (h *Handler) ComposeCommit(w http.ResponseWriter, r *http.Request) {
	content := r.FormValue("content")
	var err error
	h.Shell.WithView(func(v *study.TopicView) {
		v.SetBuffer(content)
		err = v.Commit()
	})
	if err != nil && noticeFor(err) == "" {
		logger.Sugar.Errorf("Web: Failed to commit section: %v", err)
	}
	redirect(w, r, noticeFor(err))
}

// Export downloads the in-memory notes as a timestamped JSON file.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.Shell.Export()
	if err != nil {
		logger.Sugar.Errorf("Web: Failed to export notes: %v", err)
		http.Error(w, "Failed to export notes", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func noticeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, study.ErrComposerBusy):
		return "busy"
	case errors.Is(err, study.ErrEmptyContent):
		return "empty"
	case errors.Is(err, study.ErrSectionGone):
		return "gone"
	case errors.Is(err, study.ErrUnknownTarget):
		return "missing"
	}
	return ""
}

// redirect sends the browser back to the page, keeping its scroll offset
// when the form posted one.
func redirect(w http.ResponseWriter, r *http.Request, msg string) {
	q := url.Values{}
	if msg != "" {
		q.Set("msg", msg)
	}
	if y := scrollOffset(r.FormValue("y")); y > 0 {
		q.Set("y", strconv.Itoa(y))
	}
	target := "/"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func scrollOffset(v string) int {
	y, err := strconv.Atoi(v)
	if err != nil || y < 0 {
		return 0
	}
	return y
}
