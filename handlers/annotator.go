package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/picrate/picrate/apperr"
	"github.com/picrate/picrate/config"
	"github.com/picrate/picrate/database"
	"github.com/picrate/picrate/session"
)

// AnnotatorHandler serves the action endpoints driven by the page's
// keyboard handler. Every successful action responds with the full
// session state so the client re-renders from a single payload.
type AnnotatorHandler struct {
	Session *session.Session
	Cfg     config.Config
	SQLDB   *sql.DB // raw connection for the aggregate queries
}

// ImageState describes the image the session is pointing at.
type ImageState struct {
	Path  string `json:"path"`
	URL   string `json:"url"`
	Index int    `json:"index"`
	Total int    `json:"total"`
}

// RecordState is the stored rating of the current image; zero values
// mean the image is untouched.
type RecordState struct {
	Rating int  `json:"rating"`
	Marked bool `json:"marked"`
}

// ProgressState feeds the progress bar and the stats surface.
type ProgressState struct {
	Total     int     `json:"total"`
	Annotated int     `json:"annotated"`
	Marked    int     `json:"marked"`
	Remaining int     `json:"remaining"`
	Percent   float64 `json:"percent"`
	Position  int     `json:"position"`
}

// StateResponse is the payload every annotator endpoint returns.
type StateResponse struct {
	Status     string        `json:"status"`
	Notice     string        `json:"notice,omitempty"`
	Image      ImageState    `json:"image"`
	Record     RecordState   `json:"record"`
	Progress   ProgressState `json:"progress"`
	Filter     bool          `json:"filter_unannotated"`
	Title      string        `json:"title"`
	Username   string        `json:"username"`
	NumClasses int           `json:"num_classes"`
	MaxHistory int           `json:"max_history"`
	HistoryLen int           `json:"history_len"`
}

// GetState handles GET /api/state
func (h *AnnotatorHandler) GetState(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, "ok", "")
}

// Rate handles POST /api/rate/{value}
func (h *AnnotatorHandler) Rate(w http.ResponseWriter, r *http.Request) {
	value, err := strconv.Atoi(chi.URLParam(r, "value"))
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_rating", "rating must be an integer")
		return
	}

	if err := h.Session.Rate(value); err != nil {
		h.writeActionError(w, err)
		return
	}
	h.respondState(w, "ok", "")
}

// Mark handles POST /api/mark
func (h *AnnotatorHandler) Mark(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.ToggleMark(); err != nil {
		h.writeActionError(w, err)
		return
	}
	h.respondState(w, "ok", "")
}

// Prev handles POST /api/prev
func (h *AnnotatorHandler) Prev(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Prev(); err != nil {
		h.writeActionError(w, err)
		return
	}
	h.respondState(w, "ok", "")
}

// Next handles POST /api/next
func (h *AnnotatorHandler) Next(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Next(); err != nil {
		h.writeActionError(w, err)
		return
	}
	h.respondState(w, "ok", "")
}

// Undo handles POST /api/undo. An empty history is not an error: the
// client shows a notice and nothing changes.
func (h *AnnotatorHandler) Undo(w http.ResponseWriter, r *http.Request) {
	undone, err := h.Session.Undo()
	if err != nil {
		if errors.Is(err, apperr.ErrNothingToUndo) {
			h.respondState(w, "nothing_to_undo", "nothing to undo")
			return
		}
		h.writeActionError(w, err)
		return
	}
	h.respondState(w, "ok", "undid "+undone)
}

// ToggleFilter handles POST /api/filter
func (h *AnnotatorHandler) ToggleFilter(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Session.ToggleFilter(); err != nil {
		h.writeActionError(w, err)
		return
	}
	h.respondState(w, "ok", "")
}

// GetProgress handles GET /api/progress
func (h *AnnotatorHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.progress()
	if err != nil {
		log.Printf("error computing progress: %v", err)
		WriteAPIError(w, http.StatusServiceUnavailable, "storage_unavailable", "failed to read progress")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *AnnotatorHandler) respondState(w http.ResponseWriter, status, notice string) {
	resp, err := h.state(status, notice)
	if err != nil {
		log.Printf("error building state response: %v", err)
		WriteAPIError(w, http.StatusServiceUnavailable, "storage_unavailable", "failed to load session state")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AnnotatorHandler) state(status, notice string) (StateResponse, error) {
	record := RecordState{}
	ann, err := h.Session.CurrentRecord()
	if err != nil {
		return StateResponse{}, err
	}
	if ann != nil {
		record = RecordState{Rating: ann.Rating, Marked: ann.Marked}
	}

	progress, err := h.progress()
	if err != nil {
		return StateResponse{}, err
	}

	path := h.Session.Current()
	// escape the path so filenames with '#', '?' or spaces survive as URLs
	imageURL := (&url.URL{Path: "/images/" + path}).EscapedPath()
	return StateResponse{
		Status: status,
		Notice: notice,
		Image: ImageState{
			Path:  path,
			URL:   imageURL,
			Index: h.Session.Index(),
			Total: h.Session.Total(),
		},
		Record:     record,
		Progress:   progress,
		Filter:     h.Session.FilterActive(),
		Title:      h.Cfg.Title,
		Username:   h.Session.Username(),
		NumClasses: h.Session.NumClasses(),
		MaxHistory: h.Cfg.MaxHistory,
		HistoryLen: h.Session.HistoryLen(),
	}, nil
}

func (h *AnnotatorHandler) progress() (ProgressState, error) {
	summary, err := database.GetAnnotationSummary(h.SQLDB)
	if err != nil {
		return ProgressState{}, err
	}

	total := h.Session.Total()
	percent := 0.0
	if total > 0 {
		percent = float64(summary.Rated) / float64(total) * 100
	}
	return ProgressState{
		Total:     total,
		Annotated: summary.Rated,
		Marked:    summary.Marked,
		Remaining: total - summary.Rated,
		Percent:   percent,
		Position:  h.Session.Index() + 1,
	}, nil
}

func (h *AnnotatorHandler) writeActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrRatingOutOfRange):
		WriteAPIError(w, http.StatusBadRequest, "invalid_rating", err.Error())
	case errors.Is(err, apperr.ErrStorageUnavailable):
		log.Printf("storage error: %v", err)
		WriteAPIError(w, http.StatusServiceUnavailable, "storage_unavailable", "failed to save annotation, please retry")
	default:
		log.Printf("unexpected annotator error: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}
