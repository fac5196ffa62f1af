package handlers

import (
	"embed"
	"html/template"
	"log"
	"net/http"

	"github.com/russross/blackfriday/v2"

	"github.com/picrate/picrate/config"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// PageHandler renders the single-page annotation UI.
type PageHandler struct {
	tmpl *template.Template
	cfg  *config.Config
}

type pageData struct {
	Title           string
	DescriptionHTML template.HTML
	NumClasses      int
	Classes         []int
	Username        string
}

func NewPageHandler(cfg *config.Config) (*PageHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	return &PageHandler{tmpl: tmpl, cfg: cfg}, nil
}

// Index serves the annotator page. The configured description is
// markdown and gets rendered server-side; everything else the page
// shows comes from the state API.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	classes := make([]int, h.cfg.NumClasses)
	for i := range classes {
		classes[i] = i + 1
	}

	data := pageData{
		Title:           h.cfg.Title,
		DescriptionHTML: template.HTML(blackfriday.Run([]byte(h.cfg.Description))),
		NumClasses:      h.cfg.NumClasses,
		Classes:         classes,
		Username:        h.cfg.Username,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "index.html.tmpl", data); err != nil {
		log.Printf("error rendering index page: %v", err)
	}
}

// StaticServer serves the embedded JS and CSS assets.
func StaticServer() http.Handler {
	return http.FileServer(http.FS(staticFS))
}
