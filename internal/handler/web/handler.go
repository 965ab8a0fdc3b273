package web

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/medic/backend/pkg/utils"
)

//go:embed index.html
var indexHTML []byte

const disclaimer = "This is for informational purposes only and not a substitute for professional medical advice. For emergencies, seek immediate medical care."

// Info is the static page metadata shown by the UI.
type Info struct {
	Title         string `json:"title"`
	Icon          string `json:"icon"`
	Disclaimer    string `json:"disclaimer"`
	Model         string `json:"model"`
	RetainContext bool   `json:"retainContext"`
	Streaming     bool   `json:"streaming"`
}

// NewInfo fills the fixed fields of Info.
func NewInfo(model string, retainContext, streaming bool) Info {
	return Info{
		Title:         "MediC - AI Medical Consultant",
		Icon:          "🩺",
		Disclaimer:    disclaimer,
		Model:         model,
		RetainContext: retainContext,
		Streaming:     streaming,
	}
}

// Handler serves the single-page UI and its metadata.
type Handler struct {
	info Info
}

// New 创建页面处理器
func New(info Info) *Handler {
	return &Handler{info: info}
}

// RegisterPage mounts the page at the router root.
func (h *Handler) RegisterPage(r chi.Router) {
	r.Get("/", h.handleIndex)
}

// RegisterRoutes mounts the metadata endpoint under the API prefix.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/info", h.handleInfo)
}

func (h *Handler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}

func (h *Handler) handleInfo(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.info)
}
