package provider

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/opencode-chat/internal/model/provider"
	"github.com/zhouzirui/opencode-chat/pkg/utils"
)

// Catalog lists providers and their models.
type Catalog interface {
	List() []provider.Provider
	ModelsOf(id string) ([]provider.Model, bool)
}

// Handler provider 目录的HTTP处理器
type Handler struct {
	catalog Catalog
}

// New 创建provider处理器
func New(catalog Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// RegisterRoutes 注册provider相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/providers", h.handleListProviders)
	r.Get("/models/{providerID}", h.handleListModels)
}

// handleListProviders 列出所有provider
func (h *Handler) handleListProviders(w http.ResponseWriter, r *http.Request) {
	utils.RespondOK(w, map[string]any{"providers": h.catalog.List()})
}

// handleListModels 列出某个provider的模型
func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	models, ok := h.catalog.ModelsOf(providerID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, provider.ErrNotFound.Error())
		return
	}

	utils.RespondOK(w, map[string]any{"models": models})
}
