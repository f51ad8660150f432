package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lanfleet/lanfleet/server/internal/controller"
	"github.com/lanfleet/lanfleet/shared/types"
)

const defaultClientListLimit = 50

// ClientHandler exposes the controller's live session registry and
// request operations over REST.
type ClientHandler struct {
	mgr    *controller.Manager
	logger *zap.Logger
}

// NewClientHandler creates a ClientHandler bound to mgr.
func NewClientHandler(mgr *controller.Manager, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{mgr: mgr, logger: logger}
}

// List handles GET /clients. The result is paginated via ?limit=&offset=
// (limit defaults to 50, offset to 0) since the connected fleet can grow
// past what's reasonable to return in one response.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryIntOrDefault(r, "limit", defaultClientListLimit)
	offset := queryIntOrDefault(r, "offset", 0)
	if limit <= 0 {
		limit = defaultClientListLimit
	}
	if offset < 0 {
		offset = 0
	}

	all := h.mgr.ConnectedClients()
	page := types.PagedResult[controller.Snapshot]{
		Items: paginate(all, offset, limit),
		Total: len(all),
		Page:  types.Page{Limit: limit, Offset: offset},
	}
	Ok(w, page)
}

func paginate(all []controller.Snapshot, offset, limit int) []controller.Snapshot {
	if offset >= len(all) {
		return []controller.Snapshot{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func queryIntOrDefault(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetByID handles GET /clients/{id}.
func (h *ClientHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, ok := h.mgr.Get(id)
	if !ok {
		ErrNotFound(w)
		return
	}
	Ok(w, snap)
}

// RequestSysInfo handles POST /clients/{id}/sysinfo.
func (h *ClientHandler) RequestSysInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.mgr.Get(id); !ok {
		ErrNotFound(w)
		return
	}
	h.mgr.RequestSysInfo(id)
	NoContent(w)
}

// RequestSoftware handles POST /clients/{id}/software.
func (h *ClientHandler) RequestSoftware(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.mgr.Get(id); !ok {
		ErrNotFound(w)
		return
	}
	h.mgr.RequestSoftwareList(id)
	NoContent(w)
}

type installRequest struct {
	FilePath string `json:"filePath"`
	Args     string `json:"args"`
}

// Install handles POST /clients/{id}/install.
func (h *ClientHandler) Install(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req installRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FilePath == "" {
		ErrBadRequest(w, "filePath is required")
		return
	}

	if err := h.mgr.InstallSoftware(id, req.FilePath, req.Args); err != nil {
		h.logger.Warn("install request failed", zap.String("client_id", id), zap.Error(err))
		if errors.Is(err, controller.ErrClientNotConnected) {
			ErrClientUnreachable(w, id)
			return
		}
		ErrUnprocessable(w, err.Error())
		return
	}
	NoContent(w)
}

type uninstallRequest struct {
	Name         string `json:"name"`
	UninstallCmd string `json:"uninstallCmd"`
}

// Uninstall handles POST /clients/{id}/uninstall.
func (h *ClientHandler) Uninstall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req uninstallRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UninstallCmd == "" {
		ErrBadRequest(w, "uninstallCmd is required")
		return
	}

	if err := h.mgr.UninstallSoftware(id, req.Name, req.UninstallCmd); err != nil {
		h.logger.Warn("uninstall request failed", zap.String("client_id", id), zap.Error(err))
		if errors.Is(err, controller.ErrClientNotConnected) {
			ErrClientUnreachable(w, id)
			return
		}
		ErrUnprocessable(w, err.Error())
		return
	}
	NoContent(w)
}
