package handler

import (
	"context"
	"net/http"
	"time"

	"leadtracker_backend/internal/identity"
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/exports"
	"leadtracker_backend/internal/leads/transport"
	"leadtracker_backend/internal/leads/urgency"
	"leadtracker_backend/internal/workspace"
	"leadtracker_backend/platform/apperr"
	"leadtracker_backend/platform/httpkit"
	"leadtracker_backend/platform/logger"
	"leadtracker_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Workspaces hands out the per-user workspace of the caller.
type Workspaces interface {
	Get(ctx context.Context, userID, email string) (*workspace.Workspace, error)
}

type Handler struct {
	workspaces Workspaces
	val        *validator.Validator
	log        *logger.Logger
	now        func() time.Time
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgSyncFailed       = "failed to refresh leads, showing cached data"

	headerSyncError = "X-Sync-Error"
)

func New(workspaces Workspaces, val *validator.Validator, log *logger.Logger, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{workspaces: workspaces, val: val, log: log, now: now}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
	rg.POST("/me/refresh-role", h.RefreshRole)

	leads := rg.Group("/leads")
	leads.GET("", h.List)
	leads.POST("", h.Create)
	leads.GET("/export", h.Export)
	leads.PATCH("/:id", h.Update)
	leads.DELETE("/:id", h.Delete)
	leads.POST("/:id/notes", h.AddNote)

	rg.GET("/dashboard", h.Dashboard)
	rg.GET("/team", httpkit.RequireRole(h.role, identity.RoleAdmin, identity.RoleSuperAdmin), h.Team)
}

// callerWorkspace resolves the caller's workspace. It writes the error response
// and returns nil when that fails.
func (h *Handler) callerWorkspace(c *gin.Context) *workspace.Workspace {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return nil
	}
	ws, err := h.workspaces.Get(c.Request.Context(), id.UserID().String(), id.Email())
	if httpkit.HandleError(c, err) {
		return nil
	}
	return ws
}

func (h *Handler) role(c *gin.Context) (string, error) {
	id := httpkit.GetIdentity(c)
	if !id.IsAuthenticated() {
		return "", apperr.Unauthorized("unauthorized")
	}
	ws, err := h.workspaces.Get(c.Request.Context(), id.UserID().String(), id.Email())
	if err != nil {
		return "", err
	}
	return ws.Identity.Role(c.Request.Context()), nil
}

func (h *Handler) bindQuery(c *gin.Context) (transport.ListLeadsQuery, bool) {
	var q transport.ListLeadsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return q, false
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return q, false
	}
	return q, true
}

// sync starts a fetch and waits until it settles: either the remote call
// finished or the loading ceiling elapsed. A fetch still running after that
// keeps going and commits into the cache when it lands.
//
// A failed remote fetch is reported as a notice next to the cached rows. It
// becomes an error response only when the cache has never been populated.
func (h *Handler) sync(c *gin.Context, ws *workspace.Workspace, force bool) (string, bool) {
	ctx := c.Request.Context()
	op := ws.Leads.Start(ctx, ws.Requester(ctx), force)

	select {
	case <-op.Settled():
	case <-ctx.Done():
		return "", false
	}

	err := op.Err()
	if err == nil {
		return "", true
	}
	if apperr.Is(err, apperr.KindRemote) {
		rows, fetchedAt := ws.Cache.Read()
		if fetchedAt != nil || len(rows) > 0 {
			h.log.WithContext(ctx).Warn("serving cached leads after fetch failure", "user_id", ws.UserID, "error", err)
			return msgSyncFailed, true
		}
	}
	httpkit.HandleError(c, err)
	return "", false
}

func (h *Handler) classifier() urgency.Classifier {
	return urgency.NewClassifier(h.now)
}

func (h *Handler) List(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}
	ws := h.callerWorkspace(c)
	if ws == nil {
		return
	}
	syncErr, ok := h.sync(c, ws, q.Refresh)
	if !ok {
		return
	}

	rows := ws.Dashboard.Rows(q.Search, q.Source)
	_, fetchedAt := ws.Cache.Read()
	httpkit.OK(c, transport.ListLeadsResponse{
		Items:     transport.ToLeadResponses(rows, h.classifier()),
		Total:     len(rows),
		Loading:   ws.Leads.Loading(),
		FetchedAt: fetchedAt,
		SyncError: syncErr,
	})
}

func (h *Handler) Create(c *gin.Context) {
	var req domain.NewLead
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	ws := h.callerWorkspace(c)
	if ws == nil {
		return
	}

	ctx := c.Request.Context()
	lead, err := ws.Leads.Create(ctx, ws.Requester(ctx), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToLeadResponse(lead, h.classifier()))
}

func (h *Handler) Update(c *gin.Context) {
	var patch domain.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	ws := h.callerWorkspace(c)
	if ws == nil {
		return
	}

	ctx := c.Request.Context()
	lead, err := ws.Leads.Update(ctx, ws.Requester(ctx), c.Param("id"), patch)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead, h.classifier()))
}

func (h *Handler) Delete(c *gin.Context) {
	ws := h.callerWorkspace(c)
	if ws == nil {
		return
	}

	ctx := c.Request.Context()
	if err := ws.Leads.Remove(ctx, ws.Requester(ctx), c.Param("id")); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AddNote(c *gin.Context) {
	var req transport.AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	ws := h.callerWorkspace(c)
	if ws == nil {
		return
	}

	ctx := c.Request.Context()
	note, err := ws.Leads.AddNote(ctx, ws.Requester(ctx), c.Param("id"), req.Content)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, note)
}

func (h *Handler) Dashboard(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}
	ws := h.callerWorkspace(c)
	if ws == nil {
		return
	}
	syncErr, ok := h.sync(c, ws, q.Refresh)
	if !ok {
		return
	}

	buckets := ws.Dashboard.View(q.Search, q.Source)
	resp := transport.ToDashboardResponse(buckets, h.classifier(), ws.Leads.Loading())
	resp.SyncError = syncErr
	httpkit.OK(c, resp)
}

func (h *Handler) Team(c *gin.Context) {
	ws := h.callerWorkspace(c)
	if ws == nil {
		return
	}

	ctx := c.Request.Context()
	members, err := ws.Team.Summaries(ctx, ws.Requester(ctx))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.TeamResponse{Members: members})
}

func (h *Handler) Export(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}
	ws := h.callerWorkspace(c)
	if ws == nil {
		return
	}
	syncErr, ok := h.sync(c, ws, q.Refresh)
	if !ok {
		return
	}

	rows := ws.Dashboard.Rows(q.Search, q.Source)
	if syncErr != "" {
		c.Header(headerSyncError, syncErr)
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+exports.Filename+`"`)
	c.Status(http.StatusOK)
	if err := exports.WriteCSV(c.Writer, rows); err != nil {
		h.log.WithContext(c.Request.Context()).Error("csv export failed", "error", err)
	}
}

func (h *Handler) Me(c *gin.Context) {
	ws := h.callerWorkspace(c)
	if ws == nil {
		return
	}
	snap := ws.Identity.Snapshot()
	httpkit.OK(c, transport.MeResponse{Snapshot: snap, IsAdmin: snap.IsAdmin()})
}

func (h *Handler) RefreshRole(c *gin.Context) {
	ws := h.callerWorkspace(c)
	if ws == nil {
		return
	}
	snap, err := ws.Identity.Refresh(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.MeResponse{Snapshot: snap, IsAdmin: snap.IsAdmin()})
}
