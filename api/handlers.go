package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/chxlky/forum-trello-sync/database"
	"github.com/chxlky/forum-trello-sync/integrations"
	"github.com/chxlky/forum-trello-sync/internal/apperr"
	"github.com/chxlky/forum-trello-sync/internal/models"
	"github.com/chxlky/forum-trello-sync/internal/reconcile"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	Store   *database.Store
	Engine  *reconcile.Engine
	Boards  integrations.BoardClientFactory
	Forums  integrations.ForumGateway
	Workers chan struct{} // bounds concurrent syncs

	TrelloKey   string
	RedirectURL string
	AppName     string
	RemoveExtra bool
}

type errorResponse struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Code        string `json:"code,omitempty"`
}

// fail writes err as a JSON error. User-addressable errors keep their text;
// anything else is logged under a short code that is returned instead.
func (h *Handler) fail(c *gin.Context, err error) {
	if e, ok := apperr.As(err); ok {
		status := http.StatusBadRequest
		if errors.Is(err, apperr.ErrAccountNotLinked) || errors.Is(err, apperr.ErrBoardNotLinked) {
			status = http.StatusPreconditionFailed
		}
		c.JSON(status, errorResponse{Title: e.Title, Description: e.Description})
		return
	}
	if errors.Is(err, integrations.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Title: "Not Found", Description: err.Error()})
		return
	}
	if errors.Is(err, context.Canceled) {
		c.Status(499)
		return
	}

	code := uuid.NewString()[:8]
	zap.L().Error("An unknown error occurred", zap.String("code", code), zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, errorResponse{
		Title:       "An unknown error occurred, please contact the developer",
		Description: err.Error(),
		Code:        code,
	})
}

type outcomeResponse struct {
	Kind      string `json:"kind"`
	Action    string `json:"action"`
	ForumID   string `json:"forum_id"`
	DiscordID string `json:"discord_id,omitempty"`
	TrelloID  string `json:"trello_id,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error"`
}

type syncResponse struct {
	ServerID  string            `json:"server_id"`
	Succeeded int               `json:"succeeded"`
	Skipped   int               `json:"skipped"`
	Failed    int               `json:"failed"`
	Problems  []outcomeResponse `json:"problems"`
}

func newSyncResponse(rep *reconcile.Report) syncResponse {
	resp := syncResponse{
		ServerID:  rep.ServerID,
		Succeeded: rep.Succeeded(),
		Skipped:   rep.Skipped(),
		Failed:    rep.Failed(),
		Problems:  []outcomeResponse{},
	}
	for _, o := range rep.Outcomes {
		if o.Status == reconcile.StatusSucceeded {
			continue
		}
		p := outcomeResponse{
			Kind:      string(o.Kind),
			Action:    string(o.Action),
			ForumID:   o.ForumID,
			DiscordID: o.DiscordID,
			TrelloID:  o.TrelloID,
			Status:    o.Status.String(),
		}
		if o.Err != nil {
			p.Error = o.Err.Error()
		}
		resp.Problems = append(resp.Problems, p)
	}
	return resp
}

// SyncHandler runs a full sync of one server. remove_extra overrides the
// configured label pruning.
func (h *Handler) SyncHandler(c *gin.Context) {
	serverID := c.Param("serverID")

	opts := reconcile.Options{RemoveExtra: h.RemoveExtra}
	if raw := c.Query("remove_extra"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.fail(c, apperr.InvalidInput("remove_extra must be a boolean"))
			return
		}
		opts.RemoveExtra = v
	}

	ctx := c.Request.Context()
	if h.Workers != nil {
		select {
		case h.Workers <- struct{}{}:
			defer func() { <-h.Workers }()
		case <-ctx.Done():
			h.fail(c, ctx.Err())
			return
		}
	}

	rep, err := h.Engine.Sync(ctx, serverID, opts)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, newSyncResponse(rep))
}

func (h *Handler) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// boardClient loads a server that has a credential, and a board when
// needBoard is set, and builds its Trello client.
func (h *Handler) boardClient(ctx context.Context, serverID string, needBoard bool) (*models.ServerBoardLink, integrations.BoardGateway, error) {
	server, err := h.Store.GetServer(ctx, serverID)
	if err != nil {
		return nil, nil, err
	}
	if server == nil || !server.HasCredential() {
		return nil, nil, apperr.ErrAccountNotLinked
	}
	if needBoard && server.BoardID == nil {
		return nil, nil, apperr.ErrBoardNotLinked
	}
	client, err := h.Boards(*server)
	if err != nil {
		return nil, nil, err
	}
	return server, client, nil
}
