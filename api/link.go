package api

import (
	"net/http"
	"slices"

	"github.com/chxlky/forum-trello-sync/integrations"
	"github.com/chxlky/forum-trello-sync/internal/apperr"
	"github.com/chxlky/forum-trello-sync/internal/models"
	"github.com/chxlky/forum-trello-sync/internal/reconcile"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LinkAccountHandler registers the server and returns the Trello authorize URL.
func (h *Handler) LinkAccountHandler(c *gin.Context) {
	serverID := c.Param("serverID")

	server, err := h.Store.CreateServer(c.Request.Context(), serverID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorize_url":  integrations.GenerateOAuthURL(h.TrelloKey, h.RedirectURL, serverID, h.AppName),
		"already_linked": server.HasCredential(),
	})
}

func (h *Handler) ListBoardsHandler(c *gin.Context) {
	_, client, err := h.boardClient(c.Request.Context(), c.Param("serverID"), false)
	if err != nil {
		h.fail(c, err)
		return
	}

	boards, err := client.Boards(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, boards)
}

type linkBoardRequest struct {
	BoardID         string  `json:"board_id" binding:"required"`
	CompletedListID *string `json:"completed_list_id"`
}

func (h *Handler) LinkBoardHandler(c *gin.Context) {
	var req linkBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.InvalidInput("board_id is required"))
		return
	}

	ctx := c.Request.Context()
	server, client, err := h.boardClient(ctx, c.Param("serverID"), false)
	if err != nil {
		h.fail(c, err)
		return
	}

	boards, err := client.Boards(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	var selected *models.Board
	for i := range boards {
		if boards[i].ID == req.BoardID {
			selected = &boards[i]
			break
		}
	}
	if selected == nil {
		h.fail(c, apperr.InvalidInput("The selected board is invalid"))
		return
	}

	if server.BoardID != nil && *server.BoardID != selected.ID {
		zap.L().Info("Replacing linked board",
			zap.String("serverID", server.ID), zap.String("from", *server.BoardID), zap.String("to", selected.ID))
	}
	server.BoardID = &selected.ID
	server.CompletedListID = req.CompletedListID
	if err := h.Store.SaveServer(ctx, server); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"server_id": server.ID, "board": selected})
}

func (h *Handler) ListListsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	server, client, err := h.boardClient(ctx, c.Param("serverID"), true)
	if err != nil {
		h.fail(c, err)
		return
	}

	lists, err := client.Lists(ctx, *server.BoardID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lists)
}

func (h *Handler) ListLabelsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	server, client, err := h.boardClient(ctx, c.Param("serverID"), true)
	if err != nil {
		h.fail(c, err)
		return
	}

	labels, err := client.Labels(ctx, *server.BoardID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, labels)
}

type linkListRequest struct {
	ServerID string `json:"server_id" binding:"required"`
	ListID   string `json:"list_id" binding:"required"`
}

// LinkListHandler ties a forum to a list of the server's board, or moves an
// existing forum link to another list.
func (h *Handler) LinkListHandler(c *gin.Context) {
	var req linkListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.InvalidInput("server_id and list_id are required"))
		return
	}

	ctx := c.Request.Context()
	forumID := c.Param("forumID")
	server, client, err := h.boardClient(ctx, req.ServerID, true)
	if err != nil {
		h.fail(c, err)
		return
	}

	lists, err := client.Lists(ctx, *server.BoardID)
	if err != nil {
		h.fail(c, err)
		return
	}
	found := false
	for _, l := range lists {
		if l.ID == req.ListID {
			found = true
			break
		}
	}
	if !found {
		h.fail(c, apperr.InvalidInput("The selected list is invalid"))
		return
	}

	forum, err := h.Store.GetForum(ctx, forumID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if forum == nil {
		forum = &models.ForumListLink{ID: forumID, ServerID: server.ID}
	}
	if forum.ServerID != server.ID {
		h.fail(c, apperr.InvalidInput("This forum is linked by another server"))
		return
	}
	forum.BoardID = *server.BoardID
	forum.ListID = req.ListID
	if err := h.Store.SaveForum(ctx, forum); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, forum)
}

func (h *Handler) UnlinkForumHandler(c *gin.Context) {
	if err := h.Store.DeleteForum(c.Request.Context(), c.Param("forumID")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UnlinkServerHandler forgets the server's credential, board and every link under it.
func (h *Handler) UnlinkServerHandler(c *gin.Context) {
	if err := h.Store.DeleteServer(c.Request.Context(), c.Param("serverID")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListCardsHandler shows the cards currently on the forum's list.
func (h *Handler) ListCardsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	forum, err := h.Store.GetForum(ctx, c.Param("forumID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if forum == nil {
		h.fail(c, apperr.InvalidInput("This forum is not linked to a list"))
		return
	}
	_, client, err := h.boardClient(ctx, forum.ServerID, false)
	if err != nil {
		h.fail(c, err)
		return
	}

	cards, err := client.Cards(ctx, forum.ListID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (h *Handler) ListThreadsHandler(c *gin.Context) {
	threads, err := h.Store.Threads(c.Request.Context(), c.Param("forumID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, threads)
}

type tagResponse struct {
	TagID       string  `json:"tag_id"`
	Name        string  `json:"name"`
	LabelID     *string `json:"label_id"`
	IsCompleted bool    `json:"is_completed_tag"`
	Linked      bool    `json:"linked"`
}

// ListTagsHandler shows every live tag of a forum with its current link.
func (h *Handler) ListTagsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	forumID := c.Param("forumID")

	live, err := h.Forums.Forum(ctx, forumID)
	if err != nil {
		h.fail(c, err)
		return
	}
	links, err := h.Store.Tags(ctx, forumID)
	if err != nil {
		h.fail(c, err)
		return
	}
	byTag := make(map[string]models.TagLabelLink, len(links))
	for _, l := range links {
		byTag[l.ID] = l
	}

	resp := make([]tagResponse, 0, len(live.Tags))
	for _, tag := range live.Tags {
		r := tagResponse{TagID: tag.ID, Name: tag.DisplayName()}
		if l, ok := byTag[tag.ID]; ok {
			r.Linked = true
			r.LabelID = l.LabelID
			r.IsCompleted = l.IsCompletedTag
		}
		resp = append(resp, r)
	}
	c.JSON(http.StatusOK, resp)
}

type linkTagRequest struct {
	ForumID   string `json:"forum_id" binding:"required"`
	LabelID   string `json:"label_id"`
	Completed bool   `json:"completed"`
	Color     string `json:"color"`
}

// LinkTagHandler links a tag to a label by hand, or marks it as the forum's
// completed tag.
func (h *Handler) LinkTagHandler(c *gin.Context) {
	var req linkTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.InvalidInput("forum_id is required"))
		return
	}
	if (req.LabelID == "") == !req.Completed {
		h.fail(c, apperr.InvalidInput("exactly one of label_id and completed must be set"))
		return
	}
	if req.Color != "" && (req.Completed || !slices.Contains(reconcile.LabelColors, req.Color)) {
		h.fail(c, apperr.InvalidInput("color must be a Trello label color and needs label_id"))
		return
	}

	ctx := c.Request.Context()
	tagID := c.Param("tagID")
	forum, err := h.Store.GetForum(ctx, req.ForumID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if forum == nil {
		h.fail(c, apperr.InvalidInput("This forum is not linked to a list"))
		return
	}

	link := models.NewCompletedTag(forum.ID, tagID)
	if !req.Completed {
		_, client, err := h.boardClient(ctx, forum.ServerID, false)
		if err != nil {
			h.fail(c, err)
			return
		}
		labels, err := client.Labels(ctx, forum.BoardID)
		if err != nil {
			h.fail(c, err)
			return
		}
		i := slices.IndexFunc(labels, func(l models.Label) bool { return l.ID == req.LabelID })
		if i < 0 {
			h.fail(c, apperr.InvalidInput("The selected label is invalid"))
			return
		}
		if req.Color != "" && req.Color != labels[i].Color {
			if err := client.UpdateLabel(ctx, models.LabelUpdate{ID: req.LabelID, Name: labels[i].Name, Color: req.Color}); err != nil {
				h.fail(c, err)
				return
			}
		}
		link = models.NewLabelTag(forum.ID, tagID, req.LabelID)
	}

	if err := h.Store.SaveTag(ctx, &link); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}
