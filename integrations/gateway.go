package integrations

import (
	"context"
	"errors"

	"github.com/chxlky/forum-trello-sync/internal/models"
)

// Remote failures are reported as one of these two kinds.
var (
	ErrNotFound  = errors.New("remote entity not found or forbidden")
	ErrTransient = errors.New("transient remote failure")
)

// BoardGateway is the Trello side of a sync.
type BoardGateway interface {
	Boards(ctx context.Context) ([]models.Board, error)
	Lists(ctx context.Context, boardID string) ([]models.List, error)
	Labels(ctx context.Context, boardID string) ([]models.Label, error)
	Cards(ctx context.Context, listID string) ([]models.Card, error)
	CreateLabel(ctx context.Context, spec models.LabelCreate) (models.Label, error)
	UpdateLabel(ctx context.Context, spec models.LabelUpdate) error
	DeleteLabel(ctx context.Context, labelID string) error
	CreateCard(ctx context.Context, spec models.CardCreate) (models.Card, error)
	UpdateCard(ctx context.Context, spec models.CardUpdate) error
}

// ForumGateway is the Discord side of a sync.
type ForumGateway interface {
	Forum(ctx context.Context, forumID string) (models.Forum, error)
	Threads(ctx context.Context, guildID, forumID string) ([]models.Thread, error)
	StarterMessage(ctx context.Context, threadID string) (string, error)
}

// BoardClientFactory builds an authenticated board client for a server. It
// fails with apperr.ErrAccountNotLinked when the server has no credential.
type BoardClientFactory func(server models.ServerBoardLink) (BoardGateway, error)
