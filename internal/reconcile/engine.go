// Package reconcile keeps forum tags and threads aligned with Trello labels and
// cards. All state lives in the link store; an Engine holds nothing between
// syncs except the per-server locks.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/chxlky/forum-trello-sync/integrations"
	"github.com/chxlky/forum-trello-sync/internal/apperr"
	"github.com/chxlky/forum-trello-sync/internal/models"
	"go.uber.org/zap"
)

// LinkStore is the subset of the link tables the engine needs.
type LinkStore interface {
	GetServer(ctx context.Context, serverID string) (*models.ServerBoardLink, error)
	Forums(ctx context.Context, serverID string) ([]models.ForumListLink, error)
	Tags(ctx context.Context, forumID string) ([]models.TagLabelLink, error)
	BoardTags(ctx context.Context, boardID string) ([]models.TagLabelLink, error)
	SaveTag(ctx context.Context, tag *models.TagLabelLink) error
	DeleteTagByLabelID(ctx context.Context, labelID string) error
	GetThread(ctx context.Context, threadID string) (*models.ThreadCardLink, error)
	CreateThread(ctx context.Context, link models.ThreadCardLink) (*models.ThreadCardLink, error)
}

type Options struct {
	// RemoveExtra deletes board labels that match no forum tag.
	RemoveExtra bool
}

// Target is the pair of linked containers a reconciler works on.
type Target struct {
	Server models.ServerBoardLink
	Forum  models.ForumListLink
	Board  integrations.BoardGateway
}

type Engine struct {
	store  LinkStore
	forums integrations.ForumGateway
	boards integrations.BoardClientFactory
	logger *zap.Logger
	intn   func(int) int
	locks  *serverLocks
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRandom replaces the source used to pick label colors.
func WithRandom(intn func(int) int) Option {
	return func(e *Engine) { e.intn = intn }
}

func NewEngine(store LinkStore, forums integrations.ForumGateway, boards integrations.BoardClientFactory, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		forums: forums,
		boards: boards,
		logger: zap.L(),
		intn:   rand.IntN,
		locks:  newServerLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sync reconciles every linked forum of serverID. The returned error is
// non-nil only when the server is not ready to sync or the context ends
// before the server lock is acquired; per-item failures are in the report.
func (e *Engine) Sync(ctx context.Context, serverID string, opts Options) (*Report, error) {
	unlock, err := e.locks.lock(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("wait for sync of server %s: %w", serverID, err)
	}
	defer unlock()

	server, err := e.store.GetServer(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if server == nil || !server.HasCredential() {
		return nil, apperr.ErrAccountNotLinked
	}
	if server.BoardID == nil {
		return nil, apperr.ErrBoardNotLinked
	}

	board, err := e.boards(*server)
	if err != nil {
		return nil, err
	}

	forums, err := e.store.Forums(ctx, serverID)
	if err != nil {
		return nil, err
	}

	rep := &Report{ServerID: serverID}
	for _, forum := range forums {
		if err := ctx.Err(); err != nil {
			e.record(rep, Outcome{Kind: KindForum, Action: ActionResolveForum, ForumID: forum.ID,
				DiscordID: forum.ID, TrelloID: forum.ListID, Status: StatusSkipped, Err: err})
			continue
		}
		e.syncForum(ctx, rep, Target{Server: *server, Forum: forum, Board: board}, opts)
	}

	e.logger.Info("Sync completed",
		zap.String("serverID", serverID),
		zap.Int("forums", len(forums)),
		zap.Int("succeeded", rep.Succeeded()),
		zap.Int("skipped", rep.Skipped()),
		zap.Int("failed", rep.Failed()),
	)
	return rep, nil
}

func (e *Engine) syncForum(ctx context.Context, rep *Report, t Target, opts Options) {
	forum := t.Forum
	resolve := Outcome{Kind: KindForum, Action: ActionResolveForum, ForumID: forum.ID,
		DiscordID: forum.ID, TrelloID: forum.ListID}

	live, err := e.forums.Forum(ctx, forum.ID)
	if err != nil {
		resolve.Err = err
		resolve.Status = StatusFailed
		if errors.Is(err, integrations.ErrNotFound) {
			resolve.Status = StatusSkipped
		}
		e.record(rep, resolve)
		return
	}

	// An empty tag set would make pruning wipe the board.
	if len(live.Tags) > 0 {
		e.SyncTags(ctx, rep, t, live.Tags, opts)
	}

	if err := ctx.Err(); err != nil {
		resolve.Err = err
		resolve.Status = StatusSkipped
		e.record(rep, resolve)
		return
	}

	guildID := live.GuildID
	if guildID == "" {
		guildID = t.Server.ID
	}
	threads, err := e.forums.Threads(ctx, guildID, forum.ID)
	if err != nil {
		resolve.Err = err
		resolve.Status = StatusFailed
		e.record(rep, resolve)
		return
	}

	e.SyncThreads(ctx, rep, t, threads)
}
