package reconcile

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/chxlky/forum-trello-sync/database"
	"github.com/chxlky/forum-trello-sync/integrations"
	"github.com/chxlky/forum-trello-sync/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type fakeBoard struct {
	mu     sync.Mutex
	nextID int
	labels []models.Label
	cards  map[string]models.Card
	calls  []string

	labelsErr       error
	failCreateLabel map[string]error
	failDeleteLabel map[string]error
	failCreateCard  map[string]error
	failUpdateCard  map[string]error
	onCreateLabel   func(models.LabelCreate)
	onCreateCard    func(models.CardCreate)
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{
		cards:           make(map[string]models.Card),
		failCreateLabel: make(map[string]error),
		failDeleteLabel: make(map[string]error),
		failCreateCard:  make(map[string]error),
		failUpdateCard:  make(map[string]error),
	}
}

func (b *fakeBoard) id(prefix string) string {
	b.nextID++
	return fmt.Sprintf("%s%d", prefix, b.nextID)
}

func (b *fakeBoard) count(call string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (b *fakeBoard) label(name string) (models.Label, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, l := range b.labels {
		if l.Name == name {
			return l, true
		}
	}
	return models.Label{}, false
}

func (b *fakeBoard) Boards(context.Context) ([]models.Board, error) {
	return []models.Board{{ID: "B1", Name: "Board"}}, nil
}

func (b *fakeBoard) Lists(context.Context, string) ([]models.List, error) {
	return []models.List{{ID: "LIST1", Name: "Backlog", BoardID: "B1"}}, nil
}

func (b *fakeBoard) Labels(_ context.Context, boardID string) ([]models.Label, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.labelsErr != nil {
		return nil, b.labelsErr
	}
	out := make([]models.Label, len(b.labels))
	copy(out, b.labels)
	return out, nil
}

func (b *fakeBoard) Cards(_ context.Context, listID string) ([]models.Card, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.Card
	for _, c := range b.cards {
		if c.ListID == listID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (b *fakeBoard) CreateLabel(_ context.Context, spec models.LabelCreate) (models.Label, error) {
	if b.onCreateLabel != nil {
		b.onCreateLabel(spec)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "create-label")
	if err := b.failCreateLabel[spec.Name]; err != nil {
		return models.Label{}, err
	}
	l := models.Label{ID: b.id("LBL"), Name: spec.Name, Color: spec.Color, BoardID: spec.BoardID}
	b.labels = append(b.labels, l)
	return l, nil
}

func (b *fakeBoard) UpdateLabel(_ context.Context, spec models.LabelUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "update-label")
	for i, l := range b.labels {
		if l.ID == spec.ID {
			b.labels[i].Name = spec.Name
			return nil
		}
	}
	return integrations.ErrNotFound
}

func (b *fakeBoard) DeleteLabel(_ context.Context, labelID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "delete-label")
	if err := b.failDeleteLabel[labelID]; err != nil {
		return err
	}
	for i, l := range b.labels {
		if l.ID == labelID {
			b.labels = append(b.labels[:i], b.labels[i+1:]...)
			return nil
		}
	}
	return integrations.ErrNotFound
}

func (b *fakeBoard) CreateCard(_ context.Context, spec models.CardCreate) (models.Card, error) {
	if b.onCreateCard != nil {
		b.onCreateCard(spec)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "create-card")
	if err := b.failCreateCard[spec.Name]; err != nil {
		return models.Card{}, err
	}
	c := models.Card{ID: b.id("CARD"), Name: spec.Name, Description: spec.Description,
		ListID: spec.ListID, LabelIDs: spec.LabelIDs}
	b.cards[c.ID] = c
	return c, nil
}

func (b *fakeBoard) UpdateCard(_ context.Context, spec models.CardUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "update-card")
	if err := b.failUpdateCard[spec.ID]; err != nil {
		return err
	}
	if _, ok := b.cards[spec.ID]; !ok {
		return integrations.ErrNotFound
	}
	b.cards[spec.ID] = models.Card{ID: spec.ID, Name: spec.Name, Description: spec.Description,
		ListID: spec.ListID, LabelIDs: spec.LabelIDs}
	return nil
}

type fakeForums struct {
	forums      map[string]models.Forum
	threads     map[string][]models.Thread
	messages    map[string]string
	threadsErr  error
	threadCalls int
}

func newFakeForums() *fakeForums {
	return &fakeForums{
		forums:   make(map[string]models.Forum),
		threads:  make(map[string][]models.Thread),
		messages: make(map[string]string),
	}
}

func (f *fakeForums) Forum(_ context.Context, forumID string) (models.Forum, error) {
	forum, ok := f.forums[forumID]
	if !ok {
		return models.Forum{}, fmt.Errorf("channel %s: %w", forumID, integrations.ErrNotFound)
	}
	return forum, nil
}

func (f *fakeForums) Threads(_ context.Context, _, forumID string) ([]models.Thread, error) {
	f.threadCalls++
	if f.threadsErr != nil {
		return nil, f.threadsErr
	}
	return f.threads[forumID], nil
}

func (f *fakeForums) StarterMessage(_ context.Context, threadID string) (string, error) {
	msg, ok := f.messages[threadID]
	if !ok {
		return "", fmt.Errorf("message %s: %w", threadID, integrations.ErrNotFound)
	}
	return msg, nil
}

type fixture struct {
	engine *Engine
	store  *database.Store
	board  *fakeBoard
	forums *fakeForums
}

const (
	testServer = "G1"
	testForum  = "F1"
	testBoard  = "B1"
	testList   = "LIST1"
)

func strPtr(s string) *string { return &s }

// newFixture links server G1 to board B1 and forum F1 to list LIST1.
func newFixture(t *testing.T, logger ...*zap.Logger) *fixture {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "links.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	store := database.NewStore(db)

	ctx := context.Background()
	if err := store.SaveServer(ctx, &models.ServerBoardLink{
		ID:       testServer,
		APIToken: strPtr("token"),
		BoardID:  strPtr(testBoard),
	}); err != nil {
		t.Fatalf("failed to seed server: %v", err)
	}
	if err := store.SaveForum(ctx, &models.ForumListLink{
		ID: testForum, ServerID: testServer, BoardID: testBoard, ListID: testList,
	}); err != nil {
		t.Fatalf("failed to seed forum: %v", err)
	}

	board := newFakeBoard()
	forums := newFakeForums()
	forums.forums[testForum] = models.Forum{ID: testForum, GuildID: testServer, Name: "bugs"}

	l := zaptest.NewLogger(t)
	if len(logger) > 0 {
		l = logger[0]
	}

	factory := func(server models.ServerBoardLink) (integrations.BoardGateway, error) {
		return board, nil
	}
	engine := NewEngine(store, forums, factory,
		WithLogger(l),
		WithRandom(func(int) int { return 0 }),
	)

	return &fixture{engine: engine, store: store, board: board, forums: forums}
}

// addForum links another forum of G1 to LIST1 on the same board.
func (f *fixture) addForum(t *testing.T, forumID string, tags ...models.Tag) {
	t.Helper()
	if err := f.store.SaveForum(context.Background(), &models.ForumListLink{
		ID: forumID, ServerID: testServer, BoardID: testBoard, ListID: testList,
	}); err != nil {
		t.Fatalf("failed to seed forum %s: %v", forumID, err)
	}
	f.forums.forums[forumID] = models.Forum{ID: forumID, GuildID: testServer, Name: forumID, Tags: tags}
}

func (f *fixture) setTags(tags ...models.Tag) {
	forum := f.forums.forums[testForum]
	forum.Tags = tags
	f.forums.forums[testForum] = forum
}

func (f *fixture) target() Target {
	return Target{
		Server: models.ServerBoardLink{ID: testServer, APIToken: strPtr("token"), BoardID: strPtr(testBoard)},
		Forum:  models.ForumListLink{ID: testForum, ServerID: testServer, BoardID: testBoard, ListID: testList},
		Board:  f.board,
	}
}

func (f *fixture) tagLink(t *testing.T, tagID string) *models.TagLabelLink {
	t.Helper()
	link, err := f.store.GetTag(context.Background(), tagID)
	if err != nil {
		t.Fatalf("GetTag(%s) failed: %v", tagID, err)
	}
	return link
}

func (f *fixture) threadLink(t *testing.T, threadID string) *models.ThreadCardLink {
	t.Helper()
	link, err := f.store.GetThread(context.Background(), threadID)
	if err != nil {
		t.Fatalf("GetThread(%s) failed: %v", threadID, err)
	}
	return link
}

func (f *fixture) sync(t *testing.T, opts Options) *Report {
	t.Helper()
	rep, err := f.engine.Sync(context.Background(), testServer, opts)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	return rep
}
