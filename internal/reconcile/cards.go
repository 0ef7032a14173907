package reconcile

import (
	"context"

	"github.com/chxlky/forum-trello-sync/internal/models"
	"go.uber.org/zap"
)

// SyncThreads creates a card for every unlinked thread and pushes the current
// title, opening post, list and labels to cards that already exist. Cards are
// never deleted and links never rewritten.
func (e *Engine) SyncThreads(ctx context.Context, rep *Report, t Target, threads []models.Thread) {
	forum := t.Forum

	links, err := e.store.Tags(ctx, forum.ID)
	if err != nil {
		e.record(rep, Outcome{Kind: KindForum, Action: ActionCreateCard, ForumID: forum.ID,
			DiscordID: forum.ID, TrelloID: forum.ListID, Status: StatusFailed, Err: err})
		return
	}
	labelOf := make(map[string]string, len(links))
	for _, l := range links {
		if !l.IsCompletedTag && l.LabelID != nil {
			labelOf[l.ID] = *l.LabelID
		}
	}

	for _, thread := range threads {
		out := Outcome{Kind: KindThread, ForumID: forum.ID, DiscordID: thread.ID}

		if err := ctx.Err(); err != nil {
			out.Action = ActionUpdateCard
			out.Status = StatusSkipped
			out.Err = err
			e.record(rep, out)
			continue
		}

		link, err := e.store.GetThread(ctx, thread.ID)
		if err != nil {
			out.Action = ActionUpdateCard
			out.Status = StatusFailed
			out.Err = err
			e.record(rep, out)
			continue
		}

		description := e.starterMessage(ctx, thread)
		labelIDs := threadLabels(thread, labelOf)

		if link == nil {
			out.Action = ActionCreateCard
			card, err := t.Board.CreateCard(ctx, models.CardCreate{
				ListID:      forum.ListID,
				Name:        thread.Name,
				Description: description,
				LabelIDs:    labelIDs,
			})
			if err != nil {
				out.Status = StatusFailed
				out.Err = err
				e.record(rep, out)
				continue
			}
			out.TrelloID = card.ID

			if _, err := e.store.CreateThread(ctx, models.ThreadCardLink{
				ID:      thread.ID,
				ForumID: forum.ID,
				CardID:  card.ID,
			}); err != nil {
				out.Status = StatusFailed
				out.Err = err
			}
			e.record(rep, out)
			continue
		}

		out.Action = ActionUpdateCard
		out.TrelloID = link.CardID
		if err := t.Board.UpdateCard(ctx, models.CardUpdate{
			ID:          link.CardID,
			ListID:      forum.ListID,
			Name:        thread.Name,
			Description: description,
			LabelIDs:    labelIDs,
		}); err != nil {
			out.Status = StatusFailed
			out.Err = err
		}
		e.record(rep, out)
	}
}

// starterMessage returns the opening post, or "" when it cannot be fetched.
func (e *Engine) starterMessage(ctx context.Context, thread models.Thread) string {
	content, err := e.forums.StarterMessage(ctx, thread.ID)
	if err != nil {
		e.logger.Debug("Could not fetch starter message; using empty description",
			zap.String("threadID", thread.ID), zap.Error(err))
		return ""
	}
	return content
}

func threadLabels(thread models.Thread, labelOf map[string]string) []string {
	labelIDs := make([]string, 0, len(thread.AppliedTags))
	seen := make(map[string]bool, len(thread.AppliedTags))
	for _, tagID := range thread.AppliedTags {
		labelID, ok := labelOf[tagID]
		if !ok || seen[labelID] {
			continue
		}
		seen[labelID] = true
		labelIDs = append(labelIDs, labelID)
	}
	return labelIDs
}
