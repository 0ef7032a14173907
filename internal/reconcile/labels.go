package reconcile

import (
	"context"

	"github.com/chxlky/forum-trello-sync/internal/models"
)

// SyncTags makes sure every tag of the forum is linked to a label on the
// forum's board. Tags that already have a link are never re-derived. With
// opts.RemoveExtra, labels whose name matches no tag are deleted unless a
// current tag of this forum, or any tag of another forum on the same board,
// is linked to them.
func (e *Engine) SyncTags(ctx context.Context, rep *Report, t Target, tags []models.Tag, opts Options) {
	forum := t.Forum

	labels, err := t.Board.Labels(ctx, forum.BoardID)
	if err != nil {
		e.record(rep, Outcome{Kind: KindForum, Action: ActionCreateLabel, ForumID: forum.ID,
			DiscordID: forum.ID, TrelloID: forum.BoardID, Status: StatusFailed, Err: err})
		return
	}

	links, err := e.store.Tags(ctx, forum.ID)
	if err != nil {
		e.record(rep, Outcome{Kind: KindForum, Action: ActionCreateLabel, ForumID: forum.ID,
			DiscordID: forum.ID, TrelloID: forum.BoardID, Status: StatusFailed, Err: err})
		return
	}
	linked := make(map[string]models.TagLabelLink, len(links))
	for _, l := range links {
		linked[l.ID] = l
	}

	labelByName := make(map[string]string, len(labels))
	for _, l := range labels {
		if _, ok := labelByName[l.Name]; !ok {
			labelByName[l.Name] = l.ID
		}
	}
	colors := newColorPicker(labels, e.intn)

	for _, tag := range tags {
		if _, ok := linked[tag.ID]; ok {
			continue
		}

		name := tag.DisplayName()
		out := Outcome{Kind: KindTag, ForumID: forum.ID, DiscordID: tag.ID}

		if err := ctx.Err(); err != nil {
			out.Action = ActionCreateLabel
			out.Status = StatusSkipped
			out.Err = err
			e.record(rep, out)
			continue
		}

		if labelID, ok := labelByName[name]; ok {
			out.Action = ActionLinkByName
			out.TrelloID = labelID
			link := models.NewLabelTag(forum.ID, tag.ID, labelID)
			if err := e.store.SaveTag(ctx, &link); err != nil {
				out.Status = StatusFailed
				out.Err = err
			} else {
				linked[tag.ID] = link
			}
			e.record(rep, out)
			continue
		}

		out.Action = ActionCreateLabel
		label, err := t.Board.CreateLabel(ctx, models.LabelCreate{
			BoardID: forum.BoardID,
			Name:    name,
			Color:   colors.pick(),
		})
		if err != nil {
			out.Status = StatusFailed
			out.Err = err
			e.record(rep, out)
			continue
		}
		out.TrelloID = label.ID
		labelByName[name] = label.ID

		link := models.NewLabelTag(forum.ID, tag.ID, label.ID)
		if err := e.store.SaveTag(ctx, &link); err != nil {
			out.Status = StatusFailed
			out.Err = err
		} else {
			linked[tag.ID] = link
		}
		e.record(rep, out)
	}

	if opts.RemoveExtra {
		e.pruneLabels(ctx, rep, t, tags, labels, linked)
	}
}

func (e *Engine) pruneLabels(ctx context.Context, rep *Report, t Target, tags []models.Tag, labels []models.Label, linked map[string]models.TagLabelLink) {
	keep := make(map[string]bool, len(tags))
	live := make(map[string]bool, len(tags))
	for _, tag := range tags {
		keep[tag.DisplayName()] = true
		live[tag.ID] = true
	}
	pinned := make(map[string]bool, len(linked))
	for tagID, link := range linked {
		if live[tagID] && link.LabelID != nil {
			pinned[*link.LabelID] = true
		}
	}

	// Other forums on the board own their labels.
	shared, err := e.store.BoardTags(ctx, t.Forum.BoardID)
	if err != nil {
		e.record(rep, Outcome{Kind: KindForum, Action: ActionDeleteLabel, ForumID: t.Forum.ID,
			DiscordID: t.Forum.ID, TrelloID: t.Forum.BoardID, Status: StatusFailed, Err: err})
		return
	}
	for _, link := range shared {
		if link.ForumID != t.Forum.ID && link.LabelID != nil {
			pinned[*link.LabelID] = true
		}
	}

	for _, label := range labels {
		if keep[label.Name] || pinned[label.ID] {
			continue
		}

		out := Outcome{Kind: KindLabel, Action: ActionDeleteLabel, ForumID: t.Forum.ID, TrelloID: label.ID}
		if err := ctx.Err(); err != nil {
			out.Status = StatusSkipped
			out.Err = err
			e.record(rep, out)
			continue
		}

		if err := t.Board.DeleteLabel(ctx, label.ID); err != nil {
			out.Status = StatusFailed
			out.Err = err
			e.record(rep, out)
			continue
		}
		if err := e.store.DeleteTagByLabelID(ctx, label.ID); err != nil {
			out.Status = StatusFailed
			out.Err = err
		}
		e.record(rep, out)
	}
}
