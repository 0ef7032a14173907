package reconcile

import (
	"go.uber.org/zap"
)

type Kind string

const (
	KindForum  Kind = "forum"
	KindTag    Kind = "tag"
	KindLabel  Kind = "label"
	KindThread Kind = "thread"
)

type Status int

const (
	StatusSucceeded Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Action names what was attempted for an item.
type Action string

const (
	ActionResolveForum Action = "resolve-forum"
	ActionLinkByName   Action = "link-by-name"
	ActionCreateLabel  Action = "create-label"
	ActionDeleteLabel  Action = "delete-label"
	ActionCreateCard   Action = "create-card"
	ActionUpdateCard   Action = "update-card"
)

// Outcome is the result of one per-item step. DiscordID and TrelloID carry the
// identifiers on each side, TrelloID may be empty when nothing exists yet.
type Outcome struct {
	Kind      Kind
	Action    Action
	ForumID   string
	DiscordID string
	TrelloID  string
	Status    Status
	Err       error
}

func (o Outcome) fields() []zap.Field {
	fields := []zap.Field{
		zap.String("kind", string(o.Kind)),
		zap.String("action", string(o.Action)),
		zap.String("forumID", o.ForumID),
	}
	if o.DiscordID != "" {
		fields = append(fields, zap.String("discordID", o.DiscordID))
	}
	if o.TrelloID != "" {
		fields = append(fields, zap.String("trelloID", o.TrelloID))
	}
	if o.Err != nil {
		fields = append(fields, zap.Error(o.Err))
	}
	return fields
}

// Report collects the outcomes of a sync. Recoverable failures end up here
// instead of being returned as errors.
type Report struct {
	ServerID string
	Outcomes []Outcome
}

func (r *Report) count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

func (r *Report) Succeeded() int { return r.count(StatusSucceeded) }
func (r *Report) Skipped() int   { return r.count(StatusSkipped) }
func (r *Report) Failed() int    { return r.count(StatusFailed) }

// Find returns the outcomes matching kind and action.
func (r *Report) Find(kind Kind, action Action) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Kind == kind && o.Action == action {
			out = append(out, o)
		}
	}
	return out
}

func (e *Engine) record(rep *Report, o Outcome) {
	rep.Outcomes = append(rep.Outcomes, o)

	switch o.Status {
	case StatusFailed:
		e.logger.Warn("Sync step failed", o.fields()...)
	case StatusSkipped:
		e.logger.Info("Sync step skipped", o.fields()...)
	default:
		e.logger.Debug("Sync step done", o.fields()...)
	}
}
