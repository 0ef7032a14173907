package models

// Forum is a live forum channel together with the tags defined on it.
type Forum struct {
	ID      string
	GuildID string
	Name    string
	Tags    []Tag
}

// Tag is a forum tag. Emoji holds a unicode emoji only; custom emoji are
// dropped because Trello cannot render them.
type Tag struct {
	ID    string
	Name  string
	Emoji string
}

// DisplayName is the name used for the matching Trello label.
func (t Tag) DisplayName() string {
	if t.Emoji != "" {
		return t.Emoji + " " + t.Name
	}
	return t.Name
}

// Thread is an open thread in a forum. AppliedTags holds tag IDs.
type Thread struct {
	ID          string
	ForumID     string
	Name        string
	AppliedTags []string
}
