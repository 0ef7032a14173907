package models

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ServerBoardLink ties a Discord server to a Trello board.
type ServerBoardLink struct {
	ID              string  `gorm:"primaryKey" json:"id"`
	APIToken        *string `json:"-"`
	BoardID         *string `json:"board_id"`
	CompletedListID *string `json:"completed_list_id"`
}

func (ServerBoardLink) TableName() string { return "servers" }

// HasCredential reports whether the OAuth token has been captured.
func (s ServerBoardLink) HasCredential() bool {
	return s.APIToken != nil && *s.APIToken != ""
}

// ForumListLink ties a forum channel to a Trello list.
type ForumListLink struct {
	ID       string `gorm:"primaryKey" json:"id"`
	ServerID string `gorm:"index;not null" json:"server_id"`
	BoardID  string `gorm:"not null" json:"board_id"`
	ListID   string `gorm:"not null" json:"list_id"`
}

func (ForumListLink) TableName() string { return "forums" }

// TagLabelLink ties a forum tag to a Trello label. A link without a label marks
// the tag as the "completed" tag of its forum.
type TagLabelLink struct {
	ID             string  `gorm:"primaryKey" json:"id"`
	ForumID        string  `gorm:"index;not null" json:"forum_id"`
	LabelID        *string `gorm:"index" json:"label_id"`
	IsCompletedTag bool    `gorm:"not null;default:false" json:"is_completed_tag"`
}

func (TagLabelLink) TableName() string { return "tags" }

var ErrInvalidTagLink = errors.New("invalid tag link")

// NewLabelTag links tagID to labelID.
func NewLabelTag(forumID, tagID, labelID string) TagLabelLink {
	return TagLabelLink{ID: tagID, ForumID: forumID, LabelID: &labelID}
}

// NewCompletedTag marks tagID as the completed tag of forumID.
func NewCompletedTag(forumID, tagID string) TagLabelLink {
	return TagLabelLink{ID: tagID, ForumID: forumID, IsCompletedTag: true}
}

// Validate checks that exactly one of LabelID and IsCompletedTag is set.
func (t TagLabelLink) Validate() error {
	hasLabel := t.LabelID != nil
	switch {
	case hasLabel && t.IsCompletedTag:
		return fmt.Errorf("%w: tag %s has both a label and the completed flag", ErrInvalidTagLink, t.ID)
	case !hasLabel && !t.IsCompletedTag:
		return fmt.Errorf("%w: tag %s has neither a label nor the completed flag", ErrInvalidTagLink, t.ID)
	case hasLabel && *t.LabelID == "":
		return fmt.Errorf("%w: tag %s has an empty label id", ErrInvalidTagLink, t.ID)
	}
	return nil
}

func (t *TagLabelLink) BeforeSave(*gorm.DB) error {
	return t.Validate()
}

// Label returns the linked label ID, or "" for completed tags.
func (t TagLabelLink) Label() string {
	if t.LabelID == nil {
		return ""
	}
	return *t.LabelID
}

// ThreadCardLink ties a forum thread to a Trello card. CardID never changes
// once the row exists.
type ThreadCardLink struct {
	ID      string `gorm:"primaryKey" json:"id"`
	ForumID string `gorm:"index;not null" json:"forum_id"`
	CardID  string `gorm:"not null" json:"card_id"`
}

func (ThreadCardLink) TableName() string { return "threads" }
