package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/chxlky/forum-trello-sync/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the link table access layer. Lookups return (nil, nil) when the row
// does not exist; writes are single-row upserts.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func first[T any](ctx context.Context, db *gorm.DB, id string) (*T, error) {
	var row T
	err := db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func upsert(ctx context.Context, db *gorm.DB, row any) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}

func (s *Store) GetServer(ctx context.Context, serverID string) (*models.ServerBoardLink, error) {
	server, err := first[models.ServerBoardLink](ctx, s.db, serverID)
	if err != nil {
		return nil, fmt.Errorf("get server %s: %w", serverID, err)
	}
	return server, nil
}

// CreateServer returns the existing row for serverID or inserts an empty one.
func (s *Store) CreateServer(ctx context.Context, serverID string) (*models.ServerBoardLink, error) {
	server := models.ServerBoardLink{ID: serverID}
	if err := s.db.WithContext(ctx).Where(models.ServerBoardLink{ID: serverID}).FirstOrCreate(&server).Error; err != nil {
		return nil, fmt.Errorf("create server %s: %w", serverID, err)
	}
	return &server, nil
}

func (s *Store) SaveServer(ctx context.Context, server *models.ServerBoardLink) error {
	if err := upsert(ctx, s.db, server); err != nil {
		return fmt.Errorf("save server %s: %w", server.ID, err)
	}
	return nil
}

// SetServerToken stores the OAuth credential of an existing server.
func (s *Store) SetServerToken(ctx context.Context, serverID, token string) error {
	res := s.db.WithContext(ctx).Model(&models.ServerBoardLink{}).Where("id = ?", serverID).Update("api_token", token)
	if res.Error != nil {
		return fmt.Errorf("set token for server %s: %w", serverID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set token for server %s: %w", serverID, gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteServer removes the server and every forum, tag and thread link under it.
func (s *Store) DeleteServer(ctx context.Context, serverID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var forumIDs []string
		if err := tx.Model(&models.ForumListLink{}).Where("server_id = ?", serverID).Pluck("id", &forumIDs).Error; err != nil {
			return err
		}
		if len(forumIDs) > 0 {
			if err := tx.Where("forum_id IN ?", forumIDs).Delete(&models.TagLabelLink{}).Error; err != nil {
				return err
			}
			if err := tx.Where("forum_id IN ?", forumIDs).Delete(&models.ThreadCardLink{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", forumIDs).Delete(&models.ForumListLink{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", serverID).Delete(&models.ServerBoardLink{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete server %s: %w", serverID, err)
	}
	return nil
}

func (s *Store) Forums(ctx context.Context, serverID string) ([]models.ForumListLink, error) {
	var forums []models.ForumListLink
	if err := s.db.WithContext(ctx).Where("server_id = ?", serverID).Order("id").Find(&forums).Error; err != nil {
		return nil, fmt.Errorf("list forums of server %s: %w", serverID, err)
	}
	return forums, nil
}

func (s *Store) GetForum(ctx context.Context, forumID string) (*models.ForumListLink, error) {
	forum, err := first[models.ForumListLink](ctx, s.db, forumID)
	if err != nil {
		return nil, fmt.Errorf("get forum %s: %w", forumID, err)
	}
	return forum, nil
}

func (s *Store) SaveForum(ctx context.Context, forum *models.ForumListLink) error {
	if err := upsert(ctx, s.db, forum); err != nil {
		return fmt.Errorf("save forum %s: %w", forum.ID, err)
	}
	return nil
}

// DeleteForum removes the forum link together with its tag and thread links.
func (s *Store) DeleteForum(ctx context.Context, forumID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("forum_id = ?", forumID).Delete(&models.TagLabelLink{}).Error; err != nil {
			return err
		}
		if err := tx.Where("forum_id = ?", forumID).Delete(&models.ThreadCardLink{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", forumID).Delete(&models.ForumListLink{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete forum %s: %w", forumID, err)
	}
	return nil
}

func (s *Store) Tags(ctx context.Context, forumID string) ([]models.TagLabelLink, error) {
	var tags []models.TagLabelLink
	if err := s.db.WithContext(ctx).Where("forum_id = ?", forumID).Order("id").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list tags of forum %s: %w", forumID, err)
	}
	return tags, nil
}

// BoardTags returns the tag links of every forum linked to boardID.
func (s *Store) BoardTags(ctx context.Context, boardID string) ([]models.TagLabelLink, error) {
	var tags []models.TagLabelLink
	err := s.db.WithContext(ctx).
		Joins("JOIN forums ON forums.id = tags.forum_id").
		Where("forums.board_id = ?", boardID).
		Order("tags.id").
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("list tags of board %s: %w", boardID, err)
	}
	return tags, nil
}

func (s *Store) GetTag(ctx context.Context, tagID string) (*models.TagLabelLink, error) {
	tag, err := first[models.TagLabelLink](ctx, s.db, tagID)
	if err != nil {
		return nil, fmt.Errorf("get tag %s: %w", tagID, err)
	}
	return tag, nil
}

func (s *Store) SaveTag(ctx context.Context, tag *models.TagLabelLink) error {
	if err := tag.Validate(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"forum_id", "label_id", "is_completed_tag"}),
	}).Create(tag).Error
	if err != nil {
		return fmt.Errorf("save tag %s: %w", tag.ID, err)
	}
	return nil
}

// DeleteTagByLabelID removes every tag link pointing at labelID.
func (s *Store) DeleteTagByLabelID(ctx context.Context, labelID string) error {
	if err := s.db.WithContext(ctx).Where("label_id = ?", labelID).Delete(&models.TagLabelLink{}).Error; err != nil {
		return fmt.Errorf("delete tags of label %s: %w", labelID, err)
	}
	return nil
}

func (s *Store) Threads(ctx context.Context, forumID string) ([]models.ThreadCardLink, error) {
	var threads []models.ThreadCardLink
	if err := s.db.WithContext(ctx).Where("forum_id = ?", forumID).Order("id").Find(&threads).Error; err != nil {
		return nil, fmt.Errorf("list threads of forum %s: %w", forumID, err)
	}
	return threads, nil
}

func (s *Store) GetThread(ctx context.Context, threadID string) (*models.ThreadCardLink, error) {
	thread, err := first[models.ThreadCardLink](ctx, s.db, threadID)
	if err != nil {
		return nil, fmt.Errorf("get thread %s: %w", threadID, err)
	}
	return thread, nil
}

// CreateThread inserts the link unless the thread is already linked, in which
// case the stored row is returned untouched.
func (s *Store) CreateThread(ctx context.Context, link models.ThreadCardLink) (*models.ThreadCardLink, error) {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
	if err != nil {
		return nil, fmt.Errorf("create thread %s: %w", link.ID, err)
	}
	stored, err := s.GetThread(ctx, link.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("create thread %s: %w", link.ID, gorm.ErrRecordNotFound)
	}
	return stored, nil
}
