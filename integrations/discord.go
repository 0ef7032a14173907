package integrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/chxlky/forum-trello-sync/internal/models"
)

// DiscordClient resolves forums, tags and threads over the Discord REST API.
type DiscordClient struct {
	session *discordgo.Session
}

func NewDiscordClient(botToken string) (*DiscordClient, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("unable to create Discord session: %w", err)
	}
	return &DiscordClient{session: session}, nil
}

func wrapDiscordError(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound, http.StatusForbidden, http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

func (dc *DiscordClient) Forum(ctx context.Context, forumID string) (models.Forum, error) {
	channel, err := dc.session.Channel(forumID, discordgo.WithContext(ctx))
	if err != nil {
		return models.Forum{}, fmt.Errorf("fetch channel %s: %w", forumID, wrapDiscordError(err))
	}
	if channel.Type != discordgo.ChannelTypeGuildForum {
		return models.Forum{}, fmt.Errorf("%w: channel %s is not a forum channel", ErrNotFound, forumID)
	}

	forum := models.Forum{
		ID:      channel.ID,
		GuildID: channel.GuildID,
		Name:    channel.Name,
	}
	for _, tag := range channel.AvailableTags {
		t := models.Tag{ID: tag.ID, Name: tag.Name}
		// Only unicode emoji have no ID.
		if tag.EmojiID == "" {
			t.Emoji = tag.EmojiName
		}
		forum.Tags = append(forum.Tags, t)
	}
	return forum, nil
}

func (dc *DiscordClient) Threads(ctx context.Context, guildID, forumID string) ([]models.Thread, error) {
	active, err := dc.session.GuildThreadsActive(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch active threads of guild %s: %w", guildID, wrapDiscordError(err))
	}

	var threads []models.Thread
	for _, ch := range active.Threads {
		if ch.ParentID != forumID {
			continue
		}
		threads = append(threads, models.Thread{
			ID:          ch.ID,
			ForumID:     forumID,
			Name:        ch.Name,
			AppliedTags: ch.AppliedTags,
		})
	}
	return threads, nil
}

// StarterMessage returns the content of a thread's opening post. Forum posts
// share their ID with the thread.
func (dc *DiscordClient) StarterMessage(ctx context.Context, threadID string) (string, error) {
	msg, err := dc.session.ChannelMessage(threadID, threadID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("fetch starter message of thread %s: %w", threadID, wrapDiscordError(err))
	}
	return msg.Content, nil
}
