package sources

import (
	"context"
	"strconv"
	"time"

	"github.com/sipeed/sonamute/pkg/fileutil"
	"github.com/sipeed/sonamute/pkg/logger"
	"github.com/sipeed/sonamute/pkg/smtypes"
)

type discordRole struct {
	ID string `json:"id"`
}

type discordAuthorJSON struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Discriminator string        `json:"discriminator"`
	IsBot         bool          `json:"isBot"`
	Roles         []discordRole `json:"roles"`
}

type discordMessageJSON struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Timestamp string            `json:"timestamp"`
	Content   string            `json:"content"`
	Author    discordAuthorJSON `json:"author"`
}

type discordGuildJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type discordChannelJSON struct {
	ID string `json:"id"`
}

type discordExportJSON struct {
	Guild        discordGuildJSON     `json:"guild"`
	Channel      discordChannelJSON   `json:"channel"`
	Messages     []discordMessageJSON `json:"messages"`
	MessageCount *int                 `json:"messageCount"`
}

// discordSystemMessageTypes mirrors DiscordChatExporter's numeric message
// type codes for non-user events (boosts, pins, joins) that are attributed
// to a user author but carry no authored content.
var discordSystemMessageTypes = map[string]struct{}{
	"4": {}, "6": {}, "7": {}, "8": {}, "9": {}, "10": {}, "11": {}, "12": {},
	"44": {}, "46": {},
}

func discordIsSystem(m discordMessageJSON) bool {
	_, ok := discordSystemMessageTypes[m.Type]
	return ok
}

// discordIsWebhook distinguishes a webhook-posted message (e.g. a PluralKit
// proxy) from a genuine bot: webhooks have no roles and always carry the
// legacy zero discriminator.
func discordIsWebhook(m discordMessageJSON) bool {
	if !m.Author.IsBot {
		return false
	}
	hasRoles := len(m.Author.Roles) > 0
	hasDiscrim := m.Author.Discriminator != "0000"
	return !(hasRoles || hasDiscrim)
}

// DiscordFetcher reads DiscordChatExporter-style JSON exports rooted at
// Root, one file per (guild, channel) pair.
type DiscordFetcher struct {
	Root string

	seen map[int64]struct{}
}

func NewDiscordFetcher(root string) *DiscordFetcher {
	return &DiscordFetcher{Root: root, seen: make(map[int64]struct{})}
}

func (f *DiscordFetcher) Community() smtypes.Community {
	return smtypes.Community{Platform: smtypes.PlatformDiscord}
}

func (f *DiscordFetcher) Fetch(ctx context.Context) <-chan smtypes.PreMessage {
	out := make(chan smtypes.PreMessage)
	go func() {
		defer close(out)
		walkFiles(ctx, f.Root, "sources.discord", ".json", func(path string) {
			f.emitFile(ctx, path, out)
		})
	}()
	return out
}

func (f *DiscordFetcher) emitFile(ctx context.Context, path string, out chan<- smtypes.PreMessage) {
	data, ok := fileutil.TryLoadJSONFile[discordExportJSON](path)
	if !ok || data.MessageCount == nil {
		return
	}

	containerID, err := strconv.ParseInt(data.Channel.ID, 10, 64)
	if err != nil {
		logger.WarnCF("sources.discord", "bad channel id", map[string]any{"path": path})
		return
	}
	communityID, err := strconv.ParseInt(data.Guild.ID, 10, 64)
	if err != nil {
		logger.WarnCF("sources.discord", "bad guild id", map[string]any{"path": path})
		return
	}
	community := smtypes.Community{
		ID:       communityID,
		Name:     data.Guild.Name,
		Platform: smtypes.PlatformDiscord,
	}

	for _, m := range data.Messages {
		if discordIsSystem(m) {
			continue
		}
		id, err := strconv.ParseInt(m.ID, 10, 64)
		if err != nil {
			continue
		}
		if _, dup := f.seen[id]; dup {
			continue
		}
		f.seen[id] = struct{}{}

		authorID, err := strconv.ParseInt(m.Author.ID, 10, 64)
		if err != nil {
			continue
		}
		postdate, err := time.Parse(time.RFC3339, m.Timestamp)
		if err != nil {
			logger.WarnCF("sources.discord", "bad timestamp", map[string]any{"id": m.ID, "raw": m.Timestamp})
			continue
		}

		author := smtypes.Author{
			ID:        authorID,
			Name:      m.Author.Name,
			Platform:  smtypes.PlatformDiscord,
			IsBot:     m.Author.IsBot,
			IsWebhook: discordIsWebhook(m),
		}

		msg := smtypes.PreMessage{
			ID:        id,
			Community: community,
			Container: containerID,
			Author:    author,
			PostDate:  postdate,
			Content:   m.Content,
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}
