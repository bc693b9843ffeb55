package sources

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sipeed/sonamute/pkg/fileutil"
	"github.com/sipeed/sonamute/pkg/logger"
	"github.com/sipeed/sonamute/pkg/smtypes"
)

// oneChatBridgeID reposts other users' messages under one bot account,
// bolding the real author's name as the first text entity.
const oneChatBridgeID = 128026086

// tptRulesBotID is the one known Telegram bot that posts toki pona text and
// so must not be silently treated as a human author.
const tptRulesBotID = 1534630115

var telegramFormatMap = map[string]string{
	"bold":          "*",
	"italic":        "_",
	"underline":     "__",
	"strikethrough": "~",
	"spoiler":       "||",
}

type telegramTextEntity struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type telegramMessageJSON struct {
	ID             int64                `json:"id"`
	Type           string               `json:"type"`
	DateUnixtime   string               `json:"date_unixtime"`
	TextEntities   []telegramTextEntity `json:"text_entities"`
	FromID         string               `json:"from_id"`
	From           *string              `json:"from"`
	ForwardedFrom  *string              `json:"forwarded_from"`
}

type telegramJSON struct {
	Name     string                `json:"name"`
	Type     string                `json:"type"`
	ID       int64                 `json:"id"`
	Messages []telegramMessageJSON `json:"messages"`
}

func telegramFormatEntity(ent telegramTextEntity) string {
	switch ent.Type {
	case "mention":
		return "<" + ent.Text + ">"
	case "mention_name":
		return "<@" + ent.Text + ">"
	case "blockquote":
		return "> " + ent.Text
	case "code":
		if strings.Contains(ent.Text, "\n") {
			return "```\n" + ent.Text + "\n```"
		}
		return "`" + ent.Text + "`"
	}
	if quoter, ok := telegramFormatMap[ent.Type]; ok {
		return quoter + ent.Text + quoter
	}
	return ent.Text
}

func telegramCoalesceText(entities []telegramTextEntity) string {
	var b strings.Builder
	for _, ent := range entities {
		b.WriteString(telegramFormatEntity(ent))
	}
	return b.String()
}

// telegramSplitActorID parses Telegram's "user123456" / "channel123456"
// from_id encoding into its numeric id.
func telegramSplitActorID(id string) (int64, error) {
	switch {
	case strings.HasPrefix(id, "user"):
		return strconv.ParseInt(id[4:], 10, 64)
	case strings.HasPrefix(id, "channel"):
		return strconv.ParseInt(id[7:], 10, 64)
	default:
		return 0, fmt.Errorf("unknown actor id %q", id)
	}
}

// TelegramFetcher reads Telegram Desktop JSON chat exports rooted at Root.
type TelegramFetcher struct {
	Root string

	seen map[string]struct{}
}

func NewTelegramFetcher(root string) *TelegramFetcher {
	return &TelegramFetcher{Root: root, seen: make(map[string]struct{})}
}

func (f *TelegramFetcher) Community() smtypes.Community {
	return smtypes.Community{Platform: smtypes.PlatformTelegram}
}

func (f *TelegramFetcher) Fetch(ctx context.Context) <-chan smtypes.PreMessage {
	out := make(chan smtypes.PreMessage)
	go func() {
		defer close(out)
		walkFiles(ctx, f.Root, "sources.telegram", ".json", func(path string) {
			f.emitFile(ctx, path, out)
		})
	}()
	return out
}

func (f *TelegramFetcher) emitFile(ctx context.Context, path string, out chan<- smtypes.PreMessage) {
	data, ok := fileutil.TryLoadJSONFile[telegramJSON](path)
	if !ok || (data.Name == "" && data.Type == "") {
		return
	}

	community := smtypes.Community{
		ID:       data.ID,
		Name:     data.Name,
		Platform: smtypes.PlatformTelegram,
	}

	for _, m := range data.Messages {
		if m.Type == "service" {
			continue
		}
		seenKey := fmt.Sprintf("%d_%d", community.ID, m.ID)
		if _, dup := f.seen[seenKey]; dup {
			continue
		}
		f.seen[seenKey] = struct{}{}

		if m.ForwardedFrom != nil {
			continue
		}

		authorID, err := telegramSplitActorID(m.FromID)
		if err != nil {
			logger.WarnCF("sources.telegram", "bad actor id", map[string]any{"raw": m.FromID})
			continue
		}
		authorName := ""
		if m.From != nil {
			authorName = *m.From
		}

		isBot := authorID == tptRulesBotID

		entities := m.TextEntities
		if authorID == oneChatBridgeID && len(entities) > 1 {
			// the bridge always bolds the real author's name as the first
			// entity, followed by ": " prefixed onto the second.
			authorName = entities[0].Text
			entities = entities[1:]
			rest := entities[0]
			if len(rest.Text) >= 2 {
				rest.Text = rest.Text[2:]
			}
			entities = append([]telegramTextEntity{rest}, entities[1:]...)
		}

		timestamp, err := strconv.ParseInt(m.DateUnixtime, 10, 64)
		if err != nil {
			logger.WarnCF("sources.telegram", "bad timestamp", map[string]any{"id": m.ID})
			continue
		}

		author := smtypes.Author{
			ID:       authorID,
			Name:     authorName,
			Platform: smtypes.PlatformTelegram,
			IsBot:    isBot,
		}

		msg := smtypes.PreMessage{
			ID:        m.ID,
			Community: community,
			Container: NullContainer,
			Author:    author,
			PostDate:  time.Unix(timestamp, 0).UTC(),
			Content:   telegramCoalesceText(entities),
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}
