package sources

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sipeed/sonamute/pkg/fileutil"
	"github.com/sipeed/sonamute/pkg/logger"
	"github.com/sipeed/sonamute/pkg/smtypes"
)

// youtubeIDToInt reverses yt-dlp's URL-safe, unpadded base64 id encoding.
// YouTube ids run up to 128 bits (channel/comment ids); we fold the decoded
// value to its low 64 bits, the same convention internal/ids uses for
// MD5-derived ids, since the canonical store's id columns are int64.
func youtubeIDToInt(id string) (int64, error) {
	b64 := strings.NewReplacer("-", "+", "_", "/").Replace(id)
	if pad := len(b64) % 4; pad != 0 {
		b64 += strings.Repeat("=", 4-pad)
	}
	decoded, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return 0, fmt.Errorf("decoding youtube id %q: %w", id, err)
	}
	n := new(big.Int).SetBytes(decoded)
	mask := new(big.Int).SetUint64(^uint64(0))
	low := new(big.Int).And(n, mask)
	return low.Int64(), nil
}

func youtubeCleanUsername(raw string) string {
	return strings.TrimPrefix(raw, "@")
}

// youtubeFetchCommentID strips a reply's parent.child prefix and the
// 26-char comment-id pad variant observed since ~Dec 2017.
func youtubeFetchCommentID(c youtubeComment) (int64, error) {
	id := c.ID
	if c.Parent != "root" {
		if idx := strings.LastIndexByte(id, '.'); idx >= 0 {
			id = id[idx+1:]
		}
	}
	if len(id) == 26 {
		id = strings.TrimSuffix(id, "AaABAg")
	}
	return youtubeIDToInt(id)
}

// youtubeFetchUserID strips the 24-char channel id's "UC" prefix before
// decoding, as every channel id carries it.
func youtubeFetchUserID(raw string) (int64, error) {
	if len(raw) == 24 {
		raw = strings.TrimPrefix(raw, "UC")
	}
	return youtubeIDToInt(raw)
}

type youtubeComment struct {
	ID        string `json:"id"`
	Parent    string `json:"parent"`
	Text      string `json:"text"`
	AuthorID  string `json:"author_id"`
	Author    string `json:"author"`
	Timestamp int64  `json:"timestamp"`
}

type youtubeVideoJSON struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	FullTitle   string           `json:"fulltitle"`
	Description string           `json:"description"`
	ChannelID   string           `json:"channel_id"`
	UploaderID  string           `json:"uploader_id"`
	Uploader    string           `json:"uploader"`
	Timestamp   int64            `json:"timestamp"`
	Formats     []map[string]any `json:"formats"`
	Comments    []youtubeComment `json:"comments"`
}

func youtubeVideoAuthorName(v youtubeVideoJSON) string {
	raw := v.UploaderID
	if raw == "" {
		raw = v.Uploader
	}
	return youtubeCleanUsername(raw)
}

func youtubeVideoContent(v youtubeVideoJSON) string {
	title := v.FullTitle
	if title == "" {
		title = v.Title
	}
	var b strings.Builder
	b.WriteString(title)
	if v.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(v.Description)
	}
	return b.String()
}

// YouTubeFetcher reads yt-dlp `--write-info-json --write-comments` video
// metadata dumps rooted at Root, emitting one message per video plus one
// per comment.
type YouTubeFetcher struct {
	Root string

	seen map[int64]struct{}
}

func NewYouTubeFetcher(root string) *YouTubeFetcher {
	return &YouTubeFetcher{Root: root, seen: make(map[int64]struct{})}
}

func (f *YouTubeFetcher) Community() smtypes.Community {
	return smtypes.Community{Platform: smtypes.PlatformYouTube}
}

func (f *YouTubeFetcher) Fetch(ctx context.Context) <-chan smtypes.PreMessage {
	out := make(chan smtypes.PreMessage)
	go func() {
		defer close(out)
		walkFiles(ctx, f.Root, "sources.youtube", ".json", func(path string) {
			f.emitFile(ctx, path, out)
		})
	}()
	return out
}

func (f *YouTubeFetcher) emitFile(ctx context.Context, path string, out chan<- smtypes.PreMessage) {
	video, ok := fileutil.TryLoadJSONFile[youtubeVideoJSON](path)
	if !ok || video.Formats == nil {
		return
	}

	videoID, err := youtubeIDToInt(video.ID)
	if err != nil {
		logger.WarnCF("sources.youtube", "bad video id", map[string]any{"path": path, "error": err.Error()})
		return
	}
	channelID, err := youtubeFetchUserID(video.ChannelID)
	if err != nil {
		logger.WarnCF("sources.youtube", "bad channel id", map[string]any{"path": path, "error": err.Error()})
		return
	}

	community := smtypes.Community{
		ID:       channelID,
		Name:     youtubeVideoAuthorName(video),
		Platform: smtypes.PlatformYouTube,
	}
	videoAuthor := smtypes.Author{
		ID:       channelID,
		Name:     youtubeVideoAuthorName(video),
		Platform: smtypes.PlatformYouTube,
	}

	videoMsg := smtypes.PreMessage{
		ID:        videoID,
		Community: community,
		Container: NullContainer,
		Author:    videoAuthor,
		PostDate:  time.Unix(video.Timestamp, 0).UTC(),
		Content:   youtubeVideoContent(video),
	}
	select {
	case out <- videoMsg:
	case <-ctx.Done():
		return
	}

	for _, c := range video.Comments {
		commentID, err := youtubeFetchCommentID(c)
		if err != nil {
			logger.WarnCF("sources.youtube", "bad comment id", map[string]any{"raw": c.ID, "error": err.Error()})
			continue
		}
		if _, dup := f.seen[commentID]; dup {
			continue
		}
		f.seen[commentID] = struct{}{}

		authorID, err := youtubeFetchUserID(c.AuthorID)
		if err != nil {
			logger.WarnCF("sources.youtube", "bad comment author id", map[string]any{"raw": c.AuthorID})
			continue
		}
		author := smtypes.Author{
			ID:       authorID,
			Name:     youtubeCleanUsername(c.Author),
			Platform: smtypes.PlatformYouTube,
		}

		msg := smtypes.PreMessage{
			ID:        commentID,
			Community: community,
			Container: NullContainer,
			Author:    author,
			PostDate:  time.Unix(c.Timestamp, 0).UTC(),
			Content:   c.Text,
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}
