package sources

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sipeed/sonamute/pkg/fileutil"
	"github.com/sipeed/sonamute/pkg/logger"
	"github.com/sipeed/sonamute/pkg/smtypes"
)

const b36digits = "0123456789abcdefghijklmnopqrstuvwxyz"

func b36Decode(s string) (int64, error) {
	return strconv.ParseInt(s, 36, 64)
}

// redditSplitTypeID parses reddit's "t3_abc123" fullname encoding into its
// object type digit and base36 id.
func redditSplitTypeID(typedID string) (int, int64, error) {
	otype, b36id, ok := strings.Cut(typedID, "_")
	if !ok || len(otype) < 2 {
		return 0, 0, strconv.ErrSyntax
	}
	t, err := strconv.Atoi(otype[1:])
	if err != nil {
		return 0, 0, err
	}
	id, err := b36Decode(b36id)
	if err != nil {
		return 0, 0, err
	}
	return t, id, nil
}

var redditEntityReplacer = strings.NewReplacer(
	"&gt;", ">",
	"&lt;", "<",
	"&amp;", "&",
	"#x200B", "​",
)

// redditFormatPost reconstructs the visible text of a submission (title +
// optional selftext) or a comment (body alone), undoing the archive's HTML
// entity escaping.
func redditFormatPost(raw map[string]any) string {
	var content string
	if title, ok := raw["title"].(string); ok && title != "" {
		content = title
	}
	if selftext, ok := raw["selftext"].(string); ok && selftext != "" {
		content += "\n\n" + selftext
	}
	if body, ok := raw["body"].(string); ok && body != "" {
		content = body
	}
	return redditEntityReplacer.Replace(content)
}

func redditString(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

// redditTimestamp handles created_utc appearing as a JSON number, a string
// of digits, or a string of digits with a fractional suffix.
func redditTimestamp(raw map[string]any) (int64, bool) {
	switch v := raw["created_utc"].(type) {
	case float64:
		return int64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

// RedditFetcher reads pushshift-style line-delimited submission/comment
// dumps rooted at Root.
type RedditFetcher struct {
	Root string

	seen map[int64]struct{}
}

func NewRedditFetcher(root string) *RedditFetcher {
	return &RedditFetcher{Root: root, seen: make(map[int64]struct{})}
}

func (f *RedditFetcher) Community() smtypes.Community {
	return smtypes.Community{Platform: smtypes.PlatformReddit}
}

func (f *RedditFetcher) Fetch(ctx context.Context) <-chan smtypes.PreMessage {
	out := make(chan smtypes.PreMessage)
	go func() {
		defer close(out)
		walkFiles(ctx, f.Root, "sources.reddit", "", func(path string) {
			base := path
			if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
				base = path[idx+1:]
			}
			if !strings.Contains(base, "comments") && !strings.Contains(base, "submissions") {
				return
			}
			if strings.HasSuffix(path, ".zst") {
				return
			}
			f.emitFile(ctx, path, out)
		})
	}()
	return out
}

func (f *RedditFetcher) emitFile(ctx context.Context, path string, out chan<- smtypes.PreMessage) {
	file, err := os.Open(path)
	if err != nil {
		logger.WarnCF("sources.reddit", "failed to open file", map[string]any{"path": path, "error": err.Error()})
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		raw, ok := fileutil.TryLoadJSON[map[string]any](line, path)
		if !ok {
			continue
		}
		if _, ok := raw["subreddit"]; !ok {
			continue
		}
		if _, ok := raw["subreddit_id"]; !ok {
			continue
		}

		rawID := redditString(raw, "id")
		id, err := b36Decode(rawID)
		if err != nil {
			continue
		}
		if _, dup := f.seen[id]; dup {
			continue
		}
		f.seen[id] = struct{}{}

		_, communityID, err := redditSplitTypeID(redditString(raw, "subreddit_id"))
		if err != nil {
			continue
		}
		community := smtypes.Community{
			ID:       communityID,
			Name:     redditString(raw, "subreddit"),
			Platform: smtypes.PlatformReddit,
		}

		var authorID int64
		if fullname := redditString(raw, "author_fullname"); fullname != "" {
			_, authorID, _ = redditSplitTypeID(fullname)
		}
		author := smtypes.Author{
			ID:       authorID,
			Name:     redditString(raw, "author"),
			Platform: smtypes.PlatformReddit,
		}

		timestamp, ok := redditTimestamp(raw)
		if !ok {
			logger.WarnCF("sources.reddit", "bad timestamp", map[string]any{"id": rawID})
			continue
		}

		msg := smtypes.PreMessage{
			ID:        id,
			Community: community,
			Container: NullContainer,
			Author:    author,
			PostDate:  time.Unix(timestamp, 0).UTC(),
			Content:   redditFormatPost(raw),
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logger.WarnCF("sources.reddit", "scan error", map[string]any{"path": path, "error": err.Error()})
	}
}
