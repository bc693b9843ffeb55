package sources

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/sipeed/sonamute/internal/ids"
	"github.com/sipeed/sonamute/pkg/fileutil"
	"github.com/sipeed/sonamute/pkg/logger"
	"github.com/sipeed/sonamute/pkg/smtypes"
)

const forumName = "forums.tokipona.org"
const yahooGroupName = "tokipona@yahoogroups.com"

// forumMoveDate is the day the phpBB forum replaced the Yahoo Group as the
// community's home; posts before it belong to the Yahoo Group community.
var forumMoveDate = time.Date(2009, 10, 1, 0, 0, 0, 0, time.UTC)

func htmlHasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func htmlAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// htmlFindAll walks the subtree rooted at n (depth first, preorder) and
// collects every element node matching pred, descending into matched nodes'
// subtrees as well. A positive limit stops the walk once that many matches
// have been collected; zero or less means no limit.
func htmlFindAll(n *html.Node, pred func(*html.Node) bool, limit int) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if limit > 0 && len(out) >= limit {
			return
		}
		if node.Type == html.ElementNode && pred(node) {
			out = append(out, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if limit > 0 && len(out) >= limit {
				return
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func htmlFindOne(n *html.Node, pred func(*html.Node) bool) *html.Node {
	found := htmlFindAll(n, pred, 1)
	if len(found) == 0 {
		return nil
	}
	return found[0]
}

func htmlIsDiv(n *html.Node) bool  { return n.Data == "div" }
func htmlText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
			if c.NextSibling != nil && c.Type == html.ElementNode {
				b.WriteString("\n")
			}
		}
	}
	walk(n)
	return b.String()
}

func htmlDetach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// forumPostText strips quoted-reply blockquotes, rewrites codebox divs into
// fenced code blocks, and returns the post's visible text.
func forumPostText(content *html.Node) string {
	for _, bq := range htmlFindAll(content, func(n *html.Node) bool { return n.Data == "blockquote" }, 0) {
		htmlDetach(bq)
	}
	for _, cb := range htmlFindAll(content, func(n *html.Node) bool { return htmlIsDiv(n) && htmlHasClass(n, "codebox") }, 0) {
		code := htmlText(cb)
		replacement := &html.Node{
			Type: html.TextNode,
			Data: "```\n" + code + "\n```",
		}
		if cb.Parent != nil {
			cb.Parent.InsertBefore(replacement, cb)
			cb.Parent.RemoveChild(cb)
		}
	}
	return htmlText(content)
}

// forumURLParam extracts a query parameter from an href, trying standard
// URL parsing first and falling back to a regex-free scan for the archive's
// occasional percent-encoded "?"/"&" (%3F/%26).
func forumURLParam(href, key string) (string, bool) {
	if href == "" {
		return "", false
	}
	if u, err := url.Parse(href); err == nil {
		if v := u.Query().Get(key); v != "" {
			return v, true
		}
	}
	decoded := strings.NewReplacer("%3F", "?", "%26", "&").Replace(href)
	if u, err := url.Parse(decoded); err == nil {
		if v := u.Query().Get(key); v != "" {
			return v, true
		}
	}
	return "", false
}

func forumAnchorHref(n *html.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	return htmlAttr(n, "href")
}

func forumPostdate(post *html.Node) (time.Time, bool) {
	timeNode := htmlFindOne(post, func(n *html.Node) bool { return n.Data == "time" })
	if timeNode == nil {
		return time.Time{}, false
	}
	dt, ok := htmlAttr(timeNode, "datetime")
	if !ok {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, dt)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func forumAuthor(post *html.Node) (smtypes.Author, bool) {
	authorNode := htmlFindOne(post, func(n *html.Node) bool {
		return n.Data == "a" && (htmlHasClass(n, "username") || htmlHasClass(n, "username-coloured"))
	})
	if authorNode == nil {
		return smtypes.Author{}, false
	}
	name := strings.TrimSpace(htmlText(authorNode))
	if name == "" {
		return smtypes.Author{}, false
	}

	authorID := ids.FakeID(name)
	if href, ok := forumAnchorHref(authorNode); ok {
		if uParam, ok := forumURLParam(href, "u"); ok {
			if parsed, err := strconv.ParseInt(uParam, 10, 64); err == nil {
				authorID = parsed
			}
		}
	}

	return smtypes.Author{
		ID:       authorID,
		Name:     name,
		Platform: smtypes.PlatformForum,
	}, true
}

func forumCommunity(postdate time.Time) smtypes.Community {
	name := yahooGroupName
	if !postdate.Before(forumMoveDate) {
		name = forumName
	}
	return smtypes.Community{
		ID:       ids.FakeID(name),
		Name:     name,
		Platform: smtypes.PlatformForum,
	}
}

// ForumFetcher scrapes phpBB viewtopic.php archive pages rooted at Root.
type ForumFetcher struct {
	Root string

	seen map[int64]struct{}
}

func NewForumFetcher(root string) *ForumFetcher {
	return &ForumFetcher{Root: root, seen: make(map[int64]struct{})}
}

func (f *ForumFetcher) Community() smtypes.Community {
	return smtypes.Community{Platform: smtypes.PlatformForum}
}

func (f *ForumFetcher) Fetch(ctx context.Context) <-chan smtypes.PreMessage {
	out := make(chan smtypes.PreMessage)
	go func() {
		defer close(out)
		walkFiles(ctx, f.Root, "sources.forum", "", func(path string) {
			base := path
			if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
				base = path[idx+1:]
			}
			if !strings.HasPrefix(base, "viewtopic.php") {
				return
			}
			f.emitFile(ctx, path, out)
		})
	}()
	return out
}

func (f *ForumFetcher) emitFile(ctx context.Context, path string, out chan<- smtypes.PreMessage) {
	doc, ok := fileutil.TryLoadHTMLFile(path)
	if !ok {
		return
	}

	posts := htmlFindAll(doc, func(n *html.Node) bool { return htmlIsDiv(n) && htmlHasClass(n, "postbody") }, 10)
	for _, post := range posts {
		var postIDAnchor *html.Node
		if h3 := htmlFindOne(post, func(n *html.Node) bool { return n.Data == "h3" }); h3 != nil {
			postIDAnchor = htmlFindOne(h3, func(n *html.Node) bool { return n.Data == "a" })
		}
		href, ok := forumAnchorHref(postIDAnchor)
		if !ok {
			logger.WarnCF("sources.forum", "post missing id link", map[string]any{"path": path})
			continue
		}
		pParam, ok := forumURLParam(href, "p")
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(pParam, 10, 64)
		if err != nil {
			continue
		}
		if _, dup := f.seen[id]; dup {
			continue
		}
		f.seen[id] = struct{}{}

		postdate, ok := forumPostdate(post)
		if !ok {
			logger.WarnCF("sources.forum", "post missing date", map[string]any{"path": path, "id": id})
			continue
		}
		author, ok := forumAuthor(post)
		if !ok {
			logger.WarnCF("sources.forum", "post missing author", map[string]any{"path": path, "id": id})
			continue
		}
		content := htmlFindOne(post, func(n *html.Node) bool { return htmlIsDiv(n) && htmlHasClass(n, "content") })
		if content == nil {
			logger.WarnCF("sources.forum", "post missing content", map[string]any{"path": path, "id": id})
			continue
		}

		msg := smtypes.PreMessage{
			ID:        id,
			Community: forumCommunity(postdate),
			Container: NullContainer,
			Author:    author,
			PostDate:  postdate,
			Content:   forumPostText(content),
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}
