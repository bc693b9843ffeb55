package sources

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sipeed/sonamute/internal/ids"
	"github.com/sipeed/sonamute/pkg/logger"
	"github.com/sipeed/sonamute/pkg/smtypes"
)

type publicationFrontmatter struct {
	Title   string   `yaml:"title"`
	Authors []string `yaml:"authors"`
	Date    string   `yaml:"date"`
}

var publicationDateYYYY = regexp.MustCompile(`^\d{4}$`)
var publicationDateYYYYMM = regexp.MustCompile(`^\d{4}-\d{2}$`)
var publicationDateYYYYMMDD = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// publicationCoalescePostdate resolves frontmatter `date` to a single
// instant: a bare year is anchored to July 1st, a bare year-month to the
// 15th, a full date is kept as-is, anything else is rejected.
func publicationCoalescePostdate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case publicationDateYYYY.MatchString(s):
		s += "-07-01"
	case publicationDateYYYYMM.MatchString(s):
		s += "-15"
	case publicationDateYYYYMMDD.MatchString(s):
		// already complete
	default:
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD, YYYY-MM or YYYY", s)
	}
	return time.Parse("2006-01-02", s)
}

// splitFrontmatter separates a leading `---`-delimited YAML block from the
// remaining markdown body. ok is false if the document has no frontmatter.
func splitFrontmatter(raw string) (yamlBlock, body string, ok bool) {
	raw = strings.TrimPrefix(raw, "﻿")
	if !strings.HasPrefix(raw, "---") {
		return "", "", false
	}
	rest := raw[3:]
	rest = strings.TrimPrefix(rest, "\n")
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", "", false
	}
	yamlBlock = rest[:end]
	after := rest[end+4:]
	after = strings.TrimPrefix(after, "\n")
	return yamlBlock, after, true
}

// PublicationFetcher reads markdown documents with YAML frontmatter rooted
// at Root, treating every document as belonging to one synthetic
// "Publication" community (there is no native grouping concept).
type PublicationFetcher struct {
	Root string

	seen map[int64]struct{}
}

func NewPublicationFetcher(root string) *PublicationFetcher {
	return &PublicationFetcher{Root: root, seen: make(map[int64]struct{})}
}

func (f *PublicationFetcher) Community() smtypes.Community {
	return smtypes.Community{
		ID:       int64(smtypes.PlatformPublication),
		Name:     smtypes.PlatformPublication.String(),
		Platform: smtypes.PlatformPublication,
	}
}

func (f *PublicationFetcher) Fetch(ctx context.Context) <-chan smtypes.PreMessage {
	out := make(chan smtypes.PreMessage)
	go func() {
		defer close(out)
		walkFiles(ctx, f.Root, "sources.publication", ".md", func(path string) {
			f.emitFile(ctx, path, out)
		})
	}()
	return out
}

func (f *PublicationFetcher) emitFile(ctx context.Context, path string, out chan<- smtypes.PreMessage) {
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.WarnCF("sources.publication", "failed to read file", map[string]any{"path": path, "error": err.Error()})
		return
	}

	yamlBlock, body, ok := splitFrontmatter(string(raw))
	if !ok {
		return
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}

	var fm publicationFrontmatter
	if err := yaml.Unmarshal([]byte(yamlBlock), &fm); err != nil {
		logger.WarnCF("sources.publication", "bad frontmatter", map[string]any{"path": path, "error": err.Error()})
		return
	}
	if fm.Date == "" {
		return
	}

	postdate, err := publicationCoalescePostdate(fm.Date)
	if err != nil {
		logger.WarnCF("sources.publication", "bad date", map[string]any{"path": path, "error": err.Error()})
		return
	}

	id := ids.FakeID(body)
	if _, dup := f.seen[id]; dup {
		return
	}
	f.seen[id] = struct{}{}

	author := smtypes.Author{
		ID:       NullAuthor,
		Platform: smtypes.PlatformPublication,
	}
	if len(fm.Authors) > 0 && fm.Authors[0] != "" {
		author.Name = fm.Authors[0]
		author.ID = ids.FakeID(author.Name)
	}

	msg := smtypes.PreMessage{
		ID:        id,
		Community: f.Community(),
		Container: NullContainer,
		Author:    author,
		PostDate:  postdate,
		Content:   body,
	}

	select {
	case out <- msg:
	case <-ctx.Done():
	}
}
