package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
}

func TestPublicationFetcher_ParsesFrontmatterAndAnchorsBareMonth(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "full-date.md", "---\ntitle: toki\nauthors: [jan Lepeka]\ndate: 2024-03-07\n---\n\nmi toki e toki pona.\n")
	writeDoc(t, dir, "bare-month.md", "---\ntitle: toki\nauthors: [jan Lepeka]\ndate: 2024-03\n---\n\nona li pona mute.\n")
	writeDoc(t, dir, "no-frontmatter.md", "mi sona ala e ni.\n")
	writeDoc(t, dir, "no-date.md", "---\ntitle: toki\nauthors: [jan Lepeka]\n---\n\nsina pona.\n")

	f := NewPublicationFetcher(dir)
	ctx := context.Background()

	byContent := map[string]time.Time{}
	for msg := range f.Fetch(ctx) {
		byContent[msg.Content] = msg.PostDate
	}

	if len(byContent) != 2 {
		t.Fatalf("expected 2 messages (missing frontmatter/date skipped), got %d", len(byContent))
	}

	full, ok := byContent["mi toki e toki pona."]
	if !ok {
		t.Fatal("missing full-date message")
	}
	if want := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC); !full.Equal(want) {
		t.Errorf("full date = %v, want %v", full, want)
	}

	bare, ok := byContent["ona li pona mute."]
	if !ok {
		t.Fatal("missing bare-month message")
	}
	if want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC); !bare.Equal(want) {
		t.Errorf("bare month anchored to = %v, want %v", bare, want)
	}
}

func TestPublicationFetcher_DedupesIdenticalBody(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.md", "---\ndate: 2024-01-01\n---\n\nsama ni.\n")
	writeDoc(t, dir, "b.md", "---\ndate: 2024-01-01\n---\n\nsama ni.\n")

	f := NewPublicationFetcher(dir)
	count := 0
	for range f.Fetch(context.Background()) {
		count++
	}
	if count != 1 {
		t.Errorf("expected duplicate body to collapse to 1 message, got %d", count)
	}
}

func TestSplitFrontmatter(t *testing.T) {
	yamlBlock, body, ok := splitFrontmatter("---\ntitle: x\n---\nhello\n")
	if !ok {
		t.Fatal("expected frontmatter to be found")
	}
	if yamlBlock != "title: x" {
		t.Errorf("yamlBlock = %q", yamlBlock)
	}
	if body != "hello\n" {
		t.Errorf("body = %q", body)
	}

	if _, _, ok := splitFrontmatter("no frontmatter here"); ok {
		t.Error("expected ok=false for document without frontmatter")
	}
}

func TestPublicationCoalescePostdate_RejectsGarbage(t *testing.T) {
	if _, err := publicationCoalescePostdate("not-a-date"); err == nil {
		t.Error("expected error for malformed date")
	}
}
