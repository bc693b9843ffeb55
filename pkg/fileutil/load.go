package fileutil

import (
	"encoding/json"
	"os"

	"golang.org/x/net/html"

	"github.com/sipeed/sonamute/pkg/logger"
)

// TryLoadJSONFile reads and decodes a JSON file, logging and returning ok=false
// on any I/O or decode error instead of propagating it (§7: input-format
// errors are always local, logged, and skipped).
func TryLoadJSONFile[T any](path string) (T, bool) {
	var zero T
	data, err := os.ReadFile(path)
	if err != nil {
		logger.WarnCF("fileutil", "failed to read file", map[string]any{
			"path": path, "error": err.Error(),
		})
		return zero, false
	}
	return TryLoadJSON[T](data, path)
}

// TryLoadJSON decodes raw JSON bytes, tolerant of malformed input (§7).
// path is used only for log context and may be empty (e.g. per-line reddit input).
func TryLoadJSON[T any](data []byte, path string) (T, bool) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		logger.WarnCF("fileutil", "failed to parse JSON", map[string]any{
			"path": path, "error": err.Error(),
		})
		return v, false
	}
	return v, true
}

// TryLoadHTMLFile parses an HTML file into a *html.Node, logging and
// returning ok=false on any error.
func TryLoadHTMLFile(path string) (*html.Node, bool) {
	f, err := os.Open(path)
	if err != nil {
		logger.WarnCF("fileutil", "failed to open HTML file", map[string]any{
			"path": path, "error": err.Error(),
		})
		return nil, false
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		logger.WarnCF("fileutil", "failed to parse HTML file", map[string]any{
			"path": path, "error": err.Error(),
		})
		return nil, false
	}
	return doc, true
}
