// Package sources implements C1: one adapter per social-platform export
// format, each walking a filesystem root and yielding canonical
// smtypes.PreMessage values.
package sources

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/sipeed/sonamute/pkg/logger"
	"github.com/sipeed/sonamute/pkg/smtypes"
)

// NullContainer and NullAuthor re-export the canonical sentinels (§3) for
// adapters that have no channel/thread or attributable-author concept.
const (
	NullContainer = smtypes.NullContainer
	NullAuthor    = smtypes.NullAuthor
)

// ignoredContainers and ignoredAuthors carry known non-toki-pona or
// bot-logger containers/authors that should never be counted regardless of
// is_bot, keyed by platform. These are accumulated operational knowledge,
// not derivable from the export formats themselves.
var ignoredContainers = map[smtypes.Platform]map[int64]struct{}{
	smtypes.PlatformDiscord: {
		316066233755631616:  {},
		786041291707777034:  {},
		895303838662295572:  {},
		1128714905932021821: {},
		1187212477155528804: {},
	},
}

var ignoredAuthors = map[smtypes.Platform]map[int64]struct{}{
	smtypes.PlatformDiscord: {
		937872123085602896:  {},
		1074390249981096047: {},
		1135620786183491725: {},
		1135634171734261830: {},
		1213156131006845020: {},
		950311805845139506:  {},
	},
}

// IsCountable applies the ignore lists and the is_bot/is_webhook rule
// (§3: is_bot ∧ ¬is_webhook ⇒ not counted) on top of a message's own
// PreMessage fields.
func IsCountable(msg smtypes.PreMessage) bool {
	platform := msg.Community.Platform
	if ignored, ok := ignoredContainers[platform]; ok {
		if _, hit := ignored[msg.Container]; hit {
			return false
		}
	}
	if ignored, ok := ignoredAuthors[platform]; ok {
		if _, hit := ignored[msg.Author.ID]; hit {
			return false
		}
	}
	return msg.Author.Countable()
}

// Fetcher is implemented by every platform adapter: it walks its root and
// emits canonical PreMessages on the returned channel, closing it when
// done or when ctx is cancelled. Malformed individual records are logged
// and skipped (§7), never fatal.
type Fetcher interface {
	Community() smtypes.Community
	Fetch(ctx context.Context) <-chan smtypes.PreMessage
}

// walkFiles visits every regular file under root whose name has the given
// suffix, calling visit for each. Walk errors and a caller's per-file errors
// are always logged and never abort the whole scan (§7).
func walkFiles(ctx context.Context, root, component, suffix string, visit func(path string)) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.WarnCF(component, "walk error", map[string]any{"path": path, "error": err.Error()})
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, suffix) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		visit(path)
		return nil
	})
	if err != nil {
		logger.WarnCF(component, "walk aborted", map[string]any{"error": err.Error()})
	}
}
