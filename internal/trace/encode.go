package trace

import (
	"fmt"
	"slices"

	"github.com/chromedp/cdproto/har"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/tidwall/sjson"
)

// Annotations are the non-standard fields Chrome DevTools adds to HAR entries.
type Annotations struct {
	// FromCache maps an entry index to "memory" or "disk".
	FromCache map[int]string
	// SessionID is written as log._session when set.
	SessionID string
}

// Encode renders a HAR document with its Chrome-style annotations.
func Encode(doc *har.HAR, ann Annotations) ([]byte, error) {
	data, err := json.Marshal(doc, jsontext.WithIndent("  "))
	if err != nil {
		return nil, fmt.Errorf("trace: marshal har: %w", err)
	}

	indexes := make([]int, 0, len(ann.FromCache))
	for i := range ann.FromCache {
		indexes = append(indexes, i)
	}
	slices.Sort(indexes)
	for _, i := range indexes {
		data, err = sjson.SetBytes(data, fmt.Sprintf("log.entries.%d._fromCache", i), ann.FromCache[i])
		if err != nil {
			return nil, fmt.Errorf("trace: annotate entry %d: %w", i, err)
		}
	}
	if ann.SessionID != "" {
		if data, err = sjson.SetBytes(data, "log._session", ann.SessionID); err != nil {
			return nil, fmt.Errorf("trace: annotate session: %w", err)
		}
	}
	return data, nil
}
