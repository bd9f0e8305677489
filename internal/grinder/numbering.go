package grinder

import (
	"fmt"

	"github.com/dgnsrekt/har2grinder/internal/types"
)

// pageStride separates page base numbers. A page with more than
// pageStride-1 exchanges runs into the next page's range.
const pageStride = 1000

// PageBase returns the test number of the page with the given ordinal.
func PageBase(ordinal int) int {
	return ordinal * pageStride
}

// Numbering assigns page ordinals and per-page exchange test numbers.
type Numbering struct {
	ordinals map[string]int
	last     map[string]int
}

// NewNumbering numbers pages in the given order, the first page getting
// ordinal firstPageNumber+1.
func NewNumbering(pages []types.Page, firstPageNumber int) *Numbering {
	n := &Numbering{
		ordinals: make(map[string]int, len(pages)),
		last:     make(map[string]int, len(pages)),
	}
	for i, p := range pages {
		ordinal := firstPageNumber + i + 1
		n.ordinals[p.ID] = ordinal
		n.last[p.ID] = PageBase(ordinal)
	}
	return n
}

func (n *Numbering) Ordinal(pageID string) (int, bool) {
	o, ok := n.ordinals[pageID]
	return o, ok
}

func (n *Numbering) Base(pageID string) (int, bool) {
	o, ok := n.ordinals[pageID]
	if !ok {
		return 0, false
	}
	return PageBase(o), true
}

// Next hands out the next test number of a page.
func (n *Numbering) Next(pageID string) (int, error) {
	last, ok := n.last[pageID]
	if !ok {
		return 0, types.NewError(types.CodeUnknownPageRef, fmt.Sprintf("page %q is not declared in log.pages", pageID), nil)
	}
	last++
	n.last[pageID] = last
	return last, nil
}
