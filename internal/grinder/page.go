package grinder

import (
	"fmt"

	"github.com/dgnsrekt/har2grinder/internal/types"
)

// PageProcedure is one finalized TestRunner method.
type PageProcedure struct {
	ID         string
	Title      string
	Ordinal    int
	TestNumber int
	Calls      []string
}

func (p PageProcedure) Name() string { return fmt.Sprintf("page%d", p.Ordinal) }

// PageBuilder accumulates the calls of one page in trace order.
type PageBuilder struct {
	page    types.Page
	ordinal int
	calls   []string
}

func NewPageBuilder(page types.Page, ordinal int) *PageBuilder {
	return &PageBuilder{page: page, ordinal: ordinal}
}

func (b *PageBuilder) Add(c CompiledExchange) {
	b.calls = append(b.calls, c.CallExpr())
}

// Build freezes the builder into a procedure.
func (b *PageBuilder) Build() PageProcedure {
	calls := make([]string, len(b.calls))
	copy(calls, b.calls)
	return PageProcedure{
		ID:         b.page.ID,
		Title:      b.page.Title,
		Ordinal:    b.ordinal,
		TestNumber: PageBase(b.ordinal),
		Calls:      calls,
	}
}
