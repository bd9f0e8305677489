package grinder

import "github.com/dgnsrekt/har2grinder/internal/types"

// allowedHeaders are the only request headers carried into a script.
var allowedHeaders = map[string]struct{}{
	"accept-encoding": {},
	"accept-language": {},
	"content-type":    {},
	"accept":          {},
	"user-agent":      {},
}

// Allowed reports whether a header name is carried into generated scripts.
// Matching is exact and case-sensitive.
func Allowed(name string) bool {
	_, ok := allowedHeaders[name]
	return ok
}

// HeaderPair is one header_lib entry.
type HeaderPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HeaderLibrary interns header pairs. Indices are assigned in first-seen
// order and never change once handed out.
type HeaderLibrary struct {
	index map[HeaderPair]int
	pairs []HeaderPair
}

func NewHeaderLibrary() *HeaderLibrary {
	return &HeaderLibrary{index: make(map[HeaderPair]int)}
}

// Intern returns the index of p, appending it on first sight.
func (l *HeaderLibrary) Intern(p HeaderPair) int {
	if i, ok := l.index[p]; ok {
		return i
	}
	l.pairs = append(l.pairs, p)
	i := len(l.pairs) - 1
	l.index[p] = i
	return i
}

// Lookup returns the index of p without interning it.
func (l *HeaderLibrary) Lookup(p HeaderPair) (int, bool) {
	i, ok := l.index[p]
	return i, ok
}

// InternHeaders interns the allow-listed headers of one exchange and returns
// their indices in header order. Repeated headers yield repeated indices.
func (l *HeaderLibrary) InternHeaders(headers []types.NameValue) []int {
	refs := make([]int, 0, len(headers))
	for _, h := range headers {
		if !Allowed(h.Name) {
			continue
		}
		refs = append(refs, l.Intern(HeaderPair{Name: h.Name, Value: h.Value}))
	}
	return refs
}

func (l *HeaderLibrary) Len() int { return len(l.pairs) }

// Pairs returns a copy of the library in index order.
func (l *HeaderLibrary) Pairs() []HeaderPair {
	out := make([]HeaderPair, len(l.pairs))
	copy(out, l.pairs)
	return out
}
