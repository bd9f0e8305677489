package grinder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dgnsrekt/har2grinder/internal/types"
)

var (
	schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*$`)
	methodRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// SkipReason explains why an exchange produced no script output.
type SkipReason string

const (
	SkipNone     SkipReason = ""
	SkipCached   SkipReason = "cached"
	SkipExcluded SkipReason = "excluded_domain"
)

// Target is an exchange URL split the way the script addresses it.
type Target struct {
	// Origin is scheme://host[:port], the base URL of the request object.
	Origin string
	// Host is host[:port].
	Host string
	// Path is the URL path without query, used in test descriptions.
	Path string
	// Call is everything after the origin and its leading slash, query included.
	Call string
}

// SplitTarget splits an absolute URL into its script parts. Fragments are
// dropped.
func SplitTarget(raw string) (Target, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || !schemeRe.MatchString(scheme) {
		return Target{}, fmt.Errorf("not an absolute URL: %q", raw)
	}
	host, tail := rest, ""
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		host, tail = rest[:i], rest[i:]
	}
	if host == "" {
		return Target{}, fmt.Errorf("URL has no host: %q", raw)
	}
	tail, _, _ = strings.Cut(tail, "#")
	path, _, _ := strings.Cut(tail, "?")

	return Target{
		Origin: scheme + "://" + host,
		Host:   host,
		Path:   path,
		Call:   strings.TrimPrefix(tail, "/"),
	}, nil
}

// CompiledExchange is the derived data of one compiled exchange.
type CompiledExchange struct {
	TestNumber int
	PageID     string
	Method     string
	Target     Target
	HeaderRefs []int
	// HasBody is set when the request carried postData; Params may still be empty.
	HasBody bool
	Params  []types.NameValue
}

func (c CompiledExchange) RequestName() string { return fmt.Sprintf("request%d", c.TestNumber) }

func (c CompiledExchange) HeadersName() string { return fmt.Sprintf("headers%d", c.TestNumber) }

// Description is the Grinder test description, "METHOD /path".
func (c CompiledExchange) Description() string { return c.Method + " " + c.Target.Path }

// CallExpr renders the request call made from the page procedure.
func (c CompiledExchange) CallExpr() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s.%s(%s", c.RequestName(), c.Method, pyString(c.Target.Call))
	if c.HasBody {
		parts := make([]string, 0, len(c.Params))
		for _, p := range c.Params {
			parts = append(parts, fmt.Sprintf("NVPair(%s, %s),", pyString(p.Name), pyString(p.Value)))
		}
		b.WriteString(", (")
		b.WriteString(strings.Join(parts, " "))
		b.WriteString(")")
	}
	b.WriteString(")")
	return b.String()
}

// exchangeFilter holds the excluded-domain set.
type exchangeFilter struct {
	excluded map[string]struct{}
}

func newExchangeFilter(domains []string) exchangeFilter {
	f := exchangeFilter{excluded: make(map[string]struct{}, len(domains))}
	for _, d := range domains {
		f.excluded[d] = struct{}{}
	}
	return f
}

func (f exchangeFilter) isExcluded(t Target) bool {
	if _, ok := f.excluded[t.Host]; ok {
		return true
	}
	_, ok := f.excluded[t.Origin]
	return ok
}

// compileExchange derives the script data of one exchange. It returns a
// non-empty SkipReason, and no test number is consumed, when the exchange
// is filtered out.
func compileExchange(ex types.Exchange, f exchangeFilter, num *Numbering, lib *HeaderLibrary) (CompiledExchange, SkipReason, error) {
	if ex.Cached() {
		return CompiledExchange{}, SkipCached, nil
	}
	at := fmt.Sprintf("log.entries[%d]", ex.Index)

	target, err := SplitTarget(ex.URL)
	if err != nil {
		return CompiledExchange{}, SkipNone, types.NewError(types.CodeMalformed, at+".request.url", err)
	}
	if f.isExcluded(target) {
		return CompiledExchange{}, SkipExcluded, nil
	}

	testNumber, err := num.Next(ex.PageRef)
	if err != nil {
		return CompiledExchange{}, SkipNone, fmt.Errorf("%s: %w", at, err)
	}
	if !methodRe.MatchString(ex.Method) {
		return CompiledExchange{}, SkipNone, types.Malformedf("%s.request.method: %q is not a request method", at, ex.Method)
	}

	c := CompiledExchange{
		TestNumber: testNumber,
		PageID:     ex.PageRef,
		Method:     ex.Method,
		Target:     target,
		HeaderRefs: lib.InternHeaders(ex.Headers),
	}
	if ex.PostData != nil {
		c.HasBody = true
		c.Params = ex.PostData.Params
	}
	return c, SkipNone, nil
}
