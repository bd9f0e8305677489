// Package trace loads HAR documents into the compiler's trace model and
// encodes recorded sessions back into HAR.
package trace

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/dgnsrekt/har2grinder/internal/types"
	"github.com/klauspost/compress/gzip"
	"github.com/tidwall/gjson"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// Load reads a HAR file from disk. Gzip-compressed files are accepted.
func Load(path string) (*types.Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.CodeInputAccess, "could not open "+path+" for reading", err)
	}
	return Parse(data)
}

// Parse decodes a HAR document. Pages are returned in ordinal order and
// exchanges in the order they appear in log.entries.
func Parse(data []byte) (*types.Trace, error) {
	data, err := decompress(data)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !gjson.ValidBytes(data) {
		return nil, types.NewError(types.CodeInputParse, "trace is not valid JSON", nil)
	}

	root := gjson.ParseBytes(data)
	log := root.Get("log")
	if !log.IsObject() {
		return nil, types.Malformedf("log: missing object")
	}

	pages, err := parsePages(log.Get("pages"))
	if err != nil {
		return nil, err
	}
	exchanges, err := parseEntries(log.Get("entries"))
	if err != nil {
		return nil, err
	}

	return &types.Trace{Pages: orderPages(pages), Exchanges: exchanges}, nil
}

func decompress(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, types.NewError(types.CodeInputParse, "trace gzip header", err)
	}
	defer func() { _ = zr.Close() }()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, types.NewError(types.CodeInputParse, "trace gzip stream", err)
	}
	return out, nil
}

func parsePages(v gjson.Result) ([]types.Page, error) {
	if !v.IsArray() {
		return nil, types.Malformedf("log.pages: missing array")
	}
	items := v.Array()
	pages := make([]types.Page, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		at := fmt.Sprintf("log.pages[%d]", i)
		id, err := requireString(item, "id", at)
		if err != nil {
			return nil, err
		}
		title, err := requireString(item, "title", at)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			return nil, types.Malformedf("%s.id: duplicate page id %q", at, id)
		}
		seen[id] = struct{}{}
		pages = append(pages, types.Page{ID: id, Title: title})
	}
	return pages, nil
}

func parseEntries(v gjson.Result) ([]types.Exchange, error) {
	if !v.IsArray() {
		return nil, types.Malformedf("log.entries: missing array")
	}
	items := v.Array()
	out := make([]types.Exchange, 0, len(items))
	for i, item := range items {
		ex, err := parseEntry(i, item)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}

func parseEntry(i int, item gjson.Result) (types.Exchange, error) {
	at := fmt.Sprintf("log.entries[%d]", i)
	ex := types.Exchange{Index: i}

	var err error
	if ex.PageRef, err = requireString(item, "pageref", at); err != nil {
		return ex, err
	}
	if c := item.Get("_fromCache"); c.Type == gjson.String {
		ex.FromCache = c.Str
	}

	req := item.Get("request")
	if !req.IsObject() {
		return ex, types.Malformedf("%s.request: missing object", at)
	}
	at += ".request"
	if ex.Method, err = requireString(req, "method", at); err != nil {
		return ex, err
	}
	if ex.URL, err = requireString(req, "url", at); err != nil {
		return ex, err
	}
	if ex.Headers, err = parsePairs(req.Get("headers"), at+".headers", true); err != nil {
		return ex, err
	}

	if pd := req.Get("postData"); pd.Exists() && pd.Type != gjson.Null {
		if !pd.IsObject() {
			return ex, types.Malformedf("%s.postData: expected object", at)
		}
		ex.PostData = &types.PostData{MimeType: pd.Get("mimeType").String()}
		if params := pd.Get("params"); params.Exists() && params.Type != gjson.Null {
			if ex.PostData.Params, err = parsePairs(params, at+".postData.params", false); err != nil {
				return ex, err
			}
		}
	}
	return ex, nil
}

// parsePairs reads an array of {name, value} objects. Form parameters may
// omit value (file uploads); headers may not.
func parsePairs(v gjson.Result, at string, valueRequired bool) ([]types.NameValue, error) {
	if !v.IsArray() {
		return nil, types.Malformedf("%s: missing array", at)
	}
	items := v.Array()
	pairs := make([]types.NameValue, 0, len(items))
	for i, item := range items {
		itemAt := fmt.Sprintf("%s[%d]", at, i)
		name, err := requireString(item, "name", itemAt)
		if err != nil {
			return nil, err
		}
		var value string
		if valueRequired {
			if value, err = requireString(item, "value", itemAt); err != nil {
				return nil, err
			}
		} else {
			value = item.Get("value").String()
		}
		pairs = append(pairs, types.NameValue{Name: name, Value: value})
	}
	return pairs, nil
}

func requireString(obj gjson.Result, key, at string) (string, error) {
	v := obj.Get(key)
	if v.Type != gjson.String {
		return "", types.Malformedf("%s.%s: missing string", at, key)
	}
	return v.Str, nil
}

// orderPages sorts pages by the number in their "page_N" id. When any id is
// not numeric the document order is kept.
func orderPages(pages []types.Page) []types.Page {
	type keyed struct {
		n    int
		page types.Page
	}
	ks := make([]keyed, len(pages))
	for i, p := range pages {
		n, err := strconv.Atoi(strings.ReplaceAll(p.ID, "page_", ""))
		if err != nil {
			slog.Warn("page id is not numeric, keeping document page order", "page_id", p.ID)
			return pages
		}
		ks[i] = keyed{n: n, page: p}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int { return cmp.Compare(a.n, b.n) })

	out := make([]types.Page, len(ks))
	for i, k := range ks {
		out[i] = k.page
	}
	return out
}
