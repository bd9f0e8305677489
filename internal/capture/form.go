package capture

import (
	"cmp"
	"encoding/base64"
	"mime"
	"net/url"
	"slices"
	"strings"

	"github.com/chromedp/cdproto/network"
	"github.com/dgnsrekt/har2grinder/internal/types"
)

const formMimeType = "application/x-www-form-urlencoded"

// decodePostData joins the request body entries. CDP sends them base64
// encoded; entries that do not decode are taken verbatim.
func decodePostData(req *network.Request) string {
	if req == nil || !req.HasPostData || len(req.PostDataEntries) == 0 {
		return ""
	}
	var decodedParts []byte
	for _, entry := range req.PostDataEntries {
		if entry == nil || entry.Bytes == "" {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(entry.Bytes)
		if err != nil {
			decodedParts = append(decodedParts, entry.Bytes...)
		} else {
			decodedParts = append(decodedParts, decoded...)
		}
	}
	return string(decodedParts)
}

// isForm reports whether contentType names a urlencoded form body.
func isForm(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == formMimeType
}

// parseFormParams splits a urlencoded body into pairs, preserving order and
// duplicates. Undecodable pieces are kept as sent.
func parseFormParams(body string) []types.NameValue {
	var params []types.NameValue
	for _, piece := range strings.Split(body, "&") {
		if piece == "" {
			continue
		}
		name, value, _ := strings.Cut(piece, "=")
		params = append(params, types.NameValue{Name: unescapeForm(name), Value: unescapeForm(value)})
	}
	return params
}

func unescapeForm(s string) string {
	if out, err := url.QueryUnescape(s); err == nil {
		return out
	}
	return s
}

// headerPairs flattens CDP headers into sorted name/value pairs. Values
// holding several lines become one pair per line.
func headerPairs(headers network.Headers) []types.NameValue {
	pairs := make([]types.NameValue, 0, len(headers))
	for name, raw := range headers {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		for _, v := range strings.Split(s, "\n") {
			pairs = append(pairs, types.NameValue{Name: name, Value: v})
		}
	}
	slices.SortStableFunc(pairs, func(a, b types.NameValue) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return pairs
}

func headerValue(pairs []types.NameValue, name string) string {
	for _, p := range pairs {
		if strings.EqualFold(p.Name, name) {
			return p.Value
		}
	}
	return ""
}
