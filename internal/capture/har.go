package capture

import (
	"time"

	"github.com/chromedp/cdproto/har"
	"github.com/dgnsrekt/har2grinder/internal/trace"
	"github.com/dgnsrekt/har2grinder/internal/types"
)

const (
	harVersion     = "1.2"
	creatorName    = "har2grinder-recorder"
	creatorVersion = "1.0.0"
)

// HAR renders the recording so far. Pages with no finished exchange are kept
// so the page numbering matches what the browser visited.
func (r *Recorder) HAR() (*har.HAR, trace.Annotations) {
	pages, exchanges := r.Snapshot()

	doc := &har.HAR{Log: &har.Log{
		Version: harVersion,
		Creator: &har.Creator{Name: creatorName, Version: creatorVersion},
		Pages:   make([]*har.Page, 0, len(pages)),
		Entries: make([]*har.Entry, 0, len(exchanges)),
	}}
	for _, p := range pages {
		doc.Log.Pages = append(doc.Log.Pages, &har.Page{
			StartedDateTime: p.Started.Format(time.RFC3339Nano),
			ID:              p.ID,
			Title:           p.Title,
			PageTimings:     &har.PageTimings{OnContentLoad: -1, OnLoad: -1},
		})
	}

	ann := trace.Annotations{FromCache: make(map[int]string), SessionID: r.sessionID}
	for i, ex := range exchanges {
		doc.Log.Entries = append(doc.Log.Entries, harEntry(ex))
		if ex.FromCache != "" {
			ann.FromCache[i] = ex.FromCache
		}
	}
	return doc, ann
}

func harEntry(ex types.RecordedExchange) *har.Entry {
	httpVersion := ex.Protocol
	if httpVersion == "" {
		httpVersion = "HTTP/1.1"
	}

	req := &har.Request{
		Method:      ex.Method,
		URL:         ex.URL,
		HTTPVersion: httpVersion,
		Headers:     harPairs(ex.Headers),
		HeadersSize: -1,
		BodySize:    int64(len(ex.PostText)),
	}
	if ex.PostData != nil {
		pd := &har.PostData{MimeType: ex.PostData.MimeType, Text: ex.PostText}
		for _, p := range ex.PostData.Params {
			pd.Params = append(pd.Params, &har.Param{Name: p.Name, Value: p.Value})
		}
		req.PostData = pd
	}

	return &har.Entry{
		Pageref:         ex.PageRef,
		StartedDateTime: ex.Timestamp.Format(time.RFC3339Nano),
		Time:            float64(ex.Finished.Sub(ex.Timestamp).Microseconds()) / 1000,
		Request:         req,
		Response: &har.Response{
			Status:      ex.Status,
			StatusText:  ex.StatusText,
			HTTPVersion: httpVersion,
			Content:     &har.Content{MimeType: ex.MimeType},
			HeadersSize: -1,
			BodySize:    -1,
		},
	}
}

func harPairs(pairs []types.NameValue) []*har.NameValuePair {
	out := make([]*har.NameValuePair, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, &har.NameValuePair{Name: p.Name, Value: p.Value})
	}
	return out
}
