package capture

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/dgnsrekt/har2grinder/internal/types"
)

const (
	cleanupInterval = time.Minute
	staleAfter      = 5 * time.Minute
)

// Journal receives every finished exchange as it completes.
type Journal interface {
	Write(record any) error
}

// Recorder correlates CDP network events into HAR pages and entries.
// All methods are safe for concurrent use.
type Recorder struct {
	tabs         types.TabInfoProvider
	journal      Journal
	maxPostBytes int
	sessionID    string
	now          func() time.Time

	mu        sync.Mutex
	pages     []Page
	pending   map[network.RequestID]*types.PendingRequest
	extra     map[network.RequestID]extraHeaders
	completed []*types.RecordedExchange
	seq       int64

	done      chan struct{}
	closeOnce sync.Once
}

// Page is one recorded top-level navigation.
type Page struct {
	ID      string
	Title   string
	Started time.Time
}

type extraHeaders struct {
	headers []types.NameValue
	seen    time.Time
}

// NewRecorder returns a recorder that resolves tab pages through tabs and
// journals finished exchanges to journal, which may be nil. Post bodies
// longer than maxPostBytes are cut; zero keeps them whole.
func NewRecorder(tabs types.TabInfoProvider, journal Journal, maxPostBytes int, sessionID string) *Recorder {
	r := &Recorder{
		tabs:         tabs,
		journal:      journal,
		maxPostBytes: maxPostBytes,
		sessionID:    sessionID,
		now:          time.Now,
		pending:      make(map[network.RequestID]*types.PendingRequest),
		extra:        make(map[network.RequestID]extraHeaders),
		done:         make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

// Close stops the stale-request sweeper. Recorded data stays readable.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

// SessionID identifies this recording in the HAR and the journal.
func (r *Recorder) SessionID() string { return r.sessionID }

// StartPage opens a new HAR page titled with url and returns its id.
func (r *Recorder) StartPage(url string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := fmt.Sprintf("page_%d", len(r.pages)+1)
	r.pages = append(r.pages, Page{ID: id, Title: url, Started: r.now().UTC()})
	slog.Info("page started", "page_id", id, "url", truncateURL(url))
	return id
}

// SetPageTitle replaces the title of a page once the document has loaded.
func (r *Recorder) SetPageTitle(pageID, title string) {
	if title == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.pages {
		if r.pages[i].ID == pageID {
			r.pages[i].Title = title
			return
		}
	}
}

// IsMainNavigation reports whether ev starts a top-level document load in
// the tab. Redirect hops of the same load do not count.
func IsMainNavigation(tabID string, ev *network.EventRequestWillBeSent) bool {
	return ev.Type == network.ResourceTypeDocument &&
		ev.RedirectResponse == nil &&
		string(ev.FrameID) == tabID &&
		string(ev.RequestID) == string(ev.LoaderID)
}

func (r *Recorder) OnRequestWillBeSent(tabID string, ev *network.EventRequestWillBeSent) {
	if ev.Request == nil {
		return
	}
	info, ok := r.tabs.GetByStringID(tabID)
	if !ok || info.PageRef == "" {
		slog.Debug("request before first page, ignoring", "tab_id", tabID, "url", truncateURL(ev.Request.URL))
		return
	}

	headers := headerPairs(ev.Request.Headers)
	postText := decodePostData(ev.Request)
	var postData *types.PostData
	if ev.Request.HasPostData {
		var truncated bool
		var originalSize int
		postText, truncated, originalSize, _ = truncateStringBytes(postText, r.maxPostBytes)
		contentType := headerValue(headers, "Content-Type")
		postData = &types.PostData{MimeType: contentType}
		switch {
		case truncated:
			slog.Warn("post body truncated, form params not recorded",
				"request_id", ev.RequestID, "original_size", originalSize, "kept_size", len(postText))
		case isForm(contentType):
			postData.Params = parseFormParams(postText)
		}
	}

	now := r.now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.pending[ev.RequestID]; ok && ev.RedirectResponse != nil {
		applyResponse(prev.Exchange, ev.RedirectResponse)
		r.completeLocked(ev.RequestID, now)
	}

	if extra, ok := r.extra[ev.RequestID]; ok {
		headers = extra.headers
		delete(r.extra, ev.RequestID)
	}

	r.seq++
	r.pending[ev.RequestID] = &types.PendingRequest{
		Timestamp: now,
		Exchange: &types.RecordedExchange{
			Seq:       r.seq,
			Timestamp: now,
			RequestID: string(ev.RequestID),
			TabID:     tabID,
			PageRef:   info.PageRef,
			Method:    ev.Request.Method,
			URL:       ev.Request.URL,
			Headers:   headers,
			PostData:  postData,
			PostText:  postText,
		},
	}
}

// OnRequestExtraInfo swaps in the headers the network stack actually sent,
// cookies included. The event may arrive before or after requestWillBeSent.
func (r *Recorder) OnRequestExtraInfo(tabID string, ev *network.EventRequestWillBeSentExtraInfo) {
	headers := headerPairs(ev.Headers)
	if len(headers) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pending[ev.RequestID]; ok {
		p.Exchange.Headers = headers
		return
	}
	r.extra[ev.RequestID] = extraHeaders{headers: headers, seen: r.now()}
}

func (r *Recorder) OnServedFromCache(tabID string, ev *network.EventRequestServedFromCache) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pending[ev.RequestID]; ok {
		p.Exchange.FromCache = types.CacheMemory
	}
}

func (r *Recorder) OnResponseReceived(tabID string, ev *network.EventResponseReceived) {
	if ev.Response == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pending[ev.RequestID]; ok {
		applyResponse(p.Exchange, ev.Response)
	}
}

func (r *Recorder) OnLoadingFinished(tabID string, ev *network.EventLoadingFinished) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completeLocked(ev.RequestID, r.now().UTC())
}

// OnLoadingFailed journals the failure. Failed requests are left out of the
// HAR since they have no response to replay against.
func (r *Recorder) OnLoadingFailed(tabID string, ev *network.EventLoadingFailed) {
	r.mu.Lock()
	p, ok := r.pending[ev.RequestID]
	if ok {
		delete(r.pending, ev.RequestID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	ex := p.Exchange
	ex.Finished = r.now().UTC()
	ex.Failed = true
	ex.ErrorText = ev.ErrorText
	slog.Debug("request failed", "request_id", ev.RequestID, "url", truncateURL(ex.URL), "error", ev.ErrorText, "canceled", ev.Canceled)
	r.journalWrite(ex)
}

// completeLocked moves a pending request to the completed list.
func (r *Recorder) completeLocked(id network.RequestID, finished time.Time) {
	p, ok := r.pending[id]
	if !ok {
		return
	}
	delete(r.pending, id)
	p.Exchange.Finished = finished
	r.completed = append(r.completed, p.Exchange)
	r.journalWrite(p.Exchange)
}

func (r *Recorder) journalWrite(ex *types.RecordedExchange) {
	if r.journal == nil {
		return
	}
	if err := r.journal.Write(ex); err != nil {
		slog.Warn("journal write failed", "request_id", ex.RequestID, "error", err)
	}
}

func applyResponse(ex *types.RecordedExchange, resp *network.Response) {
	ex.Status = resp.Status
	ex.StatusText = resp.StatusText
	ex.Protocol = resp.Protocol
	ex.MimeType = resp.MimeType
	if resp.FromDiskCache && ex.FromCache == "" {
		ex.FromCache = types.CacheDisk
	}
}

// Snapshot returns the pages and completed exchanges in request start order.
func (r *Recorder) Snapshot() ([]Page, []types.RecordedExchange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pages := slices.Clone(r.pages)
	exchanges := make([]types.RecordedExchange, 0, len(r.completed))
	for _, ex := range r.completed {
		exchanges = append(exchanges, *ex)
	}
	slices.SortFunc(exchanges, func(a, b types.RecordedExchange) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
	return pages, exchanges
}

// PendingCount reports requests still waiting for loadingFinished.
func (r *Recorder) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Recorder) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanupStale()
		case <-r.done:
			return
		}
	}
}

func (r *Recorder) cleanupStale() {
	threshold := r.now().Add(-staleAfter)

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, p := range r.pending {
		if p.Timestamp.Before(threshold) {
			delete(r.pending, id)
			slog.Debug("dropping stale request", "request_id", id, "url", truncateURL(p.Exchange.URL))
		}
	}
	for id, e := range r.extra {
		if e.seen.Before(threshold) {
			delete(r.extra, id)
		}
	}
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
