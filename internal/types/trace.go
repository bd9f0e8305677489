package types

// Trace is a loaded HAR: pages in ordinal order and exchanges in trace order.
type Trace struct {
	Pages     []Page
	Exchanges []Exchange
}

// Page is one HAR page entry.
type Page struct {
	ID    string
	Title string
}

// NameValue is an ordered (name, value) pair from a header list or form body.
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Exchange is one HAR entry, read-only after load.
type Exchange struct {
	// Index is the position in log.entries.
	Index     int
	PageRef   string
	Method    string
	URL       string
	FromCache string
	Headers   []NameValue
	// PostData is nil when the request carried no body.
	PostData *PostData
}

// PostData holds the form parameters of a request body.
type PostData struct {
	MimeType string      `json:"mime_type,omitempty"`
	Params   []NameValue `json:"params,omitempty"`
}

// Cached reports whether the exchange was answered from the memory or disk cache.
func (e Exchange) Cached() bool {
	return e.FromCache == CacheMemory || e.FromCache == CacheDisk
}
