package types

import "time"

// Cache sources recorded in the _fromCache annotation.
const (
	CacheMemory = "memory"
	CacheDisk   = "disk"
)

// RecordedExchange is one browser request captured by the recorder. It is
// also the record written to the exchange journal.
type RecordedExchange struct {
	Seq        int64       `json:"seq"`
	Timestamp  time.Time   `json:"timestamp"`
	Finished   time.Time   `json:"finished"`
	RequestID  string      `json:"request_id"`
	TabID      string      `json:"tab_id"`
	PageRef    string      `json:"pageref"`
	Method     string      `json:"method"`
	URL        string      `json:"url"`
	Headers    []NameValue `json:"headers,omitempty"`
	PostData   *PostData   `json:"post_data,omitempty"`
	PostText   string      `json:"post_text,omitempty"`
	FromCache  string      `json:"from_cache,omitempty"`
	Status     int64       `json:"status,omitempty"`
	StatusText string      `json:"status_text,omitempty"`
	Protocol   string      `json:"protocol,omitempty"`
	MimeType   string      `json:"mime_type,omitempty"`
	Failed     bool        `json:"failed,omitempty"`
	ErrorText  string      `json:"error_text,omitempty"`
}

// PendingRequest tracks an in-flight request waiting for loadingFinished.
type PendingRequest struct {
	Exchange  *RecordedExchange
	Timestamp time.Time
}
