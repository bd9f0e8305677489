package types

// TabInfo holds metadata about an attached browser tab.
type TabInfo struct {
	TargetID  string
	URL       string
	BrowserID string // first 8 chars of the target ID
	PageRef   string // HAR page currently open in the tab
}

// TabInfoProvider looks up tab metadata by target ID. It keeps capture
// independent of the cdp package.
type TabInfoProvider interface {
	GetByStringID(tabID string) (*TabInfo, bool)
}
