package cdp

import (
	"sync"

	"github.com/chromedp/cdproto/target"
	"github.com/dgnsrekt/har2grinder/internal/types"
)

// TabRegistry maps CDP target IDs to tab metadata and the HAR page each
// tab is currently on.
type TabRegistry struct {
	tabs map[target.ID]*types.TabInfo
	mu   sync.RWMutex
}

func NewTabRegistry() *TabRegistry {
	return &TabRegistry{tabs: make(map[target.ID]*types.TabInfo)}
}

// Register records a tab or updates its URL, keeping its current page.
func (r *TabRegistry) Register(targetID target.ID, url string) *types.TabInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := &types.TabInfo{
		TargetID:  string(targetID),
		URL:       url,
		BrowserID: browserIDFromTargetID(string(targetID)),
	}
	if prev, ok := r.tabs[targetID]; ok {
		info.PageRef = prev.PageRef
	}
	r.tabs[targetID] = info
	return copyInfo(info)
}

// SetPage points the tab at a HAR page.
func (r *TabRegistry) SetPage(targetID target.ID, pageRef string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.tabs[targetID]; ok {
		next := *info
		next.PageRef = pageRef
		r.tabs[targetID] = &next
	}
}

func (r *TabRegistry) Get(targetID target.ID) (*types.TabInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.tabs[targetID]
	if !ok {
		return nil, false
	}
	return copyInfo(info), true
}

func (r *TabRegistry) GetByStringID(tabID string) (*types.TabInfo, bool) {
	return r.Get(target.ID(tabID))
}

func (r *TabRegistry) Remove(targetID target.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tabs, targetID)
}

func (r *TabRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tabs)
}

func copyInfo(info *types.TabInfo) *types.TabInfo {
	c := *info
	return &c
}

// browserIDFromTargetID returns the first 8 chars of a CDP target ID.
func browserIDFromTargetID(targetID string) string {
	if len(targetID) >= 8 {
		return targetID[:8]
	}
	return targetID
}
