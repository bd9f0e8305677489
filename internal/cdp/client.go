package cdp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/har2grinder/internal/capture"
	"github.com/dgnsrekt/har2grinder/internal/config"
)

const titleTimeout = 5 * time.Second

// Client attaches to browser tabs and feeds their network events to a
// recorder.
type Client struct {
	cfg         *config.RecorderConfig
	recorder    *capture.Recorder
	tabRegistry *TabRegistry
	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabs        map[target.ID]*TabContext
	tabsMu      sync.RWMutex
}

type TabContext struct {
	ID     target.ID
	URL    string
	ctx    context.Context
	cancel context.CancelFunc
}

func NewClient(cfg *config.RecorderConfig, recorder *capture.Recorder, tabRegistry *TabRegistry) *Client {
	return &Client{
		cfg:         cfg,
		recorder:    recorder,
		tabRegistry: tabRegistry,
		tabs:        make(map[target.ID]*TabContext),
	}
}

func (c *Client) Connect(ctx context.Context) error {
	_ = ctx
	cdpURL := c.cfg.CDPURL()
	slog.Info("connecting to Chromium", "url", cdpURL)

	c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cdpURL)

	tempCtx, tempCancel := chromedp.NewContext(c.allocCtx)
	defer tempCancel()

	if err := chromedp.Run(tempCtx); err != nil {
		return fmt.Errorf("cdp: connect to browser: %w", err)
	}

	targets, err := chromedp.Targets(tempCtx)
	if err != nil {
		return fmt.Errorf("cdp: enumerate targets: %w", err)
	}

	slog.Info("found browser targets", "count", len(targets))

	attachedCount := 0
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if !c.matchesTabURL(t.URL) {
			slog.Debug("skipping tab (url filter)", "url", t.URL)
			continue
		}
		if err := c.attachToTab(t.TargetID, t.URL); err != nil {
			slog.Error("failed to attach to tab", "target_id", t.TargetID, "url", t.URL, "error", err)
			continue
		}
		attachedCount++
	}

	if attachedCount == 0 {
		return fmt.Errorf("cdp: no tabs found matching RECORDER_TAB_URL_FILTER=%q", c.cfg.TabURLFilter)
	}

	slog.Info("attached to tabs", "count", attachedCount, "tab_url_filter", c.cfg.TabURLFilter)
	return nil
}

func (c *Client) attachToTab(targetID target.ID, url string) error {
	tabInfo := c.tabRegistry.Register(targetID, url)

	tabCtx, tabCancel := chromedp.NewContext(c.allocCtx, chromedp.WithTargetID(targetID))
	tab := &TabContext{ID: targetID, URL: url, ctx: tabCtx, cancel: tabCancel}

	c.tabsMu.Lock()
	c.tabs[targetID] = tab
	c.tabsMu.Unlock()

	// The browser cache stays enabled so cache hits can be flagged.
	if err := chromedp.Run(tabCtx, network.Enable(), page.Enable()); err != nil {
		tabCancel()
		c.tabRegistry.Remove(targetID)
		c.tabsMu.Lock()
		delete(c.tabs, targetID)
		c.tabsMu.Unlock()
		return fmt.Errorf("cdp: enable network/page domains: %w", err)
	}

	slog.Info("attached to tab", "target_id", targetID, "browser_id", tabInfo.BrowserID, "url", truncateURL(url))
	chromedp.ListenTarget(tabCtx, c.createEventHandler(string(targetID)))

	if c.cfg.ReloadOnAttach {
		reloadCtx, reloadCancel := context.WithTimeout(tabCtx, 30*time.Second)
		defer reloadCancel()
		if err := chromedp.Run(reloadCtx, chromedp.Reload()); err != nil {
			slog.Warn("failed to reload tab (continuing)", "target_id", targetID, "error", err)
		} else {
			slog.Info("reloaded tab after attach", "target_id", targetID, "url", truncateURL(url))
		}
	} else if recordable(url) {
		c.tabRegistry.SetPage(targetID, c.recorder.StartPage(url))
	}

	return nil
}

func (c *Client) createEventHandler(tabID string) func(ev interface{}) {
	return func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventFrameNavigated:
			if e.Frame.ParentID == "" {
				c.onMainFrameNavigated(tabID, e.Frame.URL)
			}
		case *page.EventLoadEventFired:
			go c.refreshTitle(tabID)
		case *network.EventRequestWillBeSent:
			if capture.IsMainNavigation(tabID, e) && e.Request != nil && recordable(e.Request.URL) {
				c.tabRegistry.SetPage(target.ID(tabID), c.recorder.StartPage(e.Request.URL))
			}
			c.recorder.OnRequestWillBeSent(tabID, e)
		case *network.EventRequestWillBeSentExtraInfo:
			c.recorder.OnRequestExtraInfo(tabID, e)
		case *network.EventRequestServedFromCache:
			c.recorder.OnServedFromCache(tabID, e)
		case *network.EventResponseReceived:
			c.recorder.OnResponseReceived(tabID, e)
		case *network.EventLoadingFinished:
			c.recorder.OnLoadingFinished(tabID, e)
		case *network.EventLoadingFailed:
			c.recorder.OnLoadingFailed(tabID, e)
		}
	}
}

// onMainFrameNavigated updates the tab URL. A page is opened here only when
// the navigation produced no document request, e.g. a history restore.
func (c *Client) onMainFrameNavigated(tabID, url string) {
	info := c.tabRegistry.Register(target.ID(tabID), url)
	if info.PageRef == "" && recordable(url) {
		c.tabRegistry.SetPage(target.ID(tabID), c.recorder.StartPage(url))
	}
	slog.Debug("tab navigated", "tab_id", tabID, "url", truncateURL(url))
}

func (c *Client) refreshTitle(tabID string) {
	c.tabsMu.RLock()
	tab, ok := c.tabs[target.ID(tabID)]
	c.tabsMu.RUnlock()
	if !ok {
		return
	}
	info, ok := c.tabRegistry.GetByStringID(tabID)
	if !ok || info.PageRef == "" {
		return
	}

	ctx, cancel := context.WithTimeout(tab.ctx, titleTimeout)
	defer cancel()
	var title string
	if err := chromedp.Run(ctx, chromedp.Title(&title)); err != nil {
		slog.Debug("failed to read page title", "tab_id", tabID, "error", err)
		return
	}
	c.recorder.SetPageTitle(info.PageRef, title)
}

func (c *Client) Close() error {
	c.tabsMu.Lock()
	defer c.tabsMu.Unlock()
	c.tabs = make(map[target.ID]*TabContext)

	if c.allocCancel != nil {
		c.allocCancel()
	}

	slog.Info("CDP client closed")
	return nil
}

func (c *Client) GetTabCount() int {
	c.tabsMu.RLock()
	defer c.tabsMu.RUnlock()
	return len(c.tabs)
}

func (c *Client) matchesTabURL(url string) bool {
	if c.cfg.TabURLFilter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(url), strings.ToLower(c.cfg.TabURLFilter))
}

// recordable reports whether a URL can start a HAR page. Browser-internal
// pages cannot be replayed.
func recordable(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
