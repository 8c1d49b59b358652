package scraper

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/webpeel/config"
	"github.com/use-agent/webpeel/engine"
	"github.com/use-agent/webpeel/models"
)

// Scraper manages the global browser lifecycle and the page pool. It is
// safe for concurrent use, and its Fetch method is the RodFetchFunc
// callback injected into engine.NewRodEngine from cmd/peel.
type Scraper struct {
	browser     *rod.Browser
	pool        *engine.AdaptivePool
	pagesMu     sync.Mutex
	pages       map[int64]*rod.Page
	nextPageID  atomic.Int64
	browserCfg  config.BrowserConfig
	scraperCfg  config.ScraperConfig
	activePages atomic.Int32
	startTime   time.Time

	// proxyBrowsers holds one dedicated browser instance per distinct
	// proxy string a Cloaked request has selected from req.Proxies,
	// lazily launched and cached for reuse since launching Chromium is
	// too expensive to do per-request.
	proxyMu       sync.Mutex
	proxyBrowsers map[string]*rod.Browser
}

// launchBrowser starts a Chromium instance through the same hardened
// flag set regardless of caller, optionally routed through proxyAddr.
func launchBrowser(browserCfg config.BrowserConfig, proxyAddr string) (*rod.Browser, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if proxyAddr != "" {
		l = l.Proxy(proxyAddr)
	} else if browserCfg.DefaultProxy != "" {
		l = l.Proxy(browserCfg.DefaultProxy)
	}

	// Stealth flags: reduce the automation fingerprint of the launched
	// Chromium instance regardless of whether the per-request stealth
	// tier is used, since these only take effect at launch time.
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, err
	}
	slog.Info("browser launched", "controlURL", controlURL, "proxy", proxyAddr)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, err
	}
	return browser, nil
}

// NewScraper launches a headless browser and initialises the adaptive page
// pool, scaled by poolCfg per §4.1's memory-pressure-driven escalation.
func NewScraper(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig, poolCfg config.AdaptivePoolConfig) (*Scraper, error) {
	browser, err := launchBrowser(browserCfg, "")
	if err != nil {
		return nil, models.NewPeelError(models.ErrKindFatal, "failed to launch browser", err)
	}

	s := &Scraper{
		browser:       browser,
		pages:         make(map[int64]*rod.Page),
		browserCfg:    browserCfg,
		scraperCfg:    scraperCfg,
		startTime:     time.Now(),
		proxyBrowsers: make(map[string]*rod.Browser),
	}

	if poolCfg.HardMax < browserCfg.MaxPages {
		poolCfg.HardMax = browserCfg.MaxPages
	}
	pool, err := engine.NewAdaptivePool(engine.AdaptivePoolConfig{
		MinPages:     poolCfg.MinPages,
		HardMax:      poolCfg.HardMax,
		MemThreshold: poolCfg.MemThreshold,
		ScaleStep:    poolCfg.ScaleStep,
	}, s.newPage, s.closePage)
	if err != nil {
		browser.MustClose()
		return nil, models.NewPeelError(models.ErrKindFatal, "failed to initialize adaptive page pool", err)
	}
	s.pool = pool
	slog.Info("adaptive page pool created", "minPages", poolCfg.MinPages, "hardMax", poolCfg.HardMax)

	return s, nil
}

// newPage is the engine.PageFactory backing s.pool: it opens a fresh
// browser tab and tracks it under a pool-assigned handle ID.
func (s *Scraper) newPage() (int64, error) {
	p, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return 0, err
	}
	id := s.nextPageID.Add(1)
	s.pagesMu.Lock()
	s.pages[id] = p
	s.pagesMu.Unlock()
	return id, nil
}

// closePage is the engine.PageDestroyer backing s.pool.
func (s *Scraper) closePage(id int64) {
	s.pagesMu.Lock()
	p := s.pages[id]
	delete(s.pages, id)
	s.pagesMu.Unlock()
	if p != nil {
		_ = p.Close()
	}
}

// pageFor looks up the live *rod.Page behind a pool handle.
func (s *Scraper) pageFor(id int64) *rod.Page {
	s.pagesMu.Lock()
	defer s.pagesMu.Unlock()
	return s.pages[id]
}

// browserForProxy returns the dedicated browser instance for proxyAddr,
// lazily launching and caching one on first use. Used by Tier 4 Cloaked
// fetches, which route through a caller-selected residential proxy
// instead of the shared pool's default-proxy browser.
func (s *Scraper) browserForProxy(proxyAddr string) (*rod.Browser, error) {
	s.proxyMu.Lock()
	defer s.proxyMu.Unlock()

	if b, ok := s.proxyBrowsers[proxyAddr]; ok {
		return b, nil
	}
	b, err := launchBrowser(s.browserCfg, proxyAddr)
	if err != nil {
		return nil, err
	}
	s.proxyBrowsers[proxyAddr] = b
	return b, nil
}

// Stats returns a snapshot of the pool's current state.
func (s *Scraper) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    s.pool.Size(),
		ActivePages: int(s.activePages.Load()),
	}
}

// Close stops the adaptive pool (destroying every tracked page) and kills
// the browser process. Call this on graceful shutdown to prevent zombie
// Chrome processes.
func (s *Scraper) Close() {
	slog.Info("scraper shutting down: draining page pool")
	s.pool.Stop()

	s.proxyMu.Lock()
	for addr, b := range s.proxyBrowsers {
		slog.Info("scraper shutting down: closing proxy browser", "proxy", addr)
		b.MustClose()
	}
	s.proxyMu.Unlock()

	slog.Info("scraper shutting down: closing browser")
	s.browser.MustClose()
	slog.Info("scraper shutdown complete")
}
