package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/webpeel/engine"
	"github.com/use-agent/webpeel/models"
	"github.com/ysmood/gson"
)

// cloakedViewports is the pool of plausible real-device viewport sizes a
// Cloaked fetch randomizes over when the caller didn't pin one explicitly.
var cloakedViewports = [][2]int{
	{1366, 768}, {1440, 900}, {1536, 864}, {1920, 1080}, {1280, 800},
}

// Fetch is the browser-based fetch primitive wrapped by engine.RodEngine
// for Tier 2/3/4 (rod, rod-stealth, rod-cloaked). It acquires a page from
// the pool, navigates, runs any requested actions, and extracts the
// rendered HTML.
//
// Lifecycle:
//  1. Acquire page         – borrow a tab from the pool
//  2. DEFER: cleanup       – about:blank + return to pool (leak prevention)
//  3. Stealth injection    – mask navigator.webdriver etc. (before navigation!)
//  4. Hijack mount         – block configured resource types (before navigation!)
//  5. Navigate             – triggers page load
//  6. Wait                 – DOM stable
//  7. Actions              – run requested interaction steps
//  8. Extract              – page.HTML() + document.title
//
// Steps 3-4 must happen before step 5: stealth JS and resource blocking
// only take effect for navigations that happen after they are installed.
func (s *Scraper) Fetch(ctx context.Context, req *models.FetchRequest) (*models.FetchResult, error) {
	if req.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	s.activePages.Add(1)
	defer s.activePages.Add(-1)

	var (
		page          *rod.Page
		handle        *engine.PageHandle
		usingProxyTab bool
	)

	if req.Cloaked && len(req.Proxies) > 0 {
		proxyAddr := req.Proxies[rand.Intn(len(req.Proxies))]
		if proxyBrowser, err := s.browserForProxy(proxyAddr); err != nil {
			slog.Warn("cloaked proxy browser launch failed, falling back to default pool", "proxy", proxyAddr, "error", err)
		} else if p, err := proxyBrowser.Page(proto.TargetCreateTarget{}); err != nil {
			slog.Warn("cloaked proxy page creation failed, falling back to default pool", "proxy", proxyAddr, "error", err)
		} else {
			page = p
			usingProxyTab = true
		}
	}

	if page == nil {
		h, acquireErr := s.pool.Get()
		if acquireErr != nil {
			return nil, models.NewPeelError(models.ErrKindFatal, "failed to acquire page from pool", acquireErr)
		}
		handle = h
		page = s.pageFor(handle.ID)
	}

	success := false
	defer func() {
		if usingProxyTab {
			_ = page.Close()
			return
		}
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		s.pool.Put(handle, success)
	}()

	if req.Stealth || req.Cloaked {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	viewportW, viewportH := req.ViewportW, req.ViewportH
	if viewportW == 0 && viewportH == 0 && req.Cloaked {
		vp := cloakedViewports[rand.Intn(len(cloakedViewports))]
		viewportW, viewportH = vp[0], vp[1]
	}
	if viewportW > 0 && viewportH > 0 {
		_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:  viewportW,
			Height: viewportH,
		})
	}

	extraHeaders := make(map[string]string, len(req.Headers)+1)
	if _, hasReferer := req.Headers["Referer"]; !hasReferer {
		if u, parseErr := url.Parse(req.URL); parseErr == nil {
			extraHeaders["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
		}
	}
	for k, v := range req.Headers {
		extraHeaders[k] = v
	}
	if req.UserAgent != "" {
		_, _ = proto.NetworkSetUserAgentOverride{UserAgent: req.UserAgent}.Call(page)
	}
	if len(extraHeaders) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(extraHeaders)}.Call(page)
	}

	for _, cookie := range req.Cookies {
		domain := cookie.Domain
		if domain == "" {
			if u, parseErr := url.Parse(req.URL); parseErr == nil {
				domain = u.Host
			}
		}
		_, _ = proto.NetworkSetCookie{
			Name:   cookie.Name,
			Value:  cookie.Value,
			Domain: domain,
			Path:   "/",
		}.Call(page)
	}

	blocked := req.BlockResources
	if len(blocked) == 0 {
		blocked = s.scraperCfg.BlockedResourceTypes
	}
	router := setupHijack(page, blocked)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	var statusCode int
	if navErr := p.Navigate(req.URL); navErr != nil {
		return nil, categorizeError(navErr, "navigation to target URL failed")
	}

	if req.WaitUntil == "networkidle" {
		waitIdle := p.WaitRequestIdle(300*time.Millisecond, nil, nil, nil)
		waitIdle()
	} else if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", stableErr)
	}

	if req.Cloaked {
		simulateHumanMouse(p, viewportW, viewportH)
	}

	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}

	if req.WaitSelector != "" {
		_ = p.WaitElementsMoreThan(req.WaitSelector, 0)
	}
	if req.WaitMs > 0 {
		time.Sleep(time.Duration(req.WaitMs) * time.Millisecond)
	}

	if len(req.Actions) > 0 {
		if err := executeActions(ctx, page, req.Actions); err != nil {
			return nil, err
		}
	}

	var screenshotBytes []byte
	if req.Screenshot {
		opts := &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng}
		if shot, err := p.Screenshot(req.FullPage, opts); err == nil {
			screenshotBytes = shot
		} else {
			slog.Warn("screenshot capture failed", "error", err)
		}
	}

	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeError(htmlErr, "failed to extract page HTML")
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	var branding *models.BrandingProfile
	if req.Branding {
		branding = extractBranding(p)
	}

	success = true
	return &models.FetchResult{
		HTML:        rawHTML,
		FinalURL:    finalURL,
		StatusCode:  statusCode,
		ContentType: "text/html",
		Screenshot:  screenshotBytes,
		Branding:    branding,
	}, nil
}

// extractBranding reads a site's visual identity straight out of the live
// DOM: body background as the primary color, body font family, and the
// first plausible logo image/icon. Must run before the page is navigated
// to about:blank and returned to the pool.
func extractBranding(p *rod.Page) *models.BrandingProfile {
	res, err := p.Eval(`() => {
		const body = getComputedStyle(document.body);
		const logoEl = document.querySelector(
			'img[class*="logo" i], img[alt*="logo" i], header img, link[rel~="icon"]'
		);
		let logo = "";
		if (logoEl) {
			logo = logoEl.src || logoEl.href || "";
		}
		return JSON.stringify({
			primaryColor: body.backgroundColor || "",
			fontFamily: body.fontFamily || "",
			logoUrl: logo,
		});
	}`)
	if err != nil {
		slog.Warn("branding extraction failed", "error", err)
		return nil
	}

	var profile models.BrandingProfile
	if err := json.Unmarshal([]byte(res.Value.Str()), &profile); err != nil {
		slog.Warn("branding JSON decode failed", "error", err)
		return nil
	}
	if profile.PrimaryColor == "" && profile.FontFamily == "" && profile.LogoURL == "" {
		return nil
	}
	return &profile
}

// simulateHumanMouse drags the cursor through a handful of randomized
// waypoints across the viewport before any extraction happens, softening
// the zero-movement pattern (bot detectors flag a cursor that only ever
// teleports) that Tier 3 stealth alone leaves behind.
func simulateHumanMouse(p *rod.Page, viewportW, viewportH int) {
	if viewportW <= 0 || viewportH <= 0 {
		return
	}
	steps := 3 + rand.Intn(3)
	for i := 0; i < steps; i++ {
		x := float64(rand.Intn(viewportW))
		y := float64(rand.Intn(viewportH))
		if err := p.Mouse.Move(x, y, 1); err != nil {
			return
		}
		time.Sleep(time.Duration(40+rand.Intn(80)) * time.Millisecond)
	}
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw navigation/extraction errors into typed
// PeelErrors so the pipeline can decide whether to escalate or surface them.
func categorizeError(err error, msg string) *models.PeelError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewPeelError(models.ErrKindTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewPeelError(models.ErrKindTimeout, "request canceled", err)
	default:
		return models.NewPeelError(models.ErrKindNetwork, msg, err)
	}
}
