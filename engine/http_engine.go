package engine

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	tls "github.com/refraction-networking/utls"

	"github.com/use-agent/webpeel/models"
)

// HTTPEngine is the Tier 1 "Simple HTTP" fetch strategy: a plain GET with
// a Chrome-shaped TLS fingerprint, no JavaScript rendering. It is the
// fastest option and is always tried first.
type HTTPEngine struct {
	client *http.Client
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Replace h2 with http/1.1 only in the ALPN extension so the server
	// never negotiates HTTP/2 (which Go's http.Transport cannot handle
	// over a utls connection).
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// NewHTTPEngine creates an HTTPEngine with a Chrome-like TLS fingerprint.
// ALPN is locked to http/1.1 to avoid the HTTP/2 framing mismatch that
// occurs when utls negotiates h2 but Go's http.Transport only speaks h1.
func NewHTTPEngine() *HTTPEngine {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("http_engine: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
	return &HTTPEngine{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

func (e *HTTPEngine) Name() string { return "http" }

func (e *HTTPEngine) Fetch(ctx context.Context, req *models.FetchRequest) (*models.FetchResult, error) {
	timeout := time.Duration(req.TimeoutMs) * time.Millisecond
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, &models.NetworkError{Err: fmt.Errorf("http_engine: build request: %w", err)}
	}

	origin := originOf(req.URL)
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36")
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "gzip, br")
	if origin != "" {
		httpReq.Header.Set("Referer", origin)
	}
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	for _, c := range req.Cookies {
		httpReq.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain})
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &models.TimeoutError{Elapsed: timeout.String()}
		}
		return nil, &models.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, &models.NetworkError{Err: err}
	}

	const maxBody = 10 << 20
	body, err := io.ReadAll(io.LimitReader(reader, maxBody))
	if err != nil {
		return nil, &models.NetworkError{Err: fmt.Errorf("http_engine: read body: %w", err)}
	}

	if resp.StatusCode >= 500 || resp.StatusCode == 403 || resp.StatusCode == 429 || resp.StatusCode == 503 {
		return &models.FetchResult{
			HTML:        string(body),
			Raw:         body,
			FinalURL:    resp.Request.URL.String(),
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Method:      models.MethodSimple,
			Headers:     resp.Header,
		}, fmt.Errorf("http_engine: status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, &models.BadStatusError{Status: resp.StatusCode}
	}

	return &models.FetchResult{
		HTML:        string(body),
		Raw:         body,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Method:      models.MethodSimple,
		Headers:     resp.Header,
	}, nil
}

func decodeBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

func originOf(rawURL string) string {
	u, err := models.ParseTargetURL(rawURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}
