package challenge

import "testing"

func TestDetectKnownChallenges(t *testing.T) {
	cases := []struct {
		name string
		html string
		want string
	}{
		{
			name: "cloudflare just a moment",
			html: `<html><head><title>Just a moment...</title></head><body>
				<div class="cf_chl_opt"></div><div id="cf-turnstile"></div>
				<p>Ray ID: 8a1b2c3d4e5f</p></body></html>`,
			want: "cloudflare",
		},
		{
			name: "cloudflare turnstile",
			html: `<html><body><div class="cf-turnstile" data-sitekey="x"></div>
				<script src="/cdn-cgi/challenge-platform/h/g/orchestrate/chl_page"></script>
				<p>cf-ray: abc123</p></body></html>`,
			want: "cloudflare",
		},
		{
			name: "perimeterx press and hold",
			html: `<html><body><script>window._pxAppId="x";window._pxUuid="y";</script>
				<div id="px-captcha"></div><p>Press & Hold to confirm you are a human</p></body></html>`,
			want: "perimeterx",
		},
		{
			name: "akamai bmak",
			html: `<html><body><script src="/akam/11/bmak.js"></script>
				<script>var ak_bmsc="x";document.cookie="_bm_sz=y";</script></body></html>`,
			want: "akamai",
		},
		{
			name: "datadome captcha delivery",
			html: `<html><body><script src="https://ct.datadome.co/x.js"></script>
				<div class="datadome-captcha"></div><p>ddjskey=abc</p></body></html>`,
			want: "datadome",
		},
		{
			name: "incapsula",
			html: `<html><body><script src="/_Incapsula_Resource?incapsula.js"></script>
				<p>incap_ses_123=abc; visid_incap_456=def</p>
				<p>Incapsula incident ID: 123-456</p></body></html>`,
			want: "incapsula",
		},
		{
			name: "nextjs empty shell",
			html: `<html><head><script src="/_next/static/chunk1.js"></script>
				<script src="/_next/static/chunk2.js"></script>
				<script src="/_next/static/chunk3.js"></script>
				<script src="/_next/static/chunk4.js"></script></head>
				<body><div id="__next"></div></body></html>` + padding(2100),
			want: "empty-shell",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict := Detect(tc.html, 200)
			if !verdict.IsChallenge {
				t.Fatalf("expected isChallenge=true, got false (verdict=%+v)", verdict)
			}
			if string(verdict.Type) != tc.want {
				t.Fatalf("expected type %q, got %q", tc.want, verdict.Type)
			}
		})
	}
}

func TestDetectFalsePositives(t *testing.T) {
	cases := []struct {
		name string
		html string
	}{
		{
			name: "article about captchas",
			html: `<html><body><article><h1>A History of CAPTCHAs</h1>` + longParagraph(1600) + `</article></body></html>`,
		},
		{
			name: "login page",
			html: `<html><body><form><h1>Sign in</h1><input name="email"><input name="password" type="password">
				<button>Log in</button></form></body></html>`,
		},
		{
			name: "404 page",
			html: `<html><body><h1>404 Not Found</h1><p>The page you requested could not be found.</p></body></html>`,
		},
		{
			name: "blog post",
			html: `<html><body><article><h1>My Trip to the Mountains</h1>` + longParagraph(2000) + `</article></body></html>`,
		},
		{
			name: "product page",
			html: `<html><body><div class="product"><h1>Wireless Mouse</h1>` + longParagraph(1800) + `</div></body></html>`,
		},
		{
			name: "api json response",
			html: `{"status":"ok","data":{"id":1,"name":"example"}}`,
		},
		{
			name: "long article mentioning cloudflare terms in prose",
			html: `<html><body><article><h1>How Cloudflare Protects Websites</h1>` + cfArticle(2200) + `</article></body></html>`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict := Detect(tc.html, 200)
			if verdict.IsChallenge {
				t.Fatalf("expected isChallenge=false, got true (verdict=%+v)", verdict)
			}
		})
	}
}

func longParagraph(n int) string {
	s := "<p>"
	for len(s) < n {
		s += "This page discusses security mechanisms such as captcha, cloudflare bot protection, and verify you are human challenges in the context of modern web design. "
	}
	return s + "</p>"
}

// cfArticle builds a single long <p> that legitimately discusses
// Cloudflare internals, tripping two real provider substrings ("cf-ray"
// and "Ray ID") in ordinary prose rather than as bot-detection DOM hooks.
func cfArticle(n int) string {
	s := "<p>"
	for len(s) < n {
		s += "Every response Cloudflare proxies carries a cf-ray header, and support staff often ask visitors to quote the Ray ID shown on an error page when filing a ticket, since it pinpoints the exact edge server and request that handled the connection. "
	}
	return s + "</p>"
}

func padding(n int) string {
	s := "<!-- "
	for len(s) < n {
		s += "x"
	}
	return s + " -->"
}
