// Package challenge implements the weighted-signal bot-protection
// classifier: recognizing Cloudflare/PerimeterX/Akamai/DataDome/Incapsula
// challenge pages and empty client-rendered SPA shells.
package challenge

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/use-agent/webpeel/models"
)

// signature is one provider's weighted signal set. matches scans html
// for literal substrings (case-sensitive where the source is, lowercased
// otherwise) and runs titleRegexes against the page title.
type signature struct {
	provider     models.ChallengeType
	substrings   []string
	titleRegexes []*regexp.Regexp
}

var providerSignatures = []signature{
	{
		provider: models.ChallengeCloudflare,
		substrings: []string{
			"cf-turnstile", "/cdn-cgi/challenge-platform/", "cf_chl_opt",
			"cf-ray", "Ray ID", "cf-error-overview", "Attention Required",
		},
		titleRegexes: []*regexp.Regexp{regexp.MustCompile(`(?i)just a moment`)},
	},
	{
		provider: models.ChallengePerimeterX,
		substrings: []string{
			"_pxAppId", "_pxUuid", "#px-captcha", "_pxCaptcha", "_px3", "_pxvid",
		},
		titleRegexes: []*regexp.Regexp{regexp.MustCompile(`(?i)press\s*&?\s*hold to confirm`)},
	},
	{
		provider: models.ChallengeAkamai,
		substrings: []string{"akamaized.net/akam/", "bmak.js", "_bm_sz", "ak_bmsc"},
	},
	{
		provider: models.ChallengeDataDome,
		substrings: []string{"ct.datadome.co", "captcha-delivery.com", "ddjskey", "datadome-captcha"},
	},
	{
		provider: models.ChallengeIncapsula,
		substrings: []string{"incapsula.js", "incap_ses_", "visid_incap_", "Incapsula incident ID"},
	},
}

var genericSignals = []string{
	"access denied", "verify you are human", "blocked", "bot protection",
	"captcha", "please enable javascript and cookies",
}

var reLargeParagraph = regexp.MustCompile(`<p[^>]*>([^<]{40,})</p>`)

// Detect implements detect(html, statusCode) -> ChallengeVerdict per the
// algorithm: evaluate weighted provider signals, fall back to generic
// block heuristics, and guard against false positives with a visible-text
// density gate evaluated before lexical matching is allowed to fire.
func Detect(rawHTML string, statusCode int) models.ChallengeVerdict {
	if rawHTML == "" {
		return models.ChallengeVerdict{Type: models.ChallengeNone}
	}

	lower := strings.ToLower(rawHTML)
	visibleText := VisibleText(rawHTML)
	title := extractTitleText(rawHTML)

	var best models.ChallengeVerdict
	for _, sig := range providerSignatures {
		matched, signals := sig.matches(rawHTML, lower, title)
		if matched == 0 {
			continue
		}
		score := confidenceScore(matched, statusCode)
		if score > best.Confidence {
			best = models.ChallengeVerdict{
				Type:       sig.provider,
				Confidence: score,
				Signals:    signals,
			}
		}
	}

	// False-positive gate: an article with substantial non-boilerplate
	// text is never a block, regardless of keyword matches — this must
	// apply unconditionally on signal count, since sig.matches already
	// requires >= 2 signals before best is ever populated.
	substantiveArticle := len(visibleText) > 1500 && reLargeParagraph.MatchString(rawHTML)
	if best.Confidence >= models.ChallengeConfidenceThreshold && substantiveArticle {
		best.Confidence = 0
	}

	if best.Confidence >= models.ChallengeConfidenceThreshold {
		best.IsChallenge = true
		return best
	}

	if shell := detectEmptyShell(rawHTML, visibleText); shell.IsChallenge {
		return shell
	}

	if generic, ok := detectGenericBlock(rawHTML, lower, visibleText, statusCode); ok {
		return generic
	}

	return models.ChallengeVerdict{Type: models.ChallengeNone}
}

func (s signature) matches(rawHTML, lowerHTML, title string) (int, []string) {
	var signals []string
	for _, sub := range s.substrings {
		if strings.Contains(rawHTML, sub) || strings.Contains(lowerHTML, strings.ToLower(sub)) {
			signals = append(signals, sub)
		}
	}
	for _, re := range s.titleRegexes {
		if re.MatchString(title) {
			signals = append(signals, re.String())
		}
	}
	if len(signals) < 2 {
		return 0, nil
	}
	return len(signals), signals
}

// confidenceScore implements: min(1.0, 0.35*signals_matched + 0.15*(status in {403,429,503} ? 1 : 0)).
func confidenceScore(signalsMatched, statusCode int) float64 {
	score := 0.35*float64(signalsMatched) + 0.15*statusBonus(statusCode)
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func statusBonus(statusCode int) float64 {
	switch statusCode {
	case 403, 429, 503:
		return 1
	default:
		return 0
	}
}

// detectGenericBlock implements: status in {403,429,503} OR (content-length
// < 2000 AND generic lexicon match AND no substantive <p>).
func detectGenericBlock(rawHTML, lowerHTML, visibleText string, statusCode int) (models.ChallengeVerdict, bool) {
	statusMatch := statusCode == 403 || statusCode == 429 || statusCode == 503
	hasSubstantiveP := reLargeParagraph.MatchString(rawHTML)

	var lexicalSignals []string
	for _, sig := range genericSignals {
		if strings.Contains(lowerHTML, sig) {
			lexicalSignals = append(lexicalSignals, sig)
		}
	}

	small := len(rawHTML) < models.SuspiciouslySmallThreshold
	lexicalMatch := small && len(lexicalSignals) > 0 && !hasSubstantiveP

	if !statusMatch && !lexicalMatch {
		return models.ChallengeVerdict{}, false
	}

	conf := 0.0
	if statusMatch {
		conf += 0.5
	}
	if lexicalMatch {
		conf += 0.4
	}
	if conf < models.ChallengeConfidenceThreshold {
		return models.ChallengeVerdict{}, false
	}

	return models.ChallengeVerdict{
		IsChallenge: true,
		Type:        models.ChallengeGenericBlock,
		Confidence:  conf,
		Signals:     lexicalSignals,
	}, true
}

// detectEmptyShell implements: HTML size > 2000 AND visible text < 200
// AND script tag count >= 4 AND a single root mount node.
func detectEmptyShell(rawHTML, visibleText string) models.ChallengeVerdict {
	if len(rawHTML) <= 2000 || len(visibleText) >= 200 {
		return models.ChallengeVerdict{}
	}
	if countScriptTags(rawHTML) < 4 {
		return models.ChallengeVerdict{}
	}
	if !hasRootMountNode(rawHTML) {
		return models.ChallengeVerdict{}
	}
	return models.ChallengeVerdict{
		IsChallenge: true,
		Type:        models.ChallengeEmptyShell,
		Confidence:  0.75,
		Signals:     []string{"empty-shell:low-text-high-script"},
	}
}

var reRootMount = regexp.MustCompile(`(?i)id=["'](__next|root|app)["']`)

func hasRootMountNode(rawHTML string) bool {
	return reRootMount.MatchString(rawHTML)
}

func countScriptTags(rawHTML string) int {
	return strings.Count(strings.ToLower(rawHTML), "<script")
}

// VisibleText strips script/style/markup and returns the remaining text,
// used both for empty-shell detection and for the false-positive gate.
func VisibleText(rawHTML string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))
	var sb strings.Builder
	skipDepth := 0
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return strings.TrimSpace(sb.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if isSkippedTag(string(name)) && tt == html.StartTagToken {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isSkippedTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(tokenizer.Text())
				sb.WriteByte(' ')
			}
		}
	}
}

func isSkippedTag(name string) bool {
	switch name {
	case "script", "style", "noscript", "svg":
		return true
	default:
		return false
	}
}

func extractTitleText(rawHTML string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))
	inTitle := false
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		}
	}
}
