package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MainContent finds the single highest-scoring element in the document and
// returns its outer HTML, in contrast to PruneContent's multi-block
// retention: this picks exactly one container rather than assembling a set
// of surviving blocks, which suits pages where the real article lives in
// one deeply-nested div rather than a handful of top-level body children.
//
// Candidates are every div, article, section, main and td element at any
// depth, not just <body>'s immediate children, since many real-world pages nest the
// actual article several levels deep (body > div > div > article).
func MainContent(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML, err
	}

	var best *goquery.Selection
	bestScore := 0.0

	doc.Find("div, article, section, main, td").Each(func(_ int, el *goquery.Selection) {
		score := mainContentScore(el)
		if score > bestScore {
			bestScore = score
			best = el
		}
	})

	if best == nil || bestScore <= 0 {
		body := doc.Find("body")
		if body.Length() == 0 {
			return rawHTML, nil
		}
		html, err := body.Html()
		if err != nil {
			return rawHTML, nil
		}
		return html, nil
	}

	html, err := goquery.OuterHtml(best)
	if err != nil {
		return rawHTML, nil
	}
	return html, nil
}

// mainContentScore combines text-to-link ratio with a semantic-tag weight:
// unlike scoreElement in pruning.go (which scores every top-level block for
// retention), this scores a single-winner candidate and favors text volume
// more heavily, since it is picking one container rather than filtering many.
func mainContentScore(el *goquery.Selection) float64 {
	text := strings.TrimSpace(el.Text())
	textLen := len(text)
	if textLen < 150 {
		return 0
	}

	linkTextLen := 0
	el.Find("a").Each(func(_ int, a *goquery.Selection) {
		linkTextLen += len(strings.TrimSpace(a.Text()))
	})
	linkDensity := 0.0
	if textLen > 0 {
		linkDensity = float64(linkTextLen) / float64(textLen)
	}
	if linkDensity > 0.5 {
		return 0
	}

	paragraphCount := el.Find("p").Length()

	score := float64(textLen) * (1 - linkDensity)
	score += float64(paragraphCount) * 30
	score += tagWeight(el) * 50

	return score
}
