// Package distill implements BM25-based budget distillation and
// quick-answer passage scoring over already-cleaned content.
package distill

import (
	"math"
	"regexp"
	"strings"

	"github.com/use-agent/webpeel/cleaner"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

var reWord = regexp.MustCompile(`[A-Za-z0-9']+`)

func tokenize(s string) []string {
	return reWord.FindAllString(strings.ToLower(s), -1)
}

// corpus holds the tokenized passages and precomputed statistics shared by
// every BM25 query scored against it.
type corpus struct {
	passages    []string
	tokens      [][]string
	avgLen      float64
	df          map[string]int // document frequency per term
	n           int
}

func newCorpus(passages []string) *corpus {
	c := &corpus{passages: passages, df: make(map[string]int)}
	total := 0
	for _, p := range passages {
		toks := tokenize(p)
		c.tokens = append(c.tokens, toks)
		total += len(toks)
		seen := make(map[string]bool, len(toks))
		for _, t := range toks {
			if !seen[t] {
				c.df[t]++
				seen[t] = true
			}
		}
	}
	c.n = len(passages)
	if c.n > 0 {
		c.avgLen = float64(total) / float64(c.n)
	}
	return c
}

func (c *corpus) idf(term string) float64 {
	df := c.df[term]
	if df == 0 {
		return 0
	}
	return math.Log(1 + (float64(c.n)-float64(df)+0.5)/(float64(df)+0.5))
}

// score computes the BM25 score of passage i against the query terms.
func (c *corpus) score(i int, queryTerms []string) float64 {
	toks := c.tokens[i]
	if len(toks) == 0 {
		return 0
	}
	freq := make(map[string]int, len(toks))
	for _, t := range toks {
		freq[t]++
	}
	docLen := float64(len(toks))
	var score float64
	for _, qt := range queryTerms {
		f := float64(freq[qt])
		if f == 0 {
			continue
		}
		idf := c.idf(qt)
		num := f * (bm25K1 + 1)
		den := f + bm25K1*(1-bm25B+bm25B*docLen/c.avgLen)
		score += idf * num / den
	}
	return score
}

// splitPassages splits markdown/text content into paragraphs on blank
// lines, preserving original order.
func splitPassages(content string) []string {
	raw := regexp.MustCompile(`\n\s*\n`).Split(content, -1)
	var out []string
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// deriveQuery builds the BM25 query from the document's title + first
// heading, or from an explicit question if one was provided.
func deriveQuery(title, firstHeading, question string) []string {
	if question != "" {
		return tokenize(question)
	}
	q := strings.TrimSpace(title + " " + firstHeading)
	return tokenize(q)
}

// Distill implements distill(content, budgetTokens, format) -> content'
// such that tokens(content') <= budgetTokens*1.1. It scores passages with
// BM25 against a query derived from the title/first heading (or an
// explicit question), then greedily includes the highest-scoring
// passages in original order until the budget is exhausted. It always
// keeps the first heading passage (the first one starting with "#", at
// any heading level). If the result falls below 10% of the
// input size on a substantial page, it falls back to head truncation at a
// word boundary and reports budgetFallback=true.
func Distill(content, title, question string, budgetTokens int) (result string, budgetFallback bool) {
	if budgetTokens <= 0 || content == "" {
		return content, false
	}
	if cleaner.EstimateTokens(content) <= budgetTokens {
		return content, false
	}

	passages := splitPassages(content)
	if len(passages) == 0 {
		return content, false
	}

	firstHeading := firstHeadingLine(passages)
	query := deriveQuery(title, firstHeading, question)
	c := newCorpus(passages)

	type scored struct {
		idx   int
		score float64
	}
	var ranked []scored
	for i := range passages {
		ranked = append(ranked, scored{i, c.score(i, query)})
	}
	// Stable sort descending by score, ties keep original order.
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].score > ranked[j-1].score; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}

	included := make(map[int]bool)
	budget := budgetTokens
	firstIdx := -1
	for i, p := range passages {
		if strings.HasPrefix(strings.TrimSpace(p), "#") {
			firstIdx = i
			break
		}
	}
	if firstIdx >= 0 {
		included[firstIdx] = true
		budget -= cleaner.EstimateTokens(passages[firstIdx])
	}

	for _, r := range ranked {
		if included[r.idx] {
			continue
		}
		cost := cleaner.EstimateTokens(passages[r.idx])
		if cost > budget {
			continue
		}
		included[r.idx] = true
		budget -= cost
		if budget <= 0 {
			break
		}
	}

	var out []string
	for i, p := range passages {
		if included[i] {
			out = append(out, p)
		}
	}
	distilled := strings.Join(out, "\n\n")

	if len(content) > 500 && float64(len(distilled)) < 0.1*float64(len(content)) {
		return headTruncate(content, budgetTokens), true
	}
	return distilled, false
}

func firstHeadingLine(passages []string) string {
	for _, p := range passages {
		t := strings.TrimSpace(p)
		if strings.HasPrefix(t, "#") {
			return strings.TrimLeft(t, "# ")
		}
	}
	return ""
}

// headTruncate truncates content to at most budgetTokens (by
// cleaner.EstimateTokens' three-chars-per-token heuristic) at a word
// boundary.
func headTruncate(content string, budgetTokens int) string {
	maxChars := budgetTokens * 3
	if maxChars >= len(content) {
		return content
	}
	cut := content[:maxChars]
	if idx := strings.LastIndexAny(cut, " \n\t"); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}
