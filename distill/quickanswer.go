package distill

import (
	"regexp"
	"strings"

	"github.com/use-agent/webpeel/models"
)

var reSentence = regexp.MustCompile(`(?:[.!?]+\s+|\n)`)

// AnswerQuestion implements the lexical BM25 passage-answer extractor:
// pick the best sentence-level passage for a natural-language question,
// without calling an LLM. It scores a single text; the retry against a
// longer raw text when confidence is below 0.91 is done by
// AnswerQuestionWithFallback.
func AnswerQuestion(content, question string) *models.QuickAnswer {
	if question == "" || content == "" {
		return nil
	}

	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return nil
	}

	c := newCorpus(sentences)
	query := tokenize(question)

	bestIdx := -1
	bestScore := 0.0
	for i := range sentences {
		s := c.score(i, query)
		if s > bestScore {
			bestScore = s
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return nil
	}

	confidence := normalizeConfidence(bestScore, len(query))
	return &models.QuickAnswer{
		Answer:     strings.TrimSpace(sentences[bestIdx]),
		Confidence: confidence,
		Passage:    strings.TrimSpace(sentences[bestIdx]),
	}
}

// AnswerQuestionWithFallback runs AnswerQuestion against content; if the
// result has confidence < 0.91 and rawText is more than 2x the length of
// content, it retries against rawText and keeps the higher-confidence
// answer.
func AnswerQuestionWithFallback(content, rawText, question string) *models.QuickAnswer {
	answer := AnswerQuestion(content, question)
	if answer != nil && answer.Confidence >= 0.91 {
		return answer
	}
	if len(rawText) > 2*len(content) {
		retry := AnswerQuestion(rawText, question)
		if retry != nil && (answer == nil || retry.Confidence > answer.Confidence) {
			return retry
		}
	}
	return answer
}

func normalizeConfidence(score float64, queryTerms int) float64 {
	if queryTerms == 0 {
		return 0
	}
	// BM25 scores are unbounded; normalize against an empirically
	// reasonable ceiling of ~2.5 per matched query term.
	ceiling := 2.5 * float64(queryTerms)
	if ceiling == 0 {
		return 0
	}
	conf := score / ceiling
	if conf > 1 {
		conf = 1
	}
	return conf
}

func splitSentences(content string) []string {
	plain := stripMarkdown(content)
	parts := reSentence.Split(plain, -1)
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) > 0 {
			out = append(out, p)
		}
	}
	return out
}

func stripMarkdown(content string) string {
	lines := strings.Split(content, "\n")
	var sb strings.Builder
	for _, l := range lines {
		l = strings.TrimLeft(l, "#-*> ")
		sb.WriteString(l)
		sb.WriteByte(' ')
	}
	return sb.String()
}
