package distill

import (
	"strings"
	"testing"

	"github.com/use-agent/webpeel/cleaner"
)

func TestDistillRespectsBudget(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("# Article Title\n\n")
	for i := 0; i < 80; i++ {
		sb.WriteString("This is paragraph number filler discussing unrelated topics at length to pad the document out further.\n\n")
	}
	sb.WriteString("The history of artificial intelligence begins with McCulloch and Pitts in 1943.\n\n")
	content := sb.String()

	out, fallback := Distill(content, "Article Title", "", 200)
	if !fallback {
		t.Fatalf("expected budget fallback: the passages that fit are under 10%% of the input")
	}
	if got := cleaner.EstimateTokens(out); float64(got) > 200*1.1 {
		t.Fatalf("distilled output exceeds budget*1.1: got %d tokens", got)
	}
	if !strings.Contains(out, "Article Title") {
		t.Fatalf("expected distilled output to retain the title heading")
	}
}

func TestDistillIdempotent(t *testing.T) {
	content := "# Title\n\nFirst paragraph about cats and dogs.\n\nSecond paragraph about the weather today.\n\nThird paragraph about cooking recipes."
	once, _ := Distill(content, "Title", "", 20)
	twice, _ := Distill(once, "Title", "", 20)
	if once != twice {
		t.Fatalf("expected distill to be idempotent:\nonce=%q\ntwice=%q", once, twice)
	}
}
