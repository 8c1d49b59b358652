package document

import "testing"

func TestStripDocxMarkup(t *testing.T) {
	in := `<w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t> world</w:t></w:r></w:p>`
	got := stripDocxMarkup(in)
	if got != "Hello world" {
		t.Fatalf("expected %q, got %q", "Hello world", got)
	}
}
