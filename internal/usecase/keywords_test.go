package usecase

import (
	"strings"
	"testing"
)

func TestExtractKeywords(t *testing.T) {
	t.Parallel()

	got := ExtractKeywords("Економіка, зростає! (на 5%)", 5, "Україна")
	if got != "Економіка зростає" {
		t.Fatalf("unexpected query %q", got)
	}
	if strings.ContainsAny(got, `,!()%`) {
		t.Fatalf("punctuation left in %q", got)
	}
}

func TestExtractKeywordsCapsTokens(t *testing.T) {
	t.Parallel()

	got := ExtractKeywords("один два три чотири пʼять шість сім", 5, "Україна")
	if n := len(strings.Fields(got)); n != 5 {
		t.Fatalf("expected 5 tokens, got %d in %q", n, got)
	}
}

func TestExtractKeywordsFallsBack(t *testing.T) {
	t.Parallel()

	for _, title := range []string{"", "!!! ??", "до на в"} {
		if got := ExtractKeywords(title, 5, "Україна"); got != "Україна" {
			t.Fatalf("ExtractKeywords(%q) = %q, want default topic", title, got)
		}
	}
}
