package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestArticleValidate(t *testing.T) {
	t.Parallel()

	ok := Article{Title: "t", Category: "c", Excerpt: "e", Content: "x", SEODescription: "s"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid article rejected: %v", err)
	}

	blank := ok
	blank.Excerpt = "   "
	err := blank.Validate()
	if !errors.Is(err, ErrMalformedArticle) || !strings.Contains(err.Error(), FieldExcerpt) {
		t.Fatalf("expected missing excerpt, got %v", err)
	}
}
