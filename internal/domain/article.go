package domain

import (
	"fmt"
	"strings"
	"time"
)

// Source is a candidate news item returned by the aggregator.
type Source struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Image       string    `json:"image,omitempty"`
	SourceName  string    `json:"source_name"`
	PublishedAt time.Time `json:"published_at"`
}

// Article is the in-flight publication unit produced by the rewriter or assembled manually.
type Article struct {
	Title          string `json:"title"`
	Category       string `json:"category"`
	Excerpt        string `json:"excerpt"`
	Content        string `json:"content"`
	SEODescription string `json:"seo_description"`
	CategoryID     int64  `json:"category_id,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
}

// Required article field names as the rewriter emits them.
const (
	FieldTitle          = "title"
	FieldCategory       = "category"
	FieldExcerpt        = "excerpt"
	FieldContent        = "content"
	FieldSEODescription = "seo_description"
)

// RequiredFields lists the keys every generated article must carry.
var RequiredFields = []string{FieldTitle, FieldCategory, FieldExcerpt, FieldContent, FieldSEODescription}

// Validate reports the first required field left empty.
func (a Article) Validate() error {
	values := map[string]string{
		FieldTitle:          a.Title,
		FieldCategory:       a.Category,
		FieldExcerpt:        a.Excerpt,
		FieldContent:        a.Content,
		FieldSEODescription: a.SEODescription,
	}
	for _, field := range RequiredFields {
		if strings.TrimSpace(values[field]) == "" {
			return fmt.Errorf("%w: missing %s", ErrMalformedArticle, field)
		}
	}
	return nil
}

// Category mirrors a site taxonomy term.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Draft is an article saved for later publication.
type Draft struct {
	ID         int64     `json:"id"`
	OperatorID int64     `json:"operator_id"`
	Article    Article   `json:"article"`
	Images     []string  `json:"images"`
	Sources    []Source  `json:"sources"`
	CreatedAt  time.Time `json:"created_at"`
}
