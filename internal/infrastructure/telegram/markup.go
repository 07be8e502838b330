package telegram

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"NewsPublisher/internal/ports"
)

// DefaultMaxRunes keeps a channel post under the platform's message limit.
const DefaultMaxRunes = 3800

const ellipsis = "..."

var (
	extraNewlines = regexp.MustCompile(`\n{3,}`)
	// Telegram HTML accepts only these tags; everything else is unwrapped.
	channelPolicy = newChannelPolicy()
)

func newChannelPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "i", "u", "s", "code", "pre")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "tg", "mailto")
	return p
}

type rewriteRule struct {
	selector string
	wrap     func(inner string) string
}

// Rules apply in order; each replacement emits tags its own selector no longer matches.
var rewriteRules = []rewriteRule{
	{"h1, h2, h3, h4, h5, h6", func(s string) string { return "\n\n<b>" + s + "</b>\n\n" }},
	{"strong", func(s string) string { return "<b>" + s + "</b>" }},
	{"em", func(s string) string { return "<i>" + s + "</i>" }},
	{"ul, ol", func(s string) string { return s }},
	{"li", func(s string) string { return "\n• " + s }},
	{"p", func(s string) string { return s + "\n\n" }},
	{"br", func(string) string { return "\n" }},
}

// ToChannelMarkup converts article HTML into the channel's HTML subset and
// truncates it to maxRunes with a trailing ellipsis.
func ToChannelMarkup(content string, maxRunes int) (string, error) {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxRunes
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse article html: %w", err)
	}
	for _, rule := range rewriteRules {
		rewrite(doc, rule)
	}

	body, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("render article html: %w", err)
	}

	text := channelPolicy.Sanitize(body)
	text = extraNewlines.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	return truncate(text, maxRunes)
}

func rewrite(doc *goquery.Document, rule rewriteRule) {
	for {
		sel := doc.Find(rule.selector).First()
		if sel.Length() == 0 {
			return
		}
		inner, err := sel.Html()
		if err != nil {
			inner = sel.Text()
		}
		sel.ReplaceWithHtml(rule.wrap(inner))
	}
}

// truncate cuts text to maxRunes, never inside a tag or an entity, and
// re-balances any tag left open by the cut.
func truncate(text string, maxRunes int) (string, error) {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text, nil
	}

	keep := maxRunes - len(ellipsis)
	if keep < 0 {
		keep = 0
	}
	cut := string(runes[:keep])
	if open := strings.LastIndex(cut, "<"); open > strings.LastIndex(cut, ">") {
		cut = cut[:open]
	}
	if amp := strings.LastIndex(cut, "&"); amp >= 0 && !strings.Contains(cut[amp:], ";") {
		cut = cut[:amp]
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cut + ellipsis))
	if err != nil {
		return "", fmt.Errorf("rebalance truncated html: %w", err)
	}
	out, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("rebalance truncated html: %w", err)
	}
	return out, nil
}

// ComposePost appends the backlink (when the site produced one) and the attribution footer.
func ComposePost(body, articleURL, siteURL, siteName string) string {
	var b strings.Builder
	b.WriteString(body)
	if articleURL != "" {
		b.WriteString("\n\n📰 <b>Читати повністю:</b> ")
		b.WriteString(articleURL)
		b.WriteString("\n\n")
	} else {
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "<b>Джерело:</b> <a href='%s'>%s</a>", siteURL, siteName)
	return b.String()
}

// Formatter implements ports.ChannelFormatter for one site.
type Formatter struct {
	maxRunes int
	siteURL  string
	siteName string
}

var _ ports.ChannelFormatter = (*Formatter)(nil)

// NewFormatter builds a formatter attributing posts to the given site.
func NewFormatter(maxRunes int, siteURL, siteName string) *Formatter {
	return &Formatter{maxRunes: maxRunes, siteURL: siteURL, siteName: siteName}
}

// Format converts content and appends the backlink and footer.
func (f *Formatter) Format(content, articleURL string) (string, error) {
	body, err := ToChannelMarkup(content, f.maxRunes)
	if err != nil {
		return "", err
	}
	return ComposePost(body, articleURL, f.siteURL, f.siteName), nil
}
