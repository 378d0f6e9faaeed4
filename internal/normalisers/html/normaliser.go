package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
)

// DocType is the format label of HTML documents.
const DocType = "HTML"

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts an HTML page to readable text.
func (n *Normaliser) Normalise(_ context.Context, file domain.SourceFile) (*domain.DocumentRecord, error) {
	page := string(file.Content)
	meta := headMeta(page)

	name := meta["og:title"]
	if name == "" {
		name = pageTitle(page)
	}
	if name == "" {
		name = domain.TitleFromPath(file.Path)
	}

	url := meta["og:url"]
	if url == "" {
		url = canonicalURL(page)
	}

	return &domain.DocumentRecord{
		Name:        name,
		Type:        DocType,
		RawText:     ExtractText(page),
		Status:      domain.StatusPending,
		URL:         url,
		PublishDate: publishDate(meta),
	}, nil
}

var (
	titleTag      = regexp.MustCompile(`(?is)<title\b[^>]*>(.*?)</title>`)
	metaTag       = regexp.MustCompile(`(?is)<meta\s[^>]*>`)
	metaKey       = regexp.MustCompile(`(?is)\b(?:property|name)\s*=\s*["']([^"']+)["']`)
	metaContent   = regexp.MustCompile(`(?is)\bcontent\s*=\s*["']([^"']*)["']`)
	canonicalTag  = regexp.MustCompile(`(?is)<link\s[^>]*rel\s*=\s*["']canonical["'][^>]*>`)
	hrefAttr      = regexp.MustCompile(`(?is)\bhref\s*=\s*["']([^"']+)["']`)
	droppedBlocks = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<head\b[^>]*>.*?</head>`),
		regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`),
		regexp.MustCompile(`(?is)<noscript\b[^>]*>.*?</noscript>`),
		regexp.MustCompile(`(?is)<svg\b[^>]*>.*?</svg>`),
		regexp.MustCompile(`(?is)<nav\b[^>]*>.*?</nav>`),
		regexp.MustCompile(`(?s)<!--.*?-->`),
	}
	blockBoundary = regexp.MustCompile(`(?i)</?(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article|header|footer)\b[^>]*>`)
	anyTag        = regexp.MustCompile(`<[^>]+>`)
	spaceRuns     = regexp.MustCompile(`[ \t\x{00a0}]+`)
)

// headMeta collects <meta> tags keyed by lower-cased property or name.
// The first occurrence of a key wins.
func headMeta(page string) map[string]string {
	meta := map[string]string{}
	for _, tag := range metaTag.FindAllString(page, -1) {
		key := metaKey.FindStringSubmatch(tag)
		value := metaContent.FindStringSubmatch(tag)
		if key == nil || value == nil {
			continue
		}
		k := strings.ToLower(key[1])
		if _, seen := meta[k]; !seen {
			meta[k] = strings.TrimSpace(html.UnescapeString(value[1]))
		}
	}
	return meta
}

func pageTitle(page string) string {
	m := titleTag.FindStringSubmatch(page)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(m[1]))
}

func canonicalURL(page string) string {
	tag := canonicalTag.FindString(page)
	if tag == "" {
		return ""
	}
	if m := hrefAttr.FindStringSubmatch(tag); m != nil {
		return m[1]
	}
	return ""
}

// publishDate returns the date part of the first publication timestamp found.
func publishDate(meta map[string]string) string {
	for _, key := range []string{"article:published_time", "pubdate", "date", "dc.date"} {
		if v := meta[key]; v != "" {
			if date, _, ok := strings.Cut(v, "T"); ok {
				return date
			}
			return v
		}
	}
	return ""
}

// ExtractText removes markup and returns one line per non-empty text block.
func ExtractText(page string) string {
	for _, re := range droppedBlocks {
		page = re.ReplaceAllString(page, "")
	}
	page = blockBoundary.ReplaceAllString(page, "\n")
	page = anyTag.ReplaceAllString(page, "")
	page = html.UnescapeString(page)

	var lines []string
	for _, line := range strings.Split(page, "\n") {
		line = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
