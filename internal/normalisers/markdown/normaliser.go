// Package markdown loads Markdown files as plain prose.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
)

// DocType is the format label of Markdown documents.
const DocType = "MARKDOWN"

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise strips Markdown syntax and reads an optional front matter block.
// The name comes from front matter "title", then the first H1, then the path.
func (n *Normaliser) Normalise(_ context.Context, file domain.SourceFile) (*domain.DocumentRecord, error) {
	content := strings.ReplaceAll(string(file.Content), "\r\n", "\n")
	meta, body := splitFrontMatter(content)

	name := meta["title"]
	if name == "" {
		name = firstHeading(body)
	}
	if name == "" {
		name = domain.TitleFromPath(file.Path)
	}

	return &domain.DocumentRecord{
		Name:        name,
		Type:        DocType,
		RawText:     stripMarkdown(body),
		Status:      domain.StatusPending,
		URL:         meta["url"],
		PublishDate: meta["date"],
	}, nil
}

var (
	fenceLine    = regexp.MustCompile("(?m)^[ \t]*(```|~~~).*\n?")
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	images       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	headings     = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	rules        = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	bullets      = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	numbered     = regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]+`)
	blockquotes  = regexp.MustCompile(`(?m)^>[ \t]?`)
	strongStars  = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	strongUnders = regexp.MustCompile(`__([^_]+)__`)
	emStars      = regexp.MustCompile(`\*([^*\n]+)\*`)
	emUnders     = regexp.MustCompile(`\b_([^_\n]+)_\b`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

// splitFrontMatter separates a leading "---" delimited block of
// "key: value" lines from the body. Keys are lower-cased.
func splitFrontMatter(content string) (map[string]string, string) {
	meta := map[string]string{}
	if !strings.HasPrefix(content, "---\n") {
		return meta, content
	}
	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return meta, content
	}

	for _, line := range strings.Split(rest[:end], "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		meta[strings.ToLower(strings.TrimSpace(key))] = value
	}

	body := rest[end+len("\n---"):]
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}
	return meta, body
}

// firstHeading returns the text of the first H1 heading, if any.
func firstHeading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// stripMarkdown removes Markdown syntax and keeps the readable text.
// Code blocks keep their content; only the fences are dropped.
func stripMarkdown(content string) string {
	content = fenceLine.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = rules.ReplaceAllString(content, "")
	content = bullets.ReplaceAllString(content, "")
	content = numbered.ReplaceAllString(content, "")
	content = blockquotes.ReplaceAllString(content, "")
	content = strongStars.ReplaceAllString(content, "$1")
	content = strongUnders.ReplaceAllString(content, "$1")
	content = emStars.ReplaceAllString(content, "$1")
	content = emUnders.ReplaceAllString(content, "$1")
	content = blankRuns.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
