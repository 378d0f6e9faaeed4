package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	assert.Contains(t, mimeTypes, "text/markdown")
	assert.Contains(t, mimeTypes, "text/x-markdown")
	assert.Len(t, mimeTypes, 2)
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_FrontMatter(t *testing.T) {
	content := "---\n" +
		"title: \"Rates Outlook\"\n" +
		"date: 2024-03-01\n" +
		"url: https://example.com/rates\n" +
		"---\n" +
		"# Heading One\n\n" +
		"Some **bold** and *italic* text with a [link](http://x.com) and `code`.\n\n" +
		"- item one\n" +
		"- item two\n\n" +
		"> quoted\n\n" +
		"```go\n" +
		"fmt.Println(\"hi\")\n" +
		"```\n"

	doc, err := New().Normalise(context.Background(), domain.SourceFile{
		Path:     "/news/rates.md",
		MIMEType: "text/markdown",
		Content:  []byte(content),
	})
	require.NoError(t, err)

	assert.Equal(t, "Rates Outlook", doc.Name)
	assert.Equal(t, "2024-03-01", doc.PublishDate)
	assert.Equal(t, "https://example.com/rates", doc.URL)
	assert.Equal(t, DocType, doc.Type)
	assert.Equal(t, domain.StatusPending, doc.Status)
	assert.Equal(t,
		"Heading One\n\n"+
			"Some bold and italic text with a link and code.\n\n"+
			"item one\nitem two\n\n"+
			"quoted\n\n"+
			"fmt.Println(\"hi\")",
		doc.RawText)
}

func TestNormalise_TitleExtraction(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		content  string
		expected string
	}{
		{"first h1", "doc.md", "Intro\n\n# Hello World\n\nBody", "Hello World"},
		{"h2 is not a title", "weekly-notes.md", "## Section\n\nBody", "weekly notes"},
		{"no heading", "/a/b/q3_summary.md", "Just text.", "q3 summary"},
		{"unterminated front matter", "draft.md", "---\ntitle: Lost\nbody", "draft"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := New().Normalise(context.Background(), domain.SourceFile{
				Path:    tt.path,
				Content: []byte(tt.content),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, doc.Name)
		})
	}
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"image keeps alt", "![chart of yields](y.png)", "chart of yields"},
		{"numbered list", "1. first\n2. second", "first\nsecond"},
		{"horizontal rule", "above\n\n***\n\nbelow", "above\n\nbelow"},
		{"underscore emphasis", "a _quiet_ week", "a quiet week"},
		{"snake case untouched", "rate_limit_hit", "rate_limit_hit"},
		{"strong underscores", "__up__ 3%", "up 3%"},
		{"blank runs collapse", "a\n\n\n\n\nb", "a\n\nb"},
		{"tilde fences", "~~~\ncode\n~~~", "code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripMarkdown(tt.input))
		})
	}
}

func TestSplitFrontMatter(t *testing.T) {
	meta, body := splitFrontMatter("---\nTitle: A\nnot a pair\n---\nbody text")
	assert.Equal(t, map[string]string{"title": "A"}, meta)
	assert.Equal(t, "body text", body)

	meta, body = splitFrontMatter("no front matter")
	assert.Empty(t, meta)
	assert.Equal(t, "no front matter", body)
}
