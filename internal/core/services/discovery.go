package services

import (
	"context"
	"crypto/md5" //nolint:gosec // G501: stable document id, not a security boundary.
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
	"github.com/custodia-labs/newsdesk/internal/logger"
)

// Ensure NewsDiscoveryFeed implements the interface.
var _ driven.EventFeed = (*NewsDiscoveryFeed)(nil)

// News section limits.
const (
	minNewsTitleLen = 5
	maxNewsTitleLen = 200
	minNewsBodyLen  = 30
)

var (
	reNewsSplit = regexp.MustCompile(`\n###\s+`)
	reNewsURL   = regexp.MustCompile(`https?://[^\s)]+`)
	reNewsDate  = regexp.MustCompile(`(?i)(?:發布時間|published|date)\s*[：:]\s*(\d{4}[-/年]\d{1,2}[-/月]\d{1,2}日?)`)

	// Titles containing these are assistant chatter, not headlines.
	newsTitleStopwords = []string{"案件", "會話", "檢索", "系統", "助理", "我是", "我可以", "CASE", "ID", "Session", "Assistant", "I am", "I can"}
)

// NewsArticle is one headline section parsed from streamed text.
type NewsArticle struct {
	Title       string
	Content     string
	PublishDate string
	URL         string
}

// Key identifies an article independently of formatting.
func (a NewsArticle) Key() string {
	return strings.ToLower(a.Title) + "|" + a.PublishDate + "|" + strings.ToLower(a.URL)
}

// DocumentID is the stable id of the article's document.
func (a NewsArticle) DocumentID() string {
	sum := md5.Sum([]byte(a.Key())) //nolint:gosec // G401: id derivation only.
	return "news-" + hex.EncodeToString(sum[:])
}

// Document converts the article to a generated document.
func (a NewsArticle) Document() domain.DocumentRecord {
	return domain.DocumentRecord{
		ID:          a.DocumentID(),
		Name:        a.Title,
		SourceKind:  domain.SourceGenerated,
		Type:        "NEWS",
		RawText:     a.Content,
		Status:      domain.StatusPending,
		URL:         a.URL,
		PublishDate: a.PublishDate,
	}
}

// NewsDiscoveryFeed decorates an agent feed. It watches streamed text for
// completed "### " headline sections and injects one DocumentDiscovered
// event per new article right after the event that completed it.
type NewsDiscoveryFeed struct {
	inner      driven.EventFeed
	onDiscover func(domain.DocumentRecord)

	text    strings.Builder
	seen    map[string]bool
	pending []domain.RawEvent
}

// NewNewsDiscoveryFeed wraps inner. onDiscover, if set, is called once
// per discovered document.
func NewNewsDiscoveryFeed(inner driven.EventFeed, onDiscover func(domain.DocumentRecord)) *NewsDiscoveryFeed {
	return &NewsDiscoveryFeed{
		inner:      inner,
		onDiscover: onDiscover,
		seen:       make(map[string]bool),
	}
}

// Next returns the next upstream event, or a queued discovery event.
func (f *NewsDiscoveryFeed) Next(ctx context.Context) (domain.RawEvent, error) {
	if len(f.pending) > 0 {
		raw := f.pending[0]
		f.pending = f.pending[1:]
		return raw, nil
	}

	raw, err := f.inner.Next(ctx)
	if err != nil {
		return nil, err
	}

	if text, ok := streamedText(raw); ok {
		f.text.WriteString(text)
		f.scan()
	}
	return raw, nil
}

// Close closes the wrapped feed.
func (f *NewsDiscoveryFeed) Close() error {
	return f.inner.Close()
}

func (f *NewsDiscoveryFeed) scan() {
	for _, article := range ParseCompletedNews(assistantContent(f.text.String())) {
		key := article.Key()
		if f.seen[key] {
			continue
		}
		f.seen[key] = true

		doc := article.Document()
		raw, err := json.Marshal(map[string]any{"document_discovered": doc})
		if err != nil {
			continue
		}
		logger.Debug("Discovered news article %s: %q", doc.ID, doc.Name)
		f.pending = append(f.pending, raw)
		if f.onDiscover != nil {
			f.onDiscover(doc)
		}
	}
}

// streamedText extracts the text carried by a content event.
func streamedText(raw domain.RawEvent) (string, bool) {
	res := gjson.ParseBytes(raw)
	if res.Type == gjson.String {
		return res.String(), true
	}
	if !res.IsObject() {
		return "", false
	}
	return extractText(res, res.Get("event").String())
}

// ParseCompletedNews parses headline sections from partial text. The last
// section may still be streaming and is never returned.
func ParseCompletedNews(content string) []NewsArticle {
	sections := reNewsSplit.Split(content, -1)
	if len(sections) <= 2 {
		return nil
	}

	var articles []NewsArticle
	for _, section := range sections[:len(sections)-1] {
		if article, ok := parseNewsSection(section); ok {
			articles = append(articles, article)
		}
	}
	return articles
}

func parseNewsSection(section string) (NewsArticle, bool) {
	section = strings.TrimSpace(section)
	title, body, found := strings.Cut(section, "\n")
	if !found {
		return NewsArticle{}, false
	}
	title = strings.TrimSpace(strings.TrimLeft(title, "# "))
	body = strings.TrimSpace(body)

	for _, word := range newsTitleStopwords {
		if strings.Contains(title, word) {
			return NewsArticle{}, false
		}
	}

	article := NewsArticle{Title: title, Content: body}
	if m := reNewsDate.FindStringSubmatch(body); m != nil {
		article.PublishDate = m[1]
	}
	article.URL = reNewsURL.FindString(body)

	if article.URL == "" && article.PublishDate == "" {
		return NewsArticle{}, false
	}
	if n := utf8.RuneCountInString(title); n < minNewsTitleLen || n > maxNewsTitleLen {
		return NewsArticle{}, false
	}
	if utf8.RuneCountInString(body) < minNewsBodyLen {
		return NewsArticle{}, false
	}
	return article, true
}

// assistantContent reads the assistant.content string out of a possibly
// incomplete JSON document. Text that is not JSON is returned as is.
func assistantContent(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "```") {
		return raw
	}

	idx := strings.Index(raw, `"assistant"`)
	if idx == -1 {
		return ""
	}
	rel := strings.Index(raw[idx:], `"content"`)
	if rel == -1 {
		return ""
	}
	idx += rel + len(`"content"`)
	rel = strings.Index(raw[idx:], ":")
	if rel == -1 {
		return ""
	}
	rest := strings.TrimLeft(raw[idx+rel+1:], " \t\r\n")
	if !strings.HasPrefix(rest, `"`) {
		return ""
	}
	return decodePartialString(rest[1:])
}

// decodePartialString decodes a JSON string body up to its closing quote
// or the end of input, whichever comes first.
func decodePartialString(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '"' {
			break
		}
		if ch != '\\' {
			out.WriteByte(ch)
			continue
		}
		if i+1 >= len(s) {
			break
		}
		i++
		switch s[i] {
		case 'n':
			out.WriteByte('\n')
		case 'r':
			out.WriteByte('\r')
		case 't':
			out.WriteByte('\t')
		case 'b':
			out.WriteByte('\b')
		case 'f':
			out.WriteByte('\f')
		case 'u':
			if i+4 < len(s) {
				if code, err := strconv.ParseUint(s[i+1:i+5], 16, 32); err == nil {
					out.WriteRune(rune(code))
					i += 4
					continue
				}
			}
			out.WriteByte('u')
		default:
			out.WriteByte(s[i])
		}
	}
	return out.String()
}
