// Package eml loads saved email messages such as newsletters and press releases.
package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
	"github.com/custodia-labs/newsdesk/internal/normalisers/html"
)

// DocType is the format label of email documents.
const DocType = "EMAIL"

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles EML (email) documents.
type Normaliser struct{}

// New creates a new EML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"message/rfc822"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts a readable body from an email message. The text is
// prefixed with the sender, date and subject so they are searchable.
// Plain text parts are preferred over HTML parts.
func (n *Normaliser) Normalise(_ context.Context, file domain.SourceFile) (*domain.DocumentRecord, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(file.Content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", file.Path, domain.ErrUnsupportedFormat, err)
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	from := decodeHeader(msg.Header.Get("From"))
	date := msg.Header.Get("Date")

	body, err := messageBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", file.Path, err)
	}

	var text strings.Builder
	for _, h := range [][2]string{{"From", from}, {"Date", date}, {"Subject", subject}} {
		if h[1] != "" {
			fmt.Fprintf(&text, "%s: %s\n", h[0], h[1])
		}
	}
	text.WriteString("\n")
	text.WriteString(body)

	doc := &domain.DocumentRecord{
		Name:    subject,
		Type:    DocType,
		RawText: strings.TrimSpace(text.String()),
		Status:  domain.StatusPending,
	}
	if doc.Name == "" {
		doc.Name = domain.TitleFromPath(file.Path)
	}
	if t, err := mail.ParseDate(date); err == nil {
		doc.PublishDate = t.Format("2006-01-02")
	}
	return doc, nil
}

// decodeHeader decodes RFC 2047 encoded words, returning the input unchanged on failure.
func decodeHeader(header string) string {
	decoded, err := new(mime.WordDecoder).DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// transferDecoder undoes a Content-Transfer-Encoding.
func transferDecoder(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// messageBody returns the text of a single part or of a multipart tree.
func messageBody(contentType, encoding string, r io.Reader) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return multipartBody(r, params["boundary"])
	}

	data, err := io.ReadAll(transferDecoder(r, encoding))
	if err != nil {
		return "", err
	}
	if mediaType == "text/html" {
		return html.ExtractText(string(data)), nil
	}
	return strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n")), nil
}

// multipartBody collects text parts, falling back to HTML parts
// when a message has no plain text alternative. Attachments are skipped.
func multipartBody(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}

	var plain, rich []string
	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		if disposition, _, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition")); disposition == "attachment" {
			part.Close()
			continue
		}

		partType := part.Header.Get("Content-Type")
		mediaType, _, _ := mime.ParseMediaType(partType)
		if mediaType == "" {
			mediaType = "text/plain"
		}

		text, err := messageBody(partType, part.Header.Get("Content-Transfer-Encoding"), part)
		part.Close()
		if err != nil {
			return "", err
		}
		if text == "" {
			continue
		}

		if mediaType == "text/html" {
			rich = append(rich, text)
		} else if mediaType == "text/plain" || strings.HasPrefix(mediaType, "multipart/") {
			plain = append(plain, text)
		}
	}

	if len(plain) > 0 {
		return strings.Join(plain, "\n\n"), nil
	}
	return strings.Join(rich, "\n\n"), nil
}
