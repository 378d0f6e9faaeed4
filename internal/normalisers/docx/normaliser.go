// Package docx loads Word documents (Office Open XML).
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
)

// DocType is the format label of Word documents.
const DocType = "DOCX"

const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts paragraph text from the document body and the
// title and creation date from the core properties.
func (n *Normaliser) Normalise(_ context.Context, file domain.SourceFile) (*domain.DocumentRecord, error) {
	reader, err := zip.NewReader(bytes.NewReader(file.Content), int64(len(file.Content)))
	if err != nil {
		return nil, fmt.Errorf("%s: not a zip archive: %w", file.Path, domain.ErrUnsupportedFormat)
	}

	body, err := readPart(reader, documentPart)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file.Path, err)
	}
	text, err := bodyText(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", file.Path, domain.ErrUnsupportedFormat, err)
	}

	doc := &domain.DocumentRecord{
		Name:    domain.TitleFromPath(file.Path),
		Type:    DocType,
		RawText: text,
		Status:  domain.StatusPending,
	}

	// Core properties are optional.
	if core, err := readPart(reader, corePart); err == nil {
		var props coreProperties
		if xml.Unmarshal(core, &props) == nil {
			if title := strings.TrimSpace(props.Title); title != "" {
				doc.Name = title
			}
			if date, _, _ := strings.Cut(strings.TrimSpace(props.Created), "T"); date != "" {
				doc.PublishDate = date
			}
		}
	}

	return doc, nil
}

// coreProperties is the subset of docProps/core.xml in use.
type coreProperties struct {
	Title   string `xml:"title"`
	Created string `xml:"created"`
}

func readPart(reader *zip.Reader, name string) ([]byte, error) {
	f, err := reader.Open(name)
	if err != nil {
		return nil, fmt.Errorf("missing %s: %w", name, domain.ErrUnsupportedFormat)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// bodyText walks the document XML and returns one line per paragraph.
// Tabs and breaks inside runs are preserved; empty paragraphs are dropped.
func bodyText(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		lines  []string
		line   strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				line.WriteByte('\t')
			case "br", "cr":
				line.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(line.String()); s != "" {
					lines = append(lines, s)
				}
				line.Reset()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
