// Package grobid extracts the structured text of a research paper by
// calling a GROBID server and parsing its TEI XML response.
package grobid

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ezgisubasi/multimodal-research-agent/internal/domain"
)

const (
	maxAuthors    = 10
	maxSections   = 15
	maxReferences = 10

	sectionContentLimit  = 300
	referenceLengthLimit = 100
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Extraction is the text part of an analysis result.
type Extraction struct {
	Title      string
	Authors    []domain.Author
	Abstract   string
	Sections   []domain.Section
	References []string
	Keywords   []string
}

// ProcessFulltext sends the PDF to GROBID's processFulltextDocument
// endpoint and parses the TEI response.
func (c *Client) ProcessFulltext(ctx context.Context, pdf io.Reader, filename string) (*Extraction, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="input"; filename=%q`, filename))
	header.Set("Content-Type", "application/pdf")

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create multipart: %w", err)
	}
	if _, err := io.Copy(part, pdf); err != nil {
		return nil, fmt.Errorf("copy pdf: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/processFulltextDocument", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grobid request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GROBID HTTP %d", resp.StatusCode)
	}

	tei, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read grobid response: %w", err)
	}

	return ParseTEI(tei)
}

// TEI document, limited to the elements the extraction needs.
type teiDocument struct {
	Header struct {
		FileDesc struct {
			TitleStmt struct {
				Titles []teiTitle `xml:"title"`
			} `xml:"titleStmt"`
			SourceDesc struct {
				BiblStruct struct {
					Analytic struct {
						Authors []teiAuthor `xml:"author"`
					} `xml:"analytic"`
				} `xml:"biblStruct"`
			} `xml:"sourceDesc"`
		} `xml:"fileDesc"`
		ProfileDesc struct {
			Abstract struct {
				Inner string `xml:",innerxml"`
			} `xml:"abstract"`
			TextClass struct {
				Terms []string `xml:"keywords>term"`
			} `xml:"textClass"`
		} `xml:"profileDesc"`
	} `xml:"teiHeader"`
	Text struct {
		Body struct {
			Divs []teiDiv `xml:"div"`
		} `xml:"body"`
		Back struct {
			Divs []struct {
				Type     string `xml:"type,attr"`
				ListBibl struct {
					BiblStructs []teiBibl `xml:"biblStruct"`
				} `xml:"listBibl"`
			} `xml:"div"`
		} `xml:"back"`
	} `xml:"text"`
}

type teiTitle struct {
	Type  string `xml:"type,attr"`
	Inner string `xml:",innerxml"`
}

type teiAuthor struct {
	PersName *struct {
		Forenames []string `xml:"forename"`
		Surname   string   `xml:"surname"`
	} `xml:"persName"`
	Affiliation *struct {
		OrgNames []string `xml:"orgName"`
	} `xml:"affiliation"`
}

type teiDiv struct {
	Head       string   `xml:"head"`
	Paragraphs []teiRaw `xml:"p"`
}

type teiRaw struct {
	Inner string `xml:",innerxml"`
}

type teiBibl struct {
	Analytic struct {
		Authors []teiAuthor `xml:"author"`
		Title   teiTitle    `xml:"title"`
	} `xml:"analytic"`
	Monogr struct {
		Authors []teiAuthor `xml:"author"`
		Title   teiTitle    `xml:"title"`
	} `xml:"monogr"`
}

// ParseTEI converts GROBID TEI XML into an Extraction.
func ParseTEI(tei []byte) (*Extraction, error) {
	var doc teiDocument
	if err := xml.Unmarshal(tei, &doc); err != nil {
		return nil, fmt.Errorf("parse TEI: %w", err)
	}

	ext := &Extraction{
		Title:      extractTitle(doc),
		Authors:    extractAuthors(doc.Header.FileDesc.SourceDesc.BiblStruct.Analytic.Authors),
		Abstract:   extractAbstract(doc.Header.ProfileDesc.Abstract.Inner),
		Sections:   extractSections(doc.Text.Body.Divs),
		References: extractReferences(doc),
		Keywords:   extractKeywords(doc.Header.ProfileDesc.TextClass.Terms),
	}

	return ext, nil
}

func extractTitle(doc teiDocument) string {
	titles := doc.Header.FileDesc.TitleStmt.Titles

	for _, t := range titles {
		if t.Type == "main" {
			if v := flattenXML(t.Inner); v != "" {
				return v
			}
		}
	}
	for _, t := range titles {
		if v := flattenXML(t.Inner); v != "" {
			return v
		}
	}
	return "Title not found"
}

func extractAuthors(raw []teiAuthor) []domain.Author {
	authors := make([]domain.Author, 0, maxAuthors)

	for _, a := range raw {
		if len(authors) == maxAuthors {
			break
		}
		if a.PersName == nil {
			continue
		}

		surname := strings.TrimSpace(a.PersName.Surname)
		if surname == "" {
			continue
		}

		name := surname
		if len(a.PersName.Forenames) > 0 {
			if first := strings.TrimSpace(a.PersName.Forenames[0]); first != "" {
				name = first + " " + surname
			}
		}

		affiliation := "Unknown"
		if a.Affiliation != nil && len(a.Affiliation.OrgNames) > 0 {
			if org := strings.TrimSpace(a.Affiliation.OrgNames[0]); org != "" {
				affiliation = org
			}
		}

		authors = append(authors, domain.Author{Name: name, Affiliation: affiliation})
	}

	return authors
}

func extractAbstract(inner string) string {
	text := flattenXML(inner)
	if text == "" {
		return "Abstract not found"
	}
	if len(text) >= 8 && strings.EqualFold(text[:8], "abstract") {
		text = strings.TrimSpace(text[8:])
	}
	return text
}

func extractSections(divs []teiDiv) []domain.Section {
	sections := make([]domain.Section, 0, maxSections)

	for _, div := range divs {
		if len(sections) == maxSections {
			break
		}

		title := strings.TrimSpace(div.Head)
		if title == "" {
			continue
		}

		// Only the first two paragraphs; full text lives in the PDF.
		paragraphs := div.Paragraphs
		if len(paragraphs) > 2 {
			paragraphs = paragraphs[:2]
		}

		parts := make([]string, 0, len(paragraphs))
		for _, p := range paragraphs {
			if text := flattenXML(p.Inner); text != "" {
				parts = append(parts, text)
			}
		}

		sections = append(sections, domain.Section{
			Title:   title,
			Content: truncate(strings.Join(parts, " "), sectionContentLimit),
		})
	}

	return sections
}

func extractReferences(doc teiDocument) []string {
	references := make([]string, 0, maxReferences)

	for _, div := range doc.Text.Back.Divs {
		if div.Type != "references" {
			continue
		}
		for _, bibl := range div.ListBibl.BiblStructs {
			if len(references) == maxReferences {
				return references
			}
			if ref := formatReference(bibl); ref != "" {
				references = append(references, ref)
			}
		}
	}

	return references
}

func formatReference(bibl teiBibl) string {
	authors := bibl.Analytic.Authors
	if len(authors) == 0 {
		authors = bibl.Monogr.Authors
	}

	var parts []string

	var names []string
	for _, a := range authors {
		if len(names) == 2 {
			break
		}
		if a.PersName != nil {
			if surname := strings.TrimSpace(a.PersName.Surname); surname != "" {
				names = append(names, surname)
			}
		}
	}
	if len(names) > 0 {
		parts = append(parts, strings.Join(names, ", "))
	}

	title := flattenXML(bibl.Analytic.Title.Inner)
	if title == "" {
		title = flattenXML(bibl.Monogr.Title.Inner)
	}
	if title != "" {
		parts = append(parts, fmt.Sprintf("%q", title))
	}

	return truncate(strings.Join(parts, ". "), referenceLengthLimit)
}

func extractKeywords(terms []string) []string {
	keywords := make([]string, 0, len(terms))
	for _, term := range terms {
		if kw := strings.TrimSpace(term); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// flattenXML strips markup and returns the concatenated character data.
// TEI paragraphs embed <ref> and formatting elements inside the text.
func flattenXML(raw string) string {
	if raw == "" {
		return ""
	}

	dec := xml.NewDecoder(strings.NewReader("<r>" + raw + "</r>"))
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			b.Write(cd)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// truncate limits s to at most limit runes. Slicing bytes could split a
// multi-byte rune and emit invalid UTF-8.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
