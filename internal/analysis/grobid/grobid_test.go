package grobid

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTEI = `<?xml version="1.0" encoding="UTF-8"?>
<TEI xmlns="http://www.tei-c.org/ns/1.0">
  <teiHeader>
    <fileDesc>
      <titleStmt>
        <title level="a" type="main">Attention Is All You Need</title>
      </titleStmt>
      <sourceDesc>
        <biblStruct>
          <analytic>
            <author>
              <persName><forename type="first">Ashish</forename><surname>Vaswani</surname></persName>
              <affiliation><orgName type="institution">Google Brain</orgName></affiliation>
            </author>
            <author>
              <persName><forename type="first">Noam</forename><surname>Shazeer</surname></persName>
            </author>
            <author>
              <affiliation><orgName>Orphan Affiliation</orgName></affiliation>
            </author>
          </analytic>
        </biblStruct>
      </sourceDesc>
    </fileDesc>
    <profileDesc>
      <abstract>
        <p>The dominant sequence transduction models are based on complex
        recurrent or convolutional neural networks.</p>
      </abstract>
      <textClass>
        <keywords>
          <term>attention</term>
          <term>  transformers </term>
          <term></term>
        </keywords>
      </textClass>
    </profileDesc>
  </teiHeader>
  <text>
    <body>
      <div><head>Introduction</head>
        <p>Recurrent neural networks have been established as state of the art.</p>
        <p>Attention mechanisms allow modeling of <ref type="bibr">dependencies</ref> without regard to distance.</p>
        <p>This third paragraph must not appear in the section content.</p>
      </div>
      <div><p>Div without a head is skipped.</p></div>
      <div><head>Model Architecture</head>
        <p>Most competitive neural sequence transduction models have an encoder-decoder structure.</p>
      </div>
    </body>
    <back>
      <div type="references">
        <listBibl>
          <biblStruct>
            <analytic>
              <author><persName><forename>Dzmitry</forename><surname>Bahdanau</surname></persName></author>
              <author><persName><surname>Cho</surname></persName></author>
              <author><persName><surname>Bengio</surname></persName></author>
              <title level="a" type="main">Neural machine translation by jointly learning to align and translate</title>
            </analytic>
          </biblStruct>
          <biblStruct>
            <monogr>
              <title level="m">Deep Learning</title>
              <author><persName><surname>Goodfellow</surname></persName></author>
            </monogr>
          </biblStruct>
        </listBibl>
      </div>
      <div type="annex"><listBibl><biblStruct/></listBibl></div>
    </back>
  </text>
</TEI>`

func TestParseTEI_FullDocument(t *testing.T) {
	ext, err := ParseTEI([]byte(sampleTEI))
	require.NoError(t, err)

	assert.Equal(t, "Attention Is All You Need", ext.Title)

	require.Len(t, ext.Authors, 2, "author without a surname is dropped")
	assert.Equal(t, "Ashish Vaswani", ext.Authors[0].Name)
	assert.Equal(t, "Google Brain", ext.Authors[0].Affiliation)
	assert.Equal(t, "Noam Shazeer", ext.Authors[1].Name)
	assert.Equal(t, "Unknown", ext.Authors[1].Affiliation)

	assert.True(t, strings.HasPrefix(ext.Abstract, "The dominant sequence transduction models"))

	require.Len(t, ext.Sections, 2, "headless div is skipped")
	assert.Equal(t, "Introduction", ext.Sections[0].Title)
	assert.Contains(t, ext.Sections[0].Content, "dependencies", "nested markup is flattened")
	assert.NotContains(t, ext.Sections[0].Content, "third paragraph", "only the first two paragraphs are kept")
	assert.Equal(t, "Model Architecture", ext.Sections[1].Title)

	require.Len(t, ext.References, 2)
	assert.Equal(t, `Bahdanau, Cho. "Neural machine translation by jointly learning to align and translate"`, ext.References[0])
	assert.Equal(t, `Goodfellow. "Deep Learning"`, ext.References[1])

	assert.Equal(t, []string{"attention", "transformers"}, ext.Keywords)
}

func TestParseTEI_Fallbacks(t *testing.T) {
	ext, err := ParseTEI([]byte(`<TEI><teiHeader/><text/></TEI>`))
	require.NoError(t, err)

	assert.Equal(t, "Title not found", ext.Title)
	assert.Equal(t, "Abstract not found", ext.Abstract)
	assert.Empty(t, ext.Authors)
	assert.Empty(t, ext.Sections)
	assert.Empty(t, ext.References)
}

func TestParseTEI_AbstractLabelStripped(t *testing.T) {
	tei := `<TEI><teiHeader><profileDesc><abstract><p>Abstract We present a method.</p></abstract></profileDesc></teiHeader></TEI>`

	ext, err := ParseTEI([]byte(tei))
	require.NoError(t, err)

	assert.Equal(t, "We present a method.", ext.Abstract)
}

func TestParseTEI_AuthorLimit(t *testing.T) {
	var authors strings.Builder
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&authors, `<author><persName><surname>Author%d</surname></persName></author>`, i)
	}
	tei := `<TEI><teiHeader><fileDesc><sourceDesc><biblStruct><analytic>` +
		authors.String() +
		`</analytic></biblStruct></sourceDesc></fileDesc></teiHeader></TEI>`

	ext, err := ParseTEI([]byte(tei))
	require.NoError(t, err)

	assert.Len(t, ext.Authors, 10)
}

func TestParseTEI_SectionContentTruncated(t *testing.T) {
	long := strings.Repeat("word ", 100)
	tei := `<TEI><text><body><div><head>Long</head><p>` + long + `</p></div></body></text></TEI>`

	ext, err := ParseTEI([]byte(tei))
	require.NoError(t, err)

	require.Len(t, ext.Sections, 1)
	assert.Len(t, ext.Sections[0].Content, 303, "300 chars plus ellipsis")
	assert.True(t, strings.HasSuffix(ext.Sections[0].Content, "..."))
}

func TestTruncate_CountsRunesNotBytes(t *testing.T) {
	short := "a" + strings.Repeat("é", 200)
	assert.Equal(t, short, truncate(short, 300), "201 runes fit a 300-rune limit")

	long := strings.Repeat("é", 400)
	got := truncate(long, 300)
	assert.True(t, utf8.ValidString(got), "truncation must not split a rune")
	assert.Equal(t, 303, utf8.RuneCountInString(got), "300 runes plus ellipsis")
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestParseTEI_Invalid(t *testing.T) {
	_, err := ParseTEI([]byte("not xml at all <"))
	assert.Error(t, err)
}

func TestProcessFulltext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/processFulltextDocument", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("input")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "paper.pdf", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(sampleTEI))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	ext, err := c.ProcessFulltext(context.Background(), strings.NewReader("%PDF-1.4"), "paper.pdf")

	require.NoError(t, err)
	assert.Equal(t, "Attention Is All You Need", ext.Title)
}

func TestProcessFulltext_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.ProcessFulltext(context.Background(), strings.NewReader("%PDF-1.4"), "paper.pdf")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "GROBID HTTP 500")
}

func TestFlattenXML(t *testing.T) {
	assert.Equal(t, "", flattenXML(""))
	assert.Equal(t, "a b c", flattenXML("a <hi>b</hi>\n  c"))
	assert.Equal(t, "plain text", flattenXML("plain text"))
}
