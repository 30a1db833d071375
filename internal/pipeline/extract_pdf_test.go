package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-relay/internal/logger"
)

func TestPaperPDFURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"https://arxiv.org/abs/2401.00001", "https://arxiv.org/pdf/2401.00001.pdf"},
		{"https://arxiv.org/abs/2401.00001v2", "https://arxiv.org/pdf/2401.00001v2.pdf"},
		{"https://arxiv.org/pdf/2401.00001.pdf", "https://arxiv.org/pdf/2401.00001.pdf"},
		{"https://example.org/paper", "https://example.org/paper.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PaperPDFURL(tt.in), tt.in)
	}
}

func TestCleanPaperText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"hyphenated line break", "exam-\nple", "example"},
		{"hyphen with trailing spaces", "re-  \n  search", "research"},
		{"single newlines become spaces", "one\ntwo\nthree", "one two three"},
		{"paragraph breaks kept", "first para\nwraps\n\n\n\nsecond", "first para wraps\n\nsecond"},
		{"horizontal whitespace collapsed", "a \t\t  b", "a b"},
		{"control characters removed", "a\x00b\x1fc\u0085d", "abcd"},
		{"math bold folded", "\U0001D400\U0001D401\U0001D402", "ABC"},
		{"ligature split", "\ufb01ne", "fine"},
		{"invalid utf8 dropped", "ok\xff\xfe", "ok"},
		{"inline hyphen kept", "state-of-the-art", "state-of-the-art"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CleanPaperText(tt.in))
		})
	}
}

func TestExtractPaperSections(t *testing.T) {
	t.Parallel()

	text := "Attention Is Everything\n\nAbstract: We propose a model. 1. Introduction Transformers dominate. " +
		"2. Method We stack layers. Experiments show gains. Conclusion It works."

	s := ExtractPaperSections(text)
	assert.Equal(t, "Attention Is Everything", s.Title)
	assert.Equal(t, "We propose a model.", s.Abstract)
	assert.Equal(t, "Transformers dominate.", s.Introduction)
	assert.Equal(t, "We stack layers.", s.Methods)
	assert.Empty(t, s.Preview, "short text has no preview")
}

func TestExtractPaperSectionsPreview(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 2000) + strings.Repeat("b", 6000) + strings.Repeat("c", 1000)
	s := ExtractPaperSections(text)
	assert.Equal(t, strings.Repeat("b", 6000), s.Preview)
}

func TestFormatPaper(t *testing.T) {
	t.Parallel()

	full := formatFullPaper("body text", 12, 12)
	assert.True(t, strings.HasPrefix(full, "ARXIV PAPER - FULL TEXT\nPages extracted: 12 of 12\nCharacters: 9\n"))
	assert.Contains(t, full, "\n\nbody text\n\n")
	assert.True(t, strings.HasSuffix(full, "END OF PAPER - FULL TEXT EXTRACTED"))

	digest := formatPaperSections(PaperSections{Abstract: "abs", Results: "res"}, 20, 5)
	assert.Contains(t, digest, "Pages extracted: 5 of 20")
	assert.Contains(t, digest, "\nABSTRACT:\nabs")
	assert.Contains(t, digest, "\nRESULTS:\nres")
	assert.NotContains(t, digest, "INTRODUCTION")
}

func TestExtractPaperFailures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, DefaultConfig().HTTP.PaperUserAgent, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/pdf/garbage.pdf":
			w.Write([]byte("this is not a pdf"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ex := NewPaperExtractor(srv.Client(), DefaultConfig(), logger.NewNop())

	got, ok := ex.ExtractPaper(context.Background(), srv.URL+"/abs/garbage")
	assert.False(t, ok)
	assert.Empty(t, got)

	_, ok = ex.ExtractPaper(context.Background(), srv.URL+"/abs/missing")
	assert.False(t, ok)
	assert.EqualValues(t, 2, hits.Load())
}

func TestDecodePDFRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, _, err := decodePDF([]byte("%PDF-1.4\nnot really"), 0)
	require.Error(t, err)
}

// buildTestPDF writes a minimal PDF with one Helvetica text line per page.
func buildTestPDF(pages ...string) []byte {
	var (
		buf     bytes.Buffer
		offsets []int
	)
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, text := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestDecodePDFPages(t *testing.T) {
	t.Parallel()

	doc := buildTestPDF("Alpha page one", "Beta page two", "Gamma page three")

	pages, total, err := decodePDF(doc, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, pages, 3)
	assert.Contains(t, pages[0], "Alpha page one")
	assert.Contains(t, pages[2], "Gamma page three")

	pages, total, err = decodePDF(doc, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total, "page count ignores the cap")
	assert.Len(t, pages, 2)
}

func TestExtractPaperSuccess(t *testing.T) {
	t.Parallel()

	doc := buildTestPDF("Alpha page one", "Beta page two", "Gamma page three")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pdf/2401.00001.pdf", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(doc)
	}))
	defer srv.Close()

	tests := []struct {
		name     string
		maxPages int
		banner   string
		want     []string
		missing  string
	}{
		{name: "all pages", banner: "Pages extracted: 3 of 3", want: []string{"Alpha page one", "Beta page two", "Gamma page three"}},
		{name: "capped", maxPages: 2, banner: "Pages extracted: 2 of 3", want: []string{"Alpha page one", "Beta page two"}, missing: "Gamma"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.PDF.MaxPages = tt.maxPages
			ex := NewPaperExtractor(srv.Client(), cfg, logger.NewNop())

			got, ok := ex.ExtractPaper(context.Background(), srv.URL+"/abs/2401.00001")
			require.True(t, ok)
			assert.True(t, strings.HasPrefix(got, "ARXIV PAPER - FULL TEXT\n"))
			assert.Contains(t, got, tt.banner)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
			if tt.missing != "" {
				assert.NotContains(t, got, tt.missing)
			}
		})
	}
}
