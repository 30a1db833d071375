// =============================================================================
// extract_pdf.go - Paper (PDF) content extractor
// =============================================================================
//
// Paper sources link to arXiv abstract pages. The extractor rewrites the
// link to the PDF, downloads it, decodes every page with ledongthuc/pdf and
// cleans the text of PDF artifacts (control characters, math alphanumerics,
// ligatures, hyphenated line breaks, hard-wrapped lines).
//
// Two output modes (pdf.mode):
//
//	full      entire text between a banner and a closing marker (default)
//	sections  labeled digest: title, abstract, introduction, methods,
//	          results and a preview of the body
//
// =============================================================================
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"ai-relay/internal/logger"
)

// maxPDFBytes bounds a downloaded paper.
const maxPDFBytes = 64 << 20

// PaperExtractor downloads and decodes paper PDFs. It is safe for concurrent
// use.
type PaperExtractor struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	mode      string
	maxPages  int
	log       logger.Logger
}

// NewPaperExtractor builds an extractor over the run's shared client.
func NewPaperExtractor(client *http.Client, cfg Config, log logger.Logger) *PaperExtractor {
	return &PaperExtractor{
		client:    client,
		userAgent: cfg.HTTP.PaperUserAgent,
		timeout:   cfg.HTTP.PaperTimeout,
		mode:      cfg.PDF.Mode,
		maxPages:  cfg.PDF.MaxPages,
		log:       log,
	}
}

// PaperPDFURL maps an abstract-page URL to its PDF URL:
//
//	https://arxiv.org/abs/2401.00001 -> https://arxiv.org/pdf/2401.00001.pdf
func PaperPDFURL(absURL string) string {
	u := strings.Replace(absURL, "/abs/", "/pdf/", 1)
	if !strings.HasSuffix(u, ".pdf") {
		u += ".pdf"
	}
	return u
}

// ExtractPaper downloads the PDF behind absURL and returns its formatted text.
// ok is false on any download or decode failure.
func (p *PaperExtractor) ExtractPaper(ctx context.Context, absURL string) (string, bool) {
	pdfURL := PaperPDFURL(absURL)
	log := p.log.With(logger.String("url", pdfURL))

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := httpGet(ctx, p.client, pdfURL, p.userAgent)
	if err != nil {
		log.Warn("pdf download failed", logger.Err(err))
		return "", false
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes))
	if err != nil {
		log.Warn("pdf read failed", logger.Err(err))
		return "", false
	}

	pages, total, err := decodePDF(data, p.maxPages)
	if err != nil {
		log.Warn("pdf decode failed", logger.Err(err))
		return "", false
	}
	extracted := total
	if p.maxPages > 0 && p.maxPages < total {
		extracted = p.maxPages
	}

	text := CleanPaperText(strings.Join(pages, "\n\n"))
	if text == "" {
		log.Warn("pdf has no extractable text", logger.Int("pages", total))
		return "", false
	}

	var out string
	if p.mode == PDFModeSections {
		out = formatPaperSections(ExtractPaperSections(text), total, extracted)
	} else {
		out = formatFullPaper(text, total, extracted)
	}
	log.Debug("pdf extracted", logger.Int("pages", extracted), logger.Int("chars", runeLen(text)))
	return out, true
}

// decodePDF returns the plain text of the first maxPages pages (all pages
// when maxPages is 0) and the document's page count. The decoder panics on
// some malformed inputs; those panics come back as errors.
func decodePDF(data []byte, maxPages int) (pages []string, total int, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, total, err = nil, 0, fmt.Errorf("pdf decoder panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, fmt.Errorf("parse pdf: %w", err)
	}

	total = reader.NumPage()
	n := total
	if maxPages > 0 && maxPages < n {
		n = maxPages
	}
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, perr := page.GetPlainText(nil)
		if perr != nil || strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, text)
	}
	return pages, total, nil
}

// -----------------------------------------------------------------------------
// Text cleanup
// -----------------------------------------------------------------------------

var (
	rePDFControl    = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f-\x9f]`)
	rePDFHyphen     = regexp.MustCompile(`([\p{L}\p{N}_])-[ \t]*\n[ \t]*([\p{L}\p{N}_])`)
	rePDFHorizontal = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	rePDFParagraph  = regexp.MustCompile(`\n{2,}`)
)

// CleanPaperText repairs text decoded from a PDF:
//
//   - control characters and invalid UTF-8 are dropped
//   - NFKC folds math alphanumerics (U+1D400 block) to ASCII and splits ligatures
//   - words hyphenated across a line break are rejoined ("exam-\nple" -> "example")
//   - single line breaks become spaces; blank lines separate paragraphs
func CleanPaperText(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = rePDFControl.ReplaceAllString(text, "")
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = rePDFHyphen.ReplaceAllString(text, "${1}${2}")
	text = rePDFHorizontal.ReplaceAllString(text, " ")
	text = reSpaceAroundNL.ReplaceAllString(text, "\n")

	var paras []string
	for _, p := range rePDFParagraph.Split(text, -1) {
		p = strings.TrimSpace(strings.ReplaceAll(p, "\n", " "))
		if p != "" {
			paras = append(paras, p)
		}
	}
	return strings.Join(paras, "\n\n")
}

// -----------------------------------------------------------------------------
// Sections
// -----------------------------------------------------------------------------

// PaperSections is a best-effort split of a paper into its usual parts.
// Any field may be empty.
type PaperSections struct {
	Title        string
	Abstract     string
	Introduction string
	Methods      string
	Results      string
	Preview      string
}

var (
	reSectionTitle    = regexp.MustCompile(`(?s)^(.+?)(?:\n|Abstract)`)
	reSectionAbstract = regexp.MustCompile(`(?is)Abstract[:\s]*(.+?)(?:1\.|Introduction|Keywords|CCS Concepts|$)`)
	reSectionIntro    = regexp.MustCompile(`(?is)(?:1\.|1\s+)?Introduction[:\s]*(.+?)(?:2\.|Related Work|Background|Method|Approach|$)`)
	reSectionMethods  = regexp.MustCompile(`(?is)(?:Method|Approach|Methodology|Proposed Method|Our Approach)[:\s]*(.+?)(?:Experiment|Result|Evaluation|$)`)
	reSectionResults  = regexp.MustCompile(`(?is)(?:Result|Experiment|Evaluation)s?[:\s]*(.+?)(?:Discussion|Conclusion|Related Work|$)`)
)

// Section length limits, in runes.
const (
	maxTitleLen     = 300
	maxAbstractLen  = 1500
	maxSectionLen   = 2000
	previewStart    = 2000
	previewEnd      = 8000
	previewMinText  = 5000
	previewShownLen = 3000
)

// ExtractPaperSections locates the main sections of cleaned paper text.
func ExtractPaperSections(text string) PaperSections {
	var s PaperSections
	s.Title = truncateRunes(firstGroup(reSectionTitle, text), maxTitleLen)
	s.Abstract = truncateRunes(firstGroup(reSectionAbstract, text), maxAbstractLen)
	s.Introduction = truncateRunes(firstGroup(reSectionIntro, text), maxSectionLen)
	s.Methods = truncateRunes(firstGroup(reSectionMethods, text), maxSectionLen)
	s.Results = truncateRunes(firstGroup(reSectionResults, text), maxSectionLen)

	if runes := []rune(text); len(runes) > previewMinText {
		end := previewEnd
		if end > len(runes) {
			end = len(runes)
		}
		s.Preview = string(runes[previewStart:end])
	}
	return s
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// -----------------------------------------------------------------------------
// Formatting
// -----------------------------------------------------------------------------

func formatFullPaper(text string, total, extracted int) string {
	rule := strings.Repeat("=", 80)
	parts := []string{
		"ARXIV PAPER - FULL TEXT",
		fmt.Sprintf("Pages extracted: %d of %d", extracted, total),
		fmt.Sprintf("Characters: %d", runeLen(text)),
		rule,
		"",
		text,
		"",
		rule,
		"END OF PAPER - FULL TEXT EXTRACTED",
	}
	return strings.Join(parts, "\n")
}

func formatPaperSections(s PaperSections, total, extracted int) string {
	rule := strings.Repeat("-", 40)
	parts := []string{
		"ARXIV PAPER - SECTION DIGEST",
		fmt.Sprintf("Pages extracted: %d of %d", extracted, total),
		rule,
	}

	add := func(label, body string) {
		if body != "" {
			parts = append(parts, "\n"+label+":", body)
		}
	}
	add("TITLE", s.Title)
	add("ABSTRACT", s.Abstract)
	add("INTRODUCTION", s.Introduction)
	add("METHODOLOGY", s.Methods)
	add("RESULTS", s.Results)
	add("ADDITIONAL CONTENT", truncateRunes(s.Preview, previewShownLen))

	parts = append(parts,
		"\n"+rule,
		"Note: digest of the paper's main sections.",
		"The complete paper is available at the PDF link above.",
	)
	return strings.Join(parts, "\n")
}
