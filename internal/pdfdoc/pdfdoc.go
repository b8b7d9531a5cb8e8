// Package pdfdoc opens a PDF document and exposes per-page text,
// metadata, table regions, and a raster fallback for OCR. pdfcpu handles
// validation and page counting; pages with no native text are rendered
// with pdftoppm and read with gosseract.
package pdfdoc

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/rpgvault/ingest/internal/ingesterr"
	"github.com/rpgvault/ingest/internal/model"
)

// Metadata is the document-level info block. Missing fields are empty
// strings, never errors.
type Metadata struct {
	Title     string
	Author    string
	Subject   string
	Keywords  string
	PageCount int
}

// Handle is an opened PDF document backed by a temp file on disk, since
// pdfcpu and pdftoppm both want a file path rather than an in-memory
// buffer.
type Handle struct {
	path      string
	pageCount int
	meta      Metadata
}

const defaultFirstNCharCeiling = 5000

// Open validates and opens a PDF blob.
func Open(data []byte) (*Handle, error) {
	if len(data) == 0 {
		return nil, ingesterr.New(ingesterr.KindPDFEmpty, "pdfdoc.open", "zero-length upload", nil)
	}

	f, err := os.CreateTemp("", "rpgvault-upload-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("pdfdoc: create temp file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("pdfdoc: write temp file: %w", err)
	}
	f.Close()

	if err := api.ValidateFile(path, nil); err != nil {
		os.Remove(path)
		if strings.Contains(strings.ToLower(err.Error()), "encrypt") {
			return nil, ingesterr.New(ingesterr.KindPDFEncrypted, "pdfdoc.open", "password-protected PDF; decryption is not attempted", err)
		}
		return nil, ingesterr.New(ingesterr.KindPDFUnreadable, "pdfdoc.open", "structural validation failed", err)
	}

	rf, err := os.Open(path)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("pdfdoc: reopen temp file: %w", err)
	}
	pageCount, err := api.PageCount(rf, nil)
	rf.Close()
	if err != nil {
		os.Remove(path)
		return nil, ingesterr.New(ingesterr.KindPDFUnreadable, "pdfdoc.open", "could not determine page count", err)
	}
	if pageCount == 0 {
		os.Remove(path)
		return nil, ingesterr.New(ingesterr.KindPDFEmpty, "pdfdoc.open", "zero pages", nil)
	}

	meta := readMetadata(path, pageCount)

	return &Handle{path: path, pageCount: pageCount, meta: meta}, nil
}

// Close releases the backing temp file. Safe to call multiple times.
func (h *Handle) Close() error {
	if h.path == "" {
		return nil
	}
	err := os.Remove(h.path)
	h.path = ""
	return err
}

// Metadata returns the document-level info block.
func (h *Handle) Metadata() Metadata { return h.meta }

// PageCount returns the number of pages.
func (h *Handle) PageCount() int { return h.pageCount }

func readMetadata(path string, pageCount int) Metadata {
	meta := Metadata{PageCount: pageCount}
	f, err := os.Open(path)
	if err != nil {
		return meta
	}
	defer f.Close()
	info, err := api.PDFInfo(f, path, nil, false, nil)
	if err != nil || info == nil {
		return meta
	}
	meta.Title = info.Title
	meta.Author = info.Author
	meta.Subject = info.Subject
	meta.Keywords = strings.Join(info.Keywords, ", ")
	return meta
}

// PageText returns native text if present, else a rasterize+OCR
// fallback. ocrUsed reports whether OCR was used, and ocrConfidence is
// in [0,1] (0 when native text was used).
func (h *Handle) PageText(page int) (text string, ocrUsed bool, ocrConfidence float64, err error) {
	if page < 1 || page > h.pageCount {
		return "", false, 0, ingesterr.New(ingesterr.KindPageFailed, "pdfdoc.page_text", fmt.Sprintf("page %d out of range (1..%d)", page, h.pageCount), nil)
	}

	native, nerr := extractNativeText(h.path, page)
	if nerr == nil && strings.TrimSpace(native) != "" {
		return native, false, 0, nil
	}

	ocrText, confidence, oerr := ocrPage(h.path, page)
	if oerr != nil {
		return "", false, 0, ingesterr.New(ingesterr.KindOCRUnavailable, "pdfdoc.page_text", fmt.Sprintf("page %d", page), oerr)
	}
	return ocrText, true, confidence, nil
}

// PageTables returns zero or more detected table regions for a page. An
// empty list is not an error. Table detection is a whitespace-alignment
// heuristic over the extracted text, not PDF geometry parsing.
func (h *Handle) PageTables(page int) ([]model.Table, error) {
	text, _, _, err := h.PageText(page)
	if err != nil {
		return nil, err
	}
	return detectTables(text, page), nil
}

// FirstNPagesText concatenates the first n page texts, bounded to
// charCeiling (0 uses the default identification ceiling of 5,000).
// truncated reports whether the ceiling cut the result short.
func (h *Handle) FirstNPagesText(n, charCeiling int) (text string, truncated bool, err error) {
	if charCeiling <= 0 {
		charCeiling = defaultFirstNCharCeiling
	}
	if n > h.pageCount {
		n = h.pageCount
	}

	var b strings.Builder
	for page := 1; page <= n; page++ {
		pt, _, _, perr := h.PageText(page)
		if perr != nil {
			if ingesterr.IsRecoverable(ingesterr.KindOf(perr)) {
				continue
			}
			return "", false, perr
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(pt)
		if b.Len() >= charCeiling {
			break
		}
	}

	out := b.String()
	if len(out) > charCeiling {
		return out[:charCeiling], true, nil
	}
	return out, false, nil
}

// tjString matches a parenthesized string literal immediately preceding a
// Tj or TJ show-text operator in a PDF content stream.
var tjString = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj`)

// extractNativeText pulls the page's content stream via pdfcpu and scans
// it for Tj-operator string literals. This is not a full PDF text-layout
// reconstruction (no kerning/positioning is honored), but recovers linear
// reading order well enough for identification and classification.
func extractNativeText(path string, page int) (string, error) {
	tmpDir, err := os.MkdirTemp("", "rpgvault-content-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	pages := []string{fmt.Sprintf("%d", page)}
	if err := api.ExtractContentFile(path, tmpDir, pages, nil); err != nil {
		return "", err
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil || len(entries) == 0 {
		return "", fmt.Errorf("pdfdoc: no content stream extracted for page %d", page)
	}

	raw, err := os.ReadFile(filepath.Join(tmpDir, entries[0].Name()))
	if err != nil {
		return "", err
	}

	matches := tjString.FindAllSubmatch(raw, -1)
	var b strings.Builder
	for _, m := range matches {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.Write(unescapePDFString(m[1]))
	}
	return b.String(), nil
}

func unescapePDFString(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] == '\\' && i+1 < len(b) {
			i++
			switch b[i] {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, b[i])
			}
			continue
		}
		out = append(out, b[i])
	}
	return out
}

// ocrPage rasterizes one page with pdftoppm and runs Tesseract OCR via
// gosseract on the result.
func ocrPage(path string, page int) (text string, confidence float64, err error) {
	tmpDir, err := os.MkdirTemp("", "rpgvault-ocr-*")
	if err != nil {
		return "", 0, err
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")
	pageStr := fmt.Sprintf("%d", page)
	cmd := exec.Command("pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", "300",
		"-singlefile",
		path,
		outputPrefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", 0, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(out))
	}

	imgPath := outputPrefix + ".png"
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetImage(imgPath); err != nil {
		return "", 0, fmt.Errorf("gosseract: set image: %w", err)
	}
	text, err = client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("gosseract: recognize: %w", err)
	}
	conf, err := client.GetBoundingBoxesVerbose()
	confidence = averageConfidence(conf)
	if err != nil {
		confidence = 0
	}
	return text, confidence, nil
}

func averageConfidence(boxes []gosseract.BoundingBox) float64 {
	if len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return (sum / float64(len(boxes))) / 100.0
}

// numWorkersForPageRange bounds concurrent per-page rendering by the
// machine's core count.
func numWorkersForPageRange() int { return runtime.NumCPU() }

// NumWorkers exposes the default worker bound for callers sizing their own
// bounded page-processing pools.
func NumWorkers() int { return numWorkersForPageRange() }

// detectTables finds blocks of 3+ consecutive lines containing 2+
// multi-space-delimited columns and groups them into Table records.
func detectTables(text string, page int) []model.Table {
	lines := strings.Split(text, "\n")
	colSplit := regexp.MustCompile(`\s{2,}`)

	var tables []model.Table
	var block [][]string
	ordinal := 0

	flush := func() {
		if len(block) < 3 {
			block = nil
			return
		}
		headers := block[0]
		rows := block[1:]
		tables = append(tables, model.Table{
			ID:      fmt.Sprintf("p%d_t%d", page, ordinal),
			Page:    page,
			Ordinal: ordinal,
			Headers: headers,
			Rows:    rows,
		})
		ordinal++
		block = nil
	}

	for _, line := range lines {
		cols := colSplit.Split(strings.TrimSpace(line), -1)
		if len(cols) >= 2 && cols[0] != "" {
			block = append(block, cols)
			continue
		}
		flush()
	}
	flush()

	return tables
}
