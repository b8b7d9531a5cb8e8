// Package confidence blends four page-level signals into one overall
// document confidence and letter grade. The letter-grade mapping is
// shared with the text enhancer's quality scoring (enhancer.Grade).
package confidence

import (
	"github.com/rpgvault/ingest/internal/enhancer"
	"github.com/rpgvault/ingest/internal/model"
)

// Sub-score weights for the overall blend.
const (
	textWeight   = 0.4
	layoutWeight = 0.3
	ocrWeight    = 0.2
	tableWeight  = 0.1
)

// PageSignal is one page's raw inputs to the scorer.
type PageSignal struct {
	// ExtractionSucceeded reports whether PageText returned non-empty text.
	ExtractionSucceeded bool
	// DictionaryCoverage is the fraction of tokens found in the enhancer's
	// dictionary on this page, in [0,1].
	DictionaryCoverage float64
	// HeadingOrParagraphBreaks counts layout markers (blank lines, heading
	// lines) detected on this page.
	HeadingOrParagraphBreaks int
	// LineCount is the total line count for this page, used to normalize
	// HeadingOrParagraphBreaks into a density.
	LineCount int
	// OCRUsed reports whether this page fell back to OCR.
	OCRUsed bool
	// OCRConfidence is the OCR engine's own confidence in [0,1], meaningful
	// only when OCRUsed is true.
	OCRConfidence float64
	// Tables are the detected table regions on this page.
	Tables []model.Table
}

// expectedLayoutDensity is the heading/paragraph-break density (breaks per
// line) typical of well-segmented source material; pages at or above this
// density score full layout marks.
const expectedLayoutDensity = 0.08

// Score blends per-page signals into a document-level ConfidenceRecord.
// An empty pages slice yields a zero record with grade "F".
func Score(pages []PageSignal) model.ConfidenceRecord {
	if len(pages) == 0 {
		return model.ConfidenceRecord{Grade: enhancer.Grade(0)}
	}

	text := textConfidence(pages)
	layout := layoutConfidence(pages)
	ocr := ocrConfidence(pages)
	table := tableConfidence(pages)

	overall100 := (text*textWeight + layout*layoutWeight + ocr*ocrWeight + table*tableWeight) * 100

	return model.ConfidenceRecord{
		TextConfidence:   text,
		LayoutConfidence: layout,
		OCRConfidence:    ocr,
		TableConfidence:  table,
		Overall:          overall100 / 100,
		Grade:            enhancer.Grade(overall100),
	}
}

// textConfidence blends extraction success rate with average dictionary
// coverage, equally weighted.
func textConfidence(pages []PageSignal) float64 {
	var succeeded, coverage float64
	for _, p := range pages {
		if p.ExtractionSucceeded {
			succeeded++
		}
		coverage += p.DictionaryCoverage
	}
	n := float64(len(pages))
	return clamp((succeeded/n)*0.5 + (coverage/n)*0.5)
}

// layoutConfidence scores how close each page's heading/paragraph density
// comes to the expected density, capped at 1.0 per page.
func layoutConfidence(pages []PageSignal) float64 {
	var sum float64
	for _, p := range pages {
		if p.LineCount == 0 {
			continue
		}
		density := float64(p.HeadingOrParagraphBreaks) / float64(p.LineCount)
		score := density / expectedLayoutDensity
		if score > 1 {
			score = 1
		}
		sum += score
	}
	return clamp(sum / float64(len(pages)))
}

// ocrConfidence averages OCR engine confidence across OCR'd pages only;
// pages using native text extraction do not enter the average, and a
// document with no OCR'd page scores full confidence (1.0).
func ocrConfidence(pages []PageSignal) float64 {
	var sum float64
	var n int
	for _, p := range pages {
		if p.OCRUsed {
			sum += p.OCRConfidence
			n++
		}
	}
	if n == 0 {
		return 1.0
	}
	return clamp(sum / float64(n))
}

// tableConfidence is the fraction of detected tables whose rows are
// rectangular (every row has the same column count as the header), a
// heuristic proxy for extraction correctness since no ground truth is
// available. Pages with no detected tables don't penalize the score.
func tableConfidence(pages []PageSignal) float64 {
	var total, rectangular int
	for _, p := range pages {
		for _, tbl := range p.Tables {
			total++
			if isRectangular(tbl) {
				rectangular++
			}
		}
	}
	if total == 0 {
		return 1.0
	}
	return clamp(float64(rectangular) / float64(total))
}

func isRectangular(t model.Table) bool {
	want := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) != want {
			return false
		}
	}
	return true
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
