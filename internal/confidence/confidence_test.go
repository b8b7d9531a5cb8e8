package confidence

import (
	"testing"

	"github.com/rpgvault/ingest/internal/model"
)

func TestScoreEmptyPagesYieldsZeroGradeF(t *testing.T) {
	rec := Score(nil)
	if rec.Grade != "F" {
		t.Fatalf("expected grade F for empty input, got %s", rec.Grade)
	}
}

func TestScoreCleanNativeTextYieldsHighGrade(t *testing.T) {
	pages := []PageSignal{
		{ExtractionSucceeded: true, DictionaryCoverage: 0.98, HeadingOrParagraphBreaks: 4, LineCount: 40, OCRUsed: false},
		{ExtractionSucceeded: true, DictionaryCoverage: 0.97, HeadingOrParagraphBreaks: 3, LineCount: 35, OCRUsed: false},
	}
	rec := Score(pages)
	if rec.Grade != "A" && rec.Grade != "B" {
		t.Fatalf("expected high grade for clean native-text pages, got %s (overall %f)", rec.Grade, rec.Overall)
	}
}

func TestScorePoorOCRYieldsLowerGrade(t *testing.T) {
	clean := Score([]PageSignal{
		{ExtractionSucceeded: true, DictionaryCoverage: 0.98, HeadingOrParagraphBreaks: 4, LineCount: 40},
	})
	noisy := Score([]PageSignal{
		{ExtractionSucceeded: true, DictionaryCoverage: 0.4, HeadingOrParagraphBreaks: 0, LineCount: 40, OCRUsed: true, OCRConfidence: 0.3},
	})
	if noisy.Overall >= clean.Overall {
		t.Fatalf("expected noisy OCR page to score lower, got noisy=%f clean=%f", noisy.Overall, clean.Overall)
	}
}

func TestTableConfidenceNoTablesIsFullScore(t *testing.T) {
	pages := []PageSignal{{ExtractionSucceeded: true, LineCount: 10}}
	if got := tableConfidence(pages); got != 1.0 {
		t.Fatalf("expected 1.0 for no tables, got %f", got)
	}
}

func TestTableConfidencePenalizesRaggedRows(t *testing.T) {
	pages := []PageSignal{
		{
			Tables: []model.Table{
				{Headers: []string{"a", "b"}, Rows: [][]string{{"1", "2"}, {"1"}}},
			},
		},
	}
	if got := tableConfidence(pages); got != 0 {
		t.Fatalf("expected 0 for a fully ragged table, got %f", got)
	}
}

func TestIsRectangularTrueForMatchingRows(t *testing.T) {
	tbl := model.Table{Headers: []string{"a", "b"}, Rows: [][]string{{"1", "2"}, {"3", "4"}}}
	if !isRectangular(tbl) {
		t.Fatal("expected rectangular table to report true")
	}
}
