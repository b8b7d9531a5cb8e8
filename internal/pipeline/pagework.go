package pipeline

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/rpgvault/ingest/internal/aiprovider"
	"github.com/rpgvault/ingest/internal/confidence"
	"github.com/rpgvault/ingest/internal/enhancer"
	"github.com/rpgvault/ingest/internal/ingesterr"
	"github.com/rpgvault/ingest/internal/model"
	"github.com/rpgvault/ingest/internal/pdfdoc"
)

// pageRecord accumulates one page's state across the extracting,
// enhancing, and categorizing stages.
type pageRecord struct {
	page           int
	rawText        string
	ocrUsed        bool
	ocrConfidence  float64
	tables         []model.Table
	ocrUnavailable bool
	pageFailed     bool

	enhancedText string
	quality      model.QualityMetrics

	category   string
	confidence float64
}

// maxPageWorkers bounds the configured worker count by the page count,
// and clamps it to 4 for documents past the large-document page
// threshold to bound memory.
func maxPageWorkers(configured, pageCount int) int {
	if configured <= 0 {
		configured = 8
	}
	if configured > pageCount && pageCount > 0 {
		configured = pageCount
	}
	if pageCount > largeDocumentPageThreshold && configured > 4 {
		configured = 4
	}
	if configured < 1 {
		configured = 1
	}
	return configured
}

const largeDocumentPageThreshold = 400

// runPagePool fans work(page) out across 1..pageCount with a bounded
// ants.Pool of size workers, honoring cancellation between dispatches,
// and backpressured by a channel of size 2*workers so a fast producer
// cannot outrun the pool on large inputs. It blocks until every page has
// been processed or cancellation is observed.
func runPagePool(ctx context.Context, sess *Session, pageCount, workers int, work func(page int)) error {
	pool, err := ants.NewPool(workers, ants.WithPreAlloc(false))
	if err != nil {
		return err
	}
	defer pool.Release()

	backlog := make(chan struct{}, 2*workers)
	var wg sync.WaitGroup

	for page := 1; page <= pageCount; page++ {
		if sess.IsCancelRequested() || ctx.Err() != nil {
			break
		}
		page := page
		backlog <- struct{}{}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			defer func() { <-backlog }()
			if sess.IsCancelRequested() || ctx.Err() != nil {
				return
			}
			work(page)
		})
		if submitErr != nil {
			wg.Done()
			<-backlog
		}
	}
	wg.Wait()
	return nil
}

// extractPages pulls page text and tables for every page in parallel,
// recording per-page OCR-unavailable/page-failed degradation rather than
// failing the whole run.
func extractPages(ctx context.Context, sess *Session, h *pdfdoc.Handle, pageCount, workers int) []*pageRecord {
	records := make([]*pageRecord, pageCount)
	for i := range records {
		records[i] = &pageRecord{page: i + 1}
	}

	var done atomic.Int64
	runPagePool(ctx, sess, pageCount, workers, func(page int) {
		rec := records[page-1]
		text, ocrUsed, ocrConf, err := h.PageText(page)
		if err != nil {
			if ingesterr.KindOf(err) == ingesterr.KindOCRUnavailable {
				rec.ocrUnavailable = true
			} else {
				rec.pageFailed = true
			}
		} else {
			rec.rawText = text
			rec.ocrUsed = ocrUsed
			rec.ocrConfidence = ocrConf

			tables, terr := h.PageTables(page)
			if terr == nil {
				rec.tables = tables
			}
		}
		n := done.Add(1)
		sess.transition(StageExtracting, percentOf(int(n), pageCount), "")
	})

	return records
}

// enhancePages runs the text enhancer over every page's raw text in
// parallel. A panic inside Enhance is recovered and the raw text is
// emitted unchanged.
func enhancePages(ctx context.Context, sess *Session, e *enhancer.Enhancer, mode enhancer.Mode, records []*pageRecord, workers int) {
	var done atomic.Int64
	total := len(records)
	runPagePool(ctx, sess, total, workers, func(page int) {
		rec := records[page-1]
		if !rec.pageFailed {
			func() {
				defer func() {
					if r := recover(); r != nil {
						rec.enhancedText = rec.rawText
					}
				}()
				text, metrics := e.Enhance(rec.rawText, mode)
				rec.enhancedText = text
				rec.quality = metrics
			}()
		}
		n := done.Add(1)
		sess.transition(StageEnhancing, percentOf(int(n), total), "")
	})
}

// categorizePages runs provider categorization over every page in
// parallel, degrading to Uncategorized at confidence 0 on any AI failure
// rather than failing the run.
func categorizePages(ctx context.Context, sess *Session, cat aiprovider.Provider, categories []string, opts aiprovider.Options, records []*pageRecord, workers int) {
	var done atomic.Int64
	total := len(records)
	runPagePool(ctx, sess, total, workers, func(page int) {
		rec := records[page-1]
		if rec.pageFailed {
			n := done.Add(1)
			sess.transition(StageCategorizing, percentOf(int(n), total), "")
			return
		}
		text := rec.enhancedText
		switch {
		case strings.TrimSpace(text) == "":
			rec.category = "Uncategorized"
		default:
			result, err := cat.Categorize(ctx, text, categories, opts)
			if err != nil {
				rec.category = "Uncategorized"
				rec.confidence = 0
			} else {
				rec.category = result.Category
				rec.confidence = result.Confidence
			}
		}
		n := done.Add(1)
		sess.transition(StageCategorizing, percentOf(int(n), total), "")
	})
}

// buildConfidenceSignals turns per-page records into the scorer's PageSignal
// inputs.
func buildConfidenceSignals(records []*pageRecord, coverage func(text string) float64) []confidence.PageSignal {
	signals := make([]confidence.PageSignal, 0, len(records))
	for _, r := range records {
		lines := strings.Count(r.enhancedText, "\n") + 1
		breaks := strings.Count(r.enhancedText, "\n\n")
		signals = append(signals, confidence.PageSignal{
			ExtractionSucceeded:      !r.pageFailed,
			DictionaryCoverage:       coverage(r.enhancedText),
			HeadingOrParagraphBreaks: breaks,
			LineCount:                lines,
			OCRUsed:                  r.ocrUsed,
			OCRConfidence:            r.ocrConfidence,
			Tables:                   r.tables,
		})
	}
	return signals
}

// aggregateQuality folds per-page enhancer metrics into one
// document-level record: scores average across pages that produced text,
// correction counts sum, and the grade is recomputed from the averaged
// after-score.
func aggregateQuality(records []*pageRecord) model.QualityMetrics {
	var agg model.QualityMetrics
	scored := 0
	for _, r := range records {
		if r.pageFailed || r.enhancedText == "" {
			continue
		}
		agg.BeforeScore += r.quality.BeforeScore
		agg.AfterScore += r.quality.AfterScore
		agg.RunOnSplits += r.quality.RunOnSplits
		agg.MissingSpaces += r.quality.MissingSpaces
		agg.OCRSubstitutions += r.quality.OCRSubstitutions
		agg.SpellCorrections += r.quality.SpellCorrections
		scored++
	}
	if scored > 0 {
		agg.BeforeScore /= float64(scored)
		agg.AfterScore /= float64(scored)
	}
	agg.Grade = enhancer.Grade(agg.AfterScore)
	return agg
}

func percentOf(done, total int) int {
	if total <= 0 {
		return 100
	}
	pct := done * 100 / total
	if pct > 100 {
		pct = 100
	}
	return pct
}
