package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rpgvault/ingest/internal/addresser"
	"github.com/rpgvault/ingest/internal/aiprovider"
	"github.com/rpgvault/ingest/internal/catalog"
	"github.com/rpgvault/ingest/internal/characters"
	"github.com/rpgvault/ingest/internal/confidence"
	"github.com/rpgvault/ingest/internal/dedup"
	"github.com/rpgvault/ingest/internal/docstore"
	"github.com/rpgvault/ingest/internal/enhancer"
	"github.com/rpgvault/ingest/internal/identifier"
	"github.com/rpgvault/ingest/internal/ingesterr"
	"github.com/rpgvault/ingest/internal/isbn"
	"github.com/rpgvault/ingest/internal/model"
	"github.com/rpgvault/ingest/internal/pdfdoc"
	"github.com/rpgvault/ingest/internal/vectorstore"
)

// Orchestrator wires the catalog, providers, stores, and registry
// together and drives each session through the pipeline. One
// Orchestrator serves every session; sessions are independent except for
// the per-ISBN serialization the dedup registry itself provides.
type Orchestrator struct {
	Catalog     *catalog.Catalog
	Providers   *aiprovider.Registry
	Enhancer    *enhancer.Enhancer
	Dedup       *dedup.Registry
	VectorStore *vectorstore.Store
	DocStore    *docstore.Store

	Sessions *SessionRegistry

	MaxPageWorkers int
	UploadMaxBytes int64
}

// AnalyzeOptions configures Analyze.
type AnalyzeOptions struct {
	Provider  string
	Kind      model.ContentKind
	Overrides *identifier.ManualOverride
}

// ExtractOptions configures Extract.
type ExtractOptions struct {
	TextEnhance enhancer.Mode
	Layout      model.CollectionLayout
}

// Upload creates an `uploaded` session from raw document bytes.
func (o *Orchestrator) Upload(bytes []byte, originName string) (string, error) {
	if o.UploadMaxBytes > 0 && int64(len(bytes)) > o.UploadMaxBytes {
		return "", ingesterr.New(ingesterr.KindUploadTooLarge, "upload", originName, nil)
	}
	doc := model.Document{
		Bytes:      bytes,
		OriginName: originName,
		ByteLength: int64(len(bytes)),
		SHA256:     sha256Hex(bytes),
		UploadedAt: time.Now(),
	}
	sess := o.Sessions.create(doc)
	sess.transition(StageUploaded, 100, "")
	return sess.ID(), nil
}

// Analyze drives a session from `uploaded` to `identified` (or a terminal
// failure), returning the resolved verdict.
func (o *Orchestrator) Analyze(ctx context.Context, sessionID string, opts AnalyzeOptions) (model.Verdict, error) {
	sess, err := o.Sessions.Get(sessionID)
	if err != nil {
		return model.Verdict{}, err
	}

	sess.transition(StageIdentifying, 0, "")

	h, err := pdfdoc.Open(sess.document.Bytes)
	if err != nil {
		sess.fail(StageFailedIdentification, err)
		return model.Verdict{}, err
	}
	defer h.Close()

	provider, providerName := o.resolveProvider(opts.Provider)

	kind := opts.Kind
	if kind == "" {
		kind = model.KindSourceMaterial
	}

	v, err := identifier.Identify(ctx, h, kind, o.Catalog, provider, aiprovider.DefaultIdentifyOptions(), opts.Overrides)
	if err != nil {
		sess.fail(StageFailedIdentification, err)
		return model.Verdict{}, err
	}

	sess.setVerdict(v)
	sess.setProvider(providerName)
	sess.transition(StageIdentified, 100, fmt.Sprintf("derivation=%s confidence=%.2f", v.Derivation, v.Confidence))
	return v, nil
}

// resolveProvider looks up the requested AI provider variant, falling
// back to mock (always registered) when the name is unknown or blank.
func (o *Orchestrator) resolveProvider(name string) (aiprovider.Provider, string) {
	if name != "" {
		if p, err := o.Providers.Get(name); err == nil {
			return p, name
		}
	}
	p, _ := o.Providers.Get("mock")
	return p, "mock"
}

// Extract drives an `identified` session through dedup_check, extracting,
// enhancing, categorizing, scoring, the optional novel character pass,
// and persisting, to `completed` or a terminal error.
func (o *Orchestrator) Extract(ctx context.Context, sessionID string, opts ExtractOptions) (model.Artifact, error) {
	sess, err := o.Sessions.Get(sessionID)
	if err != nil {
		return model.Artifact{}, err
	}
	v, ok := sess.getVerdict()
	if !ok {
		err := ingesterr.New(ingesterr.KindBadSession, "extract", "analyze() has not completed", nil)
		sess.fail(StageFailedExtraction, err)
		return model.Artifact{}, err
	}

	if rejected, prior := o.dedupCheck(ctx, sess, v); rejected {
		return model.Artifact{}, prior
	}

	h, err := pdfdoc.Open(sess.document.Bytes)
	if err != nil {
		o.rollbackDedup(sess, v)
		sess.fail(StageFailedExtraction, err)
		return model.Artifact{}, err
	}
	defer h.Close()

	pageCount := h.PageCount()
	workers := maxPageWorkers(o.MaxPageWorkers, pageCount)

	sess.transition(StageExtracting, 0, "")
	records := extractPages(ctx, sess, h, pageCount, workers)
	if sess.IsCancelRequested() {
		o.rollbackDedup(sess, v)
		sess.transition(StageCancelled, 100, "cancelled during extracting")
		return model.Artifact{}, ingesterr.New(ingesterr.KindCancelled, "extract", "", nil)
	}

	sess.transition(StageEnhancing, 0, "")
	enhancePages(ctx, sess, o.Enhancer, opts.TextEnhance, records, workers)
	if sess.IsCancelRequested() {
		o.rollbackDedup(sess, v)
		sess.transition(StageCancelled, 100, "cancelled during enhancing")
		return model.Artifact{}, ingesterr.New(ingesterr.KindCancelled, "extract", "", nil)
	}

	categories := o.Catalog.Categories(v.Game, v.Kind == model.KindNovel)
	provider, _ := o.resolveProvider(sess.getProvider())
	sess.transition(StageCategorizing, 0, "")
	categorizePages(ctx, sess, provider, categories, aiprovider.DefaultCategorizeOptions(), records, workers)
	if sess.IsCancelRequested() {
		o.rollbackDedup(sess, v)
		sess.transition(StageCancelled, 100, "cancelled during categorizing")
		return model.Artifact{}, ingesterr.New(ingesterr.KindCancelled, "extract", "", nil)
	}

	buf := newReorderBuffer(pageCount)
	counts := model.AggregateCounts{ByCategory: model.CategoryCounts{}}
	for _, r := range records {
		if r.pageFailed {
			continue
		}
		sec := model.Section{
			Page:               r.page,
			Ordinal:            0,
			RawText:            r.rawText,
			EnhancedText:       r.enhancedText,
			Category:           r.category,
			CategoryConfidence: r.confidence,
			HasTable:           len(r.tables) > 0,
			Tables:             r.tables,
		}
		buf.Add(sec)
		counts.Pages++
		counts.Sections++
		counts.Words += len(strings.Fields(r.enhancedText))
		counts.ByCategory[r.category]++
	}
	sections := buf.Sorted()

	sess.transition(StageScoring, 0, "")
	signals := buildConfidenceSignals(records, o.dictionaryCoverage)
	confRecord := confidence.Score(signals)
	sess.transition(StageScoring, 100, confRecord.Grade)

	artifact := model.Artifact{
		Verdict:    v,
		Sections:   sections,
		Counts:     counts,
		Confidence: confRecord,
		Quality:    aggregateQuality(records),
		IngestedAt: time.Now(),
	}

	if v.Kind == model.KindNovel {
		sess.transition(StageNovelCharacters, 0, "")
		graph, cerr := characters.Run(ctx, provider, joinEnhanced(records), aiprovider.DefaultIdentifyOptions(), characters.DefaultOptions())
		if cerr != nil {
			// Character-pass failure is recorded but not fatal.
			sess.transition(StageNovelCharacters, 100, "character pass failed: "+cerr.Error())
		} else {
			artifact.Characters = graph
			sess.transition(StageNovelCharacters, 100, fmt.Sprintf("%d characters", len(graph.Characters)))
		}
	}

	sess.transition(StagePersisting, 0, "")
	partial, perr := o.persist(ctx, artifact, opts.Layout, sess.document.SHA256)
	if perr != nil {
		o.rollbackDedup(sess, v)
		sess.fail(StageFailedPersistence, perr)
		return model.Artifact{}, perr
	}

	o.finalizeDedup(ctx, sess, v, counts)

	sess.setArtifact(artifact)
	note := ""
	if partial {
		note = "partial_persistence"
	}
	sess.transition(StageCompleted, 100, note)
	return artifact, nil
}

// dedupCheck queries the registry by canonical ISBN: a hit rejects the
// session; a miss writes a tentative entry and lets the run continue.
func (o *Orchestrator) dedupCheck(ctx context.Context, sess *Session, v model.Verdict) (rejected bool, err error) {
	sess.transition(StageDedupCheck, 0, "")
	canonical := isbn.Canonical(v.ISBN10, v.ISBN13)
	if canonical == "" || o.Dedup == nil {
		sess.transition(StageDedupCheck, 100, "")
		return false, nil
	}

	var rejectErr error
	lockErr := o.Dedup.WithLock(ctx, canonical, func(ctx context.Context) error {
		entry, err := o.Dedup.Lookup(ctx, canonical)
		if err != nil {
			return err
		}
		if entry != nil {
			rejectErr = ingesterr.New(ingesterr.KindRejectedDuplicate, "dedup_check",
				fmt.Sprintf("already ingested on %s", entry.FirstIngestedAt.Format("2006-01-02")), nil)
			return rejectErr
		}

		tentative := model.RegistryEntry{
			ISBN:            canonical,
			BookTitle:       v.BookTitle,
			FirstIngestedAt: time.Now(),
			LastSessionID:   sess.ID(),
			Status:          model.RegistryStatusCompleted,
		}
		return o.Dedup.PutTentative(ctx, tentative)
	})
	if lockErr != nil {
		if rejectErr != nil {
			sess.fail(StageRejectedDuplicate, rejectErr)
			return true, rejectErr
		}
		sess.fail(StageFailedExtraction, lockErr)
		return true, lockErr
	}
	sess.setISBN(canonical)
	sess.transition(StageDedupCheck, 100, "")
	return false, nil
}

func (o *Orchestrator) rollbackDedup(sess *Session, v model.Verdict) {
	canonical := sess.getISBN()
	if canonical == "" || o.Dedup == nil {
		return
	}
	_ = o.Dedup.DropTentative(context.Background(), canonical)
}

func (o *Orchestrator) finalizeDedup(ctx context.Context, sess *Session, v model.Verdict, counts model.AggregateCounts) {
	canonical := sess.getISBN()
	if canonical == "" || o.Dedup == nil {
		return
	}
	_ = o.Dedup.Finalize(ctx, canonical, counts.Sections, counts.Words)
}

// persist fans the artifact out to the vector and document stores. One
// store failing still lets the other commit, and the session completes
// with a partial_persistence note; both failing is a terminal
// failed_persistence.
func (o *Orchestrator) persist(ctx context.Context, artifact model.Artifact, layout model.CollectionLayout, sourceDigest string) (partial bool, err error) {
	addr := addresser.Address(artifact.Verdict, layout)

	var vecErr, docErr error
	if o.VectorStore != nil {
		vecErr = o.persistVector(ctx, addr, artifact)
	}
	if o.DocStore != nil {
		docErr = o.persistDoc(ctx, addr, artifact, sourceDigest)
	}

	switch {
	case vecErr != nil && docErr != nil:
		return false, fmt.Errorf("persist: vector store: %v; document store: %v", vecErr, docErr)
	case vecErr != nil || docErr != nil:
		return true, nil
	default:
		return false, nil
	}
}

func (o *Orchestrator) persistVector(ctx context.Context, addr model.CollectionAddress, artifact model.Artifact) error {
	if _, err := o.VectorStore.EnsureCollection(ctx, addr.Collection); err != nil {
		return err
	}
	sections := make([]vectorstore.Section, 0, len(artifact.Sections))
	for _, sec := range artifact.Sections {
		sections = append(sections, vectorstore.Section{
			ID:   fmt.Sprintf("%s_page%d_%d", addr.Collection, sec.Page, sec.Ordinal),
			Text: sec.EnhancedText,
			Metadata: map[string]string{
				"game": artifact.Verdict.Game, "edition": artifact.Verdict.Edition,
				"book": artifact.Verdict.Book, "kind": string(artifact.Verdict.Kind),
				"page": fmt.Sprint(sec.Page), "ordinal": fmt.Sprint(sec.Ordinal),
				"category": sec.Category,
			},
		})
	}
	err := o.VectorStore.UpsertSections(ctx, addr.Collection, sections)
	if ingesterr.KindOf(err) == ingesterr.KindStoreOversize {
		// Retry once with every section's text truncated to 95% of what
		// just failed.
		for i := range sections {
			sections[i].Text = truncate95(sections[i].Text)
		}
		err = o.VectorStore.UpsertSections(ctx, addr.Collection, sections)
	}
	return err
}

func (o *Orchestrator) persistDoc(ctx context.Context, addr model.CollectionAddress, artifact model.Artifact, sourceDigest string) error {
	collection := addr.Collection
	if err := o.DocStore.EnsureCollection(ctx, collection); err != nil {
		return err
	}
	if _, err := o.DocStore.InsertWhole(ctx, collection, artifact, addr.FolderPath, sourceDigest); err != nil {
		return err
	}
	_, err := o.DocStore.InsertSplit(ctx, collection, artifact.Verdict, artifact.Sections, addr.FolderPath, sourceDigest)
	return err
}

func truncate95(text string) string {
	cut := len(text) * 95 / 100
	if cut <= 0 || cut >= len(text) {
		return text
	}
	return text[:cut]
}

// Cancel marks the session for stop. Idempotent and safe at any time.
func (o *Orchestrator) Cancel(sessionID string) error {
	sess, err := o.Sessions.Get(sessionID)
	if err != nil {
		return err
	}
	sess.requestCancel()
	return nil
}

// ProgressStream yields the session's progress events.
func (o *Orchestrator) ProgressStream(sessionID string) (<-chan ProgressEvent, func(), error) {
	sess, err := o.Sessions.Get(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, unsub := sess.subscribe()
	return ch, unsub, nil
}

// Status returns a session snapshot.
func (o *Orchestrator) Status(sessionID string) (Snapshot, error) {
	sess, err := o.Sessions.Get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Status(), nil
}

// Artifact returns the completed extraction artifact.
func (o *Orchestrator) Artifact(sessionID string) (model.Artifact, error) {
	sess, err := o.Sessions.Get(sessionID)
	if err != nil {
		return model.Artifact{}, err
	}
	a, ok := sess.getArtifact()
	if !ok {
		return model.Artifact{}, ingesterr.New(ingesterr.KindBadSession, "artifact", "no artifact yet", nil)
	}
	return a, nil
}

// Health reports vector store and document store reachability, and lists
// every registered AI provider as "ok" without probing it.
func (o *Orchestrator) Health(ctx context.Context) HealthReport {
	report := HealthReport{Providers: map[string]string{}}

	if o.VectorStore != nil {
		_, err := o.VectorStore.ListCollections(ctx)
		report.VectorStore = healthString(err)
	} else {
		report.VectorStore = "down"
	}

	if o.DocStore != nil {
		err := o.DocStore.Health(ctx)
		report.DocumentStore = healthString(err)
	} else {
		report.DocumentStore = "down"
	}

	if o.Providers != nil {
		for _, name := range o.Providers.List() {
			report.Providers[name] = "ok"
		}
	}
	return report
}

// BrowseCollection reads a page of documents from one of the two
// stores. store is "vector" or "document".
func (o *Orchestrator) BrowseCollection(ctx context.Context, store, name string, offset, limit int) (any, error) {
	switch store {
	case "vector":
		if o.VectorStore == nil {
			return nil, ingesterr.New(ingesterr.KindStoreUnreachable, "browse_collection", "vector store not configured", nil)
		}
		return o.VectorStore.Sample(ctx, name, limit)
	case "document":
		if o.DocStore == nil {
			return nil, ingesterr.New(ingesterr.KindStoreUnreachable, "browse_collection", "document store not configured", nil)
		}
		return o.DocStore.ReadPage(ctx, name, offset, limit, "")
	default:
		return nil, fmt.Errorf("browse_collection: unknown store %q", store)
	}
}

// ListCollections lists known collections in one of the two stores.
func (o *Orchestrator) ListCollections(ctx context.Context, store string) ([]string, error) {
	switch store {
	case "vector":
		if o.VectorStore == nil {
			return nil, ingesterr.New(ingesterr.KindStoreUnreachable, "list_collections", "vector store not configured", nil)
		}
		return o.VectorStore.ListCollections(ctx)
	case "document":
		if o.DocStore == nil {
			return nil, ingesterr.New(ingesterr.KindStoreUnreachable, "list_collections", "document store not configured", nil)
		}
		return o.DocStore.ListCollections(), nil
	default:
		return nil, fmt.Errorf("list_collections: unknown store %q", store)
	}
}

// dictionaryCoverage is the fraction of whitespace-separated words the
// enhancer's exported InDict lookup accepts, so the confidence scorer's
// text signal uses the same dictionary the enhancer judges clean text by.
func (o *Orchestrator) dictionaryCoverage(text string) float64 {
	if o.Enhancer == nil || strings.TrimSpace(text) == "" {
		return 0
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	hits := 0
	for _, w := range words {
		if o.Enhancer.InDict(w) {
			hits++
		}
	}
	return float64(hits) / float64(len(words))
}

func joinEnhanced(records []*pageRecord) string {
	var b strings.Builder
	for _, r := range records {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(r.enhancedText)
	}
	return b.String()
}
