// Package enhancer cleans up OCR artifacts, applies dictionary-backed
// spell correction, and scores text quality. Word boundaries come from
// clipperhouse/uax29/v2 Unicode segmentation.
package enhancer

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"

	"github.com/rpgvault/ingest/internal/model"
)

// Mode selects enhancement aggressiveness.
type Mode string

const (
	ModeOff        Mode = "off"
	ModeNormal     Mode = "normal"
	ModeAggressive Mode = "aggressive"
)

const (
	gradeAThreshold = 90.0
	gradeBThreshold = 80.0
	gradeCThreshold = 70.0
	gradeDThreshold = 60.0
)

// ocrSubstitution is a configured OCR-confusable digraph, applied only
// when it turns a non-dictionary token into a dictionary hit.
type ocrSubstitution struct {
	from, to string
}

var defaultSubstitutions = []ocrSubstitution{
	{"rn", "m"},
	{"vv", "w"},
	{"l1", "h"},
	{"0", "o"},
}

// Enhancer holds the dictionary and protected-terms list it enhances
// against. Protected terms (game-specific jargon) come from the catalog
// and are
// never "corrected" away.
type Enhancer struct {
	dictionary map[string]struct{}
	protected  map[string]struct{}
}

// New builds an Enhancer from a base dictionary plus a catalog-derived
// protected-terms list (e.g. "PHB", "DMG", game/edition names).
func New(dictionary []string, protectedTerms []string) *Enhancer {
	e := &Enhancer{
		dictionary: make(map[string]struct{}, len(dictionary)),
		protected:  make(map[string]struct{}, len(protectedTerms)),
	}
	for _, w := range dictionary {
		e.dictionary[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range protectedTerms {
		e.protected[strings.ToLower(w)] = struct{}{}
	}
	return e
}

func (e *Enhancer) inDict(tok string) bool {
	_, ok := e.dictionary[strings.ToLower(tok)]
	return ok
}

// InDict reports whether tok is a dictionary hit, exported so the
// confidence scorer's text-coverage signal can judge "clean" text the
// same way the enhancer does.
func (e *Enhancer) InDict(tok string) bool { return e.inDict(tok) }

func (e *Enhancer) isProtected(tok string) bool {
	_, ok := e.protected[strings.ToLower(tok)]
	return ok
}

// Enhance applies the configured enhancements and returns the cleaned
// text plus a metrics record. All enhancements are idempotent on already
// clean text: calling Enhance on its own output reproduces the same text
// unchanged.
func (e *Enhancer) Enhance(raw string, mode Mode) (string, model.QualityMetrics) {
	before := e.qualityScore(raw)

	if mode == ModeOff {
		metrics := model.QualityMetrics{BeforeScore: before, AfterScore: before, Grade: Grade(before)}
		return raw, metrics
	}

	text := normalizeWhitespace(raw)

	text, runOnSplits := e.splitRunOns(text)
	text, missingSpaces := e.insertMissingSpaces(text)
	text, ocrSubs := e.applySubstitutions(text)
	text, spellCorrections := e.spellCorrect(text, mode)

	after := e.qualityScore(text)

	metrics := model.QualityMetrics{
		BeforeScore:      before,
		AfterScore:       after,
		Grade:            Grade(after),
		RunOnSplits:      runOnSplits,
		MissingSpaces:    missingSpaces,
		OCRSubstitutions: ocrSubs,
		SpellCorrections: spellCorrections,
	}
	return text, metrics
}

// normalizeWhitespace collapses runs of spaces, normalizes line
// endings, strips trailing spaces, and preserves paragraph breaks (two
// or more newlines).
func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(collapseSpaces(line), " \t")
	}
	joined := strings.Join(lines, "\n")

	// Collapse 2+ consecutive blank lines down to exactly one blank line
	// (a single paragraph break), preserving the two-or-more signal.
	for strings.Contains(joined, "\n\n\n") {
		joined = strings.ReplaceAll(joined, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(joined)
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' {
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// splitRunOns inserts a space between a lowercase and uppercase letter
// where both resulting tokens are dictionary words and the joined form
// is not, e.g. "theGame" -> "the Game" only if both "the" and "Game" are
// real words.
func (e *Enhancer) splitRunOns(s string) (string, int) {
	runes := []rune(s)
	var b strings.Builder
	splits := 0

	for i := 0; i < len(runes); i++ {
		b.WriteRune(runes[i])
		if i+1 >= len(runes) {
			continue
		}
		if !unicode.IsLower(runes[i]) || !unicode.IsUpper(runes[i+1]) {
			continue
		}
		left := wordEndingAt(runes, i)
		right := wordStartingAt(runes, i+1)
		joined := left + right
		if left != "" && right != "" && e.inDict(left) && e.inDict(right) && !e.inDict(joined) {
			b.WriteRune(' ')
			splits++
		}
	}
	return b.String(), splits
}

// insertMissingSpaces handles the same boundary for a digit/letter
// transition that's likely a missing space (e.g. "Level1" -> "Level 1").
func (e *Enhancer) insertMissingSpaces(s string) (string, int) {
	runes := []rune(s)
	var b strings.Builder
	inserted := 0

	for i := 0; i < len(runes); i++ {
		b.WriteRune(runes[i])
		if i+1 >= len(runes) {
			continue
		}
		letterDigit := unicode.IsLetter(runes[i]) && unicode.IsDigit(runes[i+1])
		digitLetter := unicode.IsDigit(runes[i]) && unicode.IsLetter(runes[i+1])
		if !letterDigit && !digitLetter {
			continue
		}
		left := wordEndingAt(runes, i)
		if left != "" && e.inDict(left) {
			b.WriteRune(' ')
			inserted++
		}
	}
	return b.String(), inserted
}

func wordEndingAt(runes []rune, end int) string {
	start := end
	for start >= 0 && (unicode.IsLetter(runes[start]) || unicode.IsDigit(runes[start])) {
		start--
	}
	return string(runes[start+1 : end+1])
}

func wordStartingAt(runes []rune, start int) string {
	end := start
	for end < len(runes) && (unicode.IsLetter(runes[end]) || unicode.IsDigit(runes[end])) {
		end++
	}
	return string(runes[start:end])
}

// applySubstitutions applies configured OCR-confusable digraph fixes,
// only when the fix turns a non-dictionary token into a dictionary hit.
func (e *Enhancer) applySubstitutions(s string) (string, int) {
	count := 0
	for _, tok := range tokenize(s) {
		if e.inDict(tok) {
			continue
		}
		for _, sub := range defaultSubstitutions {
			fixed := strings.Replace(tok, sub.from, sub.to, 1)
			if fixed != tok && e.inDict(fixed) {
				s = replaceToken(s, tok, fixed, 1)
				count++
				break
			}
		}
	}
	return s, count
}

// spellCorrect proposes a dictionary replacement only when the original
// token is absent from the dictionary, protected terms are left alone,
// and the proposal is within edit distance 2 (3 in aggressive mode).
func (e *Enhancer) spellCorrect(s string, mode Mode) (string, int) {
	maxDist := 2
	if mode == ModeAggressive {
		maxDist = 3
	}

	count := 0
	for _, tok := range tokenize(s) {
		if tok == "" || e.inDict(tok) || e.isProtected(tok) {
			continue
		}
		if mode == ModeAggressive && looksLikeProperNoun(tok) {
			continue
		}
		candidate, dist, found := e.nearestDictWord(tok, maxDist)
		if found && dist <= maxDist {
			s = replaceToken(s, tok, preserveCase(tok, candidate), 1)
			count++
		}
	}
	return s, count
}

func looksLikeProperNoun(tok string) bool {
	r := []rune(tok)
	return len(r) > 0 && unicode.IsUpper(r[0])
}

func preserveCase(original, replacement string) string {
	if len(original) == 0 {
		return replacement
	}
	r := []rune(original)
	if unicode.IsUpper(r[0]) {
		rr := []rune(replacement)
		if len(rr) > 0 {
			rr[0] = unicode.ToUpper(rr[0])
			return string(rr)
		}
	}
	return replacement
}

func (e *Enhancer) nearestDictWord(tok string, maxDist int) (string, int, bool) {
	best := ""
	bestDist := maxDist + 1
	for word := range e.dictionary {
		d := editDistance(strings.ToLower(tok), word)
		if d < bestDist {
			bestDist = d
			best = word
		}
	}
	if best == "" {
		return "", 0, false
	}
	return best, bestDist, true
}

// editDistance is a standard Levenshtein edit distance over runes.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// tokenize splits on non-letter/non-digit runes, discarding separators.
func tokenize(s string) []string {
	var tokens []string
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}

// replaceToken replaces up to n whole-word occurrences of old with new.
func replaceToken(s, old, new string, n int) string {
	tokens := []rune(s)
	var b strings.Builder
	replaced := 0
	i := 0
	for i < len(tokens) {
		if replaced < n && matchesWordAt(tokens, i, old) {
			b.WriteString(new)
			i += len([]rune(old))
			replaced++
			continue
		}
		b.WriteRune(tokens[i])
		i++
	}
	return b.String()
}

func matchesWordAt(tokens []rune, i int, word string) bool {
	wr := []rune(word)
	if i+len(wr) > len(tokens) {
		return false
	}
	if i > 0 && (unicode.IsLetter(tokens[i-1]) || unicode.IsDigit(tokens[i-1])) {
		return false
	}
	for j, r := range wr {
		if tokens[i+j] != r {
			return false
		}
	}
	end := i + len(wr)
	if end < len(tokens) && (unicode.IsLetter(tokens[end]) || unicode.IsDigit(tokens[end])) {
		return false
	}
	return true
}

// qualityScore blends dictionary coverage, page density, structural
// markers, and 1 minus a suspicious-pattern rate.
func (e *Enhancer) qualityScore(text string) float64 {
	words := segmentWords(text)
	if len(words) == 0 {
		return 0
	}

	var hits int
	for _, w := range words {
		if e.inDict(w) || e.isProtected(w) {
			hits++
		}
	}
	dictCoverage := float64(hits) / float64(len(words))

	density := 0.0
	if len(words) >= 10 {
		density = 1.0
	} else {
		density = float64(len(words)) / 10.0
	}

	structural := 0.0
	if strings.Contains(text, "\n\n") {
		structural = 1.0
	}

	suspicious := suspiciousPatternRate(words)

	score := 0.4*dictCoverage + 0.25*density + 0.15*structural + 0.2*(1-suspicious)
	return score * 100
}

// suspiciousPatternRate is the fraction of tokens containing a run of 3+
// identical characters. Tokens mixing letters and digits are not flagged.
func suspiciousPatternRate(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	var suspicious int
	for _, w := range words {
		if hasTripleRepeat(w) {
			suspicious++
		}
	}
	return float64(suspicious) / float64(len(words))
}

func hasTripleRepeat(w string) bool {
	r := []rune(w)
	for i := 2; i < len(r); i++ {
		if r[i] == r[i-1] && r[i-1] == r[i-2] {
			return true
		}
	}
	return false
}

// segmentWords tokenizes via uax29's Unicode word segmenter, filtering to
// letter/digit-containing segments (dropping pure punctuation/whitespace).
func segmentWords(text string) []string {
	var out []string
	seg := words.FromBytes([]byte(text))
	for seg.Next() {
		tok := seg.Value()
		if hasWordRune(tok) {
			out = append(out, string(tok))
		}
	}
	return out
}

func hasWordRune(b []byte) bool {
	for _, r := range string(b) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// Grade maps a 0-100 score to a letter grade (thresholds 90/80/70/60).
// The confidence scorer shares this threshold table.
func Grade(score float64) string {
	switch {
	case score >= gradeAThreshold:
		return "A"
	case score >= gradeBThreshold:
		return "B"
	case score >= gradeCThreshold:
		return "C"
	case score >= gradeDThreshold:
		return "D"
	default:
		return "F"
	}
}
