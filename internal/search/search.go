// Package search implements the tiered relevance ranker over stored
// document records. There is deliberately no inverted index: every query
// scores the full record set, trading query latency for simplicity at
// personal-collection scale (thousands of documents, not millions).
package search

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/yonie/localpdfvault/internal/domain"
)

// ─────────────────────────────────────────────────────────────────────────────
// Types
// ─────────────────────────────────────────────────────────────────────────────

// Config holds the scoring constants. The defaults are load-bearing:
// client UIs map absolute scores to a 0-100% confidence band, so keep
// them unless every consumer is updated too.
type Config struct {
	ExactPhrase int     // Full query found verbatim in the blob (default: 1000)
	AllTerms    int     // Every term present, >=2 terms (default: 500)
	PerTerm     int     // Each individually matching term (default: 50)
	EarlyBonus  int     // Term among the first EarlyWindow blob words (default: 10)
	RepeatBonus int     // Per extra occurrence of a term (default: 5)
	PerFuzzy    int     // Per close word for a non-matching term (default: 5)
	EarlyWindow int     // Size of the early-position window in words (default: 20)
	MaxFuzzy    int     // Close words counted per term (default: 5)
	FuzzyCutoff float64 // Minimum similarity for a close word (default: 0.70)
}

// DefaultConfig returns the standard scoring constants.
func DefaultConfig() Config {
	return Config{
		ExactPhrase: 1000,
		AllTerms:    500,
		PerTerm:     50,
		EarlyBonus:  10,
		RepeatBonus: 5,
		PerFuzzy:    5,
		EarlyWindow: 20,
		MaxFuzzy:    5,
		FuzzyCutoff: 0.70,
	}
}

// Ranker scores and orders document records against free-text queries.
type Ranker struct {
	cfg Config
}

// NewRanker creates a Ranker with the standard scoring constants.
func NewRanker() *Ranker {
	return &Ranker{cfg: DefaultConfig()}
}

// NewRankerWithConfig creates a Ranker with custom scoring constants.
func NewRankerWithConfig(cfg Config) *Ranker {
	return &Ranker{cfg: cfg}
}

// scoredRecord pairs a record with its accumulated score.
type scoredRecord struct {
	record domain.DocumentRecord
	score  int
}

// ─────────────────────────────────────────────────────────────────────────────
// Scoring
// ─────────────────────────────────────────────────────────────────────────────

// searchableText builds the lowercase blob a record is matched against:
// path, subject, summary, sender, recipient, document type, and tags.
func searchableText(rec domain.DocumentRecord) string {
	parts := []string{
		rec.SourcePath,
		rec.Subject,
		rec.Summary,
		rec.Sender,
		rec.Recipient,
		rec.DocumentType,
		strings.Join(rec.Tags, " "),
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// similarity returns an edit-distance similarity in [0,1]:
// 1 - levenshtein(a,b)/max(len(a),len(b)). Identical strings score 1.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}

// score accumulates points for one record across the four tiers.
// Returns 0 when the record has neither an exact nor a fuzzy match,
// which excludes it from the results.
func (r *Ranker) score(queryLower string, terms []string, text string) int {
	if text == "" {
		return 0
	}

	cfg := r.cfg
	score := 0
	exactMatched := make(map[string]bool, len(terms))
	fuzzyMatched := make(map[string]bool)

	// Tier 1: the whole query appears verbatim.
	if strings.Contains(text, queryLower) {
		score += cfg.ExactPhrase
		for _, term := range terms {
			exactMatched[term] = true
		}
	}

	// Tier 2: every term present somewhere, positions unrelated.
	// Only meaningful for multi-term queries.
	if len(terms) > 1 {
		all := true
		for _, term := range terms {
			if !strings.Contains(text, term) {
				all = false
				break
			}
		}
		if all {
			score += cfg.AllTerms
			for _, term := range terms {
				exactMatched[term] = true
			}
		}
	}

	// Tier 3: per-term presence, with repetition and early-position bonuses.
	var earlyWords []string
	for _, term := range terms {
		if !strings.Contains(text, term) {
			continue
		}
		exactMatched[term] = true
		score += cfg.PerTerm

		if n := strings.Count(text, term); n > 1 {
			score += cfg.RepeatBonus * (n - 1)
		}

		if earlyWords == nil {
			earlyWords = strings.Fields(text)
			if len(earlyWords) > cfg.EarlyWindow {
				earlyWords = earlyWords[:cfg.EarlyWindow]
			}
		}
		for _, word := range earlyWords {
			if strings.Contains(word, term) {
				score += cfg.EarlyBonus
				break
			}
		}
	}

	// Tier 4: fuzzy fallback for terms with no exact match. Up to
	// MaxFuzzy close words per term, each within FuzzyCutoff similarity.
	var words []string
	for _, term := range terms {
		if exactMatched[term] {
			continue
		}
		if words == nil {
			words = strings.Fields(text)
		}
		closeWords := 0
		for _, word := range words {
			if similarity(term, word) >= cfg.FuzzyCutoff {
				closeWords++
				if closeWords == cfg.MaxFuzzy {
					break
				}
			}
		}
		if closeWords > 0 {
			fuzzyMatched[term] = true
			score += cfg.PerFuzzy * closeWords
		}
	}

	if len(exactMatched) == 0 && len(fuzzyMatched) == 0 {
		return 0
	}
	return score
}

// ─────────────────────────────────────────────────────────────────────────────
// Rank (public API)
// ─────────────────────────────────────────────────────────────────────────────

// Rank scores records against the query and returns survivors ordered by
// score descending, ties broken by last-updated descending, truncated to
// limit. An empty query yields no results - callers wanting "list all"
// semantics should list the store instead.
func (r *Ranker) Rank(query string, records []domain.DocumentRecord, limit int) []domain.SearchResult {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}

	// The phrase tier matches the query as given, whitespace included.
	queryLower := strings.ToLower(query)

	scored := make([]scoredRecord, 0, len(records))
	for _, rec := range records {
		text := searchableText(rec)
		if s := r.score(queryLower, terms, text); s > 0 {
			scored = append(scored, scoredRecord{record: rec, score: s})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].record.LastUpdated.After(scored[j].record.LastUpdated)
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	results := make([]domain.SearchResult, len(scored))
	for i, sr := range scored {
		results[i] = domain.SearchResult{
			Record:  sr.record,
			Score:   sr.score,
			Matches: FieldMatches(terms, sr.record),
		}
	}
	return results
}

// tokenize splits a query into lowercase whitespace-separated terms.
func tokenize(query string) []string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, strings.ToLower(f))
	}
	return terms
}

// FieldMatches reports, per term, which named fields contain it. This
// feeds the UI's match annotations and plays no part in scoring.
func FieldMatches(terms []string, rec domain.DocumentRecord) []domain.TermMatch {
	fields := []struct {
		name  string
		value string
	}{
		{"filename", rec.SourcePath},
		{"subject", rec.Subject},
		{"summary", rec.Summary},
		{"sender", rec.Sender},
		{"recipient", rec.Recipient},
		{"type", rec.DocumentType},
	}

	var matches []domain.TermMatch
	for _, term := range terms {
		var matched []string
		for _, f := range fields {
			if f.value != "" && strings.Contains(strings.ToLower(f.value), term) {
				matched = append(matched, f.name)
			}
		}
		for _, tag := range rec.Tags {
			if strings.Contains(strings.ToLower(tag), term) {
				matched = append(matched, "tags")
				break
			}
		}
		if len(matched) > 0 {
			matches = append(matches, domain.TermMatch{Term: term, Fields: matched})
		}
	}
	return matches
}
