package search

import (
	"testing"
	"time"

	"github.com/yonie/localpdfvault/internal/domain"
)

func rec(fingerprint, subject, summary string) domain.DocumentRecord {
	return domain.DocumentRecord{
		Fingerprint: fingerprint,
		SourcePath:  "/vault/" + fingerprint + ".pdf",
		MetadataFields: domain.MetadataFields{
			Subject: subject,
			Summary: summary,
		},
	}
}

func rankOne(t *testing.T, r *Ranker, query string, record domain.DocumentRecord) int {
	t.Helper()
	results := r.Rank(query, []domain.DocumentRecord{record}, 0)
	if len(results) != 1 {
		t.Fatalf("Rank(%q) returned %d results, want 1", query, len(results))
	}
	return results[0].Score
}

func TestRankEmptyQuery(t *testing.T) {
	r := NewRanker()
	records := []domain.DocumentRecord{rec("a", "Invoice", "")}

	if got := r.Rank("", records, 0); got != nil {
		t.Errorf("empty query returned %d results, want none", len(got))
	}
	if got := r.Rank("   ", records, 0); got != nil {
		t.Errorf("whitespace query returned %d results, want none", len(got))
	}
}

func TestRankExcludesNonMatches(t *testing.T) {
	r := NewRanker()
	records := []domain.DocumentRecord{
		rec("a", "Electricity bill March", ""),
		rec("b", "Totally unrelated zoo brochure", ""),
	}

	results := r.Rank("electricity", records, 0)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Record.Fingerprint != "a" {
		t.Errorf("got %s, want a", results[0].Record.Fingerprint)
	}
}

func TestExactPhraseBeatsScatteredTerms(t *testing.T) {
	r := NewRanker()
	phrase := rec("phrase", "Letter from Jane Smith", "")
	scattered := rec("scattered", "Jane attended the conference", "Report prepared by Dr Smith")

	results := r.Rank("jane smith", []domain.DocumentRecord{scattered, phrase}, 0)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Record.Fingerprint != "phrase" {
		t.Errorf("exact phrase match ranked %s first, want phrase", results[0].Record.Fingerprint)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("phrase score %d not above scattered score %d", results[0].Score, results[1].Score)
	}
}

func TestExactPhraseMatchesPaddedQuery(t *testing.T) {
	r := NewRanker()
	phrase := rec("phrase", "Letter from Jane Smith", "")
	scattered := rec("scattered", "Jane attended the conference", "Report prepared by Dr Smith")

	// The phrase tier matches the query as given. A leading space still
	// finds " jane smith" in the blob, where words are space-separated.
	results := r.Rank(" jane smith", []domain.DocumentRecord{scattered, phrase}, 0)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Record.Fingerprint != "phrase" {
		t.Errorf("padded query ranked %s first, want phrase", results[0].Record.Fingerprint)
	}
	if diff := results[0].Score - results[1].Score; diff < 500 {
		t.Errorf("phrase lead = %d, want the phrase tier dominating", diff)
	}
}

func TestAllTermsBeatsSingleTerm(t *testing.T) {
	r := NewRanker()
	both := rec("both", "Invoice issued to Acme for the delivery", "")
	one := rec("one", "Invoice for office supplies", "")

	results := r.Rank("invoice acme", []domain.DocumentRecord{one, both}, 0)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Record.Fingerprint != "both" {
		t.Errorf("all-terms match ranked %s first, want both", results[0].Record.Fingerprint)
	}
	if diff := results[0].Score - results[1].Score; diff < 500 {
		t.Errorf("all-terms lead = %d, want at least the 500 tier bonus", diff)
	}
}

func TestFuzzyMatchScoresLow(t *testing.T) {
	r := NewRanker()
	record := rec("a", "Letter from John", "")

	// "jhn" is one edit from "john" (similarity 0.75) and not a substring,
	// so only the fuzzy tier fires.
	score := rankOne(t, r, "jhn", record)
	if score <= 0 {
		t.Fatal("fuzzy match scored 0, want positive")
	}
	exact := rankOne(t, r, "john", record)
	if score >= exact {
		t.Errorf("fuzzy score %d not below exact score %d", score, exact)
	}
}

func TestFuzzyCutoffExcludes(t *testing.T) {
	r := NewRanker()
	record := rec("a", "Quarterly budget report", "")

	// "zzz" shares nothing with any word in the record.
	if results := r.Rank("zzz", []domain.DocumentRecord{record}, 0); len(results) != 0 {
		t.Errorf("got %d results for hopeless query, want 0", len(results))
	}
}

func TestEarlyPositionBonus(t *testing.T) {
	r := NewRanker()
	early := rec("early", "Insurance policy renewal", "")
	// Pad the blob so "insurance" in the late record falls outside the
	// first twenty words. The path contributes words too.
	late := domain.DocumentRecord{
		Fingerprint: "late",
		SourcePath:  "/vault/late.pdf",
		MetadataFields: domain.MetadataFields{
			Summary: "one two three four five six seven eight nine ten eleven twelve " +
				"thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty insurance",
		},
	}

	earlyScore := rankOne(t, r, "insurance", early)
	lateScore := rankOne(t, r, "insurance", late)
	if earlyScore <= lateScore {
		t.Errorf("early score %d not above late score %d", earlyScore, lateScore)
	}
}

func TestRepeatBonus(t *testing.T) {
	r := NewRanker()
	once := rec("once", "Tax assessment", "")
	thrice := rec("thrice", "Tax assessment", "Tax office confirms the tax ruling")

	onceScore := rankOne(t, r, "tax", once)
	thriceScore := rankOne(t, r, "tax", thrice)
	if thriceScore <= onceScore {
		t.Errorf("repeated term scored %d, want above single occurrence %d", thriceScore, onceScore)
	}
}

func TestTagsAreSearchable(t *testing.T) {
	r := NewRanker()
	record := domain.DocumentRecord{
		Fingerprint: "a",
		SourcePath:  "/vault/a.pdf",
		MetadataFields: domain.MetadataFields{
			Subject: "Untitled scan",
			Tags:    []string{"warranty", "appliance"},
		},
	}

	results := r.Rank("warranty", []domain.DocumentRecord{record}, 0)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
}

func TestTieBreakByLastUpdated(t *testing.T) {
	r := NewRanker()
	older := rec("older", "Rental contract", "")
	older.LastUpdated = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := rec("newer", "Rental contract", "")
	newer.LastUpdated = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	results := r.Rank("rental", []domain.DocumentRecord{older, newer}, 0)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Record.Fingerprint != "newer" {
		t.Errorf("tie broke to %s, want newer first", results[0].Record.Fingerprint)
	}
}

func TestRankLimit(t *testing.T) {
	r := NewRanker()
	records := []domain.DocumentRecord{
		rec("a", "Payslip January", ""),
		rec("b", "Payslip February", ""),
		rec("c", "Payslip March", ""),
	}

	results := r.Rank("payslip", records, 2)
	if len(results) != 2 {
		t.Errorf("got %d results, want limit of 2", len(results))
	}
}

func TestFieldMatches(t *testing.T) {
	record := domain.DocumentRecord{
		Fingerprint: "a",
		SourcePath:  "/vault/invoice-2024.pdf",
		MetadataFields: domain.MetadataFields{
			Subject: "Invoice for consulting",
			Sender:  "Acme Corp",
			Tags:    []string{"invoice", "2024"},
		},
	}

	matches := FieldMatches([]string{"invoice", "acme", "missing"}, record)
	if len(matches) != 2 {
		t.Fatalf("got %d term matches, want 2: %+v", len(matches), matches)
	}

	byTerm := make(map[string][]string)
	for _, m := range matches {
		byTerm[m.Term] = m.Fields
	}

	invoiceFields := byTerm["invoice"]
	wantInvoice := map[string]bool{"filename": true, "subject": true, "tags": true}
	if len(invoiceFields) != 3 {
		t.Errorf("invoice matched %v, want filename+subject+tags", invoiceFields)
	}
	for _, f := range invoiceFields {
		if !wantInvoice[f] {
			t.Errorf("unexpected field %q for invoice", f)
		}
	}

	if len(byTerm["acme"]) != 1 || byTerm["acme"][0] != "sender" {
		t.Errorf("acme matched %v, want [sender]", byTerm["acme"])
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"john", "john", 1.0},
		{"jhn", "john", 0.75},
		{"", "", 1.0},
		{"abc", "xyz", 0.0},
	}
	for _, tt := range tests {
		if got := similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
