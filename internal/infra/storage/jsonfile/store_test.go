package jsonfile

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/vietddude/lexophile/internal/core/domain"
)

func strPtr(s string) *string { return &s }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "lexophile.json"), "test source", slog.New(slog.NewTextHandler(io.Discard, nil)))
	return s
}

func successRecord(word, definition, example string) *domain.WordRecord {
	return &domain.WordRecord{
		Word:             word,
		Definition:       strPtr(definition),
		PartOfSpeech:     strPtr("noun"),
		PhoneticSpelling: strPtr(word),
		ExampleSentence:  strPtr(example),
		Synonyms:         []string{},
		Antonyms:         []string{},
		ProcessingStatus: domain.StatusSuccess,
		ProcessedDate:    domain.Timestamp{Time: time.Now()},
	}
}

func TestLoad_Missing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoad_Malformed(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.Path(), []byte(`{"metadata": {`), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := s.Load()
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if doc != nil {
		t.Fatalf("expected nil document, got %+v", doc)
	}
}

func TestLoad_UnreadableRecordKeepsOthers(t *testing.T) {
	s := newTestStore(t)
	content := `{
  "metadata": {"total_words": 3, "source": "original"},
  "words": {
    "cat": {"word": "cat", "definition": "a small feline", "part_of_speech": "noun",
            "phonetic_spelling": "kat", "example_sentence": "The cat purred.",
            "synonyms": ["kitty"], "antonyms": [], "processing_status": "success"},
    "owl": {"word": "owl", "definition": "a night bird", "part_of_speech": "noun",
            "phonetic_spelling": "owl", "example_sentence": "An owl hooted.",
            "synonyms": "none", "antonyms": [], "processing_status": "success"},
    "bat": {"word": "bat", "definition": 42, "processing_status": "success"}
  }
}`
	if err := os.WriteFile(s.Path(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Words) != 3 || doc.Metadata.Source != "original" {
		t.Fatalf("unexpected document %+v", doc)
	}
	if !domain.IsComplete(doc.Words["cat"]) {
		t.Errorf("cat should load complete: %+v", doc.Words["cat"])
	}
	if owl := doc.Words["owl"]; !domain.IsComplete(owl) || len(owl.Synonyms) != 0 {
		t.Errorf("owl should load complete with no synonyms: %+v", owl)
	}
	bat := doc.Words["bat"]
	if domain.IsComplete(bat) || bat.ProcessingStatus != domain.StatusFailed {
		t.Fatalf("bat should load as failed, got %+v", bat)
	}
	if bat.ErrorReason == nil || !strings.HasPrefix(*bat.ErrorReason, ReasonUnreadableRecord) {
		t.Errorf("unexpected reason %v", bat.ErrorReason)
	}
}

func TestLoad_UnreadableMetadataIsRebuilt(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	content := `{"metadata": {"total_words": "many"}, "words": {"cat": null}}`
	if err := os.WriteFile(s.Path(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Metadata.TotalWords != 1 || doc.Metadata.Source != "test source" || !doc.Metadata.CreatedDate.Equal(fixed) {
		t.Errorf("metadata not rebuilt: %+v", doc.Metadata)
	}
	if rec, ok := doc.Words["cat"]; !ok || domain.IsComplete(rec) {
		t.Errorf("null record should be present and incomplete, got %+v", rec)
	}
}

func TestLoad_WordsNotAnObject(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.Path(), []byte(`{"words": ["cat"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestLoad_BackfillsMetadata(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	content := `{
  "words": {
    "cat": {
      "definition": "a small feline",
      "part_of_speech": "noun",
      "synonyms": ["kitty"],
      "antonyms": [],
      "phonetic_spelling": "kat",
      "first_known_usage": null,
      "example_sentence": "The cat purred.",
      "processing_status": "success",
      "error_reason": null,
      "processed_date": "2025-01-02T03:04:05.678901"
    }
  }
}`
	if err := os.WriteFile(s.Path(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if doc.Metadata.TotalWords != 1 {
		t.Errorf("expected total_words 1, got %d", doc.Metadata.TotalWords)
	}
	if !doc.Metadata.CreatedDate.Equal(fixed) {
		t.Errorf("expected created_date backfilled to %v, got %v", fixed, doc.Metadata.CreatedDate)
	}
	if doc.Metadata.Source != "test source" {
		t.Errorf("expected source backfilled, got %q", doc.Metadata.Source)
	}
	if doc.Metadata.WordListFile != DefaultWordListLabel {
		t.Errorf("expected word list label backfilled, got %q", doc.Metadata.WordListFile)
	}
	cat := doc.Words["cat"]
	if cat == nil || cat.Word != "cat" {
		t.Fatalf("expected word name backfilled from key, got %+v", cat)
	}
	if cat.ProcessedDate.Year() != 2025 {
		t.Errorf("expected zone-less processed_date to parse, got %v", cat.ProcessedDate)
	}
	if !domain.IsComplete(cat) {
		t.Error("expected loaded record to be complete")
	}
}

func TestLoad_KeepsCreatedDate(t *testing.T) {
	s := newTestStore(t)
	content := `{"metadata":{"created_date":"2024-02-03T04:05:06","source":"old"},"words":{}}`
	if err := os.WriteFile(s.Path(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Metadata.CreatedDate.Year() != 2024 {
		t.Errorf("created_date overwritten: %v", doc.Metadata.CreatedDate)
	}
	if doc.Metadata.Source != "old" {
		t.Errorf("source overwritten: %q", doc.Metadata.Source)
	}
}

func TestCreateEmpty(t *testing.T) {
	s := newTestStore(t)
	doc := s.CreateEmpty()
	if len(doc.Words) != 0 || doc.Words == nil {
		t.Fatalf("expected empty non-nil words, got %v", doc.Words)
	}
	if doc.Metadata.CreatedDate.IsZero() || !doc.Metadata.CreatedDate.Equal(doc.Metadata.LastUpdated.Time) {
		t.Errorf("expected matching fresh timestamps, got %+v", doc.Metadata)
	}
}

func TestSave_LongestFields(t *testing.T) {
	s := newTestStore(t)
	doc := s.CreateEmpty()
	doc.Words["cat"] = successRecord("cat", "pet", "A cat sat on the mat and looked around slowly.")
	doc.Words["elephant"] = successRecord("elephant", strings.Repeat("x", 40), "Big.")
	failed := s.MakeFailedRecord("zebra", "API returned empty response")
	doc.Words["zebra"] = failed

	if err := s.Save(doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if doc.Metadata.LongestDefinition == nil || *doc.Metadata.LongestDefinition != "elephant" {
		t.Errorf("expected longest_definition elephant, got %v", doc.Metadata.LongestDefinition)
	}
	if doc.Metadata.LongestExampleSentence == nil || *doc.Metadata.LongestExampleSentence != "cat" {
		t.Errorf("expected longest_example_sentence cat, got %v", doc.Metadata.LongestExampleSentence)
	}
	if doc.Metadata.TotalWords != 3 {
		t.Errorf("expected total_words 3, got %d", doc.Metadata.TotalWords)
	}
}

func TestSave_IgnoresFailedRecordsForLongest(t *testing.T) {
	s := newTestStore(t)
	doc := s.CreateEmpty()
	rec := successRecord("owl", strings.Repeat("y", 100), "Hoot.")
	rec.ProcessingStatus = domain.StatusFailed
	doc.Words["owl"] = rec

	if err := s.Save(doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if doc.Metadata.LongestDefinition != nil {
		t.Errorf("expected no longest definition, got %v", *doc.Metadata.LongestDefinition)
	}
}

func TestSave_TieGoesToFirstWord(t *testing.T) {
	s := newTestStore(t)
	doc := s.CreateEmpty()
	doc.Words["bee"] = successRecord("bee", "same", "same")
	doc.Words["ant"] = successRecord("ant", "same", "same")

	if err := s.Save(doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := *doc.Metadata.LongestDefinition; got != "ant" {
		t.Errorf("expected tie resolved to ant, got %s", got)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	saved := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return created }
	doc := s.CreateEmpty()
	doc.Words["café"] = successRecord("café", "a coffee shop <small>", "We met at the café & talked.")

	s.now = func() time.Time { return saved }
	if err := s.Save(doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	text := string(raw)
	if !strings.Contains(text, "\n  \"metadata\": {\n    \"total_words\": 1,") {
		t.Errorf("expected 2-space indented output, got:\n%s", text)
	}
	if !strings.Contains(text, "café") || !strings.Contains(text, "<small>") || !strings.Contains(text, "& talked") {
		t.Errorf("expected unescaped UTF-8 and HTML characters, got:\n%s", text)
	}

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("saved file is not valid JSON: %v", err)
	}

	back, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !back.Metadata.CreatedDate.Equal(created) {
		t.Errorf("created_date changed: %v", back.Metadata.CreatedDate)
	}
	if !back.Metadata.LastUpdated.Equal(saved) {
		t.Errorf("last_updated not refreshed: %v", back.Metadata.LastUpdated)
	}
	opt := cmp.Comparer(func(a, b domain.Timestamp) bool { return a.Equal(b.Time) })
	if diff := cmp.Diff(doc.Words, back.Words, opt); diff != "" {
		t.Errorf("words mismatch after round trip (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the store file, found %v", names)
	}
}

func TestSave_UnwritableDirectory(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing", "dir", "out.json"), "x", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := s.Save(s.CreateEmpty()); err == nil {
		t.Fatal("expected write error")
	}
}

func TestRefresh(t *testing.T) {
	s := newTestStore(t)
	if err := s.Refresh(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	content := `{"metadata":{"total_words":99},"words":{"elephant":{"word":"elephant","definition":"a very large herbivorous mammal with a trunk","part_of_speech":"noun","synonyms":[],"antonyms":[],"phonetic_spelling":"el-uh-fuhnt","example_sentence":"The elephant drank.","processing_status":"success","processed_date":"2025-01-01T00:00:00"}}}`
	if err := os.WriteFile(s.Path(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	doc, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if doc.Metadata.TotalWords != 1 {
		t.Errorf("expected total_words recomputed to 1, got %d", doc.Metadata.TotalWords)
	}
	if doc.Metadata.LongestDefinition == nil || *doc.Metadata.LongestDefinition != "elephant" {
		t.Errorf("expected longest definition elephant, got %v", doc.Metadata.LongestDefinition)
	}
}

func TestQuarantine(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.Path(), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest, err := s.Quarantine()
	if err != nil {
		t.Fatalf("Quarantine: %v", err)
	}
	if _, err := os.Stat(s.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected original path to be gone, got %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "not json" {
		t.Errorf("expected malformed content preserved at %s, got %q (%v)", dest, data, err)
	}
}
