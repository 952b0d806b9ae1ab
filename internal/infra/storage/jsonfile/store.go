// Package jsonfile persists the word store as a single pretty-printed JSON
// document that is rewritten after every word.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/vietddude/lexophile/internal/core/domain"
)

var (
	// ErrNotFound is returned when the store file doesn't exist
	ErrNotFound = errors.New("store file not found")

	// ErrMalformed is returned when the store file can't be decoded
	ErrMalformed = errors.New("store file is malformed")
)

// ReasonUnreadableRecord marks a stored record that could not be decoded.
const ReasonUnreadableRecord = "Stored record unreadable"

// DefaultWordListLabel is recorded when a loaded document has no word list label.
const DefaultWordListLabel = "word_list_main.txt"

// Store reads and writes one JSON document on disk.
type Store struct {
	path   string
	source string
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a store for the given path. source labels new documents.
func NewStore(path, source string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   path,
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document, backfilling missing metadata with defaults.
func (s *Store) Load() (*domain.Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read store: %w", err)
	}

	doc, err := s.decode(data)
	if err != nil {
		s.logger.Error("Error loading existing JSON file", "path", s.path, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	s.backfill(doc)
	s.logger.Info("Loaded existing data", "path", s.path, "words", len(doc.Words))
	return doc, nil
}

// rawDocument defers decoding of metadata and each record so one bad
// entry doesn't reject the whole file.
type rawDocument struct {
	Metadata json.RawMessage            `json:"metadata"`
	Words    map[string]json.RawMessage `json:"words"`
}

// decode fails only when data isn't a JSON object with a words mapping.
// Unreadable metadata is rebuilt; an unreadable record becomes a failed
// record so only that word is fetched again.
func (s *Store) decode(data []byte) (*domain.Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	doc := &domain.Document{Words: make(map[string]*domain.WordRecord, len(raw.Words))}
	if len(raw.Metadata) > 0 {
		if err := json.Unmarshal(raw.Metadata, &doc.Metadata); err != nil {
			s.logger.Warn("Unreadable metadata, rebuilding", "path", s.path, "error", err)
			doc.Metadata = domain.Metadata{}
		}
	}

	for word, msg := range raw.Words {
		var rec *domain.WordRecord
		if err := json.Unmarshal(msg, &rec); err != nil {
			s.logger.Warn("Unreadable word record, will reprocess", "word", word, "error", err)
			rec = s.MakeFailedRecord(word, fmt.Sprintf("%s: %v", ReasonUnreadableRecord, err))
		}
		doc.Words[word] = rec
	}
	return doc, nil
}

func (s *Store) backfill(doc *domain.Document) {
	now := s.now()
	if doc.Words == nil {
		doc.Words = make(map[string]*domain.WordRecord)
	}
	for word, rec := range doc.Words {
		if rec != nil && rec.Word == "" {
			rec.Word = word
		}
	}

	m := &doc.Metadata
	m.TotalWords = len(doc.Words)
	if m.CreatedDate.IsZero() {
		m.CreatedDate = domain.Timestamp{Time: now}
	}
	if m.LastUpdated.IsZero() {
		m.LastUpdated = domain.Timestamp{Time: now}
	}
	if m.Source == "" {
		m.Source = s.source
	}
	if m.WordListFile == "" {
		m.WordListFile = DefaultWordListLabel
	}
}

// CreateEmpty returns a fresh document with no words.
func (s *Store) CreateEmpty() *domain.Document {
	now := domain.Timestamp{Time: s.now()}
	return &domain.Document{
		Metadata: domain.Metadata{
			CreatedDate:  now,
			LastUpdated:  now,
			Source:       s.source,
			WordListFile: DefaultWordListLabel,
		},
		Words: make(map[string]*domain.WordRecord),
	}
}

// Save recomputes derived metadata and atomically replaces the file.
func (s *Store) Save(doc *domain.Document) error {
	s.updateMetadata(doc)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	if err := writeFileAtomic(s.path, buf.Bytes()); err != nil {
		return fmt.Errorf("write store %s: %w", s.path, err)
	}
	s.logger.Info("Data saved", "path", s.path, "words", doc.Metadata.TotalWords)
	return nil
}

// updateMetadata refreshes the count, timestamp and longest-field markers.
// Only successful records participate; ties go to the lexically first word.
func (s *Store) updateMetadata(doc *domain.Document) {
	m := &doc.Metadata
	m.TotalWords = len(doc.Words)
	m.LastUpdated = domain.Timestamp{Time: s.now()}

	words := make([]string, 0, len(doc.Words))
	for w := range doc.Words {
		words = append(words, w)
	}
	sort.Strings(words)

	var longestDef, longestEx string
	var defLen, exLen int
	for _, w := range words {
		rec := doc.Words[w]
		if rec == nil || rec.ProcessingStatus != domain.StatusSuccess {
			continue
		}
		if rec.Definition != nil {
			if n := utf8.RuneCountInString(*rec.Definition); n > defLen {
				longestDef, defLen = w, n
			}
		}
		if rec.ExampleSentence != nil {
			if n := utf8.RuneCountInString(*rec.ExampleSentence); n > exLen {
				longestEx, exLen = w, n
			}
		}
	}

	m.LongestDefinition = nil
	m.LongestExampleSentence = nil
	if longestDef != "" {
		m.LongestDefinition = &longestDef
		s.logger.Debug("Longest definition", "word", longestDef, "chars", defLen)
	}
	if longestEx != "" {
		m.LongestExampleSentence = &longestEx
		s.logger.Debug("Longest example sentence", "word", longestEx, "chars", exLen)
	}
}

// Refresh loads an existing document and saves it again so derived
// metadata is current. No words are fetched.
func (s *Store) Refresh() error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	return s.Save(doc)
}

// Quarantine moves an unreadable document aside and returns its new path.
func (s *Store) Quarantine() (string, error) {
	dest := fmt.Sprintf("%s.corrupt-%d", s.path, s.now().Unix())
	if err := os.Rename(s.path, dest); err != nil {
		return "", fmt.Errorf("quarantine store: %w", err)
	}
	s.logger.Warn("Moved malformed store aside", "from", s.path, "to", dest)
	return dest, nil
}

// MakeFailedRecord builds a failed record stamped with the store clock.
func (s *Store) MakeFailedRecord(word, reason string) *domain.WordRecord {
	return domain.NewFailedRecord(word, reason, s.now())
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// over path, so a crash mid-write leaves the previous file intact.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
