package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProcessingStatus records the outcome of the last fetch for a word.
type ProcessingStatus string

const (
	StatusSuccess ProcessingStatus = "success"
	StatusFailed  ProcessingStatus = "failed"
)

// MaxRelated is the maximum number of synonyms or antonyms kept per word.
const MaxRelated = 2

// WordRecord is the lexical data gathered for one word
type WordRecord struct {
	Word             string           `json:"word"`
	Definition       *string          `json:"definition"`
	PartOfSpeech     *string          `json:"part_of_speech"`
	Synonyms         []string         `json:"synonyms"`
	Antonyms         []string         `json:"antonyms"`
	PhoneticSpelling *string          `json:"phonetic_spelling"`
	FirstKnownUsage  *string          `json:"first_known_usage"`
	ExampleSentence  *string          `json:"example_sentence"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	ErrorReason      *string          `json:"error_reason"`
	ProcessedDate    Timestamp        `json:"processed_date"`
}

// MarshalJSON keeps synonyms and antonyms as arrays even when nil.
func (r WordRecord) MarshalJSON() ([]byte, error) {
	type plain WordRecord
	p := plain(r)
	if p.Synonyms == nil {
		p.Synonyms = []string{}
	}
	if p.Antonyms == nil {
		p.Antonyms = []string{}
	}
	return marshalNoEscape(p)
}

// UnmarshalJSON accepts synonyms and antonyms written as a bare string.
func (r *WordRecord) UnmarshalJSON(data []byte) error {
	type plain WordRecord
	aux := struct {
		*plain
		Synonyms StringList `json:"synonyms"`
		Antonyms StringList `json:"antonyms"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Synonyms = []string(aux.Synonyms)
	r.Antonyms = []string(aux.Antonyms)
	return nil
}

// marshalNoEscape encodes v leaving <, > and & as-is.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// StringList decodes a JSON array of strings, null, or a single string.
// A blank string or "none" decodes as an empty list.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*l = nil
		return nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, "none") {
			*l = []string{}
		} else {
			*l = []string{s}
		}
		return nil
	}
	var items []string
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// NewFailedRecord builds a record with no content and the given failure reason.
func NewFailedRecord(word, reason string, now time.Time) *WordRecord {
	return &WordRecord{
		Word:             word,
		Synonyms:         []string{},
		Antonyms:         []string{},
		ProcessingStatus: StatusFailed,
		ErrorReason:      &reason,
		ProcessedDate:    Timestamp{now},
	}
}

// Metadata is the aggregate header of the store document.
type Metadata struct {
	TotalWords             int       `json:"total_words"`
	CreatedDate            Timestamp `json:"created_date"`
	LastUpdated            Timestamp `json:"last_updated"`
	Source                 string    `json:"source"`
	WordListFile           string    `json:"word_list_file"`
	LongestDefinition      *string   `json:"longest_definition"`
	LongestExampleSentence *string   `json:"longest_example_sentence"`
}

// Document is the full on-disk store: metadata plus every word record.
type Document struct {
	Metadata Metadata               `json:"metadata"`
	Words    map[string]*WordRecord `json:"words"`
}

// timestampLayouts are accepted on read. The last two cover files written
// without a zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Timestamp is a time.Time that tolerates zone-less ISO-8601 values on read
// and writes RFC3339 with nanoseconds.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
