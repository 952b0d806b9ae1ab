package gathering

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vietddude/lexophile/internal/core/domain"
)

// Failure reasons recorded on failed records.
const (
	ReasonRefused         = "API refused to process word"
	ReasonErrorMessage    = "API returned error message"
	ReasonEmpty           = "API returned empty response"
	ReasonNonJSON         = "API returned non-JSON response"
	ReasonSchemaMismatch  = "API returned JSON with unexpected field types"
	ReasonRetriesExceeded = "API request failed after all retries"
	ReasonRequestFailed   = "API request failed"
	ReasonUnexpected      = "Unexpected error"
)

// ErrSchemaMismatch is returned by ParseResponse for valid JSON whose fields
// have the wrong types.
var ErrSchemaMismatch = errors.New("response fields have unexpected types")

var refusalPrefixes = []string{
	"i'm sorry",
	"i am sorry",
	"i cannot",
	"i can't",
	"i apologize",
	"i am unable",
	"i'm unable",
}

// ClassifyUnparseable picks a human-readable reason for response text that
// could not be decoded as a word entry.
func ClassifyUnparseable(raw string) string {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)

	for _, prefix := range refusalPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return ReasonRefused
		}
	}
	if strings.Contains(lower, "error") {
		return ReasonErrorMessage
	}
	if trimmed == "" {
		return ReasonEmpty
	}
	return ReasonNonJSON
}

// wireEntry is the shape the prompt asks the model to return.
type wireEntry struct {
	Word             string            `json:"word"`
	Definition       *string           `json:"definition"`
	PartOfSpeech     *string           `json:"part_of_speech"`
	Synonyms         domain.StringList `json:"synonyms"`
	Antonyms         domain.StringList `json:"antonyms"`
	PhoneticSpelling *string           `json:"phonetic_spelling"`
	FirstKnownUsage  *string           `json:"first_known_usage"`
	ExampleSentence  *string           `json:"example_sentence"`
}

// ParseResponse decodes model output into a success record for word.
func ParseResponse(word, raw string, now time.Time) (*domain.WordRecord, error) {
	text := stripCodeFence(raw)
	if !strings.HasPrefix(text, "{") {
		return nil, fmt.Errorf("response is not a JSON object")
	}

	var entry wireEntry
	if err := json.Unmarshal([]byte(text), &entry); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &domain.WordRecord{
		Word:             word,
		Definition:       entry.Definition,
		PartOfSpeech:     entry.PartOfSpeech,
		Synonyms:         limitRelated(entry.Synonyms),
		Antonyms:         limitRelated(entry.Antonyms),
		PhoneticSpelling: entry.PhoneticSpelling,
		FirstKnownUsage:  entry.FirstKnownUsage,
		ExampleSentence:  entry.ExampleSentence,
		ProcessingStatus: domain.StatusSuccess,
		ProcessedDate:    domain.Timestamp{Time: now},
	}, nil
}

func limitRelated(in []string) []string {
	out := make([]string, 0, domain.MaxRelated)
	for _, s := range in {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == domain.MaxRelated {
			break
		}
	}
	return out
}

// stripCodeFence removes surrounding whitespace and one Markdown fence.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.Contains(s[:nl], "{") {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
