package domain

// IsComplete reports whether a stored record can be used as-is.
// Synonyms, antonyms and first known usage may legitimately be empty.
func IsComplete(r *WordRecord) bool {
	if r == nil {
		return false
	}
	if r.ProcessingStatus != StatusSuccess {
		return false
	}
	for _, field := range []*string{r.Definition, r.PartOfSpeech, r.PhoneticSpelling, r.ExampleSentence} {
		if field == nil || *field == "" {
			return false
		}
	}
	return true
}

// NeedsReprocessing is the negation of IsComplete.
func NeedsReprocessing(r *WordRecord) bool {
	return !IsComplete(r)
}
