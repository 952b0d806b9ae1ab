// Package sqlite exports successful word records into a relational database.
package sqlite

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vietddude/lexophile/internal/core/domain"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS words (
	word              TEXT PRIMARY KEY,
	definition        TEXT NOT NULL,
	part_of_speech    TEXT NOT NULL,
	phonetic_spelling TEXT NOT NULL,
	first_known_usage TEXT,
	example_sentence  TEXT NOT NULL,
	processed_date    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS word_relations (
	word     TEXT NOT NULL REFERENCES words(word) ON DELETE CASCADE,
	kind     TEXT NOT NULL CHECK (kind IN ('synonym', 'antonym')),
	position INTEGER NOT NULL,
	related  TEXT NOT NULL,
	PRIMARY KEY (word, kind, position)
);
CREATE INDEX IF NOT EXISTS idx_word_relations_related ON word_relations(related)
`

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := InitDB(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init sqlite: %w", err)
	}
	return conn, nil
}

// InitDB applies the schema statements on the given connection.
func InitDB(db *sql.DB) error {
	for _, s := range strings.Split(schemaSQL, ";") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Export writes every complete record of doc in one transaction and returns
// the number of words written. Existing rows for the same word are replaced.
func Export(db *sql.DB, doc *domain.Document) (int, error) {
	words := make([]string, 0, len(doc.Words))
	for w, rec := range doc.Words {
		if domain.IsComplete(rec) {
			words = append(words, w)
		}
	}
	sort.Strings(words)

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, w := range words {
		if err := exportRecord(tx, w, doc.Words[w]); err != nil {
			return 0, fmt.Errorf("export %q: %w", w, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(words), nil
}

func exportRecord(tx *sql.Tx, word string, rec *domain.WordRecord) error {
	var usage sql.NullString
	if rec.FirstKnownUsage != nil {
		usage = sql.NullString{String: *rec.FirstKnownUsage, Valid: true}
	}

	_, err := tx.Exec(
		`INSERT INTO words (word, definition, part_of_speech, phonetic_spelling, first_known_usage, example_sentence, processed_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(word) DO UPDATE SET
		   definition = excluded.definition,
		   part_of_speech = excluded.part_of_speech,
		   phonetic_spelling = excluded.phonetic_spelling,
		   first_known_usage = excluded.first_known_usage,
		   example_sentence = excluded.example_sentence,
		   processed_date = excluded.processed_date`,
		word, *rec.Definition, *rec.PartOfSpeech, *rec.PhoneticSpelling, usage, *rec.ExampleSentence,
		rec.ProcessedDate.UTC().Format("2006-01-02T15:04:05.000000Z"),
	)
	if err != nil {
		return fmt.Errorf("upsert word: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM word_relations WHERE word = ?`, word); err != nil {
		return fmt.Errorf("clear relations: %w", err)
	}
	for kind, related := range map[string][]string{"synonym": rec.Synonyms, "antonym": rec.Antonyms} {
		for i, r := range related {
			if _, err := tx.Exec(
				`INSERT INTO word_relations (word, kind, position, related) VALUES (?, ?, ?, ?)`,
				word, kind, i, r,
			); err != nil {
				return fmt.Errorf("insert %s: %w", kind, err)
			}
		}
	}
	return nil
}
