package gathering

import "fmt"

const promptTemplate = `You must provide information for the English word "%[1]s" in STRICT JSON format.

CRITICAL: Your response must be ONLY valid JSON. Do not include any explanatory text, markdown formatting, code blocks, or additional commentary before or after the JSON.

Required JSON structure (copy this exact format):
{
  "word": "%[1]s",
  "definition": "string - clear definition of the word",
  "part_of_speech": "string - primary part of speech (noun, verb, adjective, etc.)",
  "synonyms": ["string1", "string2"] - array with at most 2 synonyms (use empty array [] if none),
  "antonyms": ["string1", "string2"] - array with at most 2 antonyms (use empty array [] if none),
  "phonetic_spelling": "string - simple phonetic respelling (e.g. 'uh-beys' for 'abase')",
  "first_known_usage": "string - century when first used (e.g. '14th century') or null if unknown",
  "example_sentence": "string - sentence demonstrating clear word usage and meaning"
}

REQUIREMENTS:
- Example sentence MUST demonstrate the word's meaning clearly and unambiguously, in context
- Phonetic spelling should be simple respelling format (like 'nooz-pey-per' for 'newspaper')
- Use null for unknown fields, empty arrays [] for missing synonyms/antonyms
- Response must be parseable by JSON.parse() - no syntax errors allowed
- No text outside the JSON object

Generate the JSON for "%[1]s" now:`

// BuildPrompt embeds word in the strict JSON instruction.
func BuildPrompt(word string) string {
	return fmt.Sprintf(promptTemplate, word)
}
