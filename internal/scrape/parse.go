package scrape

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Item is one raw scraper item, decoded but not yet normalized. Numbers
// are kept as json.Number so platform-assigned 64-bit identifiers
// survive undamaged.
type Item map[string]any

// Items parses raw scraper stdout, tolerating the output shapes seen
// across scraper versions, tried in order:
//
//  1. a JSON array of item objects
//  2. a JSON object with an "items" array
//  3. a single JSON item object
//  4. newline-delimited JSON, skipping malformed lines individually
//
// The whole document is tried first; JSONL is the fallback. Empty or
// whitespace-only input yields zero items, never an error.
func Items(raw string) []Item {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	if items, ok := parseDocument(trimmed); ok {
		return items
	}
	return parseLines(trimmed)
}

func parseDocument(doc string) ([]Item, bool) {
	var value any
	if err := decodeValue(doc, &value); err != nil {
		return nil, false
	}

	switch v := value.(type) {
	case []any:
		return objectsOf(v), true
	case map[string]any:
		if inner, ok := v["items"]; ok {
			if arr, ok := inner.([]any); ok {
				return objectsOf(arr), true
			}
		}
		return []Item{v}, true
	default:
		// Valid JSON but not an item shape (string, number, ...).
		return nil, true
	}
}

func parseLines(doc string) []Item {
	var items []Item
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var value any
		if err := decodeValue(line, &value); err != nil {
			continue
		}
		if obj, ok := value.(map[string]any); ok {
			items = append(items, obj)
		}
	}
	return items
}

func objectsOf(values []any) []Item {
	items := make([]Item, 0, len(values))
	for _, v := range values {
		if obj, ok := v.(map[string]any); ok {
			items = append(items, obj)
		}
	}
	return items
}

// decodeValue decodes exactly one JSON value, rejecting trailing
// content so concatenated documents fall through to the JSONL path.
func decodeValue(doc string, out *any) error {
	dec := json.NewDecoder(strings.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return err
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		return errTrailingJSON
	}
	return nil
}

var errTrailingJSON = errors.New("trailing content after JSON document")
