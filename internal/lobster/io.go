package lobster

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type envelope struct {
	Data      []Record `json:"data"`
	Generator string   `json:"generator"`
	Schema    string   `json:"schema"`
	Version   int      `json:"version"`
}

// Write serializes records as one tracing artifact for the given schema.
func Write(w io.Writer, schema Schema, generator string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope{
		Data:      records,
		Generator: generator,
		Schema:    schema.Name(),
		Version:   schema.FormatVersion(),
	})
}

var knownSchemas = map[string]bool{
	"lobster-req-trace": true,
	"lobster-imp-trace": true,
	"lobster-act-trace": true,
}

// Read loads a tracing artifact. Only the fields this tool consumes are
// parsed: tag, location, name and the unresolved references.
func Read(path string) ([]Item, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Data      []json.RawMessage `json:"data"`
		Generator string            `json:"generator"`
		Schema    string            `json:"schema"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s: not a tracing artifact: %w", path, err)
	}
	if !knownSchemas[doc.Schema] {
		return nil, fmt.Errorf("%s: unknown schema %q", path, doc.Schema)
	}
	if doc.Data == nil {
		return nil, fmt.Errorf("%s: artifact has no data section", path)
	}
	items := make([]Item, 0, len(doc.Data))
	for i, entry := range doc.Data {
		var v struct {
			Tag      string          `json:"tag"`
			Location json.RawMessage `json:"location"`
			Name     string          `json:"name"`
			Refs     []string        `json:"refs"`
		}
		if err := json.Unmarshal(entry, &v); err != nil {
			return nil, fmt.Errorf("%s: item %d: %w", path, i, err)
		}
		tag, err := ParseTag(v.Tag)
		if err != nil {
			return nil, fmt.Errorf("%s: item %d: %w", path, i, err)
		}
		loc, err := parseLocation(v.Location)
		if err != nil {
			return nil, fmt.Errorf("%s: item %d: %w", path, i, err)
		}
		item := Item{Tag: tag, Location: loc, Name: v.Name}
		for _, ref := range v.Refs {
			parsed, err := ParseTag(ref)
			if err != nil {
				return nil, fmt.Errorf("%s: item %d: %w", path, i, err)
			}
			item.Refs = append(item.Refs, parsed)
		}
		items = append(items, item)
	}
	return items, nil
}
