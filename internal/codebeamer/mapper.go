package codebeamer

import (
	"fmt"
	"strconv"

	"cbtrace/internal/config"
	"cbtrace/internal/lobster"
)

// fallbackKind labels items whose tracker assigns no category.
const fallbackKind = "codebeamer item"

// ToLobster converts one raw payload into the record kind the run's schema
// selects. Pure: no network access, deterministic for a fixed input.
func ToLobster(cfg *config.Config, raw Item) (lobster.Record, error) {
	schema := cfg.Schema

	kind := fallbackKind
	if category, ok := raw.Category(); ok {
		kind = category
	}
	status, _ := raw.Status()

	// Items do not always carry a name; every record must.
	name, ok := raw.Name()
	if !ok {
		name = fmt.Sprintf("Unnamed item %d", raw.ID())
	}

	base := lobster.Item{
		Tag: lobster.TracingTag{
			Namespace: schema.Namespace(),
			Tag:       strconv.Itoa(raw.ID()),
			Version:   strconv.Itoa(raw.Version()),
		},
		Location: lobster.CodebeamerReference{
			Root:    cfg.Root,
			Tracker: raw.TrackerID(),
			Item:    raw.ID(),
			Version: raw.Version(),
			Name:    name,
		},
		Name: name,
	}

	var rec lobster.Record
	switch schema {
	case lobster.SchemaRequirement:
		rec = &lobster.Requirement{Item: base, Framework: "codebeamer", Kind: kind, Status: status}
	case lobster.SchemaImplementation:
		// The server does not report a per-item source language.
		rec = &lobster.Implementation{Item: base, Language: "unknown", Kind: kind}
	case lobster.SchemaActivity:
		rec = &lobster.Activity{Item: base, Framework: "codebeamer", Kind: kind, Status: status}
	default:
		return nil, fmt.Errorf("unsupported schema %q provided in configuration", schema)
	}

	for refKind, fields := range cfg.References {
		resolveReferences(rec, refKind, fields, raw)
	}
	return rec, nil
}
