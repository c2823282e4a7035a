package codebeamer

import (
	"strconv"

	"cbtrace/internal/lobster"
)

// An extractor turns the values found under a configured display field into
// tracing targets on the record.
type extractor func(rec lobster.Record, values []any)

// extractors is keyed by reference-kind name so new kinds stay additive.
// Kinds configured but not registered here are skipped, not errors; a newer
// configuration file must keep working against an older tool.
var extractors = map[string]extractor{
	"refs": extractItemRefs,
}

// extractItemRefs links every value carrying an item id as a requirement
// reference.
func extractItemRefs(rec lobster.Record, values []any) {
	for _, value := range values {
		obj, ok := value.(map[string]any)
		if !ok {
			continue
		}
		id, ok := asInt(obj["id"])
		if !ok || id == 0 {
			continue
		}
		rec.Base().AddTracingTarget(lobster.TracingTag{Namespace: "req", Tag: strconv.Itoa(id)})
	}
}

func resolveReferences(rec lobster.Record, refKind string, fields []string, raw Item) {
	extract, ok := extractors[refKind]
	if !ok {
		return
	}
	for _, field := range fields {
		values := raw.Values(field)
		if len(values) == 0 {
			continue
		}
		extract(rec, values)
	}
}
