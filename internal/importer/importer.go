// Package importer ties the fetcher and the mapper together for the two
// supported entry modes: importing the items referenced from an existing
// tracing artifact, and importing everything a saved query matches.
package importer

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"cbtrace/internal/codebeamer"
	"cbtrace/internal/config"
	"cbtrace/internal/lobster"
	"cbtrace/internal/logger"
)

type Importer struct {
	Client *codebeamer.Client
	Config *config.Config
	Log    *logger.Logger
}

func New(client *codebeamer.Client, cfg *config.Config, log *logger.Logger) *Importer {
	return &Importer{Client: client, Config: cfg, Log: log}
}

// CollectIDs scans the artifact items for references in the req namespace
// and returns the deduplicated ids, sorted. Non-numeric or non-positive
// reference ids are warned about and skipped; the run continues.
func CollectIDs(items []lobster.Item, log *logger.Logger) []int {
	seen := map[int]bool{}
	for _, item := range items {
		location := "<unknown location>"
		if item.Location != nil {
			location = item.Location.String()
		}
		for _, ref := range item.Refs {
			if ref.Namespace != "req" {
				continue
			}
			id, err := strconv.Atoi(ref.Tag)
			if err != nil {
				log.Warnf("%s: invalid codebeamer reference %q", location, ref.Tag)
				continue
			}
			if id < 1 {
				log.Warnf("%s: invalid codebeamer reference to %d", location, id)
				continue
			}
			seen[id] = true
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ImportTagged fetches and maps every item the artifact at path references.
func (imp *Importer) ImportTagged(ctx context.Context, path string) ([]lobster.Record, error) {
	items, err := lobster.Read(path)
	if err != nil {
		return nil, err
	}
	ids := CollectIDs(items, imp.Log)
	if len(ids) == 0 {
		imp.Log.Warnf("%s contains no codebeamer references; nothing to import", path)
		return nil, nil
	}
	imp.Log.Infof("importing %d referenced items", len(ids))
	raw, err := imp.Client.GetManyItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	return imp.mapAll(raw)
}

// ImportQuery fetches and maps every item the saved query matches.
func (imp *Importer) ImportQuery(ctx context.Context, queryID int) ([]lobster.Record, error) {
	if queryID < 1 {
		return nil, fmt.Errorf("query id must be positive, got %d", queryID)
	}
	raw, err := imp.Client.GetQueryItems(ctx, queryID)
	if err != nil {
		return nil, err
	}
	return imp.mapAll(raw)
}

func (imp *Importer) mapAll(raw []codebeamer.Item) ([]lobster.Record, error) {
	records := make([]lobster.Record, 0, len(raw))
	for _, item := range raw {
		rec, err := codebeamer.ToLobster(imp.Config, item)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
