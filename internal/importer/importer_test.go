package importer_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"cbtrace/internal/codebeamer"
	"cbtrace/internal/config"
	"cbtrace/internal/importer"
	"cbtrace/internal/lobster"
	"cbtrace/internal/logger"
)

func nullLogger() (*logger.Logger, *logtest.Hook) {
	l, hook := logtest.NewNullLogger()
	return &logger.Logger{Logger: l}, hook
}

func warningCount(hook *logtest.Hook) int {
	n := 0
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			n++
		}
	}
	return n
}

func artifactItem(tag string, refs ...string) lobster.Item {
	item := lobster.Item{
		Tag:      lobster.TracingTag{Namespace: "req", Tag: tag},
		Location: lobster.FileReference{File: "demo.trlc", Line: 1},
		Name:     tag,
	}
	for _, ref := range refs {
		parsed, _ := lobster.ParseTag(ref)
		item.AddTracingTarget(parsed)
	}
	return item
}

func TestCollectIDs(t *testing.T) {
	log, hook := nullLogger()
	items := []lobster.Item{
		artifactItem("a", "req 10", "req -3", "req abc"),
		artifactItem("b", "req 10", "imp 77"),
	}
	ids := importer.CollectIDs(items, log)
	if len(ids) != 1 || ids[0] != 10 {
		t.Fatalf("ids: %v", ids)
	}
	if got := warningCount(hook); got != 2 {
		t.Fatalf("warnings: %d, want 2", got)
	}
}

func TestCollectIDsSortsAndDedupes(t *testing.T) {
	log, hook := nullLogger()
	items := []lobster.Item{
		artifactItem("a", "req 30", "req 10"),
		artifactItem("b", "req 20", "req 30"),
	}
	ids := importer.CollectIDs(items, log)
	if len(ids) != 3 || ids[0] != 10 || ids[1] != 20 || ids[2] != 30 {
		t.Fatalf("ids: %v", ids)
	}
	if got := warningCount(hook); got != 0 {
		t.Fatalf("unexpected warnings: %d", got)
	}
}

// testEnv wires a fake remote server, a client and an importer together.
type testEnv struct {
	Importer *importer.Importer
	Hook     *logtest.Hook

	requests     int
	queryStrings []string
}

func newTestEnv(t *testing.T, serverItems []map[string]any) *testEnv {
	t.Helper()
	env := &testEnv{}

	r := chi.NewRouter()
	r.Get("/cb/api/v3/items/query", func(w http.ResponseWriter, req *http.Request) {
		env.requests++
		qs, _ := url.QueryUnescape(req.URL.Query().Get("queryString"))
		env.queryStrings = append(env.queryStrings, qs)
		writeJSON(w, map[string]any{
			"page":     1,
			"pageSize": 100,
			"total":    len(serverItems),
			"items":    serverItems,
		})
	})
	r.Get("/cb/api/v3/reports/{id}/items", func(w http.ResponseWriter, req *http.Request) {
		env.requests++
		wrapped := []map[string]any{}
		for _, item := range serverItems {
			wrapped = append(wrapped, map[string]any{"item": item})
		}
		writeJSON(w, map[string]any{
			"page":     1,
			"pageSize": 100,
			"total":    len(serverItems),
			"items":    wrapped,
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	log, hook := nullLogger()
	env.Hook = hook
	cfg := &config.Config{
		Root:       srv.URL,
		Schema:     lobster.SchemaRequirement,
		PageSize:   100,
		Timeout:    5 * time.Second,
		References: map[string][]string{"refs": {"CustomLinks"}},
	}
	client := codebeamer.New(codebeamer.Options{
		Root:     srv.URL,
		User:     "alice",
		Pass:     "secret",
		PageSize: cfg.PageSize,
		Timeout:  cfg.Timeout,
	}, log)
	env.Importer = importer.New(client, cfg, log)
	return env
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeArtifact(t *testing.T, items []lobster.Item) string {
	t.Helper()
	records := make([]lobster.Record, 0, len(items))
	for i := range items {
		records = append(records, &lobster.Requirement{Item: items[i], Framework: "trlc", Kind: "requirement"})
	}
	path := filepath.Join(t.TempDir(), "input.lobster")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create artifact: %v", err)
	}
	defer f.Close()
	if err := lobster.Write(f, lobster.SchemaRequirement, "test", records); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func serverItem(id int, links ...int) map[string]any {
	item := map[string]any{
		"id":      id,
		"version": 2,
		"tracker": map[string]any{"id": 9},
		"name":    fmt.Sprintf("Item %d", id),
		"status":  map[string]any{"name": "Draft"},
	}
	if len(links) > 0 {
		values := make([]any, 0, len(links))
		for _, link := range links {
			values = append(values, map[string]any{"id": link})
		}
		item["CustomLinks"] = values
	}
	return item
}

func TestImportTagged(t *testing.T) {
	env := newTestEnv(t, []map[string]any{
		serverItem(10, 42),
		serverItem(11),
	})
	path := writeArtifact(t, []lobster.Item{
		artifactItem("a", "req 11", "req 10"),
		artifactItem("b", "req 10"),
	})

	records, err := env.Importer.ImportTagged(context.Background(), path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records: %d", len(records))
	}
	if env.queryStrings[0] != "item.id IN (10,11)" {
		t.Fatalf("filter expression: %q", env.queryStrings[0])
	}
	first := records[0].(*lobster.Requirement)
	if first.Tag.String() != "req 10@2" || first.Status != "Draft" {
		t.Fatalf("first record: %+v", first)
	}
	if len(first.Refs) != 1 || first.Refs[0].String() != "req 42" {
		t.Fatalf("first record refs: %v", first.Refs)
	}
}

func TestImportTaggedNoReferences(t *testing.T) {
	env := newTestEnv(t, nil)
	path := writeArtifact(t, []lobster.Item{artifactItem("a", "imp other.ns")})

	records, err := env.Importer.ImportTagged(context.Background(), path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("records: %d", len(records))
	}
	if env.requests != 0 {
		t.Fatalf("no fetch expected, got %d requests", env.requests)
	}
}

func TestImportTaggedBadArtifact(t *testing.T) {
	env := newTestEnv(t, nil)
	path := filepath.Join(t.TempDir(), "bad.lobster")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := env.Importer.ImportTagged(context.Background(), path); err == nil {
		t.Fatal("expected error for malformed artifact")
	}
	if env.requests != 0 {
		t.Fatalf("no fetch expected, got %d requests", env.requests)
	}
}

func TestImportQuery(t *testing.T) {
	env := newTestEnv(t, []map[string]any{
		serverItem(1),
		serverItem(2, 7),
	})
	records, err := env.Importer.ImportQuery(context.Background(), 4711)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records: %d", len(records))
	}
	second := records[1].(*lobster.Requirement)
	if len(second.Refs) != 1 || second.Refs[0].String() != "req 7" {
		t.Fatalf("second record refs: %v", second.Refs)
	}
}

func TestImportQueryRejectsNonPositiveID(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, id := range []int{0, -5} {
		if _, err := env.Importer.ImportQuery(context.Background(), id); err == nil {
			t.Fatalf("expected error for query id %d", id)
		}
	}
	if env.requests != 0 {
		t.Fatalf("no fetch expected, got %d requests", env.requests)
	}
}
