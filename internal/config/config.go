package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jdxcode/netrc"

	"cbtrace/internal/lobster"
)

// Config is the full, immutable configuration of one import run.
type Config struct {
	Root       string
	User       string
	Pass       string
	VerifySSL  bool
	PageSize   int
	Timeout    time.Duration
	Schema     lobster.Schema
	References map[string][]string
}

// ReferenceConfig is the parsed reference configuration file: which display
// fields to scan per reference kind, plus the chosen output schema.
type ReferenceConfig struct {
	Schema     lobster.Schema
	References map[string][]string
}

// referenceConfigKeys are the only keys a reference configuration file may
// contain. "kind" selects the output schema; everything else names a
// reference kind.
var referenceConfigKeys = map[string]bool{
	"refs": true,
	"kind": true,
}

// LoadReferences reads and validates a reference configuration file.
func LoadReferences(path string) (*ReferenceConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open config file %q: %w", path, err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("config file %q is not a JSON object: %w", path, err)
	}

	var unsupported []string
	for key := range data {
		if !referenceConfigKeys[key] {
			unsupported = append(unsupported, key)
		}
	}
	if len(unsupported) > 0 {
		sort.Strings(unsupported)
		return nil, fmt.Errorf("config file %q has unsupported keys %s; supported keys: kind, refs",
			path, strings.Join(unsupported, ", "))
	}

	rc := &ReferenceConfig{
		Schema:     lobster.SchemaRequirement,
		References: map[string][]string{},
	}
	for key, value := range data {
		if key == "kind" {
			schema, err := lobster.ParseSchema(fmt.Sprint(value))
			if err != nil {
				return nil, fmt.Errorf("config file %q: %w", path, err)
			}
			rc.Schema = schema
			continue
		}
		rc.References[key] = toStringList(value)
	}
	return rc, nil
}

// toStringList coerces a config value to a list of display-field names. A
// homogeneous string list passes through; anything else becomes a single
// stringified entry.
func toStringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{fmt.Sprint(v)}
	}
	out := make([]string, 0, len(list))
	for _, entry := range list {
		s, ok := entry.(string)
		if !ok {
			return []string{fmt.Sprint(v)}
		}
		out = append(out, s)
	}
	return out
}

// Base is the REST API root under the server root.
func (c *Config) Base() string {
	return strings.TrimRight(c.Root, "/") + "/cb/api/v3"
}

// Validate checks everything needed before the first request.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("codebeamer root is not set; use --cb-root or CB_ROOT")
	}
	if !strings.HasPrefix(c.Root, "https://") {
		return fmt.Errorf("codebeamer root %s must start with https://", c.Root)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	if _, err := lobster.ParseSchema(string(c.Schema)); err != nil {
		return err
	}
	return nil
}

// ResolveCredentials fills missing credentials from the machine-credentials
// file at netrcPath, then verifies both are set.
func (c *Config) ResolveCredentials(netrcPath string) error {
	if c.User == "" || c.Pass == "" {
		c.fillFromNetrc(netrcPath)
	}
	if c.User == "" {
		return fmt.Errorf("codebeamer user is not set; use --cb-user, CB_USERNAME or a ~/.netrc entry")
	}
	if c.Pass == "" {
		return fmt.Errorf("codebeamer password is not set; use --cb-pass, CB_PASSWORD or a ~/.netrc entry")
	}
	return nil
}

func (c *Config) fillFromNetrc(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	rc, err := netrc.Parse(path)
	if err != nil {
		return
	}
	host := strings.TrimPrefix(c.Root, "https://")
	machine := rc.Machine(host)
	if machine == nil {
		return
	}
	user := machine.Get("login")
	pass := machine.Get("password")
	if user != "" && pass != "" {
		c.User = user
		c.Pass = pass
	}
}
