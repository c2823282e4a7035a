package lobster

import (
	"encoding/json"
	"fmt"
)

// Location says where an item lives. Concrete types serialize themselves with
// a "kind" discriminator so files stay readable by the other tracing tools.
type Location interface {
	String() string
	MarshalJSON() ([]byte, error)
}

type FileReference struct {
	File   string
	Line   int
	Column int
}

func (r FileReference) String() string {
	s := r.File
	if r.Line > 0 {
		s = fmt.Sprintf("%s:%d", s, r.Line)
		if r.Column > 0 {
			s = fmt.Sprintf("%s:%d", s, r.Column)
		}
	}
	return s
}

func (r FileReference) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"kind":   "file",
		"file":   r.File,
		"line":   nil,
		"column": nil,
	}
	if r.Line > 0 {
		m["line"] = r.Line
	}
	if r.Column > 0 {
		m["column"] = r.Column
	}
	return json.Marshal(m)
}

// CodebeamerReference points at one item revision on a codebeamer server.
type CodebeamerReference struct {
	Root    string
	Tracker int
	Item    int
	Version int
	Name    string
}

func (r CodebeamerReference) String() string {
	return fmt.Sprintf("%s/issue/%d?version=%d", r.Root, r.Item, r.Version)
}

func (r CodebeamerReference) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"kind":    "codebeamer",
		"cb_root": r.Root,
		"tracker": r.Tracker,
		"item":    r.Item,
		"version": r.Version,
		"name":    r.Name,
	})
}

type VoidReference struct{}

func (VoidReference) String() string { return "<unknown location>" }

func (VoidReference) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"kind": "void"})
}

func parseLocation(raw json.RawMessage) (Location, error) {
	if len(raw) == 0 {
		return VoidReference{}, nil
	}
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("malformed location: %w", err)
	}
	switch head.Kind {
	case "file":
		var v struct {
			File   string `json:"file"`
			Line   int    `json:"line"`
			Column int    `json:"column"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("malformed file location: %w", err)
		}
		return FileReference{File: v.File, Line: v.Line, Column: v.Column}, nil
	case "codebeamer":
		var v struct {
			Root    string `json:"cb_root"`
			Tracker int    `json:"tracker"`
			Item    int    `json:"item"`
			Version int    `json:"version"`
			Name    string `json:"name"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("malformed codebeamer location: %w", err)
		}
		return CodebeamerReference{Root: v.Root, Tracker: v.Tracker, Item: v.Item, Version: v.Version, Name: v.Name}, nil
	default:
		// Locations this tool never produces (github, void, future kinds)
		// are irrelevant to importing; keep the item readable.
		return VoidReference{}, nil
	}
}
