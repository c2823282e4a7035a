package lobster

import "encoding/json"

// Item holds the fields shared by every record kind. Refs are unresolved
// tracing targets; they accumulate during mapping and are never removed.
type Item struct {
	Tag        TracingTag
	Location   Location
	Name       string
	Messages   []string
	JustUp     []string
	JustDown   []string
	JustGlobal []string
	Refs       []TracingTag
}

// AddTracingTarget records a reference from this item to another.
func (it *Item) AddTracingTarget(tag TracingTag) {
	it.Refs = append(it.Refs, tag)
}

func (it *Item) baseJSON() map[string]any {
	refs := make([]string, 0, len(it.Refs))
	for _, r := range it.Refs {
		refs = append(refs, r.String())
	}
	var loc any = VoidReference{}
	if it.Location != nil {
		loc = it.Location
	}
	return map[string]any{
		"tag":         it.Tag.String(),
		"location":    loc,
		"name":        it.Name,
		"messages":    orEmpty(it.Messages),
		"just_up":     orEmpty(it.JustUp),
		"just_down":   orEmpty(it.JustDown),
		"just_global": orEmpty(it.JustGlobal),
		"refs":        refs,
	}
}

// Record is one serializable tracing item: a Requirement, Implementation or
// Activity.
type Record interface {
	json.Marshaler
	Base() *Item
	KindLabel() string
}

type Requirement struct {
	Item
	Framework string
	Kind      string
	Text      string
	Status    string
}

func (r *Requirement) Base() *Item       { return &r.Item }
func (r *Requirement) KindLabel() string { return r.Kind }

func (r *Requirement) MarshalJSON() ([]byte, error) {
	m := r.baseJSON()
	m["framework"] = r.Framework
	m["kind"] = r.Kind
	m["text"] = orNull(r.Text)
	m["status"] = orNull(r.Status)
	return json.Marshal(m)
}

type Implementation struct {
	Item
	Language string
	Kind     string
}

func (r *Implementation) Base() *Item       { return &r.Item }
func (r *Implementation) KindLabel() string { return r.Kind }

func (r *Implementation) MarshalJSON() ([]byte, error) {
	m := r.baseJSON()
	m["language"] = r.Language
	m["kind"] = r.Kind
	return json.Marshal(m)
}

type Activity struct {
	Item
	Framework string
	Kind      string
	Status    string
}

func (r *Activity) Base() *Item       { return &r.Item }
func (r *Activity) KindLabel() string { return r.Kind }

func (r *Activity) MarshalJSON() ([]byte, error) {
	m := r.baseJSON()
	m["framework"] = r.Framework
	m["kind"] = r.Kind
	m["status"] = orNull(r.Status)
	return json.Marshal(m)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}
