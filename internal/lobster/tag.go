package lobster

import (
	"fmt"
	"strings"
)

// TracingTag uniquely names one item in the tracing format as
// "namespace tag[@version]".
type TracingTag struct {
	Namespace string
	Tag       string
	Version   string
}

// Key identifies the item independent of version.
func (t TracingTag) Key() string {
	return t.Namespace + " " + t.Tag
}

func (t TracingTag) String() string {
	if t.Version == "" {
		return t.Key()
	}
	return t.Key() + "@" + t.Version
}

// ParseTag parses the serialized "namespace tag[@version]" form.
func ParseTag(s string) (TracingTag, error) {
	namespace, rest, ok := strings.Cut(s, " ")
	if !ok || namespace == "" || rest == "" {
		return TracingTag{}, fmt.Errorf("malformed tracing tag %q", s)
	}
	tag := TracingTag{Namespace: namespace, Tag: rest}
	if at := strings.LastIndex(rest, "@"); at > 0 && at < len(rest)-1 {
		tag.Tag = rest[:at]
		tag.Version = rest[at+1:]
	}
	return tag, nil
}
