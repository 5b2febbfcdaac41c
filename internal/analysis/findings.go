package analysis

import (
	"bytes"
	"encoding/json"
)

// Sentinels used inside a FindingSet. Absence of a capability is always
// represented as one of these, never silently dropped.
const (
	ToolNotAvailable = "tool not available"
	NoIssues         = "no issues detected"
)

// ConceptualSource is the synthetic entry produced by the rule engine.
const ConceptualSource = "conceptual_errors"

// Finding is one tool's or rule source's report.
type Finding struct {
	Source string
	Report string
}

// FindingSet is an ordered mapping from tool/rule name to its report.
// Order is insertion order; JSON marshaling preserves it.
type FindingSet struct {
	entries []Finding
}

func (fs *FindingSet) Add(source, report string) {
	fs.entries = append(fs.entries, Finding{Source: source, Report: report})
}

// Get returns the report for a source, if present.
func (fs *FindingSet) Get(source string) (string, bool) {
	for _, f := range fs.entries {
		if f.Source == source {
			return f.Report, true
		}
	}
	return "", false
}

// Entries returns the findings in insertion order.
func (fs *FindingSet) Entries() []Finding {
	return fs.entries
}

func (fs *FindingSet) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.entries)
}

// MarshalJSON emits an object whose keys appear in insertion order.
func (fs FindingSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Source)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Report)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts a plain object; ordering follows the decoder's
// token order, which matches the document.
func (fs *FindingSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return &json.UnmarshalTypeError{Value: "non-object", Type: nil}
	}
	fs.entries = nil
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		var val string
		if err := dec.Decode(&val); err != nil {
			return err
		}
		fs.entries = append(fs.entries, Finding{Source: keyTok.(string), Report: val})
	}
	_, err = dec.Token() // closing brace
	return err
}
