package requestum

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when ingested bytes are not valid JSON.
var ErrInvalidJSON = errors.New("requestum: invalid JSON")

// Inspector examines raw bytes and returns a View for field queries.
// Different inspectors handle different encodings; the ingestor ships
// with JSON and takes others per format group.
type Inspector interface {
	Inspect(raw []byte) (View, error)
}

// View provides encoding-agnostic field access for format matching and
// envelope extraction.
type View interface {
	// HasField returns true if the path exists in the message.
	HasField(path string) bool

	// GetString returns the string value at path, or false if not found
	// or not a string.
	GetString(path string) (string, bool)

	// GetStrings returns the string array at path, or false if the path
	// is missing, not an array, or holds any non-string element.
	GetStrings(path string) ([]string, bool)

	// GetBytes returns the raw bytes at path, or false if not found.
	// For JSON, this returns the raw JSON value (including quotes for strings).
	GetBytes(path string) ([]byte, bool)
}

// JSONInspector returns an Inspector that uses gjson for field access.
func JSONInspector() Inspector {
	return jsonInspector{}
}

type jsonInspector struct{}

func (jsonInspector) Inspect(raw []byte) (View, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}
	return jsonView{raw: raw}, nil
}

type jsonView struct {
	raw []byte
}

func (v jsonView) HasField(path string) bool {
	return gjson.GetBytes(v.raw, path).Exists()
}

func (v jsonView) GetString(path string) (string, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() {
		return "", false
	}
	if r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

func (v jsonView) GetStrings(path string) ([]string, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.IsArray() {
		return nil, false
	}
	elems := r.Array()
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		if e.Type != gjson.String {
			return nil, false
		}
		out = append(out, e.String())
	}
	return out, true
}

func (v jsonView) GetBytes(path string) ([]byte, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() {
		return nil, false
	}
	return []byte(r.Raw), true
}
