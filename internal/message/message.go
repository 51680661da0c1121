// Package message implements the structured request model, its lossy text
// codec, and response fingerprints. A captured request is decomposed into
// independently removable elements (query parameters, headers, cookies and
// form fields) so the minimizer can probe each one in isolation.
package message

import (
	"reflect"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// BodyType tags the decoded body representation of a Request.
type BodyType int

const (
	BodyEmpty BodyType = iota
	BodyJSON
	BodyForm
)

func (b BodyType) String() string {
	switch b {
	case BodyJSON:
		return "json"
	case BodyForm:
		return "form"
	default:
		return "empty"
	}
}

// Location identifies which of the four removable-element categories a key
// lives in. A key removed from one location never collides with a key of the
// same name in another.
type Location string

const (
	LocationQuery  Location = "query"
	LocationHeader Location = "header"
	LocationCookie Location = "cookie"
	LocationForm   Location = "form"
)

// Removal addresses a single removable element of a Request.
type Removal struct {
	Key      string   `json:"key"`
	Location Location `json:"location"`
}

// Fields is an insertion-ordered string map. Duplicate keys collapse (the
// later occurrence overwrites the value in place), which keeps serialization
// deterministic.
type Fields = orderedmap.OrderedMap[string, string]

// Request is the mutable in-memory form of a captured HTTP request. Whichever
// stage currently holds a Request owns it exclusively; concurrent probes each
// work on their own Clone.
type Request struct {
	Method  string // always rendered upper-case
	Path    string // excludes the query component
	Version string // opaque token, passed through unchanged
	Query   *Fields
	Headers *Fields // excludes Cookie, which is lifted into Cookies
	Cookies *Fields
	Body    BodyType
	JSON    any     // set when Body == BodyJSON
	Form    *Fields // set when Body == BodyForm
}

// New returns an empty Request with all collections initialized.
func New() *Request {
	return &Request{
		Query:   orderedmap.New[string, string](),
		Headers: orderedmap.New[string, string](),
		Cookies: orderedmap.New[string, string](),
		Form:    orderedmap.New[string, string](),
	}
}

// Clone returns a deep copy sharing no mutable state with the receiver.
func (r *Request) Clone() *Request {
	c := New()
	c.Method = r.Method
	c.Path = r.Path
	c.Version = r.Version
	c.Body = r.Body
	c.JSON = r.JSON
	copyFields(c.Query, r.Query)
	copyFields(c.Headers, r.Headers)
	copyFields(c.Cookies, r.Cookies)
	copyFields(c.Form, r.Form)
	return c
}

// Remove deletes the addressed element. Removing a key that is absent, or a
// form field from a non-form body, is a no-op.
func (r *Request) Remove(rm Removal) {
	switch rm.Location {
	case LocationQuery:
		r.Query.Delete(rm.Key)
	case LocationHeader:
		r.Headers.Delete(rm.Key)
	case LocationCookie:
		r.Cookies.Delete(rm.Key)
	case LocationForm:
		if r.Body == BodyForm {
			r.Form.Delete(rm.Key)
		}
	}
}

// Removals enumerates every removable element currently present, in category
// order: query parameters, form fields (form bodies only), headers, cookies.
// JSON and empty bodies contribute no candidates.
func (r *Request) Removals() []Removal {
	var out []Removal
	appendKeys := func(loc Location, f *Fields) {
		for pair := f.Oldest(); pair != nil; pair = pair.Next() {
			out = append(out, Removal{Key: pair.Key, Location: loc})
		}
	}
	appendKeys(LocationQuery, r.Query)
	if r.Body == BodyForm {
		appendKeys(LocationForm, r.Form)
	}
	appendKeys(LocationHeader, r.Headers)
	appendKeys(LocationCookie, r.Cookies)
	return out
}

// Equal reports structural equality: same fields, same keys and values in the
// same insertion order, equivalent body.
func (r *Request) Equal(o *Request) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.Method != o.Method || r.Path != o.Path || r.Version != o.Version || r.Body != o.Body {
		return false
	}
	if !fieldsEqual(r.Query, o.Query) || !fieldsEqual(r.Headers, o.Headers) || !fieldsEqual(r.Cookies, o.Cookies) {
		return false
	}
	switch r.Body {
	case BodyForm:
		return fieldsEqual(r.Form, o.Form)
	case BodyJSON:
		return reflect.DeepEqual(r.JSON, o.JSON)
	}
	return true
}

func copyFields(dst, src *Fields) {
	for pair := src.Oldest(); pair != nil; pair = pair.Next() {
		dst.Set(pair.Key, pair.Value)
	}
}

func fieldsEqual(a, b *Fields) bool {
	if a.Len() != b.Len() {
		return false
	}
	pa, pb := a.Oldest(), b.Oldest()
	for pa != nil && pb != nil {
		if pa.Key != pb.Key || pa.Value != pb.Value {
			return false
		}
		pa, pb = pa.Next(), pb.Next()
	}
	return pa == nil && pb == nil
}
