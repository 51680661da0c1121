package message

import (
	"encoding/json"
	"strings"
)

// The codec is intentionally lossy: within each category only the first
// occurrence of the delimiter is structural, and any later occurrences are
// folded into the value WITHOUT the delimiter character. Serialize(Parse(x))
// therefore need not reproduce x, but Parse(Serialize(Parse(x))) is
// idempotent. Call sites depend on exactly this behavior; changing the
// folding rule requires revalidating all of them.

// Parse decodes raw captured request text into a Request. It never fails:
// malformed input degrades to a sparser model rather than an error.
func Parse(raw string) *Request {
	// Proxy captures arrive with CRLF line endings; the codec works on LF.
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	req := New()
	lines := strings.Split(raw, "\n")

	parseRequestLine(req, lines[0])

	for _, line := range lines[1:] {
		if line == "" {
			break
		}
		name, value := splitFold(line, ":")
		value = strings.TrimSpace(value)
		if name == "Cookie" {
			parseCookies(req, value)
			continue
		}
		if name == "Content-Length" {
			// Derivable from the serialized body; storing it would replay a
			// stale length once a body field is removed.
			continue
		}
		req.Headers.Set(name, value)
	}

	parseBody(req, raw)
	return req
}

func parseRequestLine(req *Request, line string) {
	tokens := strings.Split(line, " ")
	if len(tokens) > 0 {
		req.Method = strings.ToUpper(tokens[0])
	}
	if len(tokens) > 1 {
		path, query, _ := strings.Cut(tokens[1], "?")
		req.Path = path
		for _, seg := range strings.Split(query, "&") {
			if seg == "" {
				continue
			}
			k, v := splitFold(seg, "=")
			req.Query.Set(k, v)
		}
	}
	if len(tokens) > 2 {
		req.Version = tokens[2]
	}
}

func parseCookies(req *Request, value string) {
	for _, c := range strings.Split(value, ";") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		k, v := splitFold(c, "=")
		req.Cookies.Set(k, v)
	}
}

// parseBody takes the last non-empty double-LF-separated segment as the body
// text, decoding it as JSON first and falling back to form encoding.
func parseBody(req *Request, raw string) {
	var body string
	nonEmpty := 0
	for _, seg := range strings.Split(raw, "\n\n") {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		nonEmpty++
		body = strings.TrimSpace(seg)
	}
	if nonEmpty <= 1 {
		req.Body = BodyEmpty
		return
	}

	var parsed any
	if err := json.Unmarshal([]byte(body), &parsed); err == nil {
		req.Body = BodyJSON
		req.JSON = parsed
		return
	}

	req.Body = BodyForm
	for _, seg := range strings.Split(body, "&") {
		if seg == "" {
			continue
		}
		k, v := splitFold(seg, "=")
		req.Form.Set(k, v)
	}
}

// Serialize encodes the Request back to raw text. Collections render in
// insertion order; an empty body renders nothing after the blank line.
func (r *Request) Serialize() string {
	var b strings.Builder

	b.WriteString(r.Method)
	b.WriteByte(' ')
	b.WriteString(r.Path)
	if r.Query.Len() > 0 {
		b.WriteByte('?')
		b.WriteString(encodeFields(r.Query, "&"))
	}
	b.WriteByte(' ')
	b.WriteString(r.Version)
	b.WriteByte('\n')

	for pair := r.Headers.Oldest(); pair != nil; pair = pair.Next() {
		b.WriteString(pair.Key)
		b.WriteString(": ")
		b.WriteString(pair.Value)
		b.WriteByte('\n')
	}
	if r.Cookies.Len() > 0 {
		b.WriteString("Cookie: ")
		b.WriteString(encodeFields(r.Cookies, "; "))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	switch r.Body {
	case BodyJSON:
		if data, err := json.Marshal(r.JSON); err == nil {
			b.Write(data)
			b.WriteByte('\n')
		}
	case BodyForm:
		b.WriteString(encodeFields(r.Form, "&"))
		b.WriteByte('\n')
	}
	return b.String()
}

func encodeFields(f *Fields, sep string) string {
	var b strings.Builder
	for pair := f.Oldest(); pair != nil; pair = pair.Next() {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(pair.Key)
		b.WriteByte('=')
		b.WriteString(pair.Value)
	}
	return b.String()
}

// splitFold splits s on the first occurrence of sep; the remainder is
// re-joined with sep stripped out. A missing sep yields an empty value.
func splitFold(s, sep string) (string, string) {
	parts := strings.Split(s, sep)
	return parts[0], strings.Join(parts[1:], "")
}
