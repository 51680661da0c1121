package message

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrProtocolMismatch indicates the status line did not carry an integer
// status code. The usual cause is plaintext sent to a TLS endpoint or vice
// versa, so it is handled like any other transport failure.
var ErrProtocolMismatch = errors.New("response status line is not HTTP")

// Fingerprint condenses a response header block into the 3-tuple used to
// judge response equivalence. Headers are retained for reporting but never
// participate in matching: caches, timestamps and tracing IDs vary across
// otherwise identical responses.
type Fingerprint struct {
	Headers       *Fields `json:"headers"`
	ContentLength int     `json:"content_length"`
	StatusCode    int     `json:"status_code"`
	StatusMessage string  `json:"status_message"`
}

// ParseFingerprint decodes a raw response header block, as read off the wire
// up through the blank-line terminator.
func ParseFingerprint(block string) (*Fingerprint, error) {
	block = strings.ReplaceAll(block, "\r\n", "\n")
	lines := strings.Split(block, "\n")

	tokens := strings.Fields(lines[0])
	if len(tokens) < 2 {
		return nil, fmt.Errorf("%w: status line %q", ErrProtocolMismatch, lines[0])
	}
	code, err := strconv.Atoi(tokens[1])
	if err != nil {
		return nil, fmt.Errorf("%w: status line %q", ErrProtocolMismatch, lines[0])
	}

	fp := &Fingerprint{
		Headers:       orderedmap.New[string, string](),
		StatusCode:    code,
		StatusMessage: strings.Join(tokens[2:], " "),
	}
	for _, line := range lines[1:] {
		if line == "" {
			break
		}
		name, value := splitFold(line, ":")
		fp.Headers.Set(name, strings.TrimSpace(value))
	}
	if v, ok := fp.Headers.Get("Content-Length"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			fp.ContentLength = n
		}
	}
	return fp, nil
}

// Equals reports fingerprint equivalence: content length, status code and
// status message all match. A nil fingerprint (failed probe) never matches.
func (f *Fingerprint) Equals(o *Fingerprint) bool {
	if f == nil || o == nil {
		return false
	}
	return f.ContentLength == o.ContentLength &&
		f.StatusCode == o.StatusCode &&
		f.StatusMessage == o.StatusMessage
}
