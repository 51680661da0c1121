package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFingerprint(t *testing.T) {
	tests := []struct {
		name        string
		block       string
		wantCode    int
		wantMessage string
		wantLength  int
	}{
		{
			name:        "single token message",
			block:       "HTTP/1.1 200 OK\nContent-Length: 1234\nServer: nginx\n\n",
			wantCode:    200,
			wantMessage: "OK",
			wantLength:  1234,
		},
		{
			name:        "multi token message joins with single spaces",
			block:       "HTTP/1.1 404 Not  Found\n\n",
			wantCode:    404,
			wantMessage: "Not Found",
			wantLength:  0,
		},
		{
			name:        "missing content length defaults to zero",
			block:       "HTTP/1.1 204 No Content\nDate: whenever\n\n",
			wantCode:    204,
			wantMessage: "No Content",
			wantLength:  0,
		},
		{
			name:        "unparseable content length defaults to zero",
			block:       "HTTP/1.1 200 OK\nContent-Length: banana\n\n",
			wantCode:    200,
			wantMessage: "OK",
			wantLength:  0,
		},
		{
			name:        "crlf terminated block",
			block:       "HTTP/1.1 301 Moved Permanently\r\nLocation: /new\r\n\r\n",
			wantCode:    301,
			wantMessage: "Moved Permanently",
			wantLength:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp, err := ParseFingerprint(tt.block)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, fp.StatusCode)
			assert.Equal(t, tt.wantMessage, fp.StatusMessage)
			assert.Equal(t, tt.wantLength, fp.ContentLength)
		})
	}
}

func TestParseFingerprintProtocolMismatch(t *testing.T) {
	// Typical of TLS bytes hitting a plaintext port or vice versa.
	blocks := []string{
		"\x15\x03\x01 garbage\n\n",
		"HTTP/1.1 OK\n\n",
		"<html>\n\n",
		"\n\n",
	}
	for _, block := range blocks {
		fp, err := ParseFingerprint(block)
		require.ErrorIs(t, err, ErrProtocolMismatch, "block %q", block)
		assert.Nil(t, fp)
	}
}

func TestFingerprintEquals(t *testing.T) {
	base := &Fingerprint{ContentLength: 120, StatusCode: 200, StatusMessage: "OK"}

	tests := []struct {
		name  string
		other *Fingerprint
		want  bool
	}{
		{"identical tuple", &Fingerprint{ContentLength: 120, StatusCode: 200, StatusMessage: "OK"}, true},
		{"differing headers are ignored", mustFingerprint(t, "HTTP/1.1 200 OK\nContent-Length: 120\nX-Trace: abc\n\n"), true},
		{"content length differs", &Fingerprint{ContentLength: 121, StatusCode: 200, StatusMessage: "OK"}, false},
		{"status code differs", &Fingerprint{ContentLength: 120, StatusCode: 500, StatusMessage: "OK"}, false},
		{"status message differs", &Fingerprint{ContentLength: 120, StatusCode: 200, StatusMessage: "ok"}, false},
		{"failed probe never matches", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Equals(tt.other))
			assert.Equal(t, tt.want, tt.other.Equals(base))
		})
	}
}

func mustFingerprint(t *testing.T, block string) *Fingerprint {
	t.Helper()
	fp, err := ParseFingerprint(block)
	require.NoError(t, err)
	return fp
}
