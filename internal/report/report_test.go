package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/reqslim/internal/message"
	"github.com/usestring/reqslim/internal/minimize"
	"github.com/usestring/reqslim/internal/transport"
)

func buildTestSummary(t *testing.T) *Summary {
	t.Helper()
	base := message.Parse("GET / HTTP/1.1\nHost: x\nUser-Agent: X\nX-Trace: 1\n\n")
	baseline := &message.Fingerprint{ContentLength: 10, StatusCode: 200, StatusMessage: "OK"}

	results := []minimize.Result{
		{Removal: message.Removal{Key: "Host", Location: message.LocationHeader}, Fingerprint: &message.Fingerprint{StatusCode: 400, StatusMessage: "Bad Request"}},
		{Removal: message.Removal{Key: "User-Agent", Location: message.LocationHeader}, Fingerprint: &message.Fingerprint{ContentLength: 10, StatusCode: 200, StatusMessage: "OK"}},
		{Removal: message.Removal{Key: "X-Trace", Location: message.LocationHeader}, Err: errors.New("read timeout")},
	}
	minimized := minimize.Reduce(base, baseline, results)
	target := transport.Target{Host: "x", Port: 80}
	return Build(target, base, minimized, baseline, baseline, results)
}

func TestBuildGroupsResults(t *testing.T) {
	s := buildTestSummary(t)

	assert.Equal(t, []message.Removal{{Key: "User-Agent", Location: message.LocationHeader}}, s.Removed)
	assert.Equal(t, []KeptElement{
		{Removal: message.Removal{Key: "Host", Location: message.LocationHeader}, Reason: "required"},
		{Removal: message.Removal{Key: "X-Trace", Location: message.LocationHeader}, Reason: "probe_failed"},
	}, s.Kept)
	assert.NotContains(t, s.Minimized, "User-Agent")
	assert.Contains(t, s.Minimized, "Host: x")
}

func TestRenderMentionsEveryElement(t *testing.T) {
	s := buildTestSummary(t)
	var buf bytes.Buffer
	s.Render(&buf)

	out := buf.String()
	assert.Contains(t, out, "header User-Agent")
	assert.Contains(t, out, "header Host")
	assert.Contains(t, out, "header X-Trace")
	assert.Contains(t, out, "probe_failed")
	assert.Contains(t, out, "status=200")
}

func TestRenderJSON(t *testing.T) {
	s := buildTestSummary(t)
	var buf bytes.Buffer
	require.NoError(t, s.RenderJSON(&buf, ""))

	out := buf.String()
	assert.Contains(t, out, `"minimized"`)
	assert.Contains(t, out, `"probe_failed"`)
}

func TestRenderJSONWithJQ(t *testing.T) {
	s := buildTestSummary(t)

	t.Run("filter extracts removed keys", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.RenderJSON(&buf, ".removed[].key"))
		assert.Equal(t, "\"User-Agent\"\n", buf.String())
	})

	t.Run("filter can reshape the summary", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.RenderJSON(&buf, "{kept: [.kept[].key]}"))
		assert.JSONEq(t, `{"kept":["Host","X-Trace"]}`, strings.TrimSpace(buf.String()))
	})

	t.Run("invalid expression is an error", func(t *testing.T) {
		var buf bytes.Buffer
		require.Error(t, s.RenderJSON(&buf, ".[unclosed"))
	})
}
