// Package probe glues the transport to the message codec: it sends one
// serialized request and turns the response header block into a fingerprint.
package probe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/usestring/reqslim/internal/message"
	"github.com/usestring/reqslim/internal/transport"
)

// Sender is the transport contract the prober consumes. Tests substitute
// in-memory fakes.
type Sender interface {
	Send(ctx context.Context, target transport.Target, raw []byte) ([]byte, error)
}

// Prober sends serialized requests and parses fingerprints, consulting an
// optional result cache keyed by the exact request bytes.
type Prober struct {
	sender Sender
	cache  *Cache
}

// New creates a Prober. cache may be nil to disable caching.
func New(sender Sender, cache *Cache) *Prober {
	return &Prober{sender: sender, cache: cache}
}

// Probe sends raw to the target and parses the response fingerprint. Identical
// request bytes within one invocation reuse the cached fingerprint, so the
// final re-probe of a request that minimization left untouched does not hit
// the network a second time.
func (p *Prober) Probe(ctx context.Context, target transport.Target, raw string) (*message.Fingerprint, error) {
	if fp, ok := p.cache.get(raw); ok {
		slog.Debug("probe served from cache", slog.Int("bytes", len(raw)))
		return fp, nil
	}

	block, err := p.sender.Send(ctx, target, []byte(raw))
	if err != nil {
		return nil, err
	}
	fp, err := message.ParseFingerprint(string(block))
	if err != nil {
		return nil, err
	}

	p.cache.put(raw, fp)
	return fp, nil
}

// Baseline probes with the unmodified base request. A baseline failure is
// fatal to the whole minimization: without it there is nothing to compare
// variants against.
func (p *Prober) Baseline(ctx context.Context, target transport.Target, base *message.Request) (*message.Fingerprint, error) {
	fp, err := p.Probe(ctx, target, base.Serialize())
	if err != nil {
		return nil, fmt.Errorf("baseline probe against %s: %w", target, err)
	}
	slog.Info("baseline fingerprint",
		slog.Int("status", fp.StatusCode),
		slog.Int("content_length", fp.ContentLength),
	)
	return fp, nil
}
