// Package report renders minimization outcomes for the operator console and
// as machine-readable JSON.
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/usestring/reqslim/internal/message"
	"github.com/usestring/reqslim/internal/minimize"
	"github.com/usestring/reqslim/internal/transport"
)

// KeptElement is an element that survived minimization, with the reason the
// removal was rejected.
type KeptElement struct {
	message.Removal
	Reason string `json:"reason"` // "required" or "probe_failed"
}

// Summary is the full outcome of one minimization run.
type Summary struct {
	Target    transport.Target     `json:"target"`
	Original  string               `json:"original"`
	Minimized string               `json:"minimized"`
	Removed   []message.Removal    `json:"removed"`
	Kept      []KeptElement        `json:"kept"`
	Baseline  *message.Fingerprint `json:"baseline"`
	Final     *message.Fingerprint `json:"final,omitempty"`
}

// Build assembles a Summary from the engine's outputs. final may be nil when
// the closing re-probe of the minimized request failed.
func Build(target transport.Target, base, minimized *message.Request, baseline, final *message.Fingerprint, results []minimize.Result) *Summary {
	s := &Summary{
		Target:    target,
		Original:  base.Serialize(),
		Minimized: minimized.Serialize(),
		Removed:   []message.Removal{},
		Kept:      []KeptElement{},
		Baseline:  baseline,
		Final:     final,
	}
	for _, res := range results {
		if res.Accepted(baseline) {
			s.Removed = append(s.Removed, res.Removal)
			continue
		}
		reason := "required"
		if res.Err != nil {
			reason = "probe_failed"
		}
		s.Kept = append(s.Kept, KeptElement{Removal: res.Removal, Reason: reason})
	}
	return s
}

// Render writes the operator-facing console report.
func (s *Summary) Render(w io.Writer) {
	heading := color.New(color.Bold, color.FgCyan)
	removed := color.New(color.FgGreen)
	kept := color.New(color.FgYellow)
	dim := color.New(color.FgHiBlack)

	heading.Fprintf(w, "Target %s\n\n", s.Target)

	heading.Fprintln(w, "Original request")
	fmt.Fprintln(w, s.Original)

	heading.Fprintf(w, "Removed (%d)\n", len(s.Removed))
	for _, rm := range s.Removed {
		removed.Fprintf(w, "  - %s %s\n", rm.Location, rm.Key)
	}
	heading.Fprintf(w, "Kept (%d)\n", len(s.Kept))
	for _, k := range s.Kept {
		kept.Fprintf(w, "  + %s %s", k.Location, k.Key)
		if k.Reason != "required" {
			dim.Fprintf(w, " (%s)", k.Reason)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	heading.Fprintln(w, "Minimized request")
	fmt.Fprintln(w, s.Minimized)

	heading.Fprintln(w, "Fingerprints")
	fmt.Fprintf(w, "  baseline: %s\n", fingerprintLine(s.Baseline))
	fmt.Fprintf(w, "  final:    %s\n", fingerprintLine(s.Final))
}

func fingerprintLine(fp *message.Fingerprint) string {
	if fp == nil {
		return "unavailable"
	}
	return fmt.Sprintf("status=%d message=%q content_length=%d", fp.StatusCode, fp.StatusMessage, fp.ContentLength)
}
