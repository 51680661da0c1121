package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/itchyny/gojq"
)

// RenderJSON writes the summary as JSON. A non-empty jq expression is
// compiled and run over the summary; each produced value is emitted on its
// own line, with per-value evaluation errors written as comments to keep the
// stream parseable.
func (s *Summary) RenderJSON(w io.Writer, jqExpr string) error {
	if jqExpr == "" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	query, err := gojq.Parse(jqExpr)
	if err != nil {
		return fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("failed to compile jq expression: %w", err)
	}

	// Round-trip through encoding/json so gojq sees plain maps and slices.
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("decoding summary: %w", err)
	}

	iter := code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if evalErr, isErr := v.(error); isErr {
			fmt.Fprintf(w, "// jq: %s\n", evalErr)
			continue
		}
		line, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding jq value: %w", err)
		}
		fmt.Fprintf(w, "%s\n", line)
	}
	return nil
}
