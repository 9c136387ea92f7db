// internal/engine/aggregator/render.go
package aggregator

import (
	"fmt"
	"strings"
)

// RenderText formats an envelope as readable markdown. This is the
// single text rendering of a response; API consumers wanting structure
// use the envelope JSON directly.
func RenderText(env Envelope) string {
	var b strings.Builder

	for i, s := range env.Sections {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s\n", s.Name)
		for _, line := range s.Body {
			fmt.Fprintf(&b, "%s\n", line)
		}
		fmt.Fprintf(&b, "_Source: %s, confidence: %s_\n", s.Provenance, s.Confidence)
	}

	return b.String()
}
