package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// InsufficientEvidence is the sentinel a backend emits when the source
// material cannot support a cited summary. It is a valid, passing outcome.
const InsufficientEvidence = "INSUFFICIENT_EVIDENCE"

// DEF_MIN_CITATIONS is the lowest acceptable count of cited lines in a
// generated summary.
const DEF_MIN_CITATIONS = 3

var (
	quotedSpanRe  = regexp.MustCompile(`"[^"]+"|\x{201c}[^\x{201d}]+\x{201d}`)
	attributionRe = regexp.MustCompile(`(?i)(source\s*:|according to|\[\d+\]|\([^)]*\b(19|20)\d{2}\b[^)]*\))`)
)

// CitationResult is the outcome of the citation gate over a summary.
type CitationResult struct {
	Success              bool
	InsufficientEvidence bool
	CitationCount        int
	Message              string
}

// CitationGate checks that a generated summary carries enough quoted,
// attributed claims to be defensible.
type CitationGate struct {
	MinCitations int
}

// NewCitationGate creates a gate with the default minimum.
func NewCitationGate() *CitationGate {
	return &CitationGate{MinCitations: DEF_MIN_CITATIONS}
}

// Check counts lines that pair a quoted span with a source attribution.
// The exact sentinel InsufficientEvidence passes with a zero count; a
// backend that admits it has no evidence is being honest, not failing.
func (g *CitationGate) Check(summary string) CitationResult {
	if strings.TrimSpace(summary) == InsufficientEvidence {
		return CitationResult{Success: true, InsufficientEvidence: true}
	}

	count := 0
	for _, line := range strings.Split(summary, "\n") {
		if quotedSpanRe.MatchString(line) && attributionRe.MatchString(line) {
			count++
		}
	}
	if count < g.MinCitations {
		return CitationResult{
			CitationCount: count,
			Message:       fmt.Sprintf("found %d cited lines (minimum: %d)", count, g.MinCitations),
		}
	}
	return CitationResult{Success: true, CitationCount: count}
}
