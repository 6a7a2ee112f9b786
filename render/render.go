// Package render formats a final answer for people: Markdown, sanitized HTML
// and a styled terminal view.
package render

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/smallnest/researchgraph/rag"
)

// Markdown renders fa as a Markdown report.
func Markdown(fa rag.FinalAnswer) string {
	var b strings.Builder

	b.WriteString("# Answer\n\n")
	b.WriteString(strings.TrimSpace(fa.Answer))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "**Confidence:** %.2f%%\n\n", fa.ConfidenceScore)

	b.WriteString("## Sources\n\n")
	if len(fa.VerifiedSources) == 0 {
		b.WriteString("_No sources._\n\n")
	}
	for _, src := range fa.VerifiedSources {
		fmt.Fprintf(&b, "- %s\n", src)
	}
	if len(fa.VerifiedSources) > 0 {
		b.WriteString("\n")
	}

	if cb := fa.ClaimBreakdown; cb.Total() > 0 {
		b.WriteString("## Verification\n\n")
		b.WriteString("| Status | Claims |\n|---|---|\n")
		fmt.Fprintf(&b, "| Supported | %d |\n", cb.Supported)
		fmt.Fprintf(&b, "| Partially supported | %d |\n", cb.PartiallySupported)
		fmt.Fprintf(&b, "| Not supported | %d |\n", cb.NotSupported)
		fmt.Fprintf(&b, "| Contradicted | %d |\n\n", cb.Contradicted)
	}

	if fa.Limitations != "" {
		b.WriteString("## Limitations\n\n")
		b.WriteString(fa.Limitations)
		b.WriteString("\n")
	}
	return b.String()
}

// HTML renders fa as an HTML fragment. The answer text comes from a model, so
// the output is sanitized with a user-generated-content policy.
func HTML(fa rag.FinalAnswer) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(Markdown(fa)))

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return bluemonday.UGCPolicy().SanitizeBytes(markdown.Render(doc, renderer))
}
