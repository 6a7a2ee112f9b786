package research

import (
	"fmt"
	"strings"

	"github.com/smallnest/researchgraph/rag"
)

const refinePrompt = `You are a query understanding agent.
Rewrite vague or incomplete user queries into a clear, specific and well-structured search question.

Examples:
- Input: "workflow script bots"
  Output: "Show me diagnostic chatbot scripts that handle workflow status issues."

- Input: "approval delay issue"
  Output: "Explain possible causes and troubleshooting steps for delayed workflow approvals."

Reply with the rewritten question only.

Query: %q
`

const draftPrompt = `You are a reasoning agent.
Using only the context below, answer the question precisely and clearly.
Be concise and factual. Do not use knowledge that is not in the context.

CONTEXT:
%s

QUESTION:
%s

ANSWER:
`

const extractClaimsPrompt = `You are a claim extraction expert. Extract concise factual claims from the text below.
Each claim must be independently verifiable and written as a simple factual statement.

Focus on:
- Specific facts and statements
- Process descriptions
- Technical details
- Quantitative information
- Procedural steps

TEXT:
%s

Return a pure JSON list of strings, for example:
["Claim 1", "Claim 2", "Claim 3"]

If the text contains no verifiable factual claims, return an empty list [].
Do not wrap the JSON in Markdown code fences.
`

const verifyClaimsPrompt = `TASK: You are a factual verification expert. Verify each claim against the context documents.

CONTEXT DOCUMENTS:
%s

CLAIMS TO VERIFY:
%s

VERIFICATION CRITERIA:
- SUPPORTED: the claim is clearly and directly supported by evidence in the context
- PARTIALLY_SUPPORTED: some evidence exists but it is incomplete or indirect
- NOT_SUPPORTED: no evidence found in the context
- CONTRADICTED: evidence directly contradicts the claim

REQUIRED OUTPUT FORMAT (JSON only):
{
  "<exact claim text>": {
    "verification_status": "SUPPORTED|PARTIALLY_SUPPORTED|NOT_SUPPORTED|CONTRADICTED",
    "confidence": 0-100,
    "evidence": "Direct quotes from the context",
    "explanation": "Brief reasoning for the verdict"
  }
}

IMPORTANT:
- Use the EXACT claim text as keys, copied from CLAIMS TO VERIFY
- Be strict: only mark a claim SUPPORTED when clear evidence exists
- Include direct quotes as evidence
- Confidence reflects how strongly the evidence supports the claim
`

const composeSupportedPrompt = `TASK: You are a final answer synthesizer. Write a complete, well-structured answer to the user's query using the verified claims and the context provided.

ORIGINAL QUERY: %s

VERIFICATION RESULTS:
%s

SUPPORTING CONTEXT DOCUMENTS:
%s

INSTRUCTIONS:
1. Build the answer around the SUPPORTED claims
2. Include specific details and examples from the context
3. Cite sources using [Source: ...] notation
4. Be honest about limitations or uncertainties
5. The overall confidence in this answer is %.2f%%

FINAL ANSWER:
`

const composeLimitedPrompt = `TASK: You are a final answer synthesizer. Fact checking found limited support for claims related to the user's query.

ORIGINAL QUERY: %s

VERIFICATION RESULTS:
%s

CONTEXT DOCUMENTS:
%s

INSTRUCTIONS:
1. State honestly that limited verified information was found
2. Mention what the documents contain that might be related
3. Suggest what additional information would be needed
4. The overall confidence in the available information is %.2f%%

FINAL ANSWER:
`

// sourceTaggedContext renders documents as "[Source: X]" blocks.
func sourceTaggedContext(docs []rag.Document) string {
	blocks := make([]string, len(docs))
	for i, d := range docs {
		blocks[i] = fmt.Sprintf("[Source: %s]\n%s", d.SourceOr(i), d.Content)
	}
	return strings.Join(blocks, "\n\n")
}

// plainContext joins document contents without source tags.
func plainContext(docs []rag.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, "\n\n")
}

func numberedClaims(claims []string) string {
	lines := make([]string, len(claims))
	for i, c := range claims {
		lines[i] = fmt.Sprintf("%d. %s", i+1, c)
	}
	return strings.Join(lines, "\n")
}

func breakdownLines(b rag.ClaimBreakdown) string {
	return fmt.Sprintf("- SUPPORTED: %d\n- PARTIALLY SUPPORTED: %d\n- NOT SUPPORTED: %d\n- CONTRADICTED: %d",
		b.Supported, b.PartiallySupported, b.NotSupported, b.Contradicted)
}
