package agent

import (
	"fmt"
	"strings"

	"AgriPolicy/internal/rag/index"
	"AgriPolicy/internal/rag/schema"
)

// systemPrompt frames every generation call: answers must stay inside
// the supplied evidence and surface conflict-prevention concerns.
const systemPrompt = `You are an AI Agricultural Policy Assistant with a conflict-prevention lens.
You help users design agricultural policies that reduce drivers of violent conflict.

Rules:
- Ground your answer in the provided SDG time-series summaries and policy document excerpts.
- If evidence is missing, say so and propose what to collect.
- Be explicit about distributional impacts (who benefits/loses), grievance risks, and inclusion.
- Provide practical options (near-term, medium-term, structural) plus risk mitigations.
- Do not fabricate citations; refer to the provided excerpts when relevant.`

// composePrompt assembles the bounded prompt from whatever context the
// gather step produced.
func composePrompt(query string, plan *Plan, summaries []string, passages []index.SearchResult) string {
	var indicatorsBlock strings.Builder
	for _, e := range plan.Indicators {
		fmt.Fprintf(&indicatorsBlock, "- SDG %s (%s): %s\n", e.SDGIndicator, e.SeriesCode, e.Name)
	}
	if indicatorsBlock.Len() == 0 {
		indicatorsBlock.WriteString("None inferred.\n")
	}

	var areasBlock strings.Builder
	for _, a := range plan.Areas {
		fmt.Fprintf(&areasBlock, "- %s\n", a)
	}
	if areasBlock.Len() == 0 {
		areasBlock.WriteString("None inferred.\n")
	}

	sdgBlock := strings.Join(summaries, "\n\n")
	if sdgBlock == "" {
		sdgBlock = "No SDG time-series context was available."
	}

	var passagesBlock strings.Builder
	for _, p := range passages {
		source := p.Chunk.DocumentID
		if name, ok := p.Chunk.Metadata[schema.MetadataKeySourceName].(string); ok {
			source = name
		}
		fmt.Fprintf(&passagesBlock, "[%s, chunk %s, score=%.3f] %s\n\n", source, p.Chunk.ID, p.Score, p.Chunk.Text)
	}
	if passagesBlock.Len() == 0 {
		passagesBlock.WriteString("No relevant passages were retrieved.\n")
	}

	return fmt.Sprintf(`%s

User question:
%s

Selected / inferred SDG indicators:
%s
Selected / inferred areas:
%s
SDG data context (summaries):
%s

Policy document context (excerpts):
%s
Task:
Write a conflict-sensitive agricultural policy response. Include:
1) Situation snapshot (use SDG trends above)
2) Conflict risk analysis (draw on the document excerpts above; cite them by source)
3) Policy options (near-term / medium-term / structural) + implementation safeguards
4) Monitoring & learning plan (which SDG indicators to track + disaggregation suggestions)
5) Key uncertainties + what to collect next`,
		systemPrompt, query,
		indicatorsBlock.String(), areasBlock.String(), sdgBlock, passagesBlock.String())
}
