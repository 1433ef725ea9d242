package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"AgriPolicy/internal/indicator"
	"AgriPolicy/internal/rag/interfaces"
	"AgriPolicy/pkg/logger"
)

const (
	maxMatchedIndicators = 3
	maxMatchedAreas      = 3
)

var yearRe = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)

// classifier resolves a query into a Plan. Catalog heuristics answer
// first; the LLM is consulted only for queries the heuristics cannot
// place, and its plan is filtered back through the catalog.
type classifier struct {
	catalog *indicator.Catalog
	areas   []string
	llm     interfaces.LLM // May be nil; heuristics then stand alone.
	log     *logger.Logger
}

// Classify builds the plan for one query.
func (c *classifier) Classify(ctx context.Context, query string) *Plan {
	plan := &Plan{
		Indicators: c.catalog.MatchQuery(query, maxMatchedIndicators),
		Areas:      indicator.MatchAreas(query, c.areas, maxMatchedAreas),
		Years:      yearsInQuery(query),
	}

	// Heuristics placed the query; no LLM round trip needed.
	if len(plan.Indicators) > 0 || len(plan.Areas) > 0 || c.llm == nil {
		return plan
	}

	llmPlan, err := c.planWithLLM(ctx, query)
	if err != nil {
		c.log.WithError(err).Warn("LLM planning failed, continuing with document grounding only")
		return plan
	}
	return llmPlan
}

// llmPlanPayload is the JSON shape the planning prompt asks for.
type llmPlanPayload struct {
	SDGIndicators []string `json:"sdg_indicators"`
	Areas         []string `json:"areas"`
	Years         struct {
		Start int `json:"start"`
		End   int `json:"end"`
	} `json:"years"`
	Notes string `json:"notes"`
}

func (c *classifier) planWithLLM(ctx context.Context, query string) (*Plan, error) {
	prompt := fmt.Sprintf(`You are a planning agent for an agricultural policy analysis tool.
You must respond with a SINGLE JSON object, no prose.
Fields: sdg_indicators (list of SDG indicator codes like "2.1.1"),
areas (list of country or region names as plain text),
years (object with optional "start" and "end" integer years),
notes (string documenting any assumption you made).
Do NOT invent indicators outside the catalogue; choose from the provided list only.

%s

User question: %s`, c.catalogText(), query)

	raw, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var payload llmPlanPayload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return nil, fmt.Errorf("unparsable plan: %w", err)
	}

	plan := &Plan{
		Years: indicator.Range{StartYear: payload.Years.Start, EndYear: payload.Years.End},
		Notes: payload.Notes,
	}
	// Only catalog-backed indicators survive; the model is not allowed
	// to invent codes.
	for _, code := range payload.SDGIndicators {
		if entry, ok := c.catalog.Lookup(code); ok && len(plan.Indicators) < maxMatchedIndicators {
			plan.Indicators = append(plan.Indicators, *entry)
		}
	}
	for _, a := range payload.Areas {
		if a = strings.TrimSpace(a); a != "" && len(plan.Areas) < maxMatchedAreas {
			plan.Areas = append(plan.Areas, a)
		}
	}
	return plan, nil
}

func (c *classifier) catalogText() string {
	lines := []string{"Available SDG indicators and series:"}
	for _, e := range c.catalog.Entries() {
		lines = append(lines, fmt.Sprintf("- SDG %s: %s (series code: %s)", e.SDGIndicator, e.Name, e.SeriesCode))
	}
	return strings.Join(lines, "\n")
}

// extractJSON pulls the first top-level JSON object out of possibly
// messy model output (code fences, leading prose).
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// yearsInQuery extracts an explicit year range mentioned in the query.
func yearsInQuery(query string) indicator.Range {
	matches := yearRe.FindAllString(query, -1)
	if len(matches) == 0 {
		return indicator.Range{}
	}

	min, max := 0, 0
	for _, m := range matches {
		var y int
		fmt.Sscanf(m, "%d", &y)
		if min == 0 || y < min {
			min = y
		}
		if y > max {
			max = y
		}
	}
	if min == max {
		return indicator.Range{StartYear: min}
	}
	return indicator.Range{StartYear: min, EndYear: max}
}
