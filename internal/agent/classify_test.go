package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgriPolicy/internal/indicator"
	"AgriPolicy/pkg/logger"
)

// scriptedLLM returns canned outputs and records its prompts.
type scriptedLLM struct {
	output  string
	err     error
	prompts []string
}

func (l *scriptedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	l.prompts = append(l.prompts, prompt)
	if l.err != nil {
		return "", l.err
	}
	return l.output, nil
}

func classifyCatalog(t *testing.T) *indicator.Catalog {
	t.Helper()
	c, err := indicator.NewCatalog([]indicator.Entry{
		{SDGIndicator: "2.1.1", SeriesCode: "SN_ITK_DEFC", Name: "Prevalence of undernourishment", Tags: []string{"hunger", "undernourishment"}},
		{SDGIndicator: "15.1.1", SeriesCode: "AG_LND_FRST", Name: "Forest area as a proportion of total land area", Tags: []string{"forest", "land"}},
	})
	require.NoError(t, err)
	return c
}

func newClassifier(t *testing.T, llm *scriptedLLM) *classifier {
	c := &classifier{
		catalog: classifyCatalog(t),
		areas:   []string{"Kenya", "Rwanda"},
		log:     logger.New("classify-test", ""),
	}
	if llm != nil {
		c.llm = llm
	}
	return c
}

func TestClassifyHeuristicsSkipLLM(t *testing.T) {
	llm := &scriptedLLM{}
	c := newClassifier(t, llm)

	plan := c.Classify(context.Background(), "How did undernourishment change in Kenya between 2010 and 2020?")

	require.NotEmpty(t, plan.Indicators)
	assert.Equal(t, "2.1.1", plan.Indicators[0].SDGIndicator)
	assert.Equal(t, []string{"Kenya"}, plan.Areas)
	assert.Equal(t, indicator.Range{StartYear: 2010, EndYear: 2020}, plan.Years)
	assert.Empty(t, llm.prompts)
}

func TestClassifyLLMFallback(t *testing.T) {
	llm := &scriptedLLM{output: "```json\n" + `{
		"sdg_indicators": ["15.1.1", "9.9.9"],
		"areas": ["Rwanda"],
		"years": {"start": 2015, "end": 2022},
		"notes": "assumed forest cover was meant"
	}` + "\n```"}
	c := newClassifier(t, llm)

	plan := c.Classify(context.Background(), "what about tree coverage there")

	require.Len(t, llm.prompts, 1)
	// The invented code 9.9.9 must not survive catalog filtering.
	require.Len(t, plan.Indicators, 1)
	assert.Equal(t, "15.1.1", plan.Indicators[0].SDGIndicator)
	assert.Equal(t, []string{"Rwanda"}, plan.Areas)
	assert.Equal(t, indicator.Range{StartYear: 2015, EndYear: 2022}, plan.Years)
	assert.Equal(t, "assumed forest cover was meant", plan.Notes)
}

func TestClassifyLLMFailureDegradesToDocumentsOnly(t *testing.T) {
	llm := &scriptedLLM{err: assert.AnError}
	c := newClassifier(t, llm)

	plan := c.Classify(context.Background(), "what about tree coverage there")
	assert.Empty(t, plan.Indicators)
	assert.Empty(t, plan.Areas)
	assert.False(t, plan.NeedsIndicators())
}

func TestClassifyWithoutLLM(t *testing.T) {
	c := newClassifier(t, nil)
	plan := c.Classify(context.Background(), "what about tree coverage there")
	assert.False(t, plan.NeedsIndicators())
}

func TestExtractJSON(t *testing.T) {
	assert.JSONEq(t, `{"a":1}`, extractJSON("here you go: {\"a\":1} hope that helps"))
	assert.Equal(t, "no braces", extractJSON("no braces"))
}

func TestYearsInQuery(t *testing.T) {
	assert.Equal(t, indicator.Range{}, yearsInQuery("no years here"))
	assert.Equal(t, indicator.Range{StartYear: 2018}, yearsInQuery("since 2018"))
	assert.Equal(t, indicator.Range{StartYear: 2005, EndYear: 2021}, yearsInQuery("from 2021 back to 2005"))
}
