package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const researchSystemPrompt = `You are a research assistant that organizes deep web research into reports.

When given research findings for a topic:
1. Review the findings and organize them into a well-structured report
2. Include proper citations for all sources
3. Highlight key findings and insights
4. Structure the report with clear sections: Executive Summary, Key Findings, Detailed Analysis, Conclusions`

const elaborationSystemPrompt = `You are an expert content enhancer specializing in research elaboration.

When given a research report:
1. Analyze the structure and content of the report
2. Enhance the report by:
   - Adding more detailed explanations of complex concepts
   - Including relevant examples, case studies, and real-world applications
   - Expanding on key points with additional context and nuance
   - Incorporating latest trends and future predictions
   - Suggesting practical implications for different stakeholders
3. Maintain academic rigor and factual accuracy
4. Preserve the original structure while making it more comprehensive
5. Add actionable insights and recommendations where appropriate`

// ResearchAgent produces the initial report: a Firecrawl deep research run
// followed by a Gemini pass that structures the findings into a report
type ResearchAgent struct {
	crawler *FirecrawlClient
	llm     *GeminiClient
}

// NewResearchAgent creates a research agent over the given clients
func NewResearchAgent(crawler *FirecrawlClient, llm *GeminiClient) *ResearchAgent {
	return &ResearchAgent{crawler: crawler, llm: llm}
}

// Research implements Researcher
func (a *ResearchAgent) Research(ctx context.Context, topic string, opts ResearchOptions) (*ResearchResult, error) {
	data, err := a.crawler.DeepResearch(ctx, topic, opts)
	if err != nil {
		return nil, err
	}

	slog.Info("Deep research finished, composing report",
		"topic", topic,
		"sources_count", len(data.Sources),
		"activities", len(data.Activities),
	)

	report, err := a.llm.Generate(ctx, researchSystemPrompt, a.buildPrompt(topic, data))
	if err != nil {
		return nil, err
	}

	return &ResearchResult{
		Report:     report,
		Sources:    data.Sources,
		Activities: data.Activities,
	}, nil
}

// buildPrompt assembles the report-writing prompt from the crawl output
func (a *ResearchAgent) buildPrompt(topic string, data *DeepResearchData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "RESEARCH TOPIC: %s\n\n", topic)
	fmt.Fprintf(&b, "RESEARCH FINDINGS:\n%s\n", data.FinalAnalysis)

	if len(data.Sources) > 0 {
		b.WriteString("\nSOURCES:\n")
		for i, source := range data.Sources {
			fmt.Fprintf(&b, "%d. %s", i+1, source.URL)
			if source.Title != "" {
				fmt.Fprintf(&b, " — %s", source.Title)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nWrite the research report for this topic from the findings above.")
	return b.String()
}

// ElaborationAgent improves an existing report with a Gemini pass
type ElaborationAgent struct {
	llm *GeminiClient
}

// NewElaborationAgent creates an elaboration agent over the given client
func NewElaborationAgent(llm *GeminiClient) *ElaborationAgent {
	return &ElaborationAgent{llm: llm}
}

// Enhance implements Enhancer
func (a *ElaborationAgent) Enhance(ctx context.Context, topic, report string) (string, error) {
	prompt := fmt.Sprintf(`RESEARCH TOPIC: %s

INITIAL RESEARCH REPORT:
%s

Please enhance this research report with additional information, examples, case studies,
and deeper insights while maintaining its academic rigor and factual accuracy.`, topic, report)

	return a.llm.Generate(ctx, elaborationSystemPrompt, prompt)
}
