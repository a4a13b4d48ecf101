package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tenderscope/tenderscope/internal/catalog"
	"github.com/tenderscope/tenderscope/internal/model"
)

// Summarizer condenses the per-task verdicts into a single report. When it
// fails the pipeline falls back to the mechanical summary, never to an
// empty report.
type Summarizer interface {
	Summarize(ctx context.Context, tender model.TenderInfo, results []model.TaskInvestigationOutput) (string, error)
}

// LLMSummarizer asks the chat model for an executive summary in Spanish.
type LLMSummarizer struct {
	client Client
}

func NewLLMSummarizer(client Client) *LLMSummarizer {
	return &LLMSummarizer{client: client}
}

func (s *LLMSummarizer) Summarize(ctx context.Context, tender model.TenderInfo, results []model.TaskInvestigationOutput) (string, error) {
	var sb strings.Builder
	for _, r := range results {
		status := "CUMPLE"
		if !r.ValidationPassed {
			status = "NO CUMPLE"
		}
		fmt.Fprintf(&sb, "%s %s [%s] hallazgos=%d: %s\n", r.TaskCode, r.TaskName, status, len(r.Findings), truncate(r.InvestigationSummary, 600))
	}

	prompt := fmt.Sprintf(`Eres un auditor senior. Redacta un resumen ejecutivo en español de la investigación de la licitación %s (%s), destacando los hallazgos más graves y el nivel de riesgo global.

Resultados por verificación:
%s
Responde solo con el texto del resumen.`, tender.TenderID, tender.Name, sb.String())

	resp, err := s.client.Chat(ctx, ChatRequest{
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("summarize results: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// FallbackSummary builds the mechanical summary used when the LLM summary
// fails: pass/fail counts plus the first findings of each failed task,
// listed most severe first.
func FallbackSummary(results []model.TaskInvestigationOutput) string {
	passed := 0
	var failed []model.TaskInvestigationOutput
	for _, r := range results {
		if r.ValidationPassed {
			passed++
		} else {
			failed = append(failed, r)
		}
	}
	sort.SliceStable(failed, func(i, j int) bool {
		return taskSeverityRank(failed[i].TaskID) > taskSeverityRank(failed[j].TaskID)
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "Investigación completada: %d/%d verificaciones cumplidas.", passed, len(results))
	for _, r := range failed {
		fmt.Fprintf(&sb, "\n%s %s:", r.TaskCode, r.TaskName)
		shown := 0
		for _, f := range r.Findings {
			if shown == 2 {
				break
			}
			fmt.Fprintf(&sb, " %s.", f.AnomalyName)
			shown++
		}
		if shown == 0 {
			fmt.Fprintf(&sb, " %s", truncate(r.InvestigationSummary, 200))
		}
	}
	return sb.String()
}

// taskSeverityRank looks the task up in the catalog; unknown ids sort last.
func taskSeverityRank(taskID int) int {
	task, ok := catalog.ByID(taskID)
	if !ok {
		return -1
	}
	return task.Severity.Rank()
}
