package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tenderscope/tenderscope/internal/model"
)

// Classifier ranks the catalog against a tender and selects the checks
// worth running. A failed classification is not fatal; callers fall back to
// a fixed prefix of the catalog.
type Classifier interface {
	Classify(ctx context.Context, tender model.TenderInfo, tasks []model.InvestigationTask) ([]int, error)
}

// LLMClassifier asks the chat model to choose relevant task ids.
type LLMClassifier struct {
	client Client
}

func NewLLMClassifier(client Client) *LLMClassifier {
	return &LLMClassifier{client: client}
}

type classifierReply struct {
	SelectedTaskIDs []int  `json:"selected_task_ids"`
	Reasoning       string `json:"reasoning"`
}

func (c *LLMClassifier) Classify(ctx context.Context, tender model.TenderInfo, tasks []model.InvestigationTask) ([]int, error) {
	var sb strings.Builder
	for _, t := range tasks {
		fmt.Fprintf(&sb, "- id=%d code=%s severidad=%s: %s\n", t.ID, t.Code, t.Severity, t.Name)
	}

	prompt := fmt.Sprintf(`Eres un analista de compras públicas chilenas. Dada la siguiente licitación, selecciona las tareas de investigación más relevantes para detectar irregularidades.

Licitación:
- ID: %s
- Nombre: %s
- Organismo: %s
- Bases (extracto): %s

Tareas disponibles:
%s
Responde SOLO con JSON: {"selected_task_ids": [..], "reasoning": "..."}`,
		tender.TenderID, tender.Name, tender.Organization, truncate(tender.Bases, 4000), sb.String())

	resp, err := c.client.Chat(ctx, ChatRequest{
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("classify tender: %w", err)
	}

	var reply classifierReply
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &reply); err != nil {
		return nil, fmt.Errorf("parse classifier reply: %w", err)
	}

	known := make(map[int]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}
	var ids []int
	seen := make(map[int]bool)
	for _, id := range reply.SelectedTaskIDs {
		if known[id] && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("classifier selected no known tasks")
	}
	return ids, nil
}

// FallbackSelection returns the first count task ids from the catalog, used
// when classification fails.
func FallbackSelection(tasks []model.InvestigationTask, count int) []int {
	if count > len(tasks) {
		count = len(tasks)
	}
	ids := make([]int, 0, count)
	for _, t := range tasks[:count] {
		ids = append(ids, t.ID)
	}
	return ids
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
