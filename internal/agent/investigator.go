package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tenderscope/tenderscope/internal/model"
)

// Investigator runs one validation task against the tender evidence. Errors
// are contained by the caller: a failed task becomes a failure-shaped result
// and never takes down the run.
type Investigator interface {
	Investigate(ctx context.Context, tender model.TenderInfo, documents []model.TenderDocument, task model.InvestigationTask) (model.TaskInvestigationOutput, error)
}

// LLMInvestigator asks the chat model to validate one task and return a
// structured verdict. A malformed reply is sent back to the model for
// repair; the total number of model calls per task is bounded by the
// configured iteration limit.
type LLMInvestigator struct {
	client   Client
	maxCalls int
}

func NewLLMInvestigator(client Client, cfg model.AgentConfig) *LLMInvestigator {
	maxCalls := cfg.MaxIterations
	if maxCalls <= 0 {
		maxCalls = 1
	}
	return &LLMInvestigator{client: client, maxCalls: maxCalls}
}

type investigatorReply struct {
	ValidationPassed     bool            `json:"validation_passed"`
	Findings             []model.Anomaly `json:"findings"`
	InvestigationSummary string          `json:"investigation_summary"`
}

func (v *LLMInvestigator) Investigate(ctx context.Context, tender model.TenderInfo, documents []model.TenderDocument, task model.InvestigationTask) (model.TaskInvestigationOutput, error) {
	var docs strings.Builder
	for _, d := range documents {
		fmt.Fprintf(&docs, "=== Documento: %s ===\n%s\n\n", d.Name, truncate(d.Text, 20000))
	}

	var subtasks strings.Builder
	for _, st := range task.Subtasks {
		fmt.Fprintf(&subtasks, "- %s\n", st)
	}

	prompt := fmt.Sprintf(`Eres un investigador de fraude en compras públicas chilenas. Ejecuta la siguiente verificación sobre la licitación.

Verificación %s (%s): %s
Descripción: %s
Dónde buscar: %s
Subtareas:
%s
Licitación %s: %s
Bases administrativas (extracto): %s
Bases técnicas (extracto): %s

Documentos anexos:
%s
Responde SOLO con JSON:
{"validation_passed": bool, "findings": [{"anomaly_name": "...", "description": "...", "evidence": ["..."], "confidence": 0.0, "affected_documents": ["..."]}], "investigation_summary": "..."}
validation_passed es true cuando la licitación CUMPLE la verificación sin hallazgos relevantes.`,
		task.Code, task.Severity, task.Name,
		task.Description, task.WhereToLook, subtasks.String(),
		tender.TenderID, tender.Name,
		truncate(tender.Bases, 8000), truncate(tender.BasesTecnicas, 8000),
		docs.String())

	messages := []Message{{Role: "user", Content: prompt}}
	var lastErr error
	for call := 0; call < v.maxCalls; call++ {
		resp, err := v.client.Chat(ctx, ChatRequest{Messages: messages})
		if err != nil {
			return model.TaskInvestigationOutput{}, fmt.Errorf("investigate task %s: %w", task.Code, err)
		}

		var reply investigatorReply
		if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &reply); err != nil {
			lastErr = err
			messages = append(messages,
				Message{Role: "assistant", Content: resp.Content},
				Message{Role: "user", Content: "La respuesta anterior no es JSON válido. Responde SOLO con el objeto JSON pedido, sin texto adicional."},
			)
			continue
		}

		out := model.TaskInvestigationOutput{
			TaskID:               task.ID,
			TaskCode:             task.Code,
			TaskName:             task.Name,
			ValidationPassed:     reply.ValidationPassed,
			Findings:             reply.Findings,
			InvestigationSummary: reply.InvestigationSummary,
		}
		if out.Findings == nil {
			out.Findings = []model.Anomaly{}
		}
		return out, nil
	}
	return model.TaskInvestigationOutput{}, fmt.Errorf("parse investigation reply for %s after %d calls: %w", task.Code, v.maxCalls, lastErr)
}
