package model

// Anomaly is one documented, evidenced deviation from expected compliance.
type Anomaly struct {
	AnomalyName       string   `json:"anomaly_name"`
	Description       string   `json:"description"`
	Evidence          []string `json:"evidence"`
	Confidence        float64  `json:"confidence"`
	AffectedDocuments []string `json:"affected_documents"`
}

// TaskInvestigationOutput is one agent's verdict for one catalog task.
// Exactly one is produced per dispatched task; internal failures yield a
// failure-shaped output (ValidationPassed=false, empty findings) rather than
// dropping the task from the final result set.
type TaskInvestigationOutput struct {
	TaskID               int       `json:"task_id"`
	TaskCode             string    `json:"task_code"`
	TaskName             string    `json:"task_name"`
	ValidationPassed     bool      `json:"validation_passed"`
	Findings             []Anomaly `json:"findings"`
	InvestigationSummary string    `json:"investigation_summary"`
}

// FailedInvestigation builds the failure-shaped output for a task whose
// investigation could not complete.
func FailedInvestigation(task InvestigationTask, reason string) TaskInvestigationOutput {
	return TaskInvestigationOutput{
		TaskID:               task.ID,
		TaskCode:             task.Code,
		TaskName:             task.Name,
		ValidationPassed:     false,
		Findings:             []Anomaly{},
		InvestigationSummary: "Investigation failed: " + reason,
	}
}
