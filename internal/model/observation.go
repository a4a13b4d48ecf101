package model

import "time"

// Observation event types carried on the per-session stream.
const (
	ObservationLog    = "log"
	ObservationResult = "result"
	ObservationError  = "error"
)

// Observation is one unit of the real-time progress stream: a loosely shaped
// JSON mapping with at least "type", a message or payload, and an ISO-8601
// "timestamp". The same shape is broadcast live, persisted, and replayed.
type Observation map[string]any

// LogObservation builds a progress narration event. taskCode tags the event
// with the catalog task it belongs to and may be empty.
func LogObservation(message, taskCode string) Observation {
	obs := Observation{
		"type":      ObservationLog,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if taskCode != "" {
		obs["task_code"] = taskCode
	}
	return obs
}

// ErrorObservation builds the terminal error event for a failed run.
func ErrorObservation(message string) Observation {
	return Observation{
		"type":      ObservationError,
		"message":   message,
		"status":    "error",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// ResultObservation builds the terminal result event. Entries mirror the
// final tasks-by-id view: one summary object per investigated task, sorted
// ascending by task id.
func ResultObservation(results []TaskInvestigationOutput, workflowSummary string) Observation {
	tasks := make([]any, 0, len(results))
	for _, r := range results {
		tasks = append(tasks, map[string]any{
			"task_id":               r.TaskID,
			"task_code":             r.TaskCode,
			"task_name":             r.TaskName,
			"validation_passed":     r.ValidationPassed,
			"findings_count":        len(r.Findings),
			"investigation_summary": r.InvestigationSummary,
		})
	}
	return Observation{
		"type":             ObservationResult,
		"message":          "Investigation completed",
		"tasks_by_id":      tasks,
		"workflow_summary": workflowSummary,
		"status":           "completed",
		"timestamp":        time.Now().UTC().Format(time.RFC3339Nano),
	}
}
