package types

import "strings"

// ContentSeparator joins multiple evaluation texts for the same employee
// into a single extraction input. It is visible in the merged text so the
// extraction model can tell individual evaluations apart.
const ContentSeparator = "\n---\n"

// EvaluationTask is a single queued evaluation submission. Tasks are
// ephemeral: they exist only between ingestion and the worker cycle that
// pops them.
type EvaluationTask struct {
	EmployeeName string `json:"employee_name"`
	RawContent   string `json:"raw_content"`
}

// BatchEvaluationTask groups the tasks popped in one worker cycle.
// It is immutable once built.
type BatchEvaluationTask struct {
	tasks []EvaluationTask
}

// NewBatchEvaluationTask copies tasks into an immutable batch.
func NewBatchEvaluationTask(tasks []EvaluationTask) BatchEvaluationTask {
	cp := make([]EvaluationTask, len(tasks))
	copy(cp, tasks)
	return BatchEvaluationTask{tasks: cp}
}

// Size returns the number of tasks in the batch.
func (b BatchEvaluationTask) Size() int {
	return len(b.tasks)
}

// DistinctEmployees returns the employees covered by this batch,
// deduplicated, in order of first appearance.
func (b BatchEvaluationTask) DistinctEmployees() []string {
	seen := make(map[string]bool, len(b.tasks))
	var names []string
	for _, t := range b.tasks {
		if !seen[t.EmployeeName] {
			seen[t.EmployeeName] = true
			names = append(names, t.EmployeeName)
		}
	}
	return names
}

// MergedContentFor joins all evaluation texts for the given employee with
// ContentSeparator. Returns the empty string when the employee has no tasks
// in this batch.
func (b BatchEvaluationTask) MergedContentFor(employeeName string) string {
	var parts []string
	for _, t := range b.tasks {
		if t.EmployeeName == employeeName {
			parts = append(parts, t.RawContent)
		}
	}
	return strings.Join(parts, ContentSeparator)
}
