package agent

import "github.com/nbenliogludev/go-workflow-agent/internal/llm"

const (
	reasonDone          = "done"
	reasonTaskComplete  = "task complete"
	reasonUserSatisfied = "user satisfied"
	reasonBudget        = "max iterations reached"
	reasonFailed        = "run failed"
)

// completionReason names the signal that ended the loop.
func completionReason(d *llm.ActionDecision) string {
	switch {
	case d.Kind == llm.ActionDone:
		return reasonDone
	case d.TaskComplete:
		return reasonTaskComplete
	default:
		return reasonUserSatisfied
	}
}

func humanizeReason(reason string) string {
	switch reason {
	case reasonDone:
		return "oracle explicitly finished the task"
	case reasonTaskComplete:
		return "oracle reported the task complete"
	case reasonUserSatisfied:
		return "oracle reported the user got what they wanted"
	case reasonBudget:
		return "iteration limit reached"
	case reasonFailed:
		return "run failed before completing"
	default:
		return reason
	}
}
