package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/nbenliogludev/go-workflow-agent/internal/dataset"
	"github.com/nbenliogludev/go-workflow-agent/internal/task"
)

func status(success bool) string {
	if success {
		return "SUCCESS"
	}
	return "FAILED"
}

func printResult(w io.Writer, r *dataset.WorkflowResult) {
	fmt.Fprintln(w, "\n===== WORKFLOW RESULT =====")
	fmt.Fprintf(w, "Task:       %s\n", r.TaskDescription)
	fmt.Fprintf(w, "App:        %s\n", r.App)
	fmt.Fprintf(w, "Status:     %s\n", status(r.Success))
	fmt.Fprintf(w, "Iterations: %d\n", r.Iterations)
	fmt.Fprintf(w, "Duration:   %s\n", time.Duration(r.DurationSeconds*float64(time.Second)).Round(100*time.Millisecond))
	if r.OutputDir != "" {
		fmt.Fprintf(w, "Output:     %s\n", r.OutputDir)
	}
	if r.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:      %s\n", r.ErrorMessage)
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "Warning:    %s\n", warning)
	}

	fmt.Fprintf(w, "\nStates (%d):\n", r.TotalStates)
	if len(r.States) == 0 {
		fmt.Fprintln(w, "(no states captured)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tFILE\tACTION\tURL\tMODAL\tFORM")
	for _, s := range r.States {
		action := "(initial)"
		if s.ActionTaken != nil {
			action = *s.ActionTaken
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%t\n", s.Sequence, s.Filename, action, s.URL, s.IsModal, s.IsForm)
	}
	_ = tw.Flush()
}

func printRuns(w io.Writer, runs []dataset.RunSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tAPP\tSTATUS\tSTATES\tWHEN\tTASK")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.Name, r.App, status(r.Success), r.States, r.Timestamp.Local().Format("2006-01-02 15:04"), r.Task)
	}
	_ = tw.Flush()
}

func printBatch(w io.Writer, tasks []task.Task, results []*dataset.WorkflowResult) {
	fmt.Fprintln(w, "\n===== BATCH RESULT =====")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "APP\tSTATUS\tSTATES\tTASK\tOUTPUT")
	succeeded := 0
	for i, t := range tasks {
		r := results[i]
		if r == nil {
			fmt.Fprintf(tw, "%s\tSKIPPED\t-\t%s\t-\n", t.App, t.Description)
			continue
		}
		if r.Success {
			succeeded++
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", t.App, status(r.Success), r.TotalStates, t.Description, r.OutputDir)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d/%d succeeded\n", succeeded, len(tasks))
}
