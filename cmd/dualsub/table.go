package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"dualsub/internal/pipeline"
	"dualsub/internal/staging"
)

// outputWidth caps the artifact column; long base names wrap.
const outputWidth = 56

func newStageTable(headers ...string) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	row := make(table.Row, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	tw.AppendHeader(row)
	return tw
}

// renderPlan lists every stage with its output and whether it will run.
func renderPlan(plan staging.Plan, colorize bool) string {
	tw := newStageTable("#", "Stage", "Output", "Status")
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Name: "Output", WidthMax: outputWidth, WidthMaxEnforcer: text.WrapSoft},
	})

	var pending, present int
	for i, s := range plan.Stages {
		status := paint("pending", statusKindColor(statusWarn), colorize)
		switch {
		case s.Forced:
			status = paint("forced", statusKindColor(statusInfo), colorize)
			pending++
		case s.AlreadySatisfied:
			status = paint("present", statusKindColor(statusOK), colorize)
			present++
		default:
			pending++
		}
		tw.AppendRow(table.Row{i + 1, s.Name(), filepath.Base(s.OutputPath), status})
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d stages", len(plan.Stages)), fmt.Sprintf("%d present", present), fmt.Sprintf("%d to run", pending)})
	return tw.Render()
}

// renderReport lists what one execution did, skipped stages first.
func renderReport(report pipeline.Report, colorize bool) string {
	tw := newStageTable("Stage", "Result")
	for _, name := range report.Skipped {
		tw.AppendRow(table.Row{name, paint("skipped", statusKindColor(statusInfo), colorize)})
	}
	for _, name := range report.Executed {
		tw.AppendRow(table.Row{name, paint("done", statusKindColor(statusOK), colorize)})
	}
	if report.Failure != nil {
		tw.AppendRow(table.Row{report.Failure.Stage.Name(), paint("failed", statusKindColor(statusError), colorize)})
	}
	tw.AppendFooter(table.Row{"took", report.Duration.Round(10 * time.Millisecond).String()})
	return tw.Render()
}
