package services

import (
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"classconnect-scraper/models"
	"classconnect-scraper/utils"
)

type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

// Generate digests a run. Courses are grouped by subject; subjects and terms are not grouped.
func (s *SummaryService) Generate(result *Result) *models.RunSummary {
	summary := &models.RunSummary{RecordsByGroup: make(map[string]int)}
	if result == nil {
		return summary
	}

	summary.Function = result.Function
	summary.TotalRecords = len(result.Records)
	summary.Report = result.Report
	summary.Saved = result.Report != nil
	if r := result.Report; r != nil {
		summary.Duration = r.Finished.Sub(r.Started)
	}

	for _, rec := range result.Records {
		if c, ok := rec.(models.Course); ok {
			summary.RecordsByGroup[c.Subject]++
		}
	}
	return summary
}

// Print renders the summary as tables on w. Stdout carries the JSON result, so callers
// pass stderr.
func (s *SummaryService) Print(w io.Writer, sum *models.RunSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("%s run", sum.Function)
	t.AppendHeader(table.Row{"Records", "Saved", "Attempted", "Created", "Failed", "Duration"})

	if r := sum.Report; r != nil {
		t.AppendRow(table.Row{sum.TotalRecords, "yes", r.Attempted, r.Succeeded, r.Failed, sum.Duration.Round(time.Millisecond)})
	} else {
		t.AppendRow(table.Row{sum.TotalRecords, "no", "-", "-", "-", "-"})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	if len(sum.RecordsByGroup) > 0 {
		type groupCount struct {
			group string
			count int
		}
		groups := make([]groupCount, 0, len(sum.RecordsByGroup))
		for g, n := range sum.RecordsByGroup {
			groups = append(groups, groupCount{g, n})
		}
		sort.Slice(groups, func(i, j int) bool {
			if groups[i].count != groups[j].count {
				return groups[i].count > groups[j].count
			}
			return groups[i].group < groups[j].group
		})
		if len(groups) > 10 {
			groups = groups[:10]
		}

		bt := table.NewWriter()
		bt.SetOutputMirror(w)
		bt.SetTitle("Top subjects")
		bt.AppendHeader(table.Row{"Subject", "Courses"})
		for _, g := range groups {
			bt.AppendRow(table.Row{g.group, g.count})
		}
		bt.SetStyle(table.StyleRounded)
		bt.Render()
	}

	if failures := sum.Report.Failures(); len(failures) > 0 {
		ft := table.NewWriter()
		ft.SetOutputMirror(w)
		ft.SetTitle("Failed records")
		ft.AppendHeader(table.Row{"#", "ID", "Error"})
		for _, f := range failures {
			ft.AppendRow(table.Row{f.Index, f.ID, truncate(f.Error, 80)})
		}
		ft.SetStyle(table.StyleRounded)
		ft.Render()
	}
}

// PrintPipelines lists the selectable functions.
func (s *SummaryService) PrintPipelines(w io.Writer, pipelines []Pipeline) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Function", "Collection", "Description"})
	for _, p := range pipelines {
		t.AppendRow(table.Row{p.Name, p.Collection, p.Description})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

