// Package report renders learner analytics as an xlsx workbook.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-adaptive/internal/adaptive"
	"github.com/p-n-ai/pai-adaptive/internal/curriculum"
	"github.com/p-n-ai/pai-adaptive/internal/learner"
)

const (
	SummarySheet  = "Summary"
	AttemptsSheet = "Attempts"

	timeLayout = "2006-01-02 15:04:05"
)

// Input is everything the workbook shows for one learner.
type Input struct {
	Analytics *adaptive.AnalyticsReport
	Attempts  []learner.Attempt
	Catalog   *curriculum.Catalog
}

// WriteWorkbook writes a two-sheet workbook: a summary of the analytics
// report and one row per attempt.
func WriteWorkbook(w io.Writer, in Input) error {
	if in.Analytics == nil {
		return fmt.Errorf("analytics report is required")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(AttemptsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeSummary(f, in.Analytics, bold); err != nil {
		return err
	}
	if err := writeAttempts(f, in.Attempts, in.Catalog, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, a *adaptive.AnalyticsReport, bold int) error {
	rows := [][]any{
		{"Learner", a.LearnerID},
		{"Current level", curriculum.DisplayName(a.Overall.CurrentLevel)},
		{"Total attempts", a.Overall.TotalAttempts},
		{"Correct attempts", a.Overall.CorrectAttempts},
		{"Success rate (%)", a.Overall.SuccessRatePercent},
		{"Recent attempts", a.Recent.Attempts},
		{"Recent success rate (%)", a.Recent.SuccessRatePercent},
		{"Learning state", string(a.State)},
		{"Recommendation", a.Recommendation},
	}
	if a.Empty {
		rows = append(rows, []any{"Note", a.Message})
	}
	if a.Settings != nil {
		rows = append(rows,
			[]any{"Adaptive success rate", a.Settings.SuccessRate},
			[]any{"Difficulty preference", a.Settings.DifficultyPreference},
		)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(SummarySheet, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}
	return f.SetColWidth(SummarySheet, "A", "B", 28)
}

func writeAttempts(f *excelize.File, attempts []learner.Attempt, cat *curriculum.Catalog, bold int) error {
	header := []any{"Content ID", "Title", "Question", "Correct", "Answered at"}
	if err := f.SetSheetRow(AttemptsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write attempts header: %w", err)
	}
	if err := f.SetCellStyle(AttemptsSheet, "A1", "E1", bold); err != nil {
		return fmt.Errorf("style attempts header: %w", err)
	}

	for i, a := range attempts {
		title := ""
		if cat != nil {
			if item, ok := cat.Item(a.ContentID); ok {
				title = item.Title
			}
		}
		row := []any{a.ContentID, title, a.QuestionIndex + 1, a.Correct, a.Timestamp.UTC().Format(timeLayout)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(AttemptsSheet, cell, &row); err != nil {
			return fmt.Errorf("write attempt row %d: %w", i+2, err)
		}
	}
	return f.SetColWidth(AttemptsSheet, "A", "E", 22)
}
