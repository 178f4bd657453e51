package validate

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by Write.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Write renders the report in the named format.
func Write(w io.Writer, r Report, format string) error {
	switch format {
	case FormatText, "":
		return WriteText(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatYAML:
		return WriteYAML(w, r)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteText writes one line per issue.
func WriteText(w io.Writer, r Report) error {
	for _, issue := range r.Issues {
		if _, err := fmt.Fprintln(w, issue.String()); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteYAML writes the report as YAML.
func WriteYAML(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding yaml report: %w", err)
	}
	return enc.Close()
}

const (
	issuesSheet = "Issues"
	filesSheet  = "Files"
	codesSheet  = "Codes"
)

// WriteXLSX writes the report as a workbook with an issue list, a per-file
// summary and a per-code tally.
func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", issuesSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(filesSheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	if _, err := f.NewSheet(codesSheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	issueRows := [][]any{{"File", "Code", "Question", "Detail"}}
	for _, i := range r.Issues {
		issueRows = append(issueRows, []any{i.File, string(i.Code), i.Question, i.Detail})
	}

	fileRows := [][]any{{"File", "Year", "Session", "Subject", "Questions", "Issues"}}
	for _, s := range r.Files {
		fileRows = append(fileRows, []any{s.File, s.Year, s.Session, string(s.Subject), s.Questions, s.Issues})
	}

	counts := r.CountByCode()
	codes := make([]Code, 0, len(counts))
	for c := range counts {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	codeRows := [][]any{{"Code", "Count"}}
	for _, c := range codes {
		codeRows = append(codeRows, []any{string(c), counts[c]})
	}

	for sheet, rows := range map[string][][]any{
		issuesSheet: issueRows,
		filesSheet:  fileRows,
		codesSheet:  codeRows,
	} {
		if err := writeRows(f, sheet, rows); err != nil {
			return err
		}
		if err := f.SetRowStyle(sheet, 1, 1, header); err != nil {
			return fmt.Errorf("styling %s header: %w", sheet, err)
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
