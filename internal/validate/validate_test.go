package validate_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/filge/internal/question"
	"github.com/p-n-ai/filge/internal/subject"
	"github.com/p-n-ai/filge/internal/validate"
)

const validFile = `{
	"meta": {"exam": {"year": 2024, "session": 1}, "subject": {"code": "SW_DESIGN"}},
	"questions": [
		{"no": 1, "question": "Q1?", "choices": [{"no": 1, "text": "a"}, {"no": 2, "text": "b"}], "answer": {"choiceNo": 2}}
	]
}`

func TestRun_MissingRoot(t *testing.T) {
	_, err := validate.Run(filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, validate.ErrRootMissing) {
		t.Fatalf("Run() error = %v, want ErrRootMissing", err)
	}
}

func TestRun_Clean(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2024/24-1-sw_design.json", validFile)

	report, err := validate.Run(dir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.OK() {
		t.Fatalf("Issues = %+v, want none", report.Issues)
	}
	if len(report.Files) != 1 || report.Files[0].Questions != 1 || report.Files[0].Year != 2024 {
		t.Errorf("Files = %+v", report.Files)
	}
}

func TestRun_Codes(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		want     validate.Code
		question int
	}{
		{"invalid filename", "notes.json", `{}`, validate.CodeInvalidFilename, 0},
		{"parse fail", "24-1-sw_design.json", `{broken`, validate.CodeParseFail, 0},
		{"null document", "24-1-sw_design.json", `null`, validate.CodeParseFail, 0},
		{"meta year", "24-1-sw_design.json", `{"meta": {"exam": {"year": 2023}}, "questions": []}`, validate.CodeMetaYearMismatch, 0},
		{"meta session", "24-1-sw_design.json", `{"meta": {"exam": {"session": 2}}, "questions": []}`, validate.CodeMetaSessionMismatch, 0},
		{"unknown subject", "24-1-physics.json", `{"questions": []}`, validate.CodeSubjectUnknownFile, 0},
		{"subject mismatch", "24-1-sw_design.json", `{"meta": {"subject": {"code": "DB_BUILD"}}, "questions": []}`, validate.CodeSubjectMismatch, 0},
		{"questions missing", "24-1-sw_design.json", `{"meta": {}}`, validate.CodeQuestionsNotArray, 0},
		{"questions object", "24-1-sw_design.json", `{"questions": {"no": 1}}`, validate.CodeQuestionsNotArray, 0},
		{"empty prompt", "24-1-sw_design.json", `{"questions": [{"question": "", "choices": [], "answer": {"choiceNo": 1}}]}`, validate.CodeQuestionShapeInvalid, 1},
		{"string choiceNo", "24-1-sw_design.json", `{"questions": [{"question": "q", "choices": [], "answer": {"choiceNo": "1"}}]}`, validate.CodeQuestionShapeInvalid, 1},
		{"null entry", "24-1-sw_design.json", `{"questions": [null]}`, validate.CodeQuestionShapeInvalid, 1},
		{"null meta year", "24-1-sw_design.json", `{"meta": {"exam": {"year": null}}, "questions": []}`, validate.CodeMetaYearMismatch, 0},
		{"string meta session", "24-1-sw_design.json", `{"meta": {"exam": {"session": "1"}}, "questions": []}`, validate.CodeMetaSessionMismatch, 0},
		{"fractional no", "24-1-sw_design.json", `{"questions": [{"no": 1.5, "question": "q", "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": 1}}]}`, validate.CodeQuestionShapeInvalid, 1},
		{"word no", "24-1-sw_design.json", `{"questions": [{"no": "one", "question": "q", "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": 1}}]}`, validate.CodeQuestionShapeInvalid, 1},
		{"zero choiceNo", "24-1-sw_design.json", `{"questions": [{"question": "q", "choices": [{"no": 0, "text": "a"}], "answer": {"choiceNo": 0}}]}`, validate.CodeQuestionShapeInvalid, 1},
		{"fractional choiceNo", "24-1-sw_design.json", `{"questions": [{"question": "q", "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": 1.5}}]}`, validate.CodeQuestionShapeInvalid, 1},
		{"empty choices", "24-1-sw_design.json", `{"questions": [{"question": "q", "choices": [], "answer": {"choiceNo": 1}}]}`, validate.CodeQuestionShapeInvalid, 1},
		{"numeric choice text", "24-1-sw_design.json", `{"questions": [{"question": "q", "choices": [{"no": 1, "text": 5}], "answer": {"choiceNo": 1}}]}`, validate.CodeQuestionShapeInvalid, 1},
		{"numeric topic", "24-1-sw_design.json", `{"questions": [{"topic": 3, "question": "q", "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": 1}}]}`, validate.CodeQuestionShapeInvalid, 1},
		{"answer not in choices", "24-1-sw_design.json", `{"questions": [
			{"question": "ok", "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": 1}},
			{"question": "bad", "choices": [{"no": 1, "text": "a"}, {"no": 2, "text": "b"}], "answer": {"choiceNo": 5}}
		]}`, validate.CodeAnswerNotInChoices, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, tt.file, tt.content)

			report, err := validate.Run(dir)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if len(report.Issues) != 1 {
				t.Fatalf("Issues = %+v, want exactly one %s", report.Issues, tt.want)
			}
			got := report.Issues[0]
			if got.Code != tt.want || got.Question != tt.question {
				t.Errorf("Issue = %+v, want code %s question %d", got, tt.want, tt.question)
			}
		})
	}
}

func TestRun_MetaMismatchDetail(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "24-1-sw_design.json", `{"meta": {"exam": {"year": 2023, "session": 1}}, "questions": []}`)

	report, err := validate.Run(dir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Issues) != 1 {
		t.Fatalf("Issues = %+v", report.Issues)
	}
	if got := report.Issues[0].String(); got != "[META_YEAR_MISMATCH] 24-1-sw_design.json: meta=2023 filename=2024" {
		t.Errorf("String() = %q", got)
	}
}

func TestRun_NullMetaYearDetail(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "24-1-sw_design.json", `{"meta": {"exam": {"year": null, "session": 1}}, "questions": []}`)

	report, err := validate.Run(dir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Detail != "meta=null filename=2024" {
		t.Errorf("Issues = %+v, want META_YEAR_MISMATCH meta=null", report.Issues)
	}
}

func TestRun_IntegralFloatsAreClean(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "24-1-sw_design.json", `{
		"meta": {"exam": {"year": 2024.0, "session": 1.0}},
		"questions": [{"no": 1.0, "question": "q", "choices": [{"no": 1.0, "text": "a"}], "answer": {"choiceNo": 1.0}}]
	}`)

	report, err := validate.Run(dir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.OK() {
		t.Errorf("Issues = %+v, want none", report.Issues)
	}
}

// Every entry the loader drops must be reported by the validator.
func TestRun_FlagsEveryEntryTheLoaderDrops(t *testing.T) {
	entries := []string{
		`{"no": 1, "question": "q", "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": 1}}`,
		`{"no": "1", "question": "q", "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": 1}}`,
		`{"no": 1.0, "question": "q", "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": 1}}`,
		`{"no": 1.5, "question": "q", "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": 1}}`,
		`{"no": "x", "question": "q", "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": 1}}`,
		`{"no": true, "question": "q", "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": 1}}`,
		`{"no": 1, "question": 5, "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": 1}}`,
		`{"no": 1, "question": "", "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": 1}}`,
		`{"no": 1, "question": "q", "choices": [], "answer": {"choiceNo": 1}}`,
		`{"no": 1, "question": "q", "choices": "a,b", "answer": {"choiceNo": 1}}`,
		`{"no": 1, "question": "q", "choices": [{"no": 1.5, "text": "a"}], "answer": {"choiceNo": 1}}`,
		`{"no": 1, "question": "q", "choices": [{"no": 1, "text": ["a"]}], "answer": {"choiceNo": 1}}`,
		`{"no": 1, "question": "q", "choices": [{"no": 1, "text": "a"}]}`,
		`{"no": 1, "question": "q", "choices": [{"no": 1, "text": "a"}], "answer": 1}`,
		`{"no": 1, "question": "q", "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": 0}}`,
		`{"no": 1, "question": "q", "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": "a"}}`,
		`{"no": 1, "question": "q", "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": 1}, "topic": {}}`,
		`{"no": 1, "question": "q", "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": 1}, "explanation": 2}`,
		`null`,
		`"q"`,
	}

	for i, entry := range entries {
		t.Run(fmt.Sprintf("entry %d", i), func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "24-1-sw_design.json", `{"questions": [`+entry+`]}`)

			pool := question.NewLoader(dir).SubjectPool(subject.SWDesign, question.Filter{Years: []int{2024}, Sessions: []int{1}})
			report, err := validate.Run(dir)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if len(pool.Questions) == 0 && report.OK() {
				t.Errorf("loader dropped %s but the validator reported nothing", entry)
			}
		})
	}
}

func writeReportFixture(t *testing.T) validate.Report {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "24-1-sw_design.json", validFile)
	writeFile(t, dir, "24-2-sw_design.json", `{"questions": [{"question": "bad", "choices": [{"no": 1, "text": "a"}], "answer": {"choiceNo": 3}}]}`)
	writeFile(t, dir, "readme.json", `{}`)

	report, err := validate.Run(dir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return report
}

func TestWrite_Formats(t *testing.T) {
	report := writeReportFixture(t)
	if report.OK() || len(report.Issues) != 2 {
		t.Fatalf("Issues = %+v, want 2", report.Issues)
	}

	var text bytes.Buffer
	if err := validate.Write(&text, report, validate.FormatText); err != nil {
		t.Fatalf("Write(text) error = %v", err)
	}
	if !strings.Contains(text.String(), "[ANSWER_NOT_IN_CHOICES] 24-2-sw_design.json #1") {
		t.Errorf("text report = %q", text.String())
	}
	if !strings.Contains(text.String(), "[INVALID_FILENAME] readme.json") {
		t.Errorf("text report = %q", text.String())
	}

	var js bytes.Buffer
	if err := validate.Write(&js, report, validate.FormatJSON); err != nil {
		t.Fatalf("Write(json) error = %v", err)
	}
	var decoded validate.Report
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("json report does not parse: %v", err)
	}
	if len(decoded.Issues) != 2 || len(decoded.Files) != 3 {
		t.Errorf("decoded json report = %+v", decoded)
	}

	var ym bytes.Buffer
	if err := validate.Write(&ym, report, validate.FormatYAML); err != nil {
		t.Fatalf("Write(yaml) error = %v", err)
	}
	var fromYAML validate.Report
	if err := yaml.Unmarshal(ym.Bytes(), &fromYAML); err != nil {
		t.Fatalf("yaml report does not parse: %v", err)
	}
	if len(fromYAML.Issues) != 2 || fromYAML.Issues[1].Code != validate.CodeInvalidFilename {
		t.Errorf("decoded yaml issues = %+v", fromYAML.Issues)
	}

	if err := validate.Write(&bytes.Buffer{}, report, "csv"); err == nil {
		t.Error("Write(csv) should fail")
	}
}

func TestWriteXLSX(t *testing.T) {
	report := writeReportFixture(t)

	var buf bytes.Buffer
	if err := validate.WriteXLSX(&buf, report); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	issues, err := f.GetRows("Issues")
	if err != nil {
		t.Fatalf("GetRows(Issues) error = %v", err)
	}
	if len(issues) != 3 {
		t.Fatalf("Issues rows = %d, want header + 2", len(issues))
	}
	if issues[0][1] != "Code" || issues[1][1] != "ANSWER_NOT_IN_CHOICES" {
		t.Errorf("Issues rows = %v", issues)
	}

	files, err := f.GetRows("Files")
	if err != nil {
		t.Fatalf("GetRows(Files) error = %v", err)
	}
	if len(files) != 4 {
		t.Errorf("Files rows = %d, want header + 3", len(files))
	}

	codes, err := f.GetRows("Codes")
	if err != nil {
		t.Fatalf("GetRows(Codes) error = %v", err)
	}
	if len(codes) != 3 {
		t.Errorf("Codes rows = %v, want header + 2", codes)
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}
