// Package validate checks a question source tree strictly. Where the loader
// silently skips bad input, the validator reports every problem it finds.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/p-n-ai/filge/internal/question"
	"github.com/p-n-ai/filge/internal/subject"
)

// ErrRootMissing is returned when the question directory does not exist.
var ErrRootMissing = errors.New("question directory does not exist")

// Code classifies an issue.
type Code string

const (
	CodeInvalidFilename      Code = "INVALID_FILENAME"
	CodeParseFail            Code = "PARSE_FAIL"
	CodeMetaYearMismatch     Code = "META_YEAR_MISMATCH"
	CodeMetaSessionMismatch  Code = "META_SESSION_MISMATCH"
	CodeSubjectUnknownFile   Code = "SUBJECT_UNKNOWN_FILE"
	CodeSubjectMismatch      Code = "SUBJECT_MISMATCH"
	CodeQuestionsNotArray    Code = "QUESTIONS_NOT_ARRAY"
	CodeQuestionShapeInvalid Code = "QUESTION_SHAPE_INVALID"
	CodeAnswerNotInChoices   Code = "ANSWER_NOT_IN_CHOICES"
)

// Issue is one problem found in a file. Question is the 1-based entry
// index, or 0 for file-level issues.
type Issue struct {
	File     string `json:"file" yaml:"file"`
	Code     Code   `json:"code" yaml:"code"`
	Question int    `json:"question,omitempty" yaml:"question,omitempty"`
	Detail   string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func (i Issue) String() string {
	s := fmt.Sprintf("[%s] %s", i.Code, i.File)
	if i.Question > 0 {
		s += fmt.Sprintf(" #%d", i.Question)
	}
	if i.Detail != "" {
		s += ": " + i.Detail
	}
	return s
}

// FileSummary describes one validated file.
type FileSummary struct {
	File      string            `json:"file" yaml:"file"`
	Year      int               `json:"year,omitempty" yaml:"year,omitempty"`
	Session   int               `json:"session,omitempty" yaml:"session,omitempty"`
	Subject   subject.Canonical `json:"subject,omitempty" yaml:"subject,omitempty"`
	Questions int               `json:"questions" yaml:"questions"`
	Issues    int               `json:"issues" yaml:"issues"`
}

// Report is the outcome of validating a tree.
type Report struct {
	Root   string        `json:"root" yaml:"root"`
	Files  []FileSummary `json:"files" yaml:"files"`
	Issues []Issue       `json:"issues" yaml:"issues"`
}

// OK reports whether no issue was found.
func (r Report) OK() bool {
	return len(r.Issues) == 0
}

// CountByCode tallies issues per code.
func (r Report) CountByCode() map[Code]int {
	counts := make(map[Code]int)
	for _, i := range r.Issues {
		counts[i.Code]++
	}
	return counts
}

// Run validates every .json file under root.
func Run(root string) (Report, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return Report{}, fmt.Errorf("%w: %s", ErrRootMissing, root)
	}

	report := Report{
		Root:   root,
		Files:  []FileSummary{},
		Issues: []Issue{},
	}
	for _, name := range question.ListFiles(root) {
		summary, issues := checkFile(root, name)
		summary.Issues = len(issues)
		report.Files = append(report.Files, summary)
		report.Issues = append(report.Issues, issues...)
	}
	return report, nil
}

func checkFile(root, name string) (FileSummary, []Issue) {
	summary := FileSummary{File: name}
	var issues []Issue
	add := func(code Code, idx int, detail string) {
		issues = append(issues, Issue{File: name, Code: code, Question: idx, Detail: detail})
	}

	fn, ok := question.ParseFilename(name)
	if !ok {
		add(CodeInvalidFilename, 0, "")
		return summary, issues
	}
	summary.Year = fn.Year
	summary.Session = fn.Session
	summary.Subject = fn.Subject

	doc, ok := readDocument(filepath.Join(root, filepath.FromSlash(name)))
	if !ok {
		add(CodeParseFail, 0, "")
		return summary, issues
	}

	if metaYear, ok := lookup(doc, "meta", "exam", "year"); ok && !numberEquals(metaYear, fn.Year) {
		add(CodeMetaYearMismatch, 0, fmt.Sprintf("meta=%v filename=%d", render(metaYear), fn.Year))
	}
	if metaSession, ok := lookup(doc, "meta", "exam", "session"); ok && !numberEquals(metaSession, fn.Session) {
		add(CodeMetaSessionMismatch, 0, fmt.Sprintf("meta=%v filename=%d", render(metaSession), fn.Session))
	}

	if fn.Subject == "" {
		add(CodeSubjectUnknownFile, 0, fmt.Sprintf("code=%s", fn.Code))
	}
	if code, ok := lookup(doc, "meta", "subject", "code"); ok {
		if s, isString := code.(string); isString {
			if metaSubject, ok := subject.Canonicalize(s); ok && fn.Subject != "" && metaSubject != fn.Subject {
				add(CodeSubjectMismatch, 0, fmt.Sprintf("meta=%s filename=%s", metaSubject, fn.Subject))
			}
		}
	}

	raw, _ := lookup(doc, "questions")
	entries, isArray := raw.([]any)
	if !isArray {
		add(CodeQuestionsNotArray, 0, "")
		return summary, issues
	}
	summary.Questions = len(entries)

	for i, entry := range entries {
		idx := i + 1
		if problems := checkShape(entry); len(problems) > 0 {
			add(CodeQuestionShapeInvalid, idx, joinProblems(problems))
			continue
		}
		q := entry.(map[string]any)
		answer, _ := lookup(q, "answer", "choiceNo")
		if !choiceNumbers(q["choices"])[answer.(float64)] {
			add(CodeAnswerNotInChoices, idx, fmt.Sprintf("choiceNo=%v", render(answer)))
		}
	}

	return summary, issues
}

// readDocument decodes a file generically. Unreadable, unparsable and
// falsy documents (null, false, 0, "") all fail.
func readDocument(path string) (any, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false
	}
	switch v := doc.(type) {
	case nil:
		return nil, false
	case bool:
		return doc, v
	case float64:
		return doc, v != 0
	case string:
		return doc, v != ""
	}
	return doc, true
}

// lookup walks nested objects. A null leaf is present with a nil value; a
// null along the way makes the leaf absent.
func lookup(v any, keys ...string) (any, bool) {
	cur := v
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[k]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func numberEquals(v any, want int) bool {
	n, ok := v.(float64)
	return ok && n == float64(want)
}

func choiceNumbers(v any) map[float64]bool {
	nums := make(map[float64]bool)
	choices, _ := v.([]any)
	for _, c := range choices {
		if no, ok := lookup(c, "no"); ok {
			if n, ok := no.(float64); ok {
				nums[n] = true
			}
		}
	}
	return nums
}

func render(v any) string {
	if n, ok := v.(float64); ok && n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
