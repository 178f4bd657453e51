package question

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/p-n-ai/filge/internal/subject"
)

// Choice is one answer option of a normalized question.
type Choice struct {
	No   int    `json:"no" yaml:"no"`
	Text string `json:"text" yaml:"text"`
}

// Ordinal is an integer as question authors write it: 3, 3.0 and "3" all
// decode to 3. JSON null leaves the zero value.
type Ordinal int

func (o *Ordinal) UnmarshalJSON(data []byte) error {
	n, ok := parseOrdinal(data)
	if !ok {
		return fmt.Errorf("not an integer: %s", data)
	}
	*o = Ordinal(n)
	return nil
}

func parseOrdinal(data []byte) (int, bool) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return 0, true
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, false
		}
		n, err := strconv.Atoi(s)
		return n, err == nil
	}
	return integralNumber(data)
}

// integralNumber reports the value of a JSON number without a fractional
// part.
func integralNumber(data []byte) (int, bool) {
	f, err := strconv.ParseFloat(string(bytes.TrimSpace(data)), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// RawChoice is an answer option exactly as authored.
type RawChoice struct {
	No   Ordinal `json:"no"`
	Text string  `json:"text"`
}

// Answer references the correct choice by its ordinal.
type Answer struct {
	ChoiceNo Ordinal `json:"choiceNo"`
}

// RawQuestion is a question entry exactly as it appears in a source file.
type RawQuestion struct {
	No          Ordinal     `json:"no"`
	Topic       string      `json:"topic,omitempty"`
	Question    string      `json:"question"`
	Choices     []RawChoice `json:"choices"`
	Answer      *Answer     `json:"answer"`
	Explanation *string     `json:"explanation,omitempty"`
}

// ExamMeta is the optional exam block embedded in a source file. Values are
// kept as written; a present null is kept as "null".
type ExamMeta struct {
	Year    json.RawMessage `json:"year,omitempty"`
	Session json.RawMessage `json:"session,omitempty"`
}

func (m *ExamMeta) UnmarshalJSON(data []byte) error {
	fields := objectFields(data)
	*m = ExamMeta{Year: fields["year"], Session: fields["session"]}
	return nil
}

// SubjectMeta is the optional subject block embedded in a source file.
type SubjectMeta struct {
	Code json.RawMessage `json:"code,omitempty"`
}

func (m *SubjectMeta) UnmarshalJSON(data []byte) error {
	*m = SubjectMeta{Code: objectFields(data)["code"]}
	return nil
}

// FileMeta is the optional metadata block of a source file. Blocks of the
// wrong JSON type read as empty instead of failing the file.
type FileMeta struct {
	Exam    ExamMeta    `json:"exam"`
	Subject SubjectMeta `json:"subject"`
}

func (m *FileMeta) UnmarshalJSON(data []byte) error {
	fields := objectFields(data)
	*m = FileMeta{}
	if raw, ok := fields["exam"]; ok {
		m.Exam.UnmarshalJSON(raw)
	}
	if raw, ok := fields["subject"]; ok {
		m.Subject.UnmarshalJSON(raw)
	}
	return nil
}

// QuestionFile is the top-level shape of a question source file. Entries
// are kept raw so that one malformed entry does not discard its siblings.
// Questions is nil when the document has no questions array.
type QuestionFile struct {
	Meta      FileMeta          `json:"meta"`
	Questions []json.RawMessage `json:"questions,omitempty"`
}

func (f *QuestionFile) UnmarshalJSON(data []byte) error {
	fields := objectFields(data)
	*f = QuestionFile{}
	if raw, ok := fields["meta"]; ok {
		f.Meta.UnmarshalJSON(raw)
	}
	if raw, ok := fields["questions"]; ok {
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err == nil {
			f.Questions = entries
		}
	}
	return nil
}

// objectFields splits a JSON object into its members. Anything else yields
// nil.
func objectFields(data []byte) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	return fields
}

// NormalizedQuestion is a RawQuestion resolved against its file's subject,
// year and session. The loader is its only producer.
type NormalizedQuestion struct {
	ID              string            `json:"id"`
	SourceFile      string            `json:"sourceFile"`
	Subject         subject.Canonical `json:"subject"`
	Year            int               `json:"year"`
	Session         int               `json:"session"`
	No              int               `json:"no"`
	Topic           string            `json:"topic,omitempty"`
	Question        string            `json:"question"`
	Choices         []Choice          `json:"choices"`
	CorrectChoiceNo int               `json:"correctChoiceNo"`
	Explanation     string            `json:"explanation"`
}

// WarningKind tags a PoolWarning.
type WarningKind string

const (
	WarningMetaMismatch WarningKind = "meta_mismatch"
	WarningMissingYear  WarningKind = "missing_year"
	WarningSmallPool    WarningKind = "small_pool"
)

// PoolWarning is an informational note attached to a pool. It never blocks
// quiz assembly.
type PoolWarning struct {
	Kind    WarningKind `json:"type"`
	Message string      `json:"message"`
}

// SubjectPool is the result of assembling one subject's questions under a
// year/session filter.
type SubjectPool struct {
	Subject   subject.Canonical    `json:"subject"`
	Questions []NormalizedQuestion `json:"questions"`
	Warnings  []PoolWarning        `json:"warnings"`
}

// HasWarning reports whether the pool carries a warning of the given kind.
func (p SubjectPool) HasWarning(kind WarningKind) bool {
	for _, w := range p.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

// Pair is a (year, session) combination.
type Pair struct {
	Year    int `json:"year"`
	Session int `json:"session"`
}

// Filter restricts a pool to a set of years and sessions.
type Filter struct {
	Years    []int `json:"years"`
	Sessions []int `json:"sessions"`
}

// DefaultFilter covers the regular exam years.
func DefaultFilter() Filter {
	return Filter{Years: []int{2024, 2025}, Sessions: []int{1, 2, 3}}
}

// Pairs expands the filter into its (year, session) combinations, year
// major, without duplicates.
func (f Filter) Pairs() []Pair {
	seen := make(map[Pair]bool)
	var pairs []Pair
	for _, y := range f.Years {
		for _, s := range f.Sessions {
			p := Pair{Year: y, Session: s}
			if seen[p] {
				continue
			}
			seen[p] = true
			pairs = append(pairs, p)
		}
	}
	return pairs
}

func (f Filter) contains(year, session int) bool {
	return slices.Contains(f.Years, year) && slices.Contains(f.Sessions, session)
}
