// Package question discovers question source files, normalizes their
// entries and assembles per-subject pools with diagnostic warnings.
package question

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/p-n-ai/filge/internal/subject"
)

// SmallPoolThreshold matches the default quiz size. Pools below it get a
// small_pool warning.
const SmallPoolThreshold = 20

// MissingExplanation replaces an absent explanation.
const MissingExplanation = "해설이 제공되지 않은 문항입니다."

// Loader reads question files from a directory tree. It keeps no state
// between calls: every pool is rebuilt from disk.
type Loader struct {
	rootDir string
}

// NewLoader creates a loader rooted at rootDir. The directory does not need
// to exist yet.
func NewLoader(rootDir string) *Loader {
	return &Loader{rootDir: rootDir}
}

// RootDir returns the directory the loader reads from.
func (l *Loader) RootDir() string {
	return l.rootDir
}

// ListFiles returns every .json file under the root, relative to it, with
// forward slashes, sorted. A missing root yields an empty list.
func (l *Loader) ListFiles() []string {
	return ListFiles(l.rootDir)
}

// ListFiles walks root recursively and returns the .json files it finds.
func ListFiles(root string) []string {
	if _, err := os.Stat(root); err != nil {
		return []string{}
	}

	files := []string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Debug("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), FileExt) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		slog.Warn("walking question directory", "root", root, "error", err)
	}

	slices.Sort(files)
	return files
}

// SubjectPool assembles the pool for one subject restricted to filter. It
// never fails: unreadable or foreign files are skipped and anomalies are
// reported as warnings.
func (l *Loader) SubjectPool(subj subject.Canonical, filter Filter) SubjectPool {
	pool := SubjectPool{
		Subject:   subj,
		Questions: []NormalizedQuestion{},
		Warnings:  []PoolWarning{},
	}
	observed := make(map[Pair]bool)

	for _, name := range l.ListFiles() {
		fn, ok := ParseFilename(name)
		if !ok {
			continue
		}

		file, ok := readQuestionFile(filepath.Join(l.rootDir, filepath.FromSlash(name)))
		if !ok {
			continue
		}

		resolved := fn.Subject
		if resolved == "" {
			resolved, _ = subject.Canonicalize(file.metaSubjectCode())
		}
		if resolved == "" || resolved != subj {
			continue
		}

		if !filter.contains(fn.Year, fn.Session) {
			continue
		}
		observed[Pair{Year: fn.Year, Session: fn.Session}] = true

		if metaYear, metaSession, ok := file.examMeta(); ok {
			if !sameNumber(metaYear, fn.Year) || !sameNumber(metaSession, fn.Session) {
				pool.Warnings = append(pool.Warnings, PoolWarning{
					Kind: WarningMetaMismatch,
					Message: fmt.Sprintf("%s: meta(%s-%s)와 파일명(%d-%d) 불일치. 파일명 기준으로 처리함.",
						name, metaText(metaYear), metaText(metaSession), fn.Year, fn.Session),
				})
			}
		}

		for _, entry := range file.Questions {
			q, ok := normalize(entry, name, subj, fn.Year, fn.Session)
			if !ok {
				continue
			}
			pool.Questions = append(pool.Questions, q)
		}
	}

	for _, p := range filter.Pairs() {
		if observed[p] {
			continue
		}
		pool.Warnings = append(pool.Warnings, PoolWarning{
			Kind: WarningMissingYear,
			Message: fmt.Sprintf("%s: %d년 %d회차 파일이 없어 가능한 데이터만 사용합니다.",
				subj.DisplayName(), p.Year, p.Session),
		})
	}

	if len(pool.Questions) < SmallPoolThreshold {
		pool.Warnings = append(pool.Warnings, PoolWarning{
			Kind: WarningSmallPool,
			Message: fmt.Sprintf("%s: 문제 풀이 풀 크기가 %d문항이라 시험이 %d문항보다 적게 출제될 수 있습니다.",
				subj.DisplayName(), len(pool.Questions), SmallPoolThreshold),
		})
	}

	slog.Debug("subject pool assembled",
		"subject", subj,
		"questions", len(pool.Questions),
		"warnings", len(pool.Warnings),
	)
	return pool
}

// SubjectCounts returns the pool size of every registered subject.
func (l *Loader) SubjectCounts(filter Filter) map[subject.Canonical]int {
	counts := make(map[subject.Canonical]int)
	for _, m := range subject.All() {
		counts[m.Slug] = len(l.SubjectPool(m.Slug, filter).Questions)
	}
	return counts
}

// FindByIDs returns the questions whose id is in ids, in pool order.
func FindByIDs(questions []NormalizedQuestion, ids []string) []NormalizedQuestion {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := []NormalizedQuestion{}
	for _, q := range questions {
		if want[q.ID] {
			out = append(out, q)
		}
	}
	return out
}

// QuestionID builds the identifier shared by a question across renders.
func QuestionID(subj subject.Canonical, year, session, no int) string {
	return fmt.Sprintf("%s-%d-%d-%d", subj, year, session, no)
}

func readQuestionFile(path string) (*QuestionFile, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("skipping unreadable question file", "path", path, "error", err)
		return nil, false
	}
	file, err := DecodeFile(data)
	if err != nil {
		slog.Debug("skipping invalid question file", "path", path, "error", err)
		return nil, false
	}
	return file, true
}

// DecodeFile parses the content of a question source file. Invalid JSON
// and falsy documents (null, false, 0, "") fail. Any other document decodes:
// metadata or a questions list of the wrong type reads as absent.
func DecodeFile(data []byte) (*QuestionFile, error) {
	var doc json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	switch string(doc) {
	case "null", "false", `""`:
		return nil, fmt.Errorf("empty document")
	}
	if n, ok := integralNumber(doc); ok && n == 0 {
		return nil, fmt.Errorf("empty document")
	}
	file := &QuestionFile{}
	if err := file.UnmarshalJSON(doc); err != nil {
		return nil, err
	}
	return file, nil
}

func (f *QuestionFile) metaSubjectCode() string {
	var code string
	if err := json.Unmarshal(f.Meta.Subject.Code, &code); err != nil {
		return ""
	}
	return code
}

// examMeta returns the embedded exam year and session when both are
// present. An explicit null counts as present.
func (f *QuestionFile) examMeta() (json.RawMessage, json.RawMessage, bool) {
	year, session := f.Meta.Exam.Year, f.Meta.Exam.Session
	if len(year) == 0 || len(session) == 0 {
		return nil, nil, false
	}
	return year, session, true
}

// sameNumber reports whether raw is a JSON number equal to want. 2024.0
// matches 2024; "2024" does not.
func sameNumber(raw json.RawMessage, want int) bool {
	f, err := strconv.ParseFloat(string(bytes.TrimSpace(raw)), 64)
	return err == nil && f == float64(want)
}

// metaText renders a metadata value for a warning. Strings lose their
// quotes.
func metaText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func normalize(entry json.RawMessage, sourceFile string, subj subject.Canonical, year, session int) (NormalizedQuestion, bool) {
	if len(bytes.TrimSpace(entry)) == 0 {
		return NormalizedQuestion{}, false
	}
	var raw *RawQuestion
	if err := json.Unmarshal(entry, &raw); err != nil || raw == nil {
		return NormalizedQuestion{}, false
	}
	if raw.Question == "" || len(raw.Choices) == 0 || raw.Answer == nil || raw.Answer.ChoiceNo == 0 {
		return NormalizedQuestion{}, false
	}

	explanation := MissingExplanation
	if raw.Explanation != nil {
		explanation = *raw.Explanation
	}

	choices := make([]Choice, len(raw.Choices))
	for i, c := range raw.Choices {
		choices[i] = Choice{No: int(c.No), Text: c.Text}
	}

	no := int(raw.No)
	return NormalizedQuestion{
		ID:              QuestionID(subj, year, session, no),
		SourceFile:      sourceFile,
		Subject:         subj,
		Year:            year,
		Session:         session,
		No:              no,
		Topic:           raw.Topic,
		Question:        raw.Question,
		Choices:         choices,
		CorrectChoiceNo: int(raw.Answer.ChoiceNo),
		Explanation:     explanation,
	}, true
}
