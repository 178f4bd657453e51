package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/filge/internal/progress"
	"github.com/p-n-ai/filge/internal/question"
	"github.com/p-n-ai/filge/internal/quiz"
	"github.com/p-n-ai/filge/internal/subject"
)

const (
	maxDeviceIDLen = 128
	readyTimeout   = 2 * time.Second
)

type subjectSummary struct {
	Slug      subject.Canonical `json:"slug"`
	Name      string            `json:"name"`
	Questions int               `json:"questions"`
}

type quizResponse struct {
	ID        string                  `json:"id"`
	Subject   subject.Canonical       `json:"subject"`
	Mode      string                  `json:"mode"`
	Questions []quiz.RenderedQuestion `json:"questions"`
	Warnings  []question.PoolWarning  `json:"warnings"`
}

type practiceAnswerRequest struct {
	QuestionID string `json:"questionId"`
	ChoiceNo   int    `json:"choiceNo"`
	Mode       string `json:"mode,omitempty"`
}

type practiceAnswerResponse struct {
	QuestionID      string `json:"questionId"`
	Correct         bool   `json:"correct"`
	CorrectChoiceNo int    `json:"correctChoiceNo"`
	Explanation     string `json:"explanation"`
}

type examSubmissionRequest struct {
	QuestionIDs []string       `json:"questionIds"`
	Answers     map[string]int `json:"answers"`
}

type wrongNotesResponse struct {
	Subject     subject.Canonical             `json:"subject"`
	QuestionIDs []string                      `json:"questionIds"`
	Questions   []question.NormalizedQuestion `json:"questions"`
}

type progressResponse struct {
	Subject          subject.Canonical `json:"subject"`
	Counters         progress.Counters `json:"counters"`
	PracticeAccuracy float64           `json:"practiceAccuracy"`
	ExamAccuracy     float64           `json:"examAccuracy"`
}

type deviceResponse struct {
	DeviceID string `json:"deviceId"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.ready(ctx); err != nil {
		slog.Warn("storage not ready", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (s *Server) handleSubjects(w http.ResponseWriter, r *http.Request) {
	counts := s.loader.SubjectCounts(s.filter)
	all := subject.All()
	out := make([]subjectSummary, 0, len(all))
	for _, m := range all {
		out = append(out, subjectSummary{Slug: m.Slug, Name: m.Name, Questions: counts[m.Slug]})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	subj, ok := pathSubject(w, r)
	if !ok {
		return
	}
	filter, err := s.queryFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.loader.SubjectPool(subj, filter))
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	subj, ok := pathSubject(w, r)
	if !ok {
		return
	}

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = ModePractice
	}
	count := s.quizSize
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
		count = n
	}

	var (
		pool       question.SubjectPool
		candidates []question.NormalizedQuestion
	)
	switch mode {
	case ModePractice, ModeExam:
		pool = s.loader.SubjectPool(subj, s.filter)
		candidates = pool.Questions
	case ModePractice2026:
		pool = s.loader.SubjectPool(subj, Practice2026Filter())
		candidates = pool.Questions
	case ModeWrongNote:
		store, ok := s.deviceStore(w, r)
		if !ok {
			return
		}
		pool = s.loader.SubjectPool(subj, s.filter)
		candidates = question.FindByIDs(pool.Questions, store.WrongNotes(r.Context(), subj))
		count = len(candidates)
	default:
		writeError(w, http.StatusBadRequest, "unknown mode: "+mode)
		return
	}

	q := quiz.Build(s.newRand(), candidates, count)
	slog.Debug("quiz built",
		"subject", subj,
		"mode", mode,
		"pool", len(candidates),
		"questions", len(q.Questions),
	)
	writeJSON(w, http.StatusOK, quizResponse{
		ID:        q.ID,
		Subject:   subj,
		Mode:      mode,
		Questions: q.Questions,
		Warnings:  pool.Warnings,
	})
}

func (s *Server) handlePracticeAnswer(w http.ResponseWriter, r *http.Request) {
	subj, ok := pathSubject(w, r)
	if !ok {
		return
	}
	store, ok := s.deviceStore(w, r)
	if !ok {
		return
	}

	var req practiceAnswerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.QuestionID == "" {
		writeError(w, http.StatusBadRequest, "questionId is required")
		return
	}

	found := question.FindByIDs(s.answerPool(subj), []string{req.QuestionID})
	if len(found) == 0 {
		writeError(w, http.StatusNotFound, "unknown question: "+req.QuestionID)
		return
	}
	q := found[0]
	correct := req.ChoiceNo == q.CorrectChoiceNo

	store.RecordPracticeAnswer(r.Context(), subj, correct)
	if !correct && req.Mode != ModeWrongNote {
		store.AddWrongNote(r.Context(), subj, q.ID)
	}

	writeJSON(w, http.StatusOK, practiceAnswerResponse{
		QuestionID:      q.ID,
		Correct:         correct,
		CorrectChoiceNo: q.CorrectChoiceNo,
		Explanation:     q.Explanation,
	})
}

func (s *Server) handleExamSubmission(w http.ResponseWriter, r *http.Request) {
	subj, ok := pathSubject(w, r)
	if !ok {
		return
	}
	store, ok := s.deviceStore(w, r)
	if !ok {
		return
	}

	var req examSubmissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.QuestionIDs) == 0 {
		writeError(w, http.StatusBadRequest, "questionIds is required")
		return
	}

	byID := make(map[string]question.NormalizedQuestion)
	for _, q := range s.answerPool(subj) {
		byID[q.ID] = q
	}

	rng := s.newRand()
	seen := make(map[string]bool, len(req.QuestionIDs))
	rendered := make([]quiz.RenderedQuestion, 0, len(req.QuestionIDs))
	for _, id := range req.QuestionIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		q, ok := byID[id]
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown question: "+id)
			return
		}
		rendered = append(rendered, quiz.Render(rng, q))
	}

	result := quiz.Grade(rendered, req.Answers)
	store.RecordExamAttempt(r.Context(), subj, result.Total, result.Correct)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleWrongNotes(w http.ResponseWriter, r *http.Request) {
	subj, ok := pathSubject(w, r)
	if !ok {
		return
	}
	store, ok := s.deviceStore(w, r)
	if !ok {
		return
	}

	ids := store.WrongNotes(r.Context(), subj)
	writeJSON(w, http.StatusOK, wrongNotesResponse{
		Subject:     subj,
		QuestionIDs: ids,
		Questions:   question.FindByIDs(s.answerPool(subj), ids),
	})
}

func (s *Server) handleClearWrongNotes(w http.ResponseWriter, r *http.Request) {
	subj, ok := pathSubject(w, r)
	if !ok {
		return
	}
	store, ok := s.deviceStore(w, r)
	if !ok {
		return
	}
	store.ClearWrongNotes(r.Context(), subj)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveWrongNote(w http.ResponseWriter, r *http.Request) {
	subj, ok := pathSubject(w, r)
	if !ok {
		return
	}
	store, ok := s.deviceStore(w, r)
	if !ok {
		return
	}
	store.RemoveWrongNote(r.Context(), subj, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	subj, ok := pathSubject(w, r)
	if !ok {
		return
	}
	store, ok := s.deviceStore(w, r)
	if !ok {
		return
	}

	c := store.Progress(r.Context(), subj)
	writeJSON(w, http.StatusOK, progressResponse{
		Subject:          subj,
		Counters:         c,
		PracticeAccuracy: c.PracticeAccuracy(),
		ExamAccuracy:     c.ExamAccuracy(),
	})
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	store, ok := s.deviceStore(w, r)
	if !ok {
		return
	}
	store.ClearAll(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNewDevice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, deviceResponse{DeviceID: uuid.NewString()})
}

// queryFilter reads years and sessions from the query string, falling back
// to the configured filter for whichever is absent.
func (s *Server) queryFilter(r *http.Request) (question.Filter, error) {
	f := s.filter
	years, err := parseInts(r.URL.Query().Get("years"))
	if err != nil {
		return question.Filter{}, err
	}
	sessions, err := parseInts(r.URL.Query().Get("sessions"))
	if err != nil {
		return question.Filter{}, err
	}
	if len(years) > 0 {
		f.Years = years
	}
	if len(sessions) > 0 {
		f.Sessions = sessions
	}
	return f, nil
}

func (s *Server) deviceStore(w http.ResponseWriter, r *http.Request) (*progress.Store, bool) {
	id := strings.TrimSpace(r.Header.Get(DeviceHeader))
	if id == "" {
		writeError(w, http.StatusBadRequest, progress.ErrNoDevice.Error())
		return nil, false
	}
	if len(id) > maxDeviceIDLen {
		writeError(w, http.StatusBadRequest, "device id is too long")
		return nil, false
	}
	return progress.NewStore(s.storage, id), true
}

func pathSubject(w http.ResponseWriter, r *http.Request) (subject.Canonical, bool) {
	raw := r.PathValue("subject")
	subj, ok := subject.Canonicalize(raw)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown subject: "+raw)
		return "", false
	}
	return subj, true
}
