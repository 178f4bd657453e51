// Package api exposes the question bank, quiz assembly and per-device
// progress over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/p-n-ai/filge/internal/progress"
	"github.com/p-n-ai/filge/internal/question"
	"github.com/p-n-ai/filge/internal/quiz"
	"github.com/p-n-ai/filge/internal/subject"
)

// DeviceHeader carries the caller's device id.
const DeviceHeader = "X-Device-ID"

// Quiz modes accepted by the quiz endpoint.
const (
	ModePractice     = "practice"
	ModePractice2026 = "practice-2026"
	ModeExam         = "exam"
	ModeWrongNote    = "wrong-note"
)

// Practice2026Filter is the pool of the 2026-only practice mode.
func Practice2026Filter() question.Filter {
	return question.Filter{Years: []int{2026}, Sessions: []int{1, 2, 3}}
}

// Options tunes a Server. Zero values fall back to defaults.
type Options struct {
	Filter      question.Filter
	QuizSize    int
	CORSOrigins []string
	// NewRand supplies the random source for each quiz. Tests inject a
	// seeded one.
	NewRand func() quiz.Rand
}

// Server serves the HTTP API.
type Server struct {
	loader   *question.Loader
	storage  progress.Storage
	filter   question.Filter
	quizSize int
	origins  []string
	newRand  func() quiz.Rand
}

// New creates a Server over loader and storage. storage may be nil, in
// which case progress reads come back empty and writes are dropped.
func New(loader *question.Loader, storage progress.Storage, opts Options) *Server {
	s := &Server{
		loader:   loader,
		storage:  storage,
		filter:   opts.Filter,
		quizSize: opts.QuizSize,
		origins:  opts.CORSOrigins,
		newRand:  opts.NewRand,
	}
	if len(s.filter.Years) == 0 || len(s.filter.Sessions) == 0 {
		s.filter = question.DefaultFilter()
	}
	if s.quizSize <= 0 {
		s.quizSize = quiz.DefaultCount
	}
	if len(s.origins) == 0 {
		s.origins = []string{"*"}
	}
	if s.newRand == nil {
		s.newRand = func() quiz.Rand { return quiz.NewRand() }
	}
	return s
}

// Handler returns the routed API wrapped with CORS and panic recovery.
func (s *Server) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins(s.origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", DeviceHeader}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(false),
	)
	return recovery(cors(s.Routes()))
}

// Routes registers every endpoint on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /api/subjects", withLogging(s.handleSubjects))
	mux.HandleFunc("GET /api/subjects/{subject}/pool", withLogging(s.handlePool))
	mux.HandleFunc("GET /api/subjects/{subject}/quiz", withLogging(s.handleQuiz))
	mux.HandleFunc("POST /api/subjects/{subject}/practice/answers", withLogging(s.handlePracticeAnswer))
	mux.HandleFunc("POST /api/subjects/{subject}/exam/submissions", withLogging(s.handleExamSubmission))

	mux.HandleFunc("GET /api/subjects/{subject}/wrong-notes", withLogging(s.handleWrongNotes))
	mux.HandleFunc("DELETE /api/subjects/{subject}/wrong-notes", withLogging(s.handleClearWrongNotes))
	mux.HandleFunc("DELETE /api/subjects/{subject}/wrong-notes/{id}", withLogging(s.handleRemoveWrongNote))
	mux.HandleFunc("GET /api/subjects/{subject}/progress", withLogging(s.handleProgress))

	mux.HandleFunc("DELETE /api/data", withLogging(s.handleClearAll))
	mux.HandleFunc("POST /api/devices", withLogging(s.handleNewDevice))
	return mux
}

// answerPool covers every pool a quiz can be drawn from, so answers to any
// mode resolve. The configured pool and the 2026 practice pool are read
// separately; questions outside both stay unknown.
func (s *Server) answerPool(subj subject.Canonical) []question.NormalizedQuestion {
	out := s.loader.SubjectPool(subj, s.filter).Questions
	seen := make(map[string]bool, len(out))
	for _, q := range out {
		seen[q.ID] = true
	}
	for _, q := range s.loader.SubjectPool(subj, Practice2026Filter()).Questions {
		if !seen[q.ID] {
			out = append(out, q)
		}
	}
	return out
}

func (s *Server) ready(ctx context.Context) error {
	if hc, ok := s.storage.(progress.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
