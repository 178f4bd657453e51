// Package progress persists per-device practice/exam counters and
// wrong-note lists. Every operation is best-effort: when the backend is
// missing or failing, reads return defaults and writes do nothing.
// Updates to one device are serialized within the process.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/p-n-ai/filge/internal/subject"
)

const (
	WrongNoteKey = "filge.wrongnote.v1"
	ProgressKey  = "filge.progress.v1"

	storageTimeout = 3 * time.Second
)

// ErrNoDevice is returned by callers that require a device id.
var ErrNoDevice = errors.New("device id is required")

// Counters aggregates one subject's activity on a device.
type Counters struct {
	PracticeAnswered int `json:"practiceAnswered"`
	PracticeCorrect  int `json:"practiceCorrect"`
	ExamAttempts     int `json:"examAttempts"`
	ExamQuestions    int `json:"examQuestions"`
	ExamCorrect      int `json:"examCorrect"`
}

// PracticeAccuracy returns the practice hit rate in [0,1].
func (c Counters) PracticeAccuracy() float64 {
	if c.PracticeAnswered == 0 {
		return 0
	}
	return float64(c.PracticeCorrect) / float64(c.PracticeAnswered)
}

// ExamAccuracy returns the share of exam questions answered correctly.
func (c Counters) ExamAccuracy() float64 {
	if c.ExamQuestions == 0 {
		return 0
	}
	return float64(c.ExamCorrect) / float64(c.ExamQuestions)
}

type wrongNoteBlob map[subject.Canonical][]string

type progressBlob map[subject.Canonical]Counters

// Store is the progress and wrong-note view of one device.
type Store struct {
	storage   Storage
	namespace string
}

// NewStore creates a store for deviceID over storage. storage may be nil,
// in which case the store behaves as an unavailable backend.
func NewStore(storage Storage, deviceID string) *Store {
	return &Store{
		storage:   storage,
		namespace: Namespace(deviceID),
	}
}

// AddWrongNote records questionID as answered wrong. Adding twice keeps a
// single entry.
func (s *Store) AddWrongNote(ctx context.Context, subj subject.Canonical, questionID string) {
	defer deviceLocks.Lock(s.namespace)()

	notes := loadBlob[wrongNoteBlob](ctx, s, WrongNoteKey)
	if slices.Contains(notes[subj], questionID) {
		return
	}
	notes[subj] = append(notes[subj], questionID)
	s.save(ctx, WrongNoteKey, notes)
}

// RemoveWrongNote drops questionID from the subject's list. Removing an id
// that is not listed does nothing.
func (s *Store) RemoveWrongNote(ctx context.Context, subj subject.Canonical, questionID string) {
	defer deviceLocks.Lock(s.namespace)()

	notes := loadBlob[wrongNoteBlob](ctx, s, WrongNoteKey)
	if !slices.Contains(notes[subj], questionID) {
		return
	}
	notes[subj] = slices.DeleteFunc(notes[subj], func(id string) bool { return id == questionID })
	s.save(ctx, WrongNoteKey, notes)
}

// WrongNotes lists the subject's wrong-note question ids in insertion order.
func (s *Store) WrongNotes(ctx context.Context, subj subject.Canonical) []string {
	notes := loadBlob[wrongNoteBlob](ctx, s, WrongNoteKey)
	if ids := notes[subj]; ids != nil {
		return ids
	}
	return []string{}
}

// ClearWrongNotes removes every wrong note of a subject.
func (s *Store) ClearWrongNotes(ctx context.Context, subj subject.Canonical) {
	defer deviceLocks.Lock(s.namespace)()

	notes := loadBlob[wrongNoteBlob](ctx, s, WrongNoteKey)
	delete(notes, subj)
	s.save(ctx, WrongNoteKey, notes)
}

// RecordPracticeAnswer counts one practice answer.
func (s *Store) RecordPracticeAnswer(ctx context.Context, subj subject.Canonical, correct bool) {
	defer deviceLocks.Lock(s.namespace)()

	all := loadBlob[progressBlob](ctx, s, ProgressKey)
	c := all[subj]
	c.PracticeAnswered++
	if correct {
		c.PracticeCorrect++
	}
	all[subj] = c
	s.save(ctx, ProgressKey, all)
}

// RecordExamAttempt counts one submitted exam of total questions.
func (s *Store) RecordExamAttempt(ctx context.Context, subj subject.Canonical, total, correct int) {
	defer deviceLocks.Lock(s.namespace)()

	all := loadBlob[progressBlob](ctx, s, ProgressKey)
	c := all[subj]
	c.ExamAttempts++
	c.ExamQuestions += total
	c.ExamCorrect += correct
	all[subj] = c
	s.save(ctx, ProgressKey, all)
}

// Progress returns the subject's counters, zero when nothing is recorded.
func (s *Store) Progress(ctx context.Context, subj subject.Canonical) Counters {
	all := loadBlob[progressBlob](ctx, s, ProgressKey)
	return all[subj]
}

// ClearAll deletes the device's wrong notes and counters.
func (s *Store) ClearAll(ctx context.Context) {
	if s.storage == nil {
		return
	}
	defer deviceLocks.Lock(s.namespace)()

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	for _, key := range []string{WrongNoteKey, ProgressKey} {
		if err := s.storage.RemoveItem(ctx, s.key(key)); err != nil {
			slog.Warn("progress storage remove failed", "key", key, "error", err)
		}
	}
}

func (s *Store) key(name string) string {
	return s.namespace + ":" + name
}

// loadBlob returns the subject map stored under name. It returns an empty
// map when the backend is unavailable, the key is absent or the blob is
// corrupt.
func loadBlob[M ~map[subject.Canonical]V, V any](ctx context.Context, s *Store, name string) M {
	empty := M{}
	if s.storage == nil {
		return empty
	}
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	raw, ok, err := s.storage.GetItem(ctx, s.key(name))
	if err != nil {
		slog.Warn("progress storage read failed", "key", name, "error", err)
		return empty
	}
	if !ok || raw == "" {
		return empty
	}

	var decoded M
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		slog.Warn("discarding unreadable progress blob", "key", name, "error", err)
		return empty
	}
	if decoded == nil {
		return empty
	}
	return decoded
}

func (s *Store) save(ctx context.Context, name string, v any) {
	if s.storage == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("encoding progress blob", "key", name, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	if err := s.storage.SetItem(ctx, s.key(name), string(data)); err != nil {
		slog.Warn("progress storage write failed", "key", name, "error", err)
	}
}
