// Package quiz samples questions from a pool and renders them with
// independently shuffled choices.
package quiz

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/filge/internal/question"
)

// DefaultCount is the number of questions in a regular quiz.
const DefaultCount = question.SmallPoolThreshold

// Rand is the randomness the sampler needs. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// NewRand returns a time-seeded generator. There is no reproducibility
// contract; tests pass their own seeded source.
func NewRand() *rand.Rand {
	now := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(now, now>>32|1))
}

// Shuffle returns a uniformly shuffled copy of items (Fisher–Yates).
func Shuffle[T any](r Rand, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Sample draws n items without replacement. When n covers the whole input
// the result is a full shuffle.
func Sample[T any](r Rand, items []T, n int) []T {
	shuffled := Shuffle(r, items)
	if n >= len(shuffled) {
		return shuffled
	}
	if n < 0 {
		n = 0
	}
	return shuffled[:n]
}

// RenderedChoice is a choice as shown in one quiz instance.
type RenderedChoice struct {
	ID         string `json:"id"`
	OriginalNo int    `json:"originalNo"`
	Text       string `json:"text"`
}

// QuestionMeta locates a rendered question in its source exam.
type QuestionMeta struct {
	Year    int `json:"year"`
	Session int `json:"session"`
	No      int `json:"no"`
}

// RenderedQuestion is a per-quiz view of a normalized question. ID is the
// source question's id, so the same question stays identifiable across
// shuffles.
type RenderedQuestion struct {
	ID              string           `json:"id"`
	Prompt          string           `json:"prompt"`
	Topic           string           `json:"topic,omitempty"`
	Explanation     string           `json:"explanation"`
	CorrectChoiceNo int              `json:"correctChoiceNo"`
	Choices         []RenderedChoice `json:"choices"`
	Meta            QuestionMeta     `json:"meta"`
}

// IsCorrect reports whether choiceNo (an original choice ordinal) is the
// correct answer.
func (q RenderedQuestion) IsCorrect(choiceNo int) bool {
	return choiceNo == q.CorrectChoiceNo
}

// Quiz is one sampled, choice-shuffled set of questions.
type Quiz struct {
	ID        string             `json:"id"`
	Questions []RenderedQuestion `json:"questions"`
}

// Build samples up to n questions from pool and shuffles each question's
// choices independently.
func Build(r Rand, pool []question.NormalizedQuestion, n int) Quiz {
	selected := Sample(r, pool, n)
	questions := make([]RenderedQuestion, 0, len(selected))
	for _, q := range selected {
		questions = append(questions, Render(r, q))
	}
	return Quiz{
		ID:        uuid.NewString(),
		Questions: questions,
	}
}

// Render converts one normalized question, shuffling its choices.
func Render(r Rand, q question.NormalizedQuestion) RenderedQuestion {
	shuffled := Shuffle(r, q.Choices)
	choices := make([]RenderedChoice, len(shuffled))
	for i, c := range shuffled {
		choices[i] = RenderedChoice{
			ID:         fmt.Sprintf("%s-%d", q.ID, c.No),
			OriginalNo: c.No,
			Text:       c.Text,
		}
	}
	return RenderedQuestion{
		ID:              q.ID,
		Prompt:          q.Question,
		Topic:           q.Topic,
		Explanation:     q.Explanation,
		CorrectChoiceNo: q.CorrectChoiceNo,
		Choices:         choices,
		Meta: QuestionMeta{
			Year:    q.Year,
			Session: q.Session,
			No:      q.No,
		},
	}
}
