package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, orgID snowflake.ID, req CreateTypeRequest) (*ApplicationType, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID) ([]ApplicationType, error)
	GetByID(ctx context.Context, id snowflake.ID) (*ApplicationType, error)
}

type CreateTypeRequest struct {
	Title       string
	Description string
	Questions   []Question
}

var (
	ErrInvalidTitle     = errors.New("invalid_title")
	ErrInvalidOrg       = errors.New("invalid_org")
	ErrInvalidQuestions = errors.New("invalid_questions")
	ErrTypeNotFound     = errors.New("application_type_not_found")
	ErrInvalidAnswers   = errors.New("invalid_answers")
	ErrTooManyQuestions = errors.New("too_many_questions")
)

// ValidateQuestions checks structural validity of a question list.
func ValidateQuestions(questions []Question) error {
	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		id := strings.TrimSpace(q.ID)
		if id == "" || strings.TrimSpace(q.Label) == "" {
			return ErrInvalidQuestions
		}
		if q.Type != QuestionTypeText && q.Type != QuestionTypeTextarea {
			return ErrInvalidQuestions
		}
		if _, dup := seen[id]; dup {
			return ErrInvalidQuestions
		}
		seen[id] = struct{}{}
	}
	return nil
}

// ValidateAnswers checks a completion payload against the question
// list: every required question must be answered and every answer must
// reference a known question.
func ValidateAnswers(questions []Question, answers map[string]string) error {
	known := make(map[string]Question, len(questions))
	for _, q := range questions {
		known[q.ID] = q
	}

	for id := range answers {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w: unknown question %q", ErrInvalidAnswers, id)
		}
	}

	for _, q := range questions {
		if !q.Required {
			continue
		}
		if strings.TrimSpace(answers[q.ID]) == "" {
			return fmt.Errorf("%w: missing answer for %q", ErrInvalidAnswers, q.ID)
		}
	}

	return nil
}
