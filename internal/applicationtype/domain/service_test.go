package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateQuestions(t *testing.T) {
	valid := []Question{
		{ID: "motivation", Label: "Why us?", Type: QuestionTypeTextarea, Required: true},
		{ID: "availability", Label: "Earliest start", Type: QuestionTypeText},
	}
	assert.NoError(t, ValidateQuestions(valid))

	assert.ErrorIs(t, ValidateQuestions([]Question{{ID: "", Label: "x", Type: QuestionTypeText}}), ErrInvalidQuestions)
	assert.ErrorIs(t, ValidateQuestions([]Question{{ID: "a", Label: "", Type: QuestionTypeText}}), ErrInvalidQuestions)
	assert.ErrorIs(t, ValidateQuestions([]Question{{ID: "a", Label: "x", Type: "select"}}), ErrInvalidQuestions)
	assert.ErrorIs(t, ValidateQuestions([]Question{
		{ID: "a", Label: "x", Type: QuestionTypeText},
		{ID: "a", Label: "y", Type: QuestionTypeText},
	}), ErrInvalidQuestions)
}

func TestValidateAnswers(t *testing.T) {
	questions := []Question{
		{ID: "motivation", Label: "Why us?", Type: QuestionTypeTextarea, Required: true},
		{ID: "availability", Label: "Earliest start", Type: QuestionTypeText},
	}

	assert.NoError(t, ValidateAnswers(questions, map[string]string{
		"motivation": "because",
	}))

	assert.NoError(t, ValidateAnswers(questions, map[string]string{
		"motivation":   "because",
		"availability": "tomorrow",
	}))

	err := ValidateAnswers(questions, map[string]string{})
	assert.ErrorIs(t, err, ErrInvalidAnswers)

	// Whitespace does not satisfy a required question.
	err = ValidateAnswers(questions, map[string]string{"motivation": "   "})
	assert.ErrorIs(t, err, ErrInvalidAnswers)

	err = ValidateAnswers(questions, map[string]string{"motivation": "ok", "extra": "nope"})
	assert.ErrorIs(t, err, ErrInvalidAnswers)
}
