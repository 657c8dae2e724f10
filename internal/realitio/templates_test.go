package realitio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oraclescope/internal/model"
)

func TestParseQuestionTextBool(t *testing.T) {
	content, err := ParseQuestionText(0, "Did it rain today?␟weather␟en_US")
	require.NoError(t, err)

	assert.Equal(t, "Did it rain today?", content.Title)
	assert.Equal(t, "bool", content.Type)
	assert.Equal(t, "weather", content.Category)
	assert.Equal(t, "en_US", content.Lang)

	questionType, err := content.QuestionType()
	require.NoError(t, err)
	assert.Equal(t, model.TypeBinary, questionType)
}

func TestParseQuestionTextUint(t *testing.T) {
	content, err := ParseQuestionText(1, "How many goals?␟sports␟en_US")
	require.NoError(t, err)

	assert.Equal(t, "uint", content.Type)
	assert.Equal(t, 18, content.Decimals)

	questionType, err := content.QuestionType()
	require.NoError(t, err)
	assert.Equal(t, model.TypeNumber, questionType)
}

func TestParseQuestionTextSingleSelect(t *testing.T) {
	content, err := ParseQuestionText(2, "Best fruit?␟\"Apple\",\"Banana\"␟food␟en_US")
	require.NoError(t, err)

	assert.Equal(t, "Best fruit?", content.Title)
	assert.Equal(t, []string{"Apple", "Banana"}, content.Outcomes)
	assert.Equal(t, "food", content.Category)

	questionType, err := content.QuestionType()
	require.NoError(t, err)
	assert.Equal(t, model.TypeSingleChoice, questionType)
}

func TestParseQuestionTextMultipleSelect(t *testing.T) {
	content, err := ParseQuestionText(3, "Which apply?␟\"A\",\"B\",\"C\"␟misc␟en_US")
	require.NoError(t, err)

	questionType, err := content.QuestionType()
	require.NoError(t, err)
	assert.Equal(t, model.TypeMultipleChoice, questionType)
	assert.Len(t, content.Outcomes, 3)
}

func TestParseQuestionTextDatetime(t *testing.T) {
	content, err := ParseQuestionText(4, "When does the event start?␟calendar␟en_US")
	require.NoError(t, err)

	questionType, err := content.QuestionType()
	require.NoError(t, err)
	assert.Equal(t, model.TypeDateTime, questionType)
}

func TestParseQuestionTextMissingFields(t *testing.T) {
	content, err := ParseQuestionText(0, "Only a title")
	require.NoError(t, err)

	assert.Equal(t, "Only a title", content.Title)
	assert.Empty(t, content.Category)
	assert.Empty(t, content.Lang)
}

func TestParseQuestionTextExtraFieldsIgnored(t *testing.T) {
	content, err := ParseQuestionText(0, "Title␟cat␟en_US␟surplus␟more")
	require.NoError(t, err)

	assert.Equal(t, "Title", content.Title)
	assert.Equal(t, "cat", content.Category)
	assert.Equal(t, "en_US", content.Lang)
}

func TestParseQuestionTextUnknownTemplate(t *testing.T) {
	_, err := ParseQuestionText(99, "anything")
	require.Error(t, err)

	var unknownErr *UnknownTemplateError
	require.True(t, errors.As(err, &unknownErr))
	assert.Equal(t, int64(99), unknownErr.TemplateID)
}

func TestParseQuestionTextMalformedField(t *testing.T) {
	// An unescaped quote breaks the populated JSON.
	_, err := ParseQuestionText(0, "A \"broken title␟cat␟en_US")
	require.Error(t, err)
}

func TestQuestionTypeUnrecognized(t *testing.T) {
	content := QuestionContent{Type: "hash"}
	_, err := content.QuestionType()
	require.Error(t, err)

	var typeErr *UnrecognizedQuestionTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "hash", typeErr.Type)
}

func TestSubstituteStopsAtPlaceholders(t *testing.T) {
	out := substitute(`a %s b %s c`, []string{"1", "2", "3"})
	assert.Equal(t, "a 1 b 2 c", out)

	out = substitute(`a %s b %s c`, []string{"1"})
	assert.Equal(t, "a 1 b  c", out)
}
