package interview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScriptIsValid(t *testing.T) {
	require.NoError(t, Default.Validate())

	path := Default.Path()
	require.Len(t, path, Default.Len())
	assert.Equal(t, "initial", path[0].ID)
	assert.Equal(t, "end", path[len(path)-1].ID)
	assert.True(t, path[len(path)-1].Terminal())
	assert.Equal(t, ActionEndInterview, path[len(path)-1].OnComplete)
	assert.Equal(t, "Hi! Are you interested in discussing a Full Stack role?", Default.Initial().Text)
}

func TestScriptValidate(t *testing.T) {
	tests := []struct {
		name    string
		script  *Script
		wantErr string
	}{
		{
			name:    "missing initial",
			script:  NewScript("start", Question{ID: "a", Text: "A?", Type: TypeText}),
			wantErr: `initial question "start" is not defined`,
		},
		{
			name: "dangling link",
			script: NewScript("a",
				Question{ID: "a", Text: "A?", Type: TypeText, Next: "b"},
			),
			wantErr: `next question "b" is not defined`,
		},
		{
			name: "two terminals",
			script: NewScript("a",
				Question{ID: "a", Text: "A?", Type: TypeText},
				Question{ID: "b", Text: "B?", Type: TypeText},
			),
			wantErr: "expected exactly one terminal question, got 2",
		},
		{
			name: "cycle",
			script: NewScript("a",
				Question{ID: "a", Text: "A?", Type: TypeText, Next: "b"},
				Question{ID: "b", Text: "B?", Type: TypeText, Next: "a"},
				Question{ID: "c", Text: "C?", Type: TypeText},
			),
			wantErr: "cycle detected",
		},
		{
			name: "unreachable question",
			script: NewScript("a",
				Question{ID: "a", Text: "A?", Type: TypeText, Next: "end"},
				Question{ID: "b", Text: "B?", Type: TypeText, Next: "end"},
				Question{ID: "end", Text: "Bye.", Type: TypeText, OnComplete: ActionEndInterview},
			),
			wantErr: `1 of 3 questions are not reachable from "a"`,
		},
		{
			name: "terminal without end action",
			script: NewScript("a",
				Question{ID: "a", Text: "A?", Type: TypeText, Next: "end"},
				Question{ID: "end", Text: "Bye.", Type: TypeText},
			),
			wantErr: `terminal question "end" must complete with "end_interview"`,
		},
		{
			name: "choice without choices",
			script: NewScript("a",
				Question{ID: "a", Text: "A?", Type: TypeChoice},
			),
			wantErr: "choice question without choices",
		},
		{
			name: "unknown type",
			script: NewScript("a",
				Question{ID: "a", Text: "A?", Type: "audio"},
			),
			wantErr: `unknown type "audio"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.script.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAnswer(t *testing.T) {
	ok, err := Default.ValidateAnswer("greeting", "yes")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Default.ValidateAnswer("greeting", " NO ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Default.ValidateAnswer("greeting", "maybe")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Default.ValidateAnswer("name", "   ")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Default.ValidateAnswer("hobbies", "chess")
	assert.ErrorIs(t, err, ErrUnknownQuestion)
}

func TestQuestionForTurn(t *testing.T) {
	assert.Equal(t, "initial", Default.QuestionForTurn(0).ID)
	assert.Equal(t, "initial", Default.QuestionForTurn(1).ID)
	assert.Equal(t, "greeting", Default.QuestionForTurn(2).ID)
	assert.Equal(t, "end", Default.QuestionForTurn(99).ID)
}
