package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purplefish/interviewchat/internal/interview"
	"github.com/purplefish/interviewchat/internal/models"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Great, thanks!  ", "Great, thanks!"},
		{"Thanks again for your time (end_interview(reason: \"completed\"))", "Thanks again for your time"},
		{"Goodbye. [End of interview]", "Goodbye."},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanText(tt.in), tt.in)
	}
}

func TestEndReasonFromArgs(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"reason":"salary_mismatch"}`, interview.ReasonSalaryMismatch},
		{`{}`, interview.ReasonCompleted},
		{"", interview.ReasonCompleted},
		{`{"reason":"  "}`, interview.ReasonCompleted},
	}
	for _, tt := range tests {
		got, err := EndReasonFromArgs(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, err := EndReasonFromArgs(`{reason`)
	assert.ErrorIs(t, err, ErrMalformedReply)
}

func TestVertexHistoryStartsWithUser(t *testing.T) {
	got := vertexHistory([]Message{
		{Role: models.RoleAssistant, Content: "Are you ready?"},
		{Role: models.RoleUser, Content: "Yes"},
	})
	if assert.Len(t, got, 3) {
		assert.Equal(t, "user", got[0].Role)
		assert.Equal(t, "model", got[1].Role)
		assert.Equal(t, "user", got[2].Role)
	}
}

func TestSystemPromptListsReasons(t *testing.T) {
	for _, r := range interview.EndReasons {
		assert.Contains(t, SystemPrompt, r)
	}
	assert.Equal(t, "custom", systemOf(Request{System: "custom"}))
}
