package interview

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/purplefish/interviewchat/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		directive string
		status    models.Status
		reason    string
		source    models.DecisionSource
	}{
		{
			name:   "no reply no directive",
			status: models.StatusInProgress,
			source: models.DecisionNone,
		},
		{
			name:   "ordinary question",
			reply:  "Great, Alex! Do you have a Bachelor's degree in Computer Science?",
			status: models.StatusInProgress,
			source: models.DecisionNone,
		},
		{
			name:      "directive wins over phrase",
			reply:     "Our max is $130,000. I wish you the best of luck!",
			directive: ReasonSalaryMismatch,
			status:    models.StatusCompleted,
			reason:    ReasonSalaryMismatch,
			source:    models.DecisionDirective,
		},
		{
			name:      "directive without text",
			directive: ReasonDegreeRequirement,
			status:    models.StatusCompleted,
			reason:    ReasonDegreeRequirement,
			source:    models.DecisionDirective,
		},
		{
			name:      "blank directive is ignored",
			reply:     "Could you tell me more?",
			directive: "   ",
			status:    models.StatusInProgress,
			source:    models.DecisionNone,
		},
		{
			name:   "unclear communication sentence",
			reply:  UnclearCommunicationClosing,
			status: models.StatusCompleted,
			reason: ReasonUnclearCommunication,
			source: models.DecisionPhrase,
		},
		{
			name:   "unclear communication beats not interested",
			reply:  "Thank you for your time. " + UnclearCommunicationClosing,
			status: models.StatusCompleted,
			reason: ReasonUnclearCommunication,
			source: models.DecisionPhrase,
		},
		{
			name:   "declined at greeting",
			reply:  "Thank you for your time! If you ever change your mind, feel free to reach out. Have a great day!",
			status: models.StatusCompleted,
			reason: ReasonNotInterested,
			source: models.DecisionPhrase,
		},
		{
			name:   "off topic wrap up",
			reply:  "To respect your time and ours, let's wrap up the interview here. Thank you so much for your time and best of luck!",
			status: models.StatusCompleted,
			reason: ReasonNotInterested,
			source: models.DecisionPhrase,
		},
		{
			name:   "relocation closing",
			reply:  RelocationClosing,
			status: models.StatusCompleted,
			reason: ReasonCompleted,
			source: models.DecisionPhrase,
		},
		{
			name:   "warm relocation closing",
			reply:  WarmRelocationClosing,
			status: models.StatusCompleted,
			reason: ReasonCompleted,
			source: models.DecisionPhrase,
		},
		{
			name:   "polite closing",
			reply:  "Thanks again for your time, we'll be in touch soon.",
			status: models.StatusCompleted,
			reason: ReasonCompleted,
			source: models.DecisionPhrase,
		},
		{
			name:   "not a fit",
			reply:  NotAFitClosing + " Have a great day!",
			status: models.StatusCompleted,
			reason: ReasonCompleted,
			source: models.DecisionPhrase,
		},
		{
			name:   "matching is case sensitive",
			reply:  "BEST OF LUCK with the move!",
			status: models.StatusInProgress,
			source: models.DecisionNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Classify(tt.reply, tt.directive)
			assert.Equal(t, tt.status, d.Status)
			assert.Equal(t, tt.reason, d.Reason)
			assert.Equal(t, tt.source, d.Source)
			assert.Equal(t, tt.status.Terminal(), d.Ended())
		})
	}
}

func TestClassifyReportsMatchedPhrase(t *testing.T) {
	d := Classify("Wishing you the best in your job search.", "")
	assert.Equal(t, "best in your job search", d.Phrase)
}
