package interview

import (
	"strings"

	"github.com/purplefish/interviewchat/internal/models"
)

// End reasons understood by the end_interview directive.
const (
	ReasonUnclearCommunication = "unclear_communication"
	ReasonNotInterested        = "not_interested"
	ReasonDegreeRequirement    = "degree_requirement"
	ReasonExperienceMismatch   = "experience_mismatch"
	ReasonLinuxRequired        = "linux_required"
	ReasonAvailabilityIssue    = "availability_issue"
	ReasonSalaryMismatch       = "salary_mismatch"
	ReasonLocationMismatch     = "location_mismatch"
	ReasonCompleted            = "completed"
	ReasonError                = "error"

	// ReasonTerminatedByOperator is set by the terminate endpoint, never by the model.
	ReasonTerminatedByOperator = "terminated_by_operator"
)

// EndReasons is the vocabulary offered to the model.
var EndReasons = []string{
	ReasonUnclearCommunication,
	ReasonNotInterested,
	ReasonDegreeRequirement,
	ReasonExperienceMismatch,
	ReasonLinuxRequired,
	ReasonAvailabilityIssue,
	ReasonSalaryMismatch,
	ReasonLocationMismatch,
	ReasonCompleted,
	ReasonError,
}

// Closing sentences the interview script tells the model to use verbatim.
const (
	UnclearCommunicationClosing = "Clear communication is really important in this role, so we'll need to pause the interview for now. You're welcome to try again anytime!"
	RelocationClosing           = "Since this role requires regular in-office work in NYC, we need candidates located there or willing to relocate. To respect your time, let's wrap up here. Thank you!"
	WarmRelocationClosing       = "Thank you so much for being open with me. I completely understand that relocating isn't always possible. While we do need someone in NYC for this role, I truly appreciate your interest and the time you spent chatting today. Please feel free to stay in touch or check back for future opportunities with us. Wishing you all the best in your career journey!"
	PoliteClosing               = "Thanks again for your time"
	NotAFitClosing              = "It seems like this role may not be the best fit at the moment."
)

var notInterestedPhrases = []string{
	"Thank you for your time",
	"best of luck",
	"best in your job search",
	"wrap up the interview here",
}

type phraseRule struct {
	reason  string
	phrases []string
}

// phraseRules are evaluated in order and the first hit wins. The completed
// rule repeats the not_interested phrases, so in practice it only fires on its
// four additional sentences.
var phraseRules = []phraseRule{
	{reason: ReasonUnclearCommunication, phrases: []string{UnclearCommunicationClosing}},
	{reason: ReasonNotInterested, phrases: notInterestedPhrases},
	{reason: ReasonCompleted, phrases: append(append([]string{}, notInterestedPhrases...),
		RelocationClosing,
		WarmRelocationClosing,
		PoliteClosing,
		NotAFitClosing,
	)},
}

// Decision is the outcome of classifying one assistant turn.
type Decision struct {
	Status models.Status
	Reason string
	Source models.DecisionSource
	Phrase string // matched literal, phrase decisions only
}

func (d Decision) Ended() bool { return d.Status.Terminal() }

// Classify decides whether the interview ended on this turn. An explicit
// end_interview reason always wins; the literal phrases are a fallback for
// replies where the model closed the interview without calling the tool.
func Classify(reply, directiveReason string) Decision {
	if r := strings.TrimSpace(directiveReason); r != "" {
		return Decision{Status: models.StatusCompleted, Reason: r, Source: models.DecisionDirective}
	}
	if reply != "" {
		for _, rule := range phraseRules {
			for _, p := range rule.phrases {
				if strings.Contains(reply, p) {
					return Decision{
						Status: models.StatusCompleted,
						Reason: rule.reason,
						Source: models.DecisionPhrase,
						Phrase: p,
					}
				}
			}
		}
	}
	return Decision{Status: models.StatusInProgress, Source: models.DecisionNone}
}
