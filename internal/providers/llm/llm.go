// Package llm talks to hosted chat-completion models on behalf of the
// interview endpoint.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/purplefish/interviewchat/internal/interview"
	"github.com/purplefish/interviewchat/internal/models"
)

type Message struct {
	Role    models.Role
	Content string
}

type Request struct {
	System   string // defaults to SystemPrompt
	Messages []Message
}

// Reply is the model's turn. EndReason is set when the model called
// end_interview; Text may be empty in that case.
type Reply struct {
	Text      string
	EndReason string
}

type Provider interface {
	Generate(ctx context.Context, req Request) (*Reply, error)
	Close() error
}

const (
	ToolEndInterview         = "end_interview"
	ToolMarkQuestionComplete = "mark_question_complete"
)

type toolParam struct {
	Name        string
	Description string
	Enum        []string
}

type toolSpec struct {
	Name        string
	Description string
	Param       toolParam
}

// tools are offered to every provider as function declarations.
var tools = []toolSpec{
	{
		Name:        ToolEndInterview,
		Description: "Ends the interview. Call it silently, never mention it to the candidate.",
		Param:       toolParam{Name: "reason", Description: "Why the interview ended.", Enum: interview.EndReasons},
	},
	{
		Name:        ToolMarkQuestionComplete,
		Description: "Marks a script question as sufficiently answered.",
		Param:       toolParam{Name: "question_id", Description: "Identifier of the answered question."},
	},
}

// APIError is a non-2xx answer from a provider.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error: status %d: %s", e.Provider, e.Status, e.Body)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.Status == 429 || e.Status >= 500
}

var (
	// ErrNotConfigured is returned when the provider has no credentials.
	ErrNotConfigured  = errors.New("language model is not configured")
	ErrMalformedReply = errors.New("malformed model reply")
)

var markerRe = regexp.MustCompile(`\(end_interview\(.*?\)\)|\[End of interview\]`)

// CleanText strips tool-call echoes and end markers the model sometimes prints.
func CleanText(s string) string {
	return strings.TrimSpace(markerRe.ReplaceAllString(s, ""))
}

// EndReasonFromArgs decodes end_interview arguments. A missing reason means a
// normal completion.
func EndReasonFromArgs(raw string) (string, error) {
	var args struct {
		Reason string `json:"reason"`
	}
	if strings.TrimSpace(raw) == "" {
		return interview.ReasonCompleted, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return "", fmt.Errorf("%w: end_interview arguments: %v", ErrMalformedReply, err)
	}
	return endReasonOrCompleted(args.Reason), nil
}

func endReasonOrCompleted(reason string) string {
	if r := strings.TrimSpace(reason); r != "" {
		return r
	}
	return interview.ReasonCompleted
}

func systemOf(req Request) string {
	if req.System != "" {
		return req.System
	}
	return SystemPrompt
}
