// Package interview holds the static interview script and the deterministic
// rules that decide when an interview is over.
package interview

import (
	"errors"
	"fmt"
	"strings"
)

type QuestionType string

const (
	TypeText   QuestionType = "text"
	TypeChoice QuestionType = "choice"
)

// Action is a side effect run once a question has been answered.
type Action string

const (
	ActionEndInterview Action = "end_interview"
)

type Question struct {
	ID         string
	Text       string
	Type       QuestionType
	Choices    []string // case-insensitive literal answers, choice questions only
	Next       string   // empty on the terminal question
	OnComplete Action
}

func (q Question) Terminal() bool { return q.Next == "" }

// Script is an immutable, linked table of questions.
type Script struct {
	initial   string
	questions map[string]Question
	order     []string
}

func NewScript(initial string, questions ...Question) *Script {
	s := &Script{initial: initial, questions: make(map[string]Question, len(questions))}
	for _, q := range questions {
		if _, dup := s.questions[q.ID]; !dup {
			s.order = append(s.order, q.ID)
		}
		s.questions[q.ID] = q
	}
	return s
}

// ProbeMessage is an internal prompt that is stored but never shown in history.
const ProbeMessage = "Can you tell me your good name?"

// Default is the Full Stack Software Engineer screening script.
var Default = NewScript("initial",
	Question{ID: "initial", Text: "Hi! Are you interested in discussing a Full Stack role?", Type: TypeText, Next: "greeting"},
	Question{ID: "greeting", Text: "Would you be interested in learning more about this Full Stack role?", Type: TypeChoice, Choices: []string{"Yes", "No"}, Next: "name"},
	Question{ID: "name", Text: "Can I get your name, please?", Type: TypeText, Next: "background"},
	Question{ID: "background", Text: "Do you hold a Bachelor's degree or higher in Computer Science?", Type: TypeChoice, Choices: []string{"Yes", "No"}, Next: "experience"},
	Question{ID: "experience", Text: "Do you have at least 2 years of work experience in full-stack development?", Type: TypeText, Next: "tech_stack"},
	Question{ID: "tech_stack", Text: "Which programming languages are you most comfortable with?", Type: TypeText, Next: "recent_project"},
	Question{ID: "recent_project", Text: "Tell me about your most recent project. What was your role and what technologies did you use?", Type: TypeText, Next: "salary"},
	Question{ID: "salary", Text: "Our salary range is $100,000-$130,000. Does this align with your expectations?", Type: TypeChoice, Choices: []string{"Yes", "No"}, Next: "availability"},
	Question{ID: "availability", Text: "If selected, when would you be able to start?", Type: TypeText, Next: "end"},
	Question{ID: "end", Text: "Thank you for your time. We'll review your application and get back to you soon.", Type: TypeText, OnComplete: ActionEndInterview},
)

func (s *Script) Initial() Question { return s.questions[s.initial] }

func (s *Script) Len() int { return len(s.questions) }

// Validate checks the structural invariants: known links, choice questions with
// choices, exactly one terminal question that ends the interview, and an
// acyclic path from the initial question that visits every question.
func (s *Script) Validate() error {
	if _, ok := s.questions[s.initial]; !ok {
		return fmt.Errorf("initial question %q is not defined", s.initial)
	}

	var terminals []string
	for _, id := range s.order {
		q := s.questions[id]
		if q.ID == "" || strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("question %q: id and text are required", id)
		}
		switch q.Type {
		case TypeText:
		case TypeChoice:
			if len(q.Choices) == 0 {
				return fmt.Errorf("question %q: choice question without choices", id)
			}
		default:
			return fmt.Errorf("question %q: unknown type %q", id, q.Type)
		}
		if q.Terminal() {
			terminals = append(terminals, id)
			continue
		}
		if _, ok := s.questions[q.Next]; !ok {
			return fmt.Errorf("question %q: next question %q is not defined", id, q.Next)
		}
	}
	if len(terminals) != 1 {
		return fmt.Errorf("expected exactly one terminal question, got %d %v", len(terminals), terminals)
	}

	path, err := s.walk()
	if err != nil {
		return err
	}
	if len(path) != s.Len() {
		return fmt.Errorf("%d of %d questions are not reachable from %q", s.Len()-len(path), s.Len(), s.initial)
	}
	if end := path[len(path)-1]; end.OnComplete != ActionEndInterview {
		return fmt.Errorf("terminal question %q must complete with %q", end.ID, ActionEndInterview)
	}
	return nil
}

// Path returns the questions from the initial one to the terminal one.
func (s *Script) Path() []Question {
	p, _ := s.walk()
	return p
}

func (s *Script) walk() ([]Question, error) {
	seen := make(map[string]bool, len(s.questions))
	var path []Question
	id := s.initial
	for {
		q, ok := s.questions[id]
		if !ok {
			return path, fmt.Errorf("question %q is not defined", id)
		}
		if seen[id] {
			return path, fmt.Errorf("cycle detected at question %q", id)
		}
		seen[id] = true
		path = append(path, q)
		if q.Terminal() {
			return path, nil
		}
		id = q.Next
	}
}

// QuestionForTurn estimates which question the n-th user answer (1-based)
// responds to by walking the script linearly.
func (s *Script) QuestionForTurn(n int) Question {
	path := s.Path()
	if len(path) == 0 {
		return Question{}
	}
	i := n - 1
	if i < 0 {
		i = 0
	}
	if i >= len(path) {
		i = len(path) - 1
	}
	return path[i]
}

var ErrUnknownQuestion = errors.New("unknown question")

// ValidateAnswer accepts any non-blank answer to a text question and one of the
// listed choices, ignoring case, for a choice question.
func (s *Script) ValidateAnswer(questionID, answer string) (bool, error) {
	q, ok := s.questions[questionID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	answer = strings.TrimSpace(answer)
	if q.Type == TypeChoice {
		for _, c := range q.Choices {
			if strings.EqualFold(c, answer) {
				return true, nil
			}
		}
		return false, nil
	}
	return answer != "", nil
}
