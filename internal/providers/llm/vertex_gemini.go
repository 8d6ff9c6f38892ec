package llm

import (
	"context"
	"fmt"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"github.com/purplefish/interviewchat/internal/interview"
	"github.com/purplefish/interviewchat/internal/models"
)

type VertexGemini struct {
	client *vertexgenai.Client
	model  *vertexgenai.GenerativeModel
}

type VertexOptions struct {
	Project         string
	Location        string
	Model           string
	Temperature     float32
	MaxTokens       int32
	CredentialsFile string
}

func NewVertexGemini(ctx context.Context, o VertexOptions) (*VertexGemini, error) {
	var opts []option.ClientOption
	if o.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(o.CredentialsFile))
	}

	c, err := vertexgenai.NewClient(ctx, o.Project, o.Location, opts...)
	if err != nil {
		return nil, err
	}

	if o.Model == "" {
		o.Model = "gemini-1.5-flash"
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 500
	}

	m := c.GenerativeModel(o.Model)
	m.SetTemperature(o.Temperature)
	m.SetMaxOutputTokens(o.MaxTokens)
	m.Tools = []*vertexgenai.Tool{{FunctionDeclarations: vertexDeclarations()}}

	return &VertexGemini{client: c, model: m}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func vertexDeclarations() []*vertexgenai.FunctionDeclaration {
	out := make([]*vertexgenai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		out = append(out, &vertexgenai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &vertexgenai.Schema{
				Type: vertexgenai.TypeObject,
				Properties: map[string]*vertexgenai.Schema{
					t.Param.Name: {
						Type:        vertexgenai.TypeString,
						Description: t.Param.Description,
						Enum:        t.Param.Enum,
					},
				},
				Required: []string{t.Param.Name},
			},
		})
	}
	return out
}

// vertexHistory converts messages to Gemini contents. Gemini wants the
// conversation to open with a user turn, so one is synthesised when the
// stored history starts with the assistant's opening question.
func vertexHistory(msgs []Message) []*vertexgenai.Content {
	out := make([]*vertexgenai.Content, 0, len(msgs)+1)
	if len(msgs) > 0 && msgs[0].Role != models.RoleUser {
		out = append(out, &vertexgenai.Content{Role: "user", Parts: []vertexgenai.Part{vertexgenai.Text("Start the interview.")}})
	}
	for _, m := range msgs {
		role := "model"
		if m.Role == models.RoleUser {
			role = "user"
		}
		out = append(out, &vertexgenai.Content{Role: role, Parts: []vertexgenai.Part{vertexgenai.Text(m.Content)}})
	}
	return out
}

func (v *VertexGemini) Generate(ctx context.Context, req Request) (*Reply, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("vertex: empty history")
	}

	// the model is shared, so the system instruction lives on a per-call copy
	m := *v.model
	m.SystemInstruction = &vertexgenai.Content{Parts: []vertexgenai.Part{vertexgenai.Text(systemOf(req))}}

	contents := vertexHistory(req.Messages)
	last := contents[len(contents)-1]

	cs := m.StartChat()
	cs.History = contents[:len(contents)-1]

	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, err
	}

	return vertexReply(resp)
}

// vertexReply folds the first candidate into a Reply. Text parts on either
// side of the end_interview call are kept.
func vertexReply(resp *vertexgenai.GenerateContentResponse) (*Reply, error) {
	var text, reason string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch p := part.(type) {
			case vertexgenai.FunctionCall:
				if p.Name != ToolEndInterview || reason != "" {
					continue
				}
				r, err := vertexEndReason(p.Args)
				if err != nil {
					return nil, err
				}
				reason = r
			case vertexgenai.Text:
				text += string(p)
			}
		}
		break
	}
	return &Reply{Text: CleanText(text), EndReason: reason}, nil
}

func vertexEndReason(args map[string]any) (string, error) {
	v, ok := args["reason"]
	if !ok || v == nil {
		return interview.ReasonCompleted, nil
	}
	r, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: end_interview reason is %T", ErrMalformedReply, v)
	}
	return endReasonOrCompleted(r), nil
}
