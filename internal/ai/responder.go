// Package ai holds the LLM reply generator and the escalation classifier
// used by the conversation engine.
package ai

import (
	"context"
	"fmt"
	"strings"

	"sasquatch_backend/platform/config"

	"google.golang.org/genai"
)

// HistoryMessage is one prior message in a conversation, oldest first.
type HistoryMessage struct {
	Role    string // user | assistant | system
	Content string
}

const systemInstruction = `You are the SMS assistant for a local service business.
Answer the customer's latest message in one or two short sentences suitable for SMS.
Be friendly and concrete. If the customer asks for pricing beyond standard rates,
wants to speak to a person, is upset, or you cannot help, respond with a short
handoff sentence and append the token ` + EscalationMarker + ` at the end.`

// Responder generates an SMS reply from the full conversation history.
type Responder struct {
	client *genai.Client
	model  string
}

// NewResponder builds a Gemini-backed responder, or nil when no API key is
// configured (the conversation engine then notifies an operator instead).
func NewResponder(ctx context.Context, cfg config.AIConfig) (*Responder, error) {
	if !cfg.IsAIEnabled() {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Responder{client: client, model: cfg.GetGeminiModel()}, nil
}

// Generate produces a reply for the conversation. The history must already
// include the latest user message as its last entry.
func (r *Responder) Generate(ctx context.Context, history []HistoryMessage) (string, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		if m.Role == "system" {
			// Diagnostic entries are internal; the model never sees them.
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	resp, err := r.client.Models.GenerateContent(ctx, r.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("model returned an empty reply")
	}
	return text, nil
}
