package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// TodoSummary is the minimal todo info sent to Claude for dependency inference.
type TodoSummary struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	EstimatedDays int    `json:"estimated_days"`
	DueDate       string `json:"due_date,omitempty"`
}

// DepEdge is a single inferred dependency.
type DepEdge struct {
	ChildID  int    `json:"child_id"`  // todo that waits
	ParentID int    `json:"parent_id"` // todo that must finish first
	Reason   string `json:"reason"`
}

// InferDepsResult holds the full response from Claude.
type InferDepsResult struct {
	Edges   []DepEdge `json:"edges"`
	Summary string    `json:"summary"`
}

// Client wraps the Anthropic SDK for Claude API calls.
type Client struct {
	inner anthropic.Client
	model anthropic.Model
}

// NewClient creates a Claude client. apiKey defaults to ANTHROPIC_API_KEY env.
// model defaults to Claude Sonnet.
func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	inner := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	m := anthropic.Model("claude-sonnet-4-5") // == anthropic.ModelClaudeSonnet4_5 (SDK >= v1.13)
	if model != "" {
		m = anthropic.Model(model)
	}

	return &Client{inner: inner, model: m}, nil
}

const inferDepsPrompt = `You are an experienced project planner. Given a list of todos, infer which todos must be finished before others can start.

Rules:
- Only add a dependency when there is a strong causal reason (todo B cannot start until todo A is complete).
- Prefer fewer edges; do not add transitive or speculative dependencies.
- Do not create cycles.
- Only use todo IDs from the provided list.
- A todo cannot depend on itself.

Return your answer as JSON with this exact structure:
{
  "edges": [
    {"child_id": <todo that waits>, "parent_id": <todo that must finish first>, "reason": "<short explanation>"}
  ],
  "summary": "<one paragraph summary of the dependency structure>"
}

Return ONLY the JSON object. No markdown fences, no commentary outside the JSON.

Here are the todos:
`

// buildPrompt constructs the full prompt for dependency inference.
func buildPrompt(todos []TodoSummary) (string, error) {
	data, err := json.MarshalIndent(todos, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal todos: %w", err)
	}
	return inferDepsPrompt + string(data), nil
}

// InferDeps calls the Claude API to infer todo dependencies.
func (c *Client) InferDeps(ctx context.Context, todos []TodoSummary) (*InferDepsResult, error) {
	prompt, err := buildPrompt(todos)
	if err != nil {
		return nil, err
	}

	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(4096),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude API call: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return ParseResult(text)
}

// ParseResult decodes a Claude reply (or a saved copy of one).
func ParseResult(text string) (*InferDepsResult, error) {
	text = stripJSONFences(text)

	var result InferDepsResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("parse claude response: %w\nraw: %s", err, text)
	}
	return &result, nil
}

// GroupByChild collects parent ids per child, keeping first-seen order.
func GroupByChild(edges []DepEdge) (children []int, parents map[int][]int) {
	parents = make(map[int][]int)
	for _, e := range edges {
		if _, ok := parents[e.ChildID]; !ok {
			children = append(children, e.ChildID)
		}
		parents[e.ChildID] = append(parents[e.ChildID], e.ParentID)
	}
	return children, parents
}

// stripJSONFences removes markdown code fences that Claude sometimes adds.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
