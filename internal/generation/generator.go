package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
)

// systemPrompt frames the model as a university-level pedagogy expert and
// pins the output schema.
const systemPrompt = `You are an expert in university-level pedagogy for
engineering and science students. Your goal is to deconstruct complex
notions into structured micro-blocks of study material.

Respond ONLY with valid JSON, no text before or after, in this shape:
{
  "title": "...",
  "summary": "3-4 accessible sentences",
  "key_formulas": ["formula in LaTeX", "..."],
  "analogy": "a real-life comparison",
  "daily_five": ["point 1", "point 2", "point 3", "point 4", "point 5"],
  "quiz": [
    {
      "question": "...",
      "options": ["A: ...", "B: ...", "C: ...", "D: ..."],
      "correct": "B",
      "explanation": "..."
    }
  ]
}`

// Generator produces learning blocks. Implementations call an external
// model; tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, req Request) (*LearningBlock, error)
}

// OpenAIGenerator implements Generator with OpenAI chat completions in
// JSON-object response mode.
type OpenAIGenerator struct {
	client *openai.Client
}

// NewOpenAIGenerator creates a generator sharing the given API client.
func NewOpenAIGenerator(client *openai.Client) *OpenAIGenerator {
	return &OpenAIGenerator{client: client}
}

// Generate calls the model and returns a validated learning block.
// All failures surface as *GenerationError with the stage that failed.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (*LearningBlock, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(req)),
		},
		Model: openai.ChatModelGPT4o,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	})
	if err != nil {
		return nil, &GenerationError{Stage: StageRequest, Detail: err.Error()}
	}
	if len(resp.Choices) == 0 {
		return nil, &GenerationError{Stage: StageRequest, Detail: "no completion choices returned"}
	}

	return ParseLearningBlock(resp.Choices[0].Message.Content)
}

// userPrompt assembles the per-request prompt, including the retrieval
// context when the request is grounded.
func userPrompt(req Request) string {
	var sb strings.Builder
	if req.Context != "" {
		sb.WriteString("Context extracted from the student's document:\n")
		sb.WriteString(req.Context)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "Topic: %s\nLevel: %s\nObjective: %s\n\n", req.Topic, req.Level, req.Objective)
	if req.Context != "" {
		sb.WriteString("Generate a complete learning block based on THIS document, as JSON.")
	} else {
		sb.WriteString("Generate a complete learning block as JSON.")
	}
	return sb.String()
}

// ParseLearningBlock turns raw model output into a validated block.
// Markdown code fences around the JSON are tolerated and stripped.
func ParseLearningBlock(raw string) (*LearningBlock, error) {
	cleaned := stripFences(raw)

	var block LearningBlock
	if err := json.Unmarshal([]byte(cleaned), &block); err != nil {
		return nil, &GenerationError{Stage: StageParse, Detail: err.Error()}
	}
	if err := block.Validate(); err != nil {
		return nil, err
	}
	return &block, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// json language tag. Models emit these despite JSON response mode.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
