// Package generation is the typed boundary to the external learning-block
// generation call. Responses cross the boundary as a tagged result: either
// a schema-validated LearningBlock or a structured GenerationError, never
// untyped JSON.
package generation

import "fmt"

// Request carries the user-supplied study parameters plus the assembled
// retrieval context (empty for ungrounded generation).
type Request struct {
	Topic     string
	Level     string // Beginner, Intermediate, Advanced
	Objective string // Final exam, Curiosity, Practical application
	Context   string
}

// QuizItem is one multiple-choice question in a learning block.
type QuizItem struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     string   `json:"correct"`
	Explanation string   `json:"explanation"`
}

// LearningBlock is the structured pedagogical artifact: a digestible unit
// of study material produced for one topic.
type LearningBlock struct {
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	KeyFormulas []string   `json:"key_formulas"`
	Analogy     string     `json:"analogy"`
	DailyFive   []string   `json:"daily_five"`
	Quiz        []QuizItem `json:"quiz"`
}

// Generation failure stages.
const (
	StageRequest = "request" // The API call itself failed
	StageParse   = "parse"   // The response was not valid JSON
	StageSchema  = "schema"  // The JSON did not satisfy the block schema
)

// GenerationError is the failure arm of the generation result.
type GenerationError struct {
	Stage  string
	Detail string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed at %s: %s", e.Stage, e.Detail)
}

// Validate checks the block against the schema contract: a title, a
// summary, exactly five daily-recall points, and well-formed quiz items.
func (b *LearningBlock) Validate() error {
	if b.Title == "" {
		return &GenerationError{Stage: StageSchema, Detail: "missing title"}
	}
	if b.Summary == "" {
		return &GenerationError{Stage: StageSchema, Detail: "missing summary"}
	}
	if len(b.DailyFive) != 5 {
		return &GenerationError{
			Stage:  StageSchema,
			Detail: fmt.Sprintf("daily_five has %d entries, expected 5", len(b.DailyFive)),
		}
	}
	if len(b.Quiz) == 0 {
		return &GenerationError{Stage: StageSchema, Detail: "empty quiz"}
	}
	for i, q := range b.Quiz {
		if q.Question == "" {
			return &GenerationError{Stage: StageSchema, Detail: fmt.Sprintf("quiz item %d missing question", i)}
		}
		if len(q.Options) != 4 {
			return &GenerationError{
				Stage:  StageSchema,
				Detail: fmt.Sprintf("quiz item %d has %d options, expected 4", i, len(q.Options)),
			}
		}
		switch q.Correct {
		case "A", "B", "C", "D":
		default:
			return &GenerationError{
				Stage:  StageSchema,
				Detail: fmt.Sprintf("quiz item %d has invalid correct key %q", i, q.Correct),
			}
		}
	}
	return nil
}
