package generation

import (
	"errors"
	"strings"
	"testing"
)

const validBlockJSON = `{
  "title": "Thermodynamics: The First Law",
  "summary": "Energy cannot be created or destroyed, only transformed.",
  "key_formulas": ["\\Delta U = Q - W"],
  "analogy": "A bank account: deposits, withdrawals, constant balance rules.",
  "daily_five": ["p1", "p2", "p3", "p4", "p5"],
  "quiz": [
    {
      "question": "What does the first law state?",
      "options": ["A: Energy is created", "B: Energy is conserved", "C: Entropy decreases", "D: Heat is work"],
      "correct": "B",
      "explanation": "The first law is conservation of energy."
    }
  ]
}`

func TestParseLearningBlock_Valid(t *testing.T) {
	block, err := ParseLearningBlock(validBlockJSON)
	if err != nil {
		t.Fatalf("ParseLearningBlock failed: %v", err)
	}

	if block.Title != "Thermodynamics: The First Law" {
		t.Errorf("Unexpected title: %q", block.Title)
	}
	if len(block.DailyFive) != 5 {
		t.Errorf("Expected 5 daily points, got %d", len(block.DailyFive))
	}
	if len(block.Quiz) != 1 || block.Quiz[0].Correct != "B" {
		t.Errorf("Quiz not parsed correctly: %+v", block.Quiz)
	}
}

// TestParseLearningBlock_FencedJSON verifies markdown fences around the JSON
// are stripped before parsing, with and without a language tag.
func TestParseLearningBlock_FencedJSON(t *testing.T) {
	for _, wrapped := range []string{
		"```json\n" + validBlockJSON + "\n```",
		"```\n" + validBlockJSON + "\n```",
		"  " + validBlockJSON + "  ",
	} {
		block, err := ParseLearningBlock(wrapped)
		if err != nil {
			t.Errorf("ParseLearningBlock failed on fenced input: %v", err)
			continue
		}
		if block.Title == "" {
			t.Error("Fenced input produced empty block")
		}
	}
}

func TestParseLearningBlock_InvalidJSON(t *testing.T) {
	_, err := ParseLearningBlock("this is not json")

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Expected *GenerationError, got %v", err)
	}
	if genErr.Stage != StageParse {
		t.Errorf("Expected parse stage, got %q", genErr.Stage)
	}
}

func TestParseLearningBlock_SchemaViolations(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{
			name: "wrong daily five count",
			json: `{"title":"t","summary":"s","daily_five":["1","2","3"],"quiz":[{"question":"q","options":["A","B","C","D"],"correct":"A"}]}`,
		},
		{
			name: "missing title",
			json: `{"summary":"s","daily_five":["1","2","3","4","5"],"quiz":[{"question":"q","options":["A","B","C","D"],"correct":"A"}]}`,
		},
		{
			name: "empty quiz",
			json: `{"title":"t","summary":"s","daily_five":["1","2","3","4","5"],"quiz":[]}`,
		},
		{
			name: "wrong option count",
			json: `{"title":"t","summary":"s","daily_five":["1","2","3","4","5"],"quiz":[{"question":"q","options":["A","B"],"correct":"A"}]}`,
		},
		{
			name: "invalid correct key",
			json: `{"title":"t","summary":"s","daily_five":["1","2","3","4","5"],"quiz":[{"question":"q","options":["A","B","C","D"],"correct":"E"}]}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseLearningBlock(tc.json)

			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("Expected *GenerationError, got %v", err)
			}
			if genErr.Stage != StageSchema {
				t.Errorf("Expected schema stage, got %q (%s)", genErr.Stage, genErr.Detail)
			}
		})
	}
}

func TestUserPrompt_IncludesContextWhenGrounded(t *testing.T) {
	grounded := userPrompt(Request{
		Topic:     "Entropy",
		Level:     "Intermediate",
		Objective: "Final exam",
		Context:   "Entropy measures disorder.",
	})
	if !strings.Contains(grounded, "Entropy measures disorder.") {
		t.Error("Grounded prompt missing retrieval context")
	}
	if !strings.Contains(grounded, "Topic: Entropy") {
		t.Error("Prompt missing topic")
	}

	ungrounded := userPrompt(Request{Topic: "Entropy", Level: "Beginner", Objective: "Curiosity"})
	if strings.Contains(ungrounded, "Context extracted") {
		t.Error("Ungrounded prompt should not mention document context")
	}
}
