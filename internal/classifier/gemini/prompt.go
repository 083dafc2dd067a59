package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"veracity-service/internal/models"
)

// SystemInstruction frames the model as a zero-shot classifier
const SystemInstruction = `You are a zero-shot text classifier for news content.
You receive a news text and a list of candidate labels.
Assign every candidate label a confidence between 0 and 1 that the text belongs to it.
Confidences across all labels must sum to 1.
Reply with JSON only, shaped as {"labels": ["<label>", ...], "scores": [<confidence>, ...]},
listing labels in descending order of confidence.`

// BuildPrompt renders the user prompt for one classification
func BuildPrompt(text string, labels []string) string {
	return fmt.Sprintf("Candidate labels: %s\n\nText:\n%s", strings.Join(labels, ", "), text)
}

// ParseClassification extracts a classification from a model reply.
// Markdown code fences around the JSON are tolerated.
func ParseClassification(content string, labels []string) (*models.Classification, error) {
	cleanJSON := strings.TrimSpace(content)
	cleanJSON = strings.TrimPrefix(cleanJSON, "```json")
	cleanJSON = strings.TrimPrefix(cleanJSON, "```")
	cleanJSON = strings.TrimSuffix(cleanJSON, "```")
	cleanJSON = strings.TrimSpace(cleanJSON)

	var result models.Classification
	if err := json.Unmarshal([]byte(cleanJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse classification: %w", err)
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}

	known := false
	for _, l := range labels {
		if _, ok := result.ScoreFor(l); ok {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("classification contains none of the candidate labels %v", labels)
	}

	return &result, nil
}
