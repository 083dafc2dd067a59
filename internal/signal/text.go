package signal

import (
	"context"
	"fmt"
	"strings"

	"veracity-service/internal/models"

	"go.uber.org/zap"
)

// Classifier scores text against candidate labels
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) (*models.Classification, error)
}

// TextSignal rates text by the confidence a classifier assigns to the "real" label
type TextSignal struct {
	classifier Classifier
	logger     *zap.Logger
}

// NewTextSignal creates a text analyzer over the given classifier
func NewTextSignal(classifier Classifier, logger *zap.Logger) *TextSignal {
	return &TextSignal{classifier: classifier, logger: logger}
}

// Evaluate classifies text. Classifier failures produce an unavailable result.
func (t *TextSignal) Evaluate(ctx context.Context, text string) Result {
	return Guard("text", func() Result {
		if strings.TrimSpace(text) == "" {
			return Unavailable("Text analysis unavailable: no text to analyze.")
		}

		result, err := t.classifier.Classify(ctx, text, models.VeracityLabels)
		if err != nil {
			t.logger.Warn("Text classification unavailable", zap.Error(err))
			return Unavailable(fmt.Sprintf("Text analysis unavailable: %v", err))
		}

		score, _ := result.ScoreFor("real")
		return NewResult(score, textNarrative(result, score))
	})
}

func textNarrative(result *models.Classification, score float64) string {
	var b strings.Builder
	b.WriteString("NLP analysis report:\n")
	fmt.Fprintf(&b, "Text analyzed using zero-shot classification with candidate labels: %s.\n",
		strings.Join(models.VeracityLabels, ", "))
	if result.Provider != "" {
		fmt.Fprintf(&b, "Classifier: %s %s.\n", result.Provider, result.Model)
	}
	for i, label := range result.Labels {
		if i >= len(result.Scores) {
			break
		}
		fmt.Fprintf(&b, "Label '%s': confidence %.2f\n", label, result.Scores[i])
	}
	fmt.Fprintf(&b, "Determined veracity score (for 'real'): %.2f", Clamp(score))
	return b.String()
}
