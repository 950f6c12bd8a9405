package knowledge

import (
	"fmt"
	"sort"
)

// CanConfirm reports whether doc may pass the confirmation gate. Both
// pending and already-confirmed documents may be confirmed; the latter
// is a re-confirmation that only records new answers.
func CanConfirm(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	return ValidateStatus(doc.Status)
}

// Confirm moves doc to confirmed. Each answer is appended to raw_insights
// as "Q: <question>\nA: <answer>" in question order, and pending questions
// are cleared when any answers are supplied. Version is left to the store.
func Confirm(doc *Document, answers map[string]string) error {
	if err := CanConfirm(doc); err != nil {
		return err
	}
	if len(answers) > 0 {
		questions := make([]string, 0, len(answers))
		for q := range answers {
			questions = append(questions, q)
		}
		sort.Strings(questions)
		for _, q := range questions {
			doc.RawInsights = append(doc.RawInsights, FormatAnswer(q, answers[q]))
		}
		doc.PendingQuestions = []PendingQuestion{}
	}
	doc.Status = StatusConfirmed
	return nil
}

// FormatAnswer renders one answered question as a raw insight.
func FormatAnswer(question, answer string) string {
	return "Q: " + question + "\nA: " + answer
}
