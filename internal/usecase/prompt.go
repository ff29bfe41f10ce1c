package usecase

import (
	"encoding/json"
	"fmt"

	"commerce-agent/internal/domain"
)

// systemPrompt seeds every conversation as its first turn.
const systemPrompt = "You are an AI assistant for an e-commerce platform. " +
	"Help users find products, answer questions, and assist with purchases. " +
	"Do not repeat the user's input. Provide clear, concise, and helpful responses."

// Canned replies for the recommendation branch. On the non-recommendation
// branch the oracle's display text is surfaced verbatim instead.
const (
	replyRecommendation = "Here is what I found that should fit you."
	replyNoCandidates   = "I couldn't find anything in that category right now."
	replyNoMatch        = "I couldn't settle on a match for you. Could you tell me more about what you're looking for?"
	replyProductGone    = "The product I had in mind is no longer available. Want me to look again?"
	replyUnusable       = "Sorry, I couldn't work out a response to that. Could you rephrase?"
)

// historyToMessages converts persisted turns to the wire shape, preserving
// order. The history is replayed verbatim; no turn is filtered or truncated.
func historyToMessages(turns []domain.Turn) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, domain.ChatMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	return messages
}

// buildChoicePrompt renders the single system instruction for the
// recommendation sub-flow: the shopper profile plus the serialized candidate
// list.
func buildChoicePrompt(preferenceSummary string, candidates []domain.Candidate) (string, error) {
	payload, err := json.Marshal(candidates)
	if err != nil {
		return "", fmt.Errorf("usecase: marshal candidates: %w", err)
	}
	return fmt.Sprintf(
		"You are a customer with characteristics: %s, and you have the following items to choose from: %s. Which product would you choose?",
		preferenceSummary,
		payload,
	), nil
}
