package usecase

import (
	"fmt"
	"strings"

	"parks-rag/internal/domain"
)

const answerSystemPrompt = `You are a helpful and knowledgeable National Parks expert assistant. Your role is to help visitors learn about U.S. National Parks, including their features, activities, wildlife, history, and visitor information.

Guidelines:
- Provide accurate, helpful information based on the context provided
- Include specific details when available (trail names, distances, seasonal info, etc.)
- If you don't have enough information to answer, say so and suggest where users can find more info
- Be friendly and encouraging about visiting national parks
- Always prioritize visitor safety when relevant
- When answering follow-up questions, reference previous parts of the conversation naturally
- If a user's question refers to "it" or "there", use conversation context to understand what they mean`

// AnswerPromptBuilder composes the grounded message sequence sent to the LLM:
// the system instruction, the prior history replayed in order, and a final
// user message carrying the labeled passages, the question and the park
// restriction.
type AnswerPromptBuilder interface {
	Build(question string, passages []domain.Passage, activePark string, history []domain.Turn) []domain.Message
}

type answerPromptBuilder struct{}

// NewAnswerPromptBuilder creates a builder instance (stateless).
func NewAnswerPromptBuilder() AnswerPromptBuilder {
	return answerPromptBuilder{}
}

func (answerPromptBuilder) Build(question string, passages []domain.Passage, activePark string, history []domain.Turn) []domain.Message {
	messages := make([]domain.Message, 0, len(history)+2)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: answerSystemPrompt})
	for _, turn := range history {
		if turn.Role != domain.RoleUser && turn.Role != domain.RoleAssistant {
			continue
		}
		messages = append(messages, domain.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: buildUserContent(question, passages, activePark)})
	return messages
}

func buildUserContent(question string, passages []domain.Passage, activePark string) string {
	parkName := "national parks"
	if len(passages) > 0 && passages[0].ParkName != "" {
		parkName = passages[0].ParkName
	}

	var sb strings.Builder

	// The explicit park statement keeps the model focused on the right park;
	// the closing restriction guards against cross-contamination when the
	// degraded retrieval path admits passages from other parks.
	if activePark != "" && len(passages) > 0 {
		sb.WriteString(fmt.Sprintf(
			"IMPORTANT CONTEXT: The user is currently asking about %s. "+
				"All context provided below is specifically about %s. "+
				"When the user uses words like 'there', 'it', or 'the park', "+
				"they are referring to %s.\n\n",
			parkName, parkName, parkName,
		))
	}

	sb.WriteString("Context from National Parks Service:\n\n")
	for i, p := range passages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("[Source %d - %s]\n%s", i+1, p.ParkName, p.Content))
	}

	sb.WriteString(fmt.Sprintf("\n\nUser Question: %s\n\n", question))

	if activePark != "" {
		sb.WriteString(fmt.Sprintf(
			"Answer ONLY about %s using ONLY the context above. "+
				"Do not mention, compare, or reference any other national parks.",
			parkName,
		))
	} else {
		sb.WriteString("Answer using only the context provided above.")
	}

	return sb.String()
}
