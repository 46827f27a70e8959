package domain

// Roles accepted in conversation history and LLM message sequences.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is a single prior message in the conversation. The caller supplies
// turns oldest first; insertion order is chronological and meaningful.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message is one entry in the ordered message sequence sent to the LLM.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
