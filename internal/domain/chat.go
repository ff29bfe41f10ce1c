package domain

// Speaker roles used in conversation turns and oracle prompts.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is the provider-agnostic chat message shape replayed to the
// LLM on every call.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
