package ai

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes a single model call.
type CompletionRequest struct {
	// Model overrides the provider's default model when non-empty.
	Model string

	// Messages is the ordered conversation. System turns are allowed anywhere
	// but providers treat them as instructions rather than history.
	Messages []Message

	// MaxTokens caps the generated output. Zero leaves the provider default.
	MaxTokens int

	Temperature float32

	// JSON asks the provider to return a single JSON object.
	JSON bool

	// Purpose and SessionID are bookkeeping for interaction logs; they are
	// never sent to the model.
	Purpose   string
	SessionID string
}
