// internal/models/conversation.go
package models

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	ConversationStatusActive = "active"
	DefaultConversationTitle = "Nueva conversación"
)

// Conversation timestamps are 13-digit millisecond strings so they sort lexically.
type Conversation struct {
	ConversationID string                 `json:"conversation_id" dynamodbav:"conversation_id"`
	UserID         string                 `json:"user_id" dynamodbav:"user_id"`
	StartedAt      string                 `json:"started_at" dynamodbav:"started_at"`
	LastMessageAt  string                 `json:"last_message_at" dynamodbav:"last_message_at"`
	Title          string                 `json:"title" dynamodbav:"title"`
	Status         string                 `json:"status" dynamodbav:"status"`
	ModelID        string                 `json:"model_id" dynamodbav:"model_id"`
	Meta           map[string]interface{} `json:"meta" dynamodbav:"meta"`
}

type Message struct {
	ConversationID string                   `json:"conversation_id" dynamodbav:"conversation_id"`
	CreatedAt      string                   `json:"created_at" dynamodbav:"created_at"`
	MessageID      string                   `json:"message_id" dynamodbav:"message_id"`
	Role           string                   `json:"role" dynamodbav:"role"`
	Content        string                   `json:"content" dynamodbav:"content"`
	MediaKeys      []string                 `json:"media_keys" dynamodbav:"media_keys"`
	ToolCalls      []map[string]interface{} `json:"tool_calls" dynamodbav:"tool_calls"`
}
