package types

// ChatRole is the author of a chat message.
type ChatRole string

// Chat roles.
const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

// ChatMessage is one entry of a mock-interview transcript.
type ChatMessage struct {
	Role     ChatRole `json:"role"`
	Text     string   `json:"text"`
	AudioURL string   `json:"audio_url,omitempty"` // cached synthesized audio, if any
}
