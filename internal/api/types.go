// ABOUTME: Wire types for the docchat backend API.
// ABOUTME: Field names match the backend's JSON exactly, including chatHistory.

package api

// Role identifies who authored a message.
type Role string

// Message roles. The backend only ever produces these two.
const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// FileInfo describes a document uploaded to an agent. Content lives
// server-side and is fetched separately via FetchFile.
type FileInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Message is a single chat message. ID is assigned by the backend and is
// zero for messages that have not completed a round trip.
type Message struct {
	ID     int    `json:"id,omitempty"`
	Sender Role   `json:"sender"`
	Text   string `json:"text"`
}

// Agent is a named prompt plus its uploaded documents and conversation.
type Agent struct {
	ID      int        `json:"id"`
	Name    string     `json:"name"`
	Prompt  string     `json:"prompt"`
	Files   []FileInfo `json:"files"`
	History []Message  `json:"chatHistory"`
}

// FileUpload is a document to attach when creating or updating an agent.
type FileUpload struct {
	Name    string
	Content []byte
}
