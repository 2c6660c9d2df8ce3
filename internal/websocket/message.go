package websocket

// Message defines the structure of frames pushed over the event feed.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}
