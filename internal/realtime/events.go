package realtime

import "encoding/json"

const (
	// client -> server
	EventRegisterUser = "registerUser"
	EventJoinChat     = "joinChat"
	EventSendMessage  = "sendMessage"

	// server -> client
	EventOnlineUsers    = "onlineUsers"
	EventReceiveMessage = "receiveMessage"
	EventError          = "error"
)

// Frame is the JSON envelope for every event in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type SendMessagePayload struct {
	ChatID   string `json:"chatId"`
	SenderID string `json:"senderId"`
	Content  string `json:"content"`
}

func encodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}
