package realtime

// Envelope is the push payload of a room. DisplayTime is preformatted
// ("3:04 PM"); SenderID and MessageID are optional and only used for
// de-duplication by clients that understand them.
type Envelope struct {
	ConversationID    string `json:"conversationId"`
	SenderDisplayName string `json:"senderDisplayName"`
	Content           string `json:"content"`
	DisplayTime       string `json:"displayTime"`
	SenderID          string `json:"senderId,omitempty"`
	MessageID         string `json:"messageId,omitempty"`
}

// Frame types of the websocket protocol.
const (
	FrameJoin      = "join"
	FrameLeave     = "leave"
	FrameMessage   = "message"
	FrameConnected = "connected"
	FrameJoined    = "joined"
	FrameLeft      = "left"
	FrameError     = "error"
)

// Frame is one websocket text message in either direction.
type Frame struct {
	Type              string `json:"type"`
	ConversationID    string `json:"conversationId,omitempty"`
	SenderDisplayName string `json:"senderDisplayName,omitempty"`
	Content           string `json:"content,omitempty"`
	DisplayTime       string `json:"displayTime,omitempty"`
	SenderID          string `json:"senderId,omitempty"`
	MessageID         string `json:"messageId,omitempty"`
	UserID            string `json:"userId,omitempty"`
	Code              string `json:"code,omitempty"`
	Error             string `json:"error,omitempty"`
}

// MessageFrame wraps env for the wire.
func MessageFrame(env Envelope) Frame {
	return Frame{
		Type:              FrameMessage,
		ConversationID:    env.ConversationID,
		SenderDisplayName: env.SenderDisplayName,
		Content:           env.Content,
		DisplayTime:       env.DisplayTime,
		SenderID:          env.SenderID,
		MessageID:         env.MessageID,
	}
}

// ErrorFrame builds an error frame.
func ErrorFrame(code, msg string) Frame {
	return Frame{Type: FrameError, Code: code, Error: msg}
}

// Envelope extracts the message payload of a frame.
func (f Frame) Envelope() Envelope {
	return Envelope{
		ConversationID:    f.ConversationID,
		SenderDisplayName: f.SenderDisplayName,
		Content:           f.Content,
		DisplayTime:       f.DisplayTime,
		SenderID:          f.SenderID,
		MessageID:         f.MessageID,
	}
}
