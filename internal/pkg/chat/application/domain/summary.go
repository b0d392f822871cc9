package chat

// ConversationSummary is one row of a participant's chat list.
// LastMessage is nil when the conversation has no messages yet.
type ConversationSummary struct {
	ID              string
	Contact         Participant
	LastMessage     *Message
	LastMessageTime string
}
