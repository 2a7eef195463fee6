package domain

import "time"

// SenderKind distinguishes human operators from the system.
type SenderKind string

const (
	SenderKindOperator SenderKind = "OPERATOR"
	SenderKindSystem   SenderKind = "SYSTEM"
)

// MessageSender identifies who wrote a message. System messages carry
// no user id, so no real account can be mistaken for the system.
type MessageSender struct {
	Kind   SenderKind `json:"kind"`
	UserID string     `json:"user_id,omitempty"`
	Name   string     `json:"name,omitempty"`
}

// SystemSender is the sender of automated lifecycle messages.
func SystemSender() MessageSender {
	return MessageSender{Kind: SenderKindSystem, Name: "System"}
}

// OperatorSender builds a sender for a human user.
func OperatorSender(u *User) MessageSender {
	return MessageSender{Kind: SenderKindOperator, UserID: u.ID, Name: u.Name}
}

// IsSystem reports whether the message was generated by the lifecycle engine.
func (s MessageSender) IsSystem() bool {
	return s.Kind == SenderKindSystem
}

// TicketMessage captures communications in a ticket thread.
type TicketMessage struct {
	ID        string        `json:"id"`
	Sender    MessageSender `json:"sender"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"created_at"`
}
