package domain

import "time"

// TicketLog is an immutable audit trail entry.
type TicketLog struct {
	ID           string    `json:"id"`
	Action       string    `json:"action"`
	OperatorID   string    `json:"operator_id"`
	OperatorName string    `json:"operator_name"`
	OperatorRole Role      `json:"operator_role"`
	CreatedAt    time.Time `json:"created_at"`
}
