package models

import "time"

// TicketStatus is the workflow state of a support ticket.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusAnswered   TicketStatus = "Answered"
	TicketStatusClosed     TicketStatus = "Closed"
)

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusAnswered, TicketStatusClosed:
		return true
	}
	return false
}

// Ticket user types.
const (
	UserTypePaying    = "paying"
	UserTypeNonPaying = "non-paying"
)

// Reply authors.
const (
	AuthorUser  = "user"
	AuthorAdmin = "admin"

	SystemBotName = "System Bot"
)

// Ticket is a customer support request.
type Ticket struct {
	ID             string        `db:"id" json:"id"`
	UserID         string        `db:"user_id" json:"userId"`
	UserEmail      string        `db:"user_email" json:"userEmail"`
	Title          string        `db:"title" json:"title"`
	Description    string        `db:"description" json:"description"`
	UserType       string        `db:"user_type" json:"userType"`
	Priority       int           `db:"priority" json:"priority"`
	PriorityReason string        `db:"priority_reason" json:"priorityReason"`
	Status         TicketStatus  `db:"status" json:"status"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updatedAt"`
	Replies        []TicketReply `db:"-" json:"replies,omitempty"`
}

// TicketReply is one message in a ticket thread.
type TicketReply struct {
	ID         string    `db:"id" json:"id"`
	TicketID   string    `db:"ticket_id" json:"ticketId"`
	Author     string    `db:"author" json:"author"`
	AuthorName string    `db:"author_name" json:"authorName"`
	Message    string    `db:"message" json:"message"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
