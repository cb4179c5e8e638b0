package entities

import (
	"fmt"
	"time"
)

// Ticket is one open support request. There is at most one open ticket per user at
// any time, and each ticket owns exactly one channel. The row is removed when staff
// close the ticket or when the channel is deleted externally.
type Ticket struct {
	// TicketNumber is the monotonically assigned number of the ticket. The first
	// ticket ever opened is numbered 1001; numbers are never reused below the
	// current maximum, even after deletions.
	TicketNumber int `json:"ticket_number" bson:"ticket_number"`

	// UserID is the ID of the user that requested the ticket.
	UserID string `json:"user_id" bson:"user_id"`

	// ChannelID is the ID of the dedicated channel created for the ticket.
	ChannelID string `json:"channel_id" bson:"channel_id"`

	// CreatedAt is the time that the ticket was opened.
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// ChannelName returns the name the ticket channel is created with.
func (t *Ticket) ChannelName() string {
	return fmt.Sprintf("ticket-%d", t.TicketNumber)
}
