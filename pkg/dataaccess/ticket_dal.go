package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wardenbot/warden/pkg/dataaccess/monitoring"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ticketDalName = "ticket_dal"

	ticketsCollection = "tickets"

	// ticketNumberSeed is the value numbering starts from; the first ticket ever
	// opened is ticketNumberSeed+1.
	ticketNumberSeed = 1000
)

// ErrTicketExists is returned when the user already has an open ticket.
var ErrTicketExists = errors.New("user already has an open ticket")

type TicketDal interface {
	// CreateTicket allocates the next ticket number and inserts the row. It fails
	// with ErrTicketExists if the user already has an open ticket; the check and
	// the insert form a single critical section.
	CreateTicket(ctx context.Context, userID, channelID string) (*entities.Ticket, error)

	// GetTicketByUser gets the open ticket for a user. ErrNotFound when absent.
	GetTicketByUser(ctx context.Context, userID string) (*entities.Ticket, error)

	// GetTicketByChannel gets the ticket owning a channel. ErrNotFound when absent.
	GetTicketByChannel(ctx context.Context, channelID string) (*entities.Ticket, error)

	// DeleteTicketByChannel removes the ticket owning a channel. Deleting a channel
	// that owns no ticket is not an error.
	DeleteTicketByChannel(ctx context.Context, channelID string) error
}

type ticketDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client

	// mu serializes ticket creation so that the duplicate check and the number
	// allocation cannot race with a concurrent insert.
	mu sync.Mutex
}

// NewTicketDal creates a new ticket data access layer.
func NewTicketDal() TicketDal {
	l := slog.Default().With(slog.String(logging.KeyDal, ticketDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &ticketDal{
		l:      l,
		client: MongoDB,
	}
}

// nextTicketNumber allocates max(existing)+1, or the seed+1 when no tickets have
// ever been created. Numbers below the current maximum are never reused.
func nextTicketNumber(highest int) int {
	if highest < ticketNumberSeed {
		highest = ticketNumberSeed
	}
	return highest + 1
}

func (d *ticketDal) CreateTicket(ctx context.Context, userID, channelID string) (*entities.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	collection := d.client.Database(mongoDatabase).Collection(ticketsCollection)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "create_ticket", mongoDatabase, ticketsCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "create_ticket", mongoDatabase, ticketsCollection))
	defer t.ObserveDuration()

	// Reject a second open ticket for the same user.
	err := collection.FindOne(ctx, bson.M{"user_id": userID}).Err()
	switch {
	case err == nil:
		return nil, ErrTicketExists
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("error checking for open ticket: %w", err)
	}

	// Find the highest number ever allocated.
	highest := ticketNumberSeed
	latest := new(entities.Ticket)
	opts := options.FindOne().SetSort(bson.D{{Key: "ticket_number", Value: -1}})
	err = collection.FindOne(ctx, bson.M{}, opts).Decode(latest)
	switch {
	case err == nil:
		highest = latest.TicketNumber
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("error getting latest ticket: %w", err)
	}

	ticket := &entities.Ticket{
		TicketNumber: nextTicketNumber(highest),
		UserID:       userID,
		ChannelID:    channelID,
		CreatedAt:    time.Now().UTC(),
	}

	if _, err := collection.InsertOne(ctx, ticket); err != nil {
		return nil, fmt.Errorf("error inserting ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDal) GetTicketByUser(ctx context.Context, userID string) (*entities.Ticket, error) {
	return d.findOne(ctx, "get_ticket_by_user", bson.M{"user_id": userID})
}

func (d *ticketDal) GetTicketByChannel(ctx context.Context, channelID string) (*entities.Ticket, error) {
	return d.findOne(ctx, "get_ticket_by_channel", bson.M{"channel_id": channelID})
}

func (d *ticketDal) findOne(ctx context.Context, query string, filter bson.M) (*entities.Ticket, error) {
	collection := d.client.Database(mongoDatabase).Collection(ticketsCollection)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, query, mongoDatabase, ticketsCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, query, mongoDatabase, ticketsCollection))
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	err := collection.FindOne(ctx, filter).Decode(ticket)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDal) DeleteTicketByChannel(ctx context.Context, channelID string) error {
	collection := d.client.Database(mongoDatabase).Collection(ticketsCollection)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "delete_ticket_by_channel", mongoDatabase, ticketsCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "delete_ticket_by_channel", mongoDatabase, ticketsCollection))
	defer t.ObserveDuration()

	if _, err := collection.DeleteOne(ctx, bson.M{"channel_id": channelID}); err != nil {
		return fmt.Errorf("error deleting ticket: %w", err)
	}
	return nil
}
