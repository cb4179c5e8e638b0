package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wardenbot/warden/pkg/dataaccess/monitoring"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	reactionRoleDalName = "reaction_role_dal"

	reactionRolesCollection = "reaction_roles"
)

// ErrMismatchedPairs is returned when a reaction-role message does not pair every
// emoji with exactly one role.
var ErrMismatchedPairs = errors.New("emoji and role counts do not match")

type ReactionRoleDal interface {
	// Save appends a configured reaction-role message. The emoji and role lists
	// must be the same length.
	Save(ctx context.Context, msg *entities.ReactionRoleMessage) error

	// GetByMessage gets the configuration for a message. ErrNotFound when the
	// message has no reaction roles configured.
	GetByMessage(ctx context.Context, messageID string) (*entities.ReactionRoleMessage, error)
}

type reactionRoleDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewReactionRoleDal creates a new reaction-role data access layer.
func NewReactionRoleDal() ReactionRoleDal {
	l := slog.Default().With(slog.String(logging.KeyDal, reactionRoleDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &reactionRoleDal{
		l:      l,
		client: MongoDB,
	}
}

func (d *reactionRoleDal) Save(ctx context.Context, msg *entities.ReactionRoleMessage) error {
	if len(msg.Emojis) != len(msg.Roles) {
		return ErrMismatchedPairs
	}

	collection := d.client.Database(mongoDatabase).Collection(reactionRolesCollection)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(reactionRoleDalName, "save_reaction_roles", mongoDatabase, reactionRolesCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(reactionRoleDalName, "save_reaction_roles", mongoDatabase, reactionRolesCollection))
	defer t.ObserveDuration()

	if _, err := collection.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("error saving reaction roles: %w", err)
	}
	return nil
}

func (d *reactionRoleDal) GetByMessage(ctx context.Context, messageID string) (*entities.ReactionRoleMessage, error) {
	collection := d.client.Database(mongoDatabase).Collection(reactionRolesCollection)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(reactionRoleDalName, "get_reaction_roles", mongoDatabase, reactionRolesCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(reactionRoleDalName, "get_reaction_roles", mongoDatabase, reactionRolesCollection))
	defer t.ObserveDuration()

	msg := new(entities.ReactionRoleMessage)
	err := collection.FindOne(ctx, bson.M{"message_id": messageID}).Decode(msg)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("error getting reaction roles: %w", err)
	}
	return msg, nil
}
