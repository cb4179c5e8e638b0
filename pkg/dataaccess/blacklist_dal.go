package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wardenbot/warden/pkg/dataaccess/monitoring"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	blacklistDalName = "blacklist_dal"

	blacklistCollection = "blacklist"
)

// ErrAlreadyBlacklisted is returned when the user is already on the blacklist.
var ErrAlreadyBlacklisted = errors.New("user is already blacklisted")

type BlacklistDal interface {
	// IsBlacklisted reports whether a user is barred from invoking commands.
	IsBlacklisted(ctx context.Context, userID string) (bool, error)

	// Add puts a user on the blacklist. ErrAlreadyBlacklisted on duplicates.
	Add(ctx context.Context, userID string) error

	// Remove takes a user off the blacklist. ErrNotFound when absent.
	Remove(ctx context.Context, userID string) error
}

type blacklistEntry struct {
	UserID string `bson:"user_id"`
}

type blacklistDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewBlacklistDal creates a new blacklist data access layer.
func NewBlacklistDal() BlacklistDal {
	l := slog.Default().With(slog.String(logging.KeyDal, blacklistDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &blacklistDal{
		l:      l,
		client: MongoDB,
	}
}

func (d *blacklistDal) IsBlacklisted(ctx context.Context, userID string) (bool, error) {
	collection := d.client.Database(mongoDatabase).Collection(blacklistCollection)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(blacklistDalName, "is_blacklisted", mongoDatabase, blacklistCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(blacklistDalName, "is_blacklisted", mongoDatabase, blacklistCollection))
	defer t.ObserveDuration()

	err := collection.FindOne(ctx, bson.M{"user_id": userID}).Err()
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("error checking blacklist: %w", err)
	}
	return true, nil
}

func (d *blacklistDal) Add(ctx context.Context, userID string) error {
	blacklisted, err := d.IsBlacklisted(ctx, userID)
	if err != nil {
		return err
	} else if blacklisted {
		return ErrAlreadyBlacklisted
	}

	collection := d.client.Database(mongoDatabase).Collection(blacklistCollection)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(blacklistDalName, "add_blacklist", mongoDatabase, blacklistCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(blacklistDalName, "add_blacklist", mongoDatabase, blacklistCollection))
	defer t.ObserveDuration()

	if _, err := collection.InsertOne(ctx, blacklistEntry{UserID: userID}); err != nil {
		return fmt.Errorf("error adding to blacklist: %w", err)
	}
	return nil
}

func (d *blacklistDal) Remove(ctx context.Context, userID string) error {
	collection := d.client.Database(mongoDatabase).Collection(blacklistCollection)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(blacklistDalName, "remove_blacklist", mongoDatabase, blacklistCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(blacklistDalName, "remove_blacklist", mongoDatabase, blacklistCollection))
	defer t.ObserveDuration()

	res, err := collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("error removing from blacklist: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
