package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wardenbot/warden/pkg/dataaccess/monitoring"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	configDalName = "config_dal"

	configCollection = "config"

	// configDocumentID keys the single bot configuration document.
	configDocumentID = "bot"
)

type ConfigDal interface {
	// Get reads the current configuration. A fresh deployment with no document yet
	// yields the default configuration.
	Get(ctx context.Context) (*entities.BotConfig, error)

	// Update applies the mutator to the current configuration and persists the
	// result. Reads and writes are serialized, so two racing admin commands cannot
	// lose each other's updates.
	Update(ctx context.Context, mutate func(*entities.BotConfig)) (*entities.BotConfig, error)
}

type configDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client

	// mu gives the read-modify-write in Update single-writer semantics.
	mu sync.Mutex
}

// NewConfigDal creates a new config data access layer.
func NewConfigDal() ConfigDal {
	l := slog.Default().With(slog.String(logging.KeyDal, configDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &configDal{
		l:      l,
		client: MongoDB,
	}
}

func (d *configDal) Get(ctx context.Context) (*entities.BotConfig, error) {
	collection := d.client.Database(mongoDatabase).Collection(configCollection)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(configDalName, "get_config", mongoDatabase, configCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(configDalName, "get_config", mongoDatabase, configCollection))
	defer t.ObserveDuration()

	cfg := new(entities.BotConfig)
	err := collection.FindOne(ctx, bson.M{"_id": configDocumentID}).Decode(cfg)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return entities.DefaultBotConfig(), nil
	case err != nil:
		return nil, fmt.Errorf("error getting config: %w", err)
	}
	return cfg, nil
}

func (d *configDal) Update(ctx context.Context, mutate func(*entities.BotConfig)) (*entities.BotConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cfg, err := d.Get(ctx)
	if err != nil {
		return nil, err
	}

	mutate(cfg)

	collection := d.client.Database(mongoDatabase).Collection(configCollection)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(configDalName, "update_config", mongoDatabase, configCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(configDalName, "update_config", mongoDatabase, configCollection))
	defer t.ObserveDuration()

	opts := options.Replace().SetUpsert(true)
	if _, err := collection.ReplaceOne(ctx, bson.M{"_id": configDocumentID}, cfg, opts); err != nil {
		return nil, fmt.Errorf("error updating config: %w", err)
	}
	return cfg, nil
}
