package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wardenbot/warden/pkg/dataaccess/monitoring"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	customCommandDalName = "custom_command_dal"

	customCommandsCollection = "custom_commands"
)

type CustomCommandDal interface {
	// Get gets a custom command by name. ErrNotFound when absent.
	Get(ctx context.Context, name string) (*entities.CustomCommand, error)

	// Set creates or replaces a custom command. Names are stored lower-cased.
	Set(ctx context.Context, name, response string) error

	// Delete removes a custom command. ErrNotFound when absent.
	Delete(ctx context.Context, name string) error

	// List returns all custom commands.
	List(ctx context.Context) ([]*entities.CustomCommand, error)
}

type customCommandDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewCustomCommandDal creates a new custom-command data access layer.
func NewCustomCommandDal() CustomCommandDal {
	l := slog.Default().With(slog.String(logging.KeyDal, customCommandDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &customCommandDal{
		l:      l,
		client: MongoDB,
	}
}

func (d *customCommandDal) Get(ctx context.Context, name string) (*entities.CustomCommand, error) {
	collection := d.client.Database(mongoDatabase).Collection(customCommandsCollection)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(customCommandDalName, "get_custom_command", mongoDatabase, customCommandsCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(customCommandDalName, "get_custom_command", mongoDatabase, customCommandsCollection))
	defer t.ObserveDuration()

	cmd := new(entities.CustomCommand)
	err := collection.FindOne(ctx, bson.M{"name": strings.ToLower(name)}).Decode(cmd)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("error getting custom command: %w", err)
	}
	return cmd, nil
}

func (d *customCommandDal) Set(ctx context.Context, name, response string) error {
	collection := d.client.Database(mongoDatabase).Collection(customCommandsCollection)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(customCommandDalName, "set_custom_command", mongoDatabase, customCommandsCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(customCommandDalName, "set_custom_command", mongoDatabase, customCommandsCollection))
	defer t.ObserveDuration()

	cmd := &entities.CustomCommand{
		Name:     strings.ToLower(name),
		Response: response,
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := collection.ReplaceOne(ctx, bson.M{"name": cmd.Name}, cmd, opts); err != nil {
		return fmt.Errorf("error setting custom command: %w", err)
	}
	return nil
}

func (d *customCommandDal) Delete(ctx context.Context, name string) error {
	collection := d.client.Database(mongoDatabase).Collection(customCommandsCollection)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(customCommandDalName, "delete_custom_command", mongoDatabase, customCommandsCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(customCommandDalName, "delete_custom_command", mongoDatabase, customCommandsCollection))
	defer t.ObserveDuration()

	res, err := collection.DeleteOne(ctx, bson.M{"name": strings.ToLower(name)})
	if err != nil {
		return fmt.Errorf("error deleting custom command: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *customCommandDal) List(ctx context.Context) ([]*entities.CustomCommand, error) {
	collection := d.client.Database(mongoDatabase).Collection(customCommandsCollection)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(customCommandDalName, "list_custom_commands", mongoDatabase, customCommandsCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(customCommandDalName, "list_custom_commands", mongoDatabase, customCommandsCollection))
	defer t.ObserveDuration()

	cursor, err := collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("error listing custom commands: %w", err)
	}

	var cmds []*entities.CustomCommand
	if err := cursor.All(ctx, &cmds); err != nil {
		return nil, fmt.Errorf("error decoding custom commands: %w", err)
	}
	return cmds, nil
}
