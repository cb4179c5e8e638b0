package dataaccess

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB is the Mongo client. This is a connection pool.
var MongoDB *mongo.Client

const mongoDatabase = "warden"

// ErrNotFound is returned when a lookup matches no document. Callers must treat it
// as a legitimate empty result; any other error means the store itself failed.
var ErrNotFound = errors.New("not found")
