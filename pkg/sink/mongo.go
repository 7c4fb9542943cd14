package sink

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/matzehuels/revdeps/pkg/errors"
	"github.com/matzehuels/revdeps/pkg/scan"
)

// Default MongoDB names.
const (
	DefaultMongoDatabase   = "revdeps"
	DefaultMongoCollection = "matches"
)

// MongoOptions selects the target collection.
type MongoOptions struct {
	URI        string
	Database   string // empty uses DefaultMongoDatabase
	Collection string // empty uses DefaultMongoCollection
}

// Mongo upserts matches into a collection, one document per run and package.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo connects and pings the server.
func NewMongo(ctx context.Context, opts MongoOptions) (*Mongo, error) {
	if opts.Database == "" {
		opts.Database = DefaultMongoDatabase
	}
	if opts.Collection == "" {
		opts.Collection = DefaultMongoCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "ping mongodb")
	}
	return &Mongo{
		client: client,
		coll:   client.Database(opts.Database).Collection(opts.Collection),
	}, nil
}

// Report upserts m keyed by run id and package id, so a retried report does
// not duplicate the document.
func (s *Mongo) Report(ctx context.Context, m scan.Match) error {
	_, err := s.coll.ReplaceOne(ctx, matchFilter(m), m, options.Replace().SetUpsert(true))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeNetwork, err, "store match %s", m.PackageID)
	}
	return nil
}

// Close disconnects, waiting at most five seconds.
func (s *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func matchFilter(m scan.Match) bson.D {
	return bson.D{
		{Key: "run_id", Value: m.RunID},
		{Key: "package_id", Value: m.PackageID},
	}
}
