// Package archive persists serialized graph documents in MongoDB.
//
// Substrate advertisements and submitted experiment requests are archived
// as decoded documents, one per graph identifier, so the view API and the
// merge workflow can retrieve earlier revisions without re-parsing
// GraphML. Writes upsert by graph identifier; the archive keeps the
// latest revision only.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/netweave/netweave/pkg/graphml"
)

// ErrNotFound is returned when no document exists for a graph identifier.
var ErrNotFound = errors.New("graph not found in archive")

// Entry is one archived graph with its metadata.
type Entry struct {
	GraphID  string           `bson:"graph_id" json:"graph_id"`
	Name     string           `bson:"name" json:"name"`
	Kind     string           `bson:"kind" json:"kind"`
	SavedAt  time.Time        `bson:"saved_at" json:"saved_at"`
	Document graphml.Document `bson:"document" json:"document"`
}

// Store is a MongoDB-backed graph archive.
type Store struct {
	coll *mongo.Collection
}

// Config configures the MongoDB connection.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Connect dials MongoDB and prepares the archive collection with a unique
// index on the graph identifier.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Database == "" {
		cfg.Database = "netweave"
	}
	if cfg.Collection == "" {
		cfg.Collection = "graphs"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "graph_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Store{coll: coll}, nil
}

// Save upserts a graph document under its identifier.
func (s *Store) Save(ctx context.Context, name, kind string, doc *graphml.Document) error {
	entry := Entry{
		GraphID:  doc.ID,
		Name:     name,
		Kind:     kind,
		SavedAt:  time.Now().UTC(),
		Document: *doc,
	}
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"graph_id": doc.ID},
		entry,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save graph %s: %w", doc.ID, err)
	}
	return nil
}

// Load retrieves the archived entry for a graph identifier.
func (s *Store) Load(ctx context.Context, graphID string) (*Entry, error) {
	var entry Entry
	err := s.coll.FindOne(ctx, bson.M{"graph_id": graphID}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load graph %s: %w", graphID, err)
	}
	return &entry, nil
}

// Delete removes an archived graph. Deleting an absent graph is not an
// error.
func (s *Store) Delete(ctx context.Context, graphID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"graph_id": graphID}); err != nil {
		return fmt.Errorf("delete graph %s: %w", graphID, err)
	}
	return nil
}

// List returns the metadata of every archived graph, newest first,
// without the document payloads.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "saved_at", Value: -1}}).
		SetProjection(bson.M{"document": 0})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list graphs: %w", err)
	}
	defer cur.Close(ctx)

	var entries []Entry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	return entries, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.coll.Database().Client().Disconnect(ctx)
}
