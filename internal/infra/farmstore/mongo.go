package farmstore

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/greennepal/agrihealth/internal/domain/history"
	"github.com/greennepal/agrihealth/internal/domain/tasks"
)

const opTimeout = 5 * time.Second

// MongoStore persists tasks and saved scans in a MongoDB database. Documents
// are scoped by appId and ownerId so several deployments can share a cluster.
type MongoStore struct {
	client *mongo.Client
	tasks  *mongo.Collection
	scans  *mongo.Collection
	appID  string
	logger *slog.Logger
}

// NewMongoStore connects to the cluster, verifies the connection and ensures
// the owner indexes exist.
func NewMongoStore(ctx context.Context, uri, database, appID string, logger *slog.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	db := client.Database(database)

	store := &MongoStore{
		client: client,
		tasks:  db.Collection("tasks"),
		scans:  db.Collection("scans"),
		appID:  appID,
		logger: logger.With("component", "farmstore.mongo"),
	}
	if _, err := store.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "appId", Value: 1}, {Key: "ownerId", Value: 1}, {Key: "createdAt", Value: 1}},
	}); err != nil {
		return nil, err
	}
	if _, err := store.scans.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "appId", Value: 1}, {Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return nil, err
	}
	return store, nil
}

// Close disconnects from the cluster.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var (
	_ tasks.Repository   = (*MongoStore)(nil)
	_ history.Repository = mongoScanRepo{}
)

// Scans returns the scan collection as a history.Repository.
func (s *MongoStore) Scans() history.Repository { return mongoScanRepo{s} }

type mongoScanRepo struct{ store *MongoStore }

func (r mongoScanRepo) Add(ctx context.Context, owner string, record history.Record) error {
	return r.store.AddScan(ctx, owner, record)
}

func (r mongoScanRepo) Delete(ctx context.Context, owner, id string) error {
	return r.store.DeleteScan(ctx, owner, id)
}

func (r mongoScanRepo) List(ctx context.Context, owner string) ([]history.Record, error) {
	return r.store.ListScans(ctx, owner)
}

type taskDoc struct {
	tasks.Task `bson:",inline"`
	AppID      string `bson:"appId"`
	OwnerID    string `bson:"ownerId"`
}

type scanDoc struct {
	history.Record `bson:",inline"`
	AppID          string `bson:"appId"`
	OwnerID        string `bson:"ownerId"`
}

func (s *MongoStore) scope(owner string) bson.M {
	return bson.M{"appId": s.appID, "ownerId": owner}
}

func (s *MongoStore) Add(ctx context.Context, owner string, task tasks.Task) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := s.tasks.InsertOne(ctx, taskDoc{Task: task, AppID: s.appID, OwnerID: owner})
	return err
}

func (s *MongoStore) Get(ctx context.Context, owner, id string) (tasks.Task, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := s.scope(owner)
	filter["_id"] = id
	var doc taskDoc
	err := s.tasks.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return tasks.Task{}, false, nil
	}
	if err != nil {
		return tasks.Task{}, false, err
	}
	return doc.Task, true, nil
}

func (s *MongoStore) SetCompleted(ctx context.Context, owner, id string, completed bool) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := s.scope(owner)
	filter["_id"] = id
	_, err := s.tasks.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"completed": completed}})
	return err
}

func (s *MongoStore) Delete(ctx context.Context, owner, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := s.scope(owner)
	filter["_id"] = id
	_, err := s.tasks.DeleteOne(ctx, filter)
	return err
}

func (s *MongoStore) List(ctx context.Context, owner string) ([]tasks.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := s.tasks.Find(ctx, s.scope(owner), options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]tasks.Task, len(docs))
	for i, d := range docs {
		out[i] = d.Task
	}
	return out, nil
}

// Watch opens a change stream on the task collection and re-reads the owner's
// collection whenever one of their documents changes. Requires a replica set.
func (s *MongoStore) Watch(ctx context.Context, owner string) (<-chan []tasks.Task, func(), error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"$or": bson.A{
				bson.M{"fullDocument.appId": s.appID, "fullDocument.ownerId": owner},
				bson.M{"operationType": "delete"},
			},
		}}},
	}
	stream, err := s.tasks.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	ch := make(chan []tasks.Task, 8)
	go func() {
		defer close(ch)
		defer stream.Close(context.Background())
		for stream.Next(watchCtx) {
			snapshot, err := s.List(watchCtx, owner)
			if err != nil {
				s.logger.Warn("task snapshot after change event failed", "owner", owner, "error", err)
				continue
			}
			select {
			case ch <- snapshot:
			case <-watchCtx.Done():
				return
			}
		}
	}()
	return ch, cancel, nil
}

func (s *MongoStore) AddScan(ctx context.Context, owner string, record history.Record) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := s.scans.InsertOne(ctx, scanDoc{Record: record, AppID: s.appID, OwnerID: owner})
	return err
}

func (s *MongoStore) DeleteScan(ctx context.Context, owner, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := s.scope(owner)
	filter["_id"] = id
	_, err := s.scans.DeleteOne(ctx, filter)
	return err
}

func (s *MongoStore) ListScans(ctx context.Context, owner string) ([]history.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := s.scans.Find(ctx, s.scope(owner), options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []scanDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]history.Record, len(docs))
	for i, d := range docs {
		out[i] = d.Record
	}
	return out, nil
}
