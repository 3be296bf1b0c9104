package store

import (
	"context"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stackaudit/stackaudit/pkg/aggregator"
	"github.com/stackaudit/stackaudit/pkg/errors"
)

// MongoConfig configures the MongoDB report store.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoStore persists reports in a MongoDB collection, one document per
// request id. The report body is stored under task_result with its JSON
// field names preserved, so documents read back identical to what the
// API serves.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// reportDocument is the collection's document shape. SavedAt orders
// ListRequestIDs most-recent-first.
type reportDocument struct {
	RequestID string    `bson:"external_request_id"`
	Worker    string    `bson:"worker"`
	SavedAt   time.Time `bson:"saved_at"`
	Result    bson.M    `bson:"task_result"`
}

// NewMongoStore connects to MongoDB and verifies the connection with a
// ping before returning.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connecting to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "pinging mongodb")
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// SaveResult upserts the report document for requestID.
func (s *MongoStore) SaveResult(ctx context.Context, requestID string, result *aggregator.AggregationResult) error {
	body, err := resultToBSON(result)
	if err != nil {
		return err
	}
	doc := reportDocument{
		RequestID: requestID,
		Worker:    aggregator.WorkerName,
		SavedAt:   time.Now().UTC(),
		Result:    body,
	}

	filter := bson.M{"external_request_id": requestID}
	_, err = s.coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "upserting report %s", requestID)
	}
	return nil
}

// GetResult retrieves the stored report for requestID.
func (s *MongoStore) GetResult(ctx context.Context, requestID string) (*aggregator.AggregationResult, error) {
	var doc reportDocument
	err := s.coll.FindOne(ctx, bson.M{"external_request_id": requestID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeReportNotFound, "no report for request %s", requestID)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "reading report %s", requestID)
	}
	return resultFromBSON(doc.Result)
}

// ListRequestIDs returns every stored request id, most recent first.
func (s *MongoStore) ListRequestIDs(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"external_request_id": 1}).
		SetSort(bson.M{"saved_at": -1})
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "listing reports")
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			RequestID string `bson:"external_request_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "decoding report id")
		}
		ids = append(ids, doc.RequestID)
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "iterating reports")
	}
	return ids, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// resultToBSON round-trips the result through JSON so the stored
// document keeps the report's JSON field names rather than Go ones.
func resultToBSON(result *aggregator.AggregationResult) (bson.M, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "encoding report")
	}
	var body bson.M
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "shaping report document")
	}
	return body, nil
}

func resultFromBSON(body bson.M) (*aggregator.AggregationResult, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "encoding report document")
	}
	var result aggregator.AggregationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decoding report")
	}
	return &result, nil
}
