package repository

import (
	"context"

	"github.com/tieubaoca/rfi-processor-be/logger"
	"github.com/tieubaoca/rfi-processor-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

type RunRepo interface {
	CreateRun(ctx context.Context, run *types.ProcessingRun) error
	GetRun(ctx context.Context, documentID string) (*types.ProcessingRun, error)
	// ListRuns returns runs newest first. An empty username returns every
	// run (admin view), otherwise only the user's own.
	ListRuns(ctx context.Context, username string, limit, offset int64) ([]*types.ProcessingRun, error)
	UpdateRun(ctx context.Context, run *types.ProcessingRun) error
}

type runRepo struct {
	collection *mongo.Collection
}

func NewRunRepo(db *mongo.Database) RunRepo {
	collection := db.Collection("runs")
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "username", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
	}
	_, err := collection.Indexes().CreateMany(context.Background(), indexes)
	if err != nil {
		logger.Warn("failed to create run indexes", zap.Error(err))
	}

	return &runRepo{
		collection: collection,
	}
}

func (r *runRepo) CreateRun(ctx context.Context, run *types.ProcessingRun) error {
	_, err := r.collection.InsertOne(ctx, run)
	return err
}

func (r *runRepo) GetRun(ctx context.Context, documentID string) (*types.ProcessingRun, error) {
	var run types.ProcessingRun
	err := r.collection.FindOne(ctx, bson.M{"_id": documentID}).Decode(&run)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *runRepo) ListRuns(ctx context.Context, username string, limit, offset int64) ([]*types.ProcessingRun, error) {
	filter := bson.M{}
	if username != "" {
		filter["username"] = username
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit).SetSkip(offset)
	}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var runs []*types.ProcessingRun
	for cursor.Next(ctx) {
		var run types.ProcessingRun
		if err := cursor.Decode(&run); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	return runs, nil
}

func (r *runRepo) UpdateRun(ctx context.Context, run *types.ProcessingRun) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": run.DocumentID}, run)
	return err
}
