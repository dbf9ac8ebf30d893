package repository

import (
	"context"

	"github.com/tieubaoca/rfi-processor-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type ReportRepo interface {
	SaveReport(ctx context.Context, report *types.Report) error
	GetReport(ctx context.Context, documentID string) (*types.Report, error)
}

type reportRepo struct {
	collection *mongo.Collection
}

func NewReportRepo(db *mongo.Database) ReportRepo {
	return &reportRepo{
		collection: db.Collection("reports"),
	}
}

func (r *reportRepo) SaveReport(ctx context.Context, report *types.Report) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": report.DocumentID}, report, opts)
	return err
}

func (r *reportRepo) GetReport(ctx context.Context, documentID string) (*types.Report, error) {
	var report types.Report
	err := r.collection.FindOne(ctx, bson.M{"_id": documentID}).Decode(&report)
	if err != nil {
		return nil, err
	}
	return &report, nil
}
