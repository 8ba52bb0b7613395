package affinity

import (
	"context"
	"fmt"
	"os"
	"time"

	model "github.com/glkeru/affinity/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Таблицы уровней в MongoDB, один документ на уровень
type TiersDB struct {
	mgo  *mongo.Client
	coll *mongo.Collection
}

type tierDocument struct {
	Table      string `bson:"table"`
	Tier       int    `bson:"tier"`
	MinScore   int64  `bson:"minScore"`
	RewardType string `bson:"rewardType"`
	Payload    string `bson:"rewardPayload"`
}

func NewTiersDB() (*TiersDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mng := os.Getenv("AFFINITY_MONGO")
	if mng == "" {
		return nil, fmt.Errorf("env AFFINITY_MONGO is not set")
	}

	opts := options.Client().ApplyURI("mongodb://" + mng)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, err
	}
	coll := client.Database("affinityDB").Collection("tiers")

	return &TiersDB{client, coll}, nil
}

func (r *TiersDB) GetTiers(ctx context.Context, table string) ([]model.TierDefinition, error) {
	opts := options.Find().SetSort(bson.D{{Key: "tier", Value: 1}})
	result, err := r.coll.Find(ctx, bson.M{"table": table}, opts)
	if err != nil {
		return nil, err
	}
	defer result.Close(ctx)

	var tiers []model.TierDefinition
	for result.Next(ctx) {
		var doc tierDocument
		if err := result.Decode(&doc); err != nil {
			return nil, err
		}
		payload, err := model.DecodeRewardPayload(doc.Payload)
		if err != nil {
			return nil, fmt.Errorf("table %s tier %d: %w", table, doc.Tier, err)
		}
		tiers = append(tiers, model.TierDefinition{
			Tier:          doc.Tier,
			MinScore:      doc.MinScore,
			RewardType:    model.RewardKind(doc.RewardType),
			RewardPayload: payload,
		})
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("tiers %s %w", table, model.ErrNotFound)
	}
	return tiers, nil
}

// SaveTiers заменяет таблицу целиком
func (r *TiersDB) SaveTiers(ctx context.Context, table string, tiers []model.TierDefinition) error {
	docs := make([]any, 0, len(tiers))
	for _, t := range tiers {
		payload, err := t.RewardPayload.Encode()
		if err != nil {
			return fmt.Errorf("tier %d: %w", t.Tier, err)
		}
		docs = append(docs, tierDocument{
			Table:      table,
			Tier:       t.Tier,
			MinScore:   t.MinScore,
			RewardType: string(t.RewardType),
			Payload:    payload,
		})
	}

	if _, err := r.coll.DeleteMany(ctx, bson.M{"table": table}); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	_, err := r.coll.InsertMany(ctx, docs)
	return err
}

func (r *TiersDB) Close(ctx context.Context) error {
	return r.mgo.Disconnect(ctx)
}
