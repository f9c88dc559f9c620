package stores

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// RedisSequencer allocates issue sequence numbers with INCR, which is
// atomic across concurrent creations and processes.
type RedisSequencer struct {
	client *redis.Client
	key    string
}

func NewRedisSequencer(client *redis.Client, key string) *RedisSequencer {
	if key == "" {
		key = "issues:seq"
	}
	return &RedisSequencer{client: client, key: key}
}

// Seed initializes the counter to the current issue count so the sequence
// continues from existing data. Only sets the key when it is absent.
func (s *RedisSequencer) Seed(ctx context.Context, count int64) error {
	return s.client.SetNX(ctx, s.key, count, 0).Err()
}

func (s *RedisSequencer) Next(ctx context.Context) (int64, error) {
	return s.client.Incr(ctx, s.key).Result()
}

// CountSequencer derives the next sequence number from the current total
// issue count plus one. Two concurrent creations can observe the same count
// and collide; the unique issueId index converts that into an insert error
// rather than a duplicate. Used only when redis is not configured.
type CountSequencer struct {
	coll *mongo.Collection
}

func NewCountSequencer(db *mongo.Database) *CountSequencer {
	return &CountSequencer{coll: db.Collection("issues")}
}

func (s *CountSequencer) Next(ctx context.Context) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}
