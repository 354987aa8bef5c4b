package repository

import (
	"fmt"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Options carries what a backend needs; unused fields are ignored.
type Options struct {
	DataDir     string
	Redis       *redis.Client
	RedisPrefix string
	Mongo       *mongo.Collection
}

// New creates a Repo based on the backend name.
//
// Supported backends:
//
//	"memory"  - in-memory (ephemeral, default)
//	"sqlite"  - SQLite database at DataDir/docbase.db
//	"leveldb" - LevelDB directory at DataDir/records
//	"redis"   - Redis server (Options.Redis)
//	"mongo"   - MongoDB collection (Options.Mongo)
func New(backend string, o Options) (*Repo, error) {
	switch backend {
	case "memory", "":
		return NewMemoryRepo(), nil
	case "sqlite":
		return NewSqliteRepo(filepath.Join(o.DataDir, "docbase.db"))
	case "leveldb":
		return NewLevelDBRepo(filepath.Join(o.DataDir, "records"))
	case "redis":
		if o.Redis == nil {
			return nil, fmt.Errorf("redis backend requires a redis client")
		}
		return NewRedisRepo(o.Redis, o.RedisPrefix), nil
	case "mongo":
		if o.Mongo == nil {
			return nil, fmt.Errorf("mongo backend requires a mongo collection")
		}
		return NewMongoRepo(o.Mongo), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: memory, sqlite, leveldb, redis, mongo)", backend)
	}
}
