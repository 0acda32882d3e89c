package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/detrash/recy-pipeline/src/utils/config"

	"github.com/redis/go-redis/v9"
)

// Connect opens a Redis client configured the same way for every queue role
func Connect(ctx context.Context, config *config.Config, name string) (client *redis.Client, err error) {
	opts := redis.Options{
		ClientName:      fmt.Sprintf("recy/%s", name),
		Addr:            fmt.Sprintf("%s:%d", config.Redis.Host, config.Redis.Port),
		Password:        config.Redis.Password,
		Username:        config.Redis.User,
		DB:              config.Redis.DB,
		MinIdleConns:    config.Redis.MinIdleConns,
		MaxIdleConns:    config.Redis.MaxIdleConns,
		ConnMaxIdleTime: config.Redis.ConnMaxIdleTime,
		PoolSize:        config.Redis.MaxOpenConns,
		ConnMaxLifetime: config.Redis.ConnMaxLifetime,
	}

	client = redis.NewClient(&opts)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err = client.Ping(pingCtx).Err()
	if err != nil {
		return
	}

	return
}

// Redis key layout of one queue
type keys struct {
	wait    string
	active  string
	delayed string
	dead    string

	jobPrefix   string
	leasePrefix string
}

func newKeys(prefix string) keys {
	return keys{
		wait:        prefix + ":wait",
		active:      prefix + ":active",
		delayed:     prefix + ":delayed",
		dead:        prefix + ":dead",
		jobPrefix:   prefix + ":job:",
		leasePrefix: prefix + ":lease:",
	}
}

func (self keys) job(id string) string {
	return self.jobPrefix + id
}

func (self keys) lease(id string) string {
	return self.leasePrefix + id
}
