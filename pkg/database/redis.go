// Package database initializes shared datastore clients.
package database

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/log"
)

// RDB is the shared Redis client, nil when Redis is not configured. Callers
// must treat a nil client as "cache disabled", never as an error.
var RDB *redis.Client

// InitRedis connects the shared Redis client. A connection failure logs and
// leaves RDB nil; the answer cache is an optimization, not a dependency.
func InitRedis(addr, password string, db int) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warnf("[Redis] connection failed, answer cache disabled: %v", err)
		return
	}

	RDB = client
	log.Info("Redis client connected successfully")
}
