package config

import (
	"context"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bsm/redislock"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// redisConn pairs the client with the lock client built on it so readers
// never see one without the other.
type redisConn struct {
	client *redis.Client
	locker *redislock.Client
}

var redisState atomic.Pointer[redisConn]

func GetRedisDB() *redis.Client {
	if c := redisState.Load(); c != nil {
		return c.client
	}
	return nil
}

func GetRedisLock() *redislock.Client {
	if c := redisState.Load(); c != nil {
		return c.locker
	}
	return nil
}

func setRedis(client *redis.Client) {
	if client == nil {
		redisState.Store(nil)
		return
	}
	redisState.Store(&redisConn{client: client, locker: redislock.New(client)})
}

func init() {
	// Load env from .env
	godotenv.Load()
}

// ConnectRedisWithRetry connects and sets the global Redis client + lock client.
// Redis is optional for this service: with REDIS_ADDRESS unset, or after
// maxAttempts failures, the globals stay nil and callers fall back to
// in-process behaviour.
func ConnectRedisWithRetry(ctx context.Context, maxAttempts int) {
	redisAddr := strings.TrimSpace(os.Getenv("REDIS_ADDRESS"))
	if redisAddr == "" {
		log.Printf("REDIS_ADDRESS not set; running without redis")
		return
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0, // use default DB
			PoolSize: intFromEnv("REDIS_POOL_SIZE", 20),
		})
		err := client.Ping(ctx).Err()
		if err == nil {
			setRedis(client)
			log.Printf("connected to redis (attempt=%d addr=%s)", attempt, redisAddr)
			return
		}
		_ = client.Close()

		sleep := backoff(attempt)
		log.Printf("failed to connect redis (attempt=%d addr=%s): %v; retrying in %s", attempt, redisAddr, err, sleep)
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
	log.Printf("giving up on redis after %d attempts; running without redis", maxAttempts)
}

func backoff(attempt int) time.Duration {
	sleep := time.Second * time.Duration(1<<min(attempt, 5))
	if sleep > 30*time.Second {
		sleep = 30 * time.Second
	}
	return sleep
}
