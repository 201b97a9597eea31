package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

// this ping function checks redis connectivity

func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

// this closes the client

func (c *Client) Close() error {
	return c.redisdb.Close()
}

// Incr implements the rate-limiter CounterStore on a fixed redis window.
// The expiry is set only when the key is created, so the window end is
// shared by every replica.
func (c *Client) Incr(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	k := "ratelimit:" + key

	count, err := c.redisdb.Incr(ctx, k).Result()

	if err != nil {
		return 0, 0, err
	}

	if count == 1 {
		err = c.redisdb.Expire(ctx, k, window).Err()

		if err != nil {
			return 0, 0, err
		}

		return int(count), window, nil
	}

	remaining, err := c.redisdb.TTL(ctx, k).Result()

	if err != nil || remaining < 0 {
		remaining = window
	}

	return int(count), remaining, nil
}
