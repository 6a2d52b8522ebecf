package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client owns the connection shared by the list cache and the auth rate limiter.
type Client struct {
	redisdb *redis.Client
	addr    string
}

type Config struct {
	Addr     string
	Password string
	DB       int
	// Name shows up in CLIENT LIST; defaults to "recipedia".
	Name string
}

func New(cfg Config) *Client {
	name := cfg.Name
	if name == "" {
		name = "recipedia"
	}

	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   name,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		PoolSize:     20,
		MinIdleConns: 2,
	})

	return &Client{redisdb: redisdb, addr: cfg.Addr}
}

// Ping lets the client stand in for a readiness check.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.redisdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", c.addr, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}

func (c *Client) Raw() *redis.Client {
	return c.redisdb
}
