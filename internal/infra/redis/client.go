package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vietddude/unstuck/internal/core/domain"
)

// DefaultLockTTL bounds how long a crashed run keeps an account locked.
const DefaultLockTTL = 30 * time.Minute

// Client wraps the Redis operations behind the account lock.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func lockKey(chainID uint64, addr common.Address) string {
	return fmt.Sprintf("unstuck:lock:%d:%s", chainID, strings.ToLower(addr.Hex()))
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AccountLock is a held advisory lock on one account.
type AccountLock struct {
	client *Client
	key    string
	token  string
}

// AcquireLock takes the advisory lock for an account, or returns
// domain.ErrAccountLocked if another instance holds it.
func (c *Client) AcquireLock(
	ctx context.Context,
	chainID uint64,
	addr common.Address,
	ttl time.Duration,
) (*AccountLock, error) {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}

	key := lockKey(chainID, addr)
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("setnx failed: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountLocked, key)
	}
	return &AccountLock{client: c, key: key, token: token}, nil
}

// Release drops the lock if this instance still owns it.
func (l *AccountLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client.rdb, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

func (l *AccountLock) Key() string {
	return l.key
}
