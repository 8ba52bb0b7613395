package affinity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	model "github.com/glkeru/affinity/internal/models"
	redis "github.com/redis/go-redis/v9"
)

const walletTTL = 5 * time.Minute

type CacheService struct {
	client *redis.Client
}

func NewCacheService(ctx context.Context) (serv *CacheService, err error) {
	// config
	addr := os.Getenv("AFFINITY_CACHE_URL")
	if addr == "" {
		return nil, fmt.Errorf("env AFFINITY_CACHE_URL is not set")
	}
	user := os.Getenv("AFFINITY_CACHE_USER")
	if user == "" {
		return nil, fmt.Errorf("env AFFINITY_CACHE_USER is not set")
	}
	pwd := os.Getenv("AFFINITY_CACHE_PWD")
	if pwd == "" {
		return nil, fmt.Errorf("env AFFINITY_CACHE_PWD is not set")
	}
	// redis
	db := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    pwd,
		Username:    user,
		DB:          0,
		MaxRetries:  5,
		DialTimeout: 10 * time.Second,
	})
	if err = db.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return NewCacheServiceClient(db), nil
}

func NewCacheServiceClient(client *redis.Client) *CacheService {
	return &CacheService{client}
}

func walletKey(ownerID string) string {
	return "wallet:" + ownerID
}

func (c *CacheService) GetWallet(ctx context.Context, ownerID string) (model.Wallet, error) {
	val, err := c.client.Get(ctx, walletKey(ownerID)).Bytes()
	if err == redis.Nil {
		return model.Wallet{}, fmt.Errorf("cached wallet %w", model.ErrNotFound)
	} else if err != nil {
		return model.Wallet{}, err
	}

	var w model.Wallet
	if err = json.Unmarshal(val, &w); err != nil {
		return model.Wallet{}, err
	}
	return w, nil
}

// запись только если в кэше нет кошелька с большим или равным transactionCount
var setWalletScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if cur then
	local ok, w = pcall(cjson.decode, cur)
	if ok and tonumber(w["transactionCount"]) and tonumber(w["transactionCount"]) >= tonumber(ARGV[2]) then
		return 0
	end
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

// SetWallet не перезаписывает более новую версию кошелька
func (c *CacheService) SetWallet(ctx context.Context, w model.Wallet) error {
	val, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return setWalletScript.Run(ctx, c.client, []string{walletKey(w.OwnerID)},
		string(val), w.TransactionCount, walletTTL.Milliseconds()).Err()
}

func (c *CacheService) InvalidateWallet(ctx context.Context, ownerID string) error {
	return c.client.Del(ctx, walletKey(ownerID)).Err()
}

func (c *CacheService) Close() error {
	return c.client.Close()
}
