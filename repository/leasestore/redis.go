package leasestore

import (
	"context"
	"github.com/redis/go-redis/v9"
	"rank-annotation-backend/utils"
	"time"
)

// 只删除自己持有的租约
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

/*
Redis 用 SET NX EX 实现跨实例共享的租约，键为 prefix + 句子 id，值为 owner。
*/
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(ctx context.Context, config *Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, utils.WrapErrorf(err, "connect redis [%s] fail", config.Addr)
	}

	return &Redis{
		client: client,
		prefix: config.Prefix,
	}, nil
}

func (r *Redis) key(id string) string {
	return r.prefix + id
}

func (r *Redis) Busy(ctx context.Context, owner string, ids []string) (map[string]bool, error) {
	ret := make(map[string]bool)
	if len(ids) == 0 {
		return ret, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, utils.WrapError(err, "mget leases fail")
	}

	for i, v := range values {
		holder, ok := v.(string)
		if ok && holder != owner {
			ret[ids[i]] = true
		}
	}
	return ret, nil
}

func (r *Redis) Acquire(ctx context.Context, owner string, ids []string, ttl time.Duration) error {
	if owner == "" {
		return ErrEmptyOwner
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.BoolCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.SetNX(ctx, r.key(id), owner, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return utils.WrapError(err, "setnx leases fail")
	}

	// 已经是自己持有的租约只续期
	for i, cmd := range cmds {
		if cmd.Val() {
			continue
		}
		holder, err := r.client.Get(ctx, r.key(ids[i])).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return utils.WrapErrorf(err, "get lease of [%s] fail", ids[i])
		}
		if holder == owner {
			if err := r.client.Expire(ctx, r.key(ids[i]), ttl).Err(); err != nil {
				return utils.WrapErrorf(err, "refresh lease of [%s] fail", ids[i])
			}
		}
	}
	return nil
}

func (r *Redis) Release(ctx context.Context, owner string, ids []string) error {
	for _, id := range ids {
		if err := releaseScript.Run(ctx, r.client, []string{r.key(id)}, owner).Err(); err != nil && err != redis.Nil {
			return utils.WrapErrorf(err, "release lease of [%s] fail", id)
		}
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
