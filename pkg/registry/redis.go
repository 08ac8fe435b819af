package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

type redisOpener struct {
	addr   string
	prefix string
}

// NewRedis returns an Opener reading instances stored as JSON values under
// "<prefix>:<instance id>" keys.
func NewRedis(addr, prefix string) Opener {
	return &redisOpener{addr: addr, prefix: prefix}
}

// NewRedisUniversalClient builds a client from either a redis:// URL or a bare host:port.
func NewRedisUniversalClient(addr string) (redis.UniversalClient, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}}), nil
}

func (o *redisOpener) Open(context.Context) (Session, error) {
	client, err := NewRedisUniversalClient(o.addr)
	if err != nil {
		return nil, err
	}
	return &redisSession{client: client, prefix: o.prefix}, nil
}

type redisSession struct {
	client redis.UniversalClient
	prefix string
}

// redisInstance mirrors the record layout written by the discoverer service.
type redisInstance struct {
	InstanceID  string `json:"InstanceID"`
	ServiceType string `json:"ServiceType"`
	Ipv4        string `json:"Ipv4"`
	Port        int    `json:"Port"`
}

func (s *redisSession) ListInstances(ctx context.Context) ([]Instance, error) {
	keys, err := s.client.Keys(ctx, s.prefix+":*").Result()
	if err != nil {
		return nil, fmt.Errorf("redis list keys: %w", err)
	}

	out := make([]Instance, 0, len(keys))
	for _, key := range keys {
		raw, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			// expired between KEYS and GET
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get %s: %w", key, err)
		}
		var rec redisInstance
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		id := rec.InstanceID
		if id == "" {
			id = strings.TrimPrefix(key, s.prefix+":")
		}
		out = append(out, Instance{
			ID:      id,
			Service: rec.ServiceType,
			Address: rec.Ipv4,
			Port:    rec.Port,
		})
	}
	sortInstances(out)
	return out, nil
}

func (s *redisSession) Close() error {
	return s.client.Close()
}

// RedisRegister writes inst under the prefix with the given TTL (zero keeps it forever).
func RedisRegister(ctx context.Context, client redis.UniversalClient, prefix string, inst Instance, ttl time.Duration) error {
	inst = sanitizeInstance(inst)
	if err := validateInstance(inst); err != nil {
		return err
	}
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	payload, err := json.Marshal(redisInstance{
		InstanceID:  inst.ID,
		ServiceType: inst.Service,
		Ipv4:        inst.Address,
		Port:        inst.Port,
	})
	if err != nil {
		return fmt.Errorf("marshal instance: %w", err)
	}
	if err := client.Set(ctx, prefix+":"+inst.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis write instance %q: %w", inst.ID, err)
	}
	return nil
}
