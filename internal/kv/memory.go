package kv

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// Memory keeps values in process. A zero ttl keeps them until removed.
type Memory struct {
	c *cache.Cache
}

// NewMemory creates an in-process store.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		return &Memory{c: cache.New(cache.NoExpiration, 0)}
	}
	return &Memory{c: cache.New(ttl, 2*ttl)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", false, nil
	}
	s, _ := v.(string)
	return s, true, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.c.SetDefault(key, value)
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}
