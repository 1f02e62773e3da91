package storage

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// Cell is a typed, key-backed persistent value. It reads its key once at
// construction and serves reads from memory; every Set serializes and saves
// synchronously before returning. An absent or corrupt payload never reaches
// the caller: the cell falls back to the supplied default, persists it so the
// key is discoverable afterwards, and logs a warning.
type Cell[T any] struct {
	store Store
	key   string
	log   logrus.FieldLogger
	value T
}

func NewCell[T any](ctx context.Context, store Store, key string, def T, log logrus.FieldLogger) *Cell[T] {
	c := &Cell[T]{store: store, key: key, log: log, value: def}

	payload, ok, err := store.Load(ctx, key)
	if err != nil {
		log.WithFields(logrus.Fields{"key": key, "error": err}).
			Warn("cell load failed, falling back to default")
		c.persistDefault(ctx, def)
		return c
	}
	if !ok {
		c.persistDefault(ctx, def)
		return c
	}
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		log.WithFields(logrus.Fields{"key": key, "error": err}).
			Warn("cell payload corrupt, falling back to default")
		c.persistDefault(ctx, def)
		return c
	}
	c.value = v
	return c
}

func (c *Cell[T]) persistDefault(ctx context.Context, def T) {
	payload, err := json.Marshal(def)
	if err != nil {
		c.log.WithFields(logrus.Fields{"key": c.key, "error": err}).
			Warn("cell default not serializable")
		return
	}
	if err := c.store.Save(ctx, c.key, payload); err != nil {
		c.log.WithFields(logrus.Fields{"key": c.key, "error": err}).
			Warn("cell default not persisted")
	}
}

// Key returns the storage key the cell is bound to.
func (c *Cell[T]) Key() string { return c.key }

// Get returns the cached value. The caller must not mutate slices or maps
// returned here; build a replacement and Set it instead.
func (c *Cell[T]) Get() T { return c.value }

// Set stores the value durably and updates the cache. The write happens
// before Set returns, on every call, including high-frequency ones.
func (c *Cell[T]) Set(ctx context.Context, v T) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := c.store.Save(ctx, c.key, payload); err != nil {
		return err
	}
	c.value = v
	return nil
}
