package schema

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

const cacheBucket = "schema"

// Cache persists discovered Schemas keyed by an arbitrary caller-chosen
// string (typically the database DSN plus a modification timestamp), so a
// repeated schemadump run against an unchanged database skips rediscovery.
// Grounded on the bolt.View/Update transaction shape the inventario
// registry's boltdb package uses for its settings bucket.
type Cache struct {
	db *bolt.DB
}

// OpenCache opens (creating if absent) a bbolt database at path and
// ensures the schema bucket exists.
func OpenCache(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("schema: open cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(cacheBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("schema: init cache bucket: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying bbolt file handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached Schema for key, or (nil, false) on a cache miss.
func (c *Cache) Get(key string) (Schema, bool, error) {
	var out Schema
	found := false
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(cacheBucket))
		data := bucket.Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &out)
	})
	if err != nil {
		return nil, false, err
	}
	return out, found, nil
}

// Put stores s under key, overwriting any prior entry.
func (c *Cache) Put(key string, s Schema) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(cacheBucket))
		return bucket.Put([]byte(key), data)
	})
}
