package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"blindrelay/internal/domain"
)

const (
	metadataBucket = "metadata"
	presenceBucket = "presence"
	versionKey     = "version"
	schemaVersion  = 0
)

// ErrLocked is returned by OpenBolt when another hub holds the file.
var ErrLocked = errors.New("presence: directory file is held by another hub")

var lockTimeout = time.Second

// Bolt is a domain.PresenceDirectory stored in a bbolt file. Each identity
// is a nested bucket whose keys are hub addresses.
type Bolt struct {
	db *bolt.DB
}

var _ domain.PresenceDirectory = (*Bolt)(nil)

// OpenBolt creates or loads the directory at path. The file is locked for
// as long as the directory is open, so it cannot be shared between hubs.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: lockTimeout})
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(presenceBucket)); err != nil {
			return err
		}
		if v := meta.Get([]byte(versionKey)); v != nil {
			if len(v) != 1 || v[0] != schemaVersion {
				return fmt.Errorf("presence: incompatible version: %v", v)
			}
			return nil
		}
		return meta.Put([]byte(versionKey), []byte{schemaVersion})
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

// AddToSet records that hub hosts id.
func (b *Bolt) AddToSet(_ context.Context, id domain.IdentityHash, hub domain.HubAddress) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.Bucket([]byte(presenceBucket)).CreateBucketIfNotExists([]byte(id))
		if err != nil {
			return err
		}
		return bkt.Put([]byte(hub), []byte{1})
	})
}

// RemoveFromSet forgets that hub hosts id.
func (b *Bolt) RemoveFromSet(_ context.Context, id domain.IdentityHash, hub domain.HubAddress) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(presenceBucket))
		bkt := root.Bucket([]byte(id))
		if bkt == nil {
			return nil
		}
		if err := bkt.Delete([]byte(hub)); err != nil {
			return err
		}
		if k, _ := bkt.Cursor().First(); k == nil {
			return root.DeleteBucket([]byte(id))
		}
		return nil
	})
}

// GetSetOrEmpty returns the hubs hosting id in key order.
func (b *Bolt) GetSetOrEmpty(_ context.Context, id domain.IdentityHash) ([]domain.HubAddress, error) {
	var out []domain.HubAddress
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(presenceBucket)).Bucket([]byte(id))
		if bkt == nil {
			return nil
		}
		return bkt.ForEach(func(k, _ []byte) error {
			out = append(out, domain.HubAddress(k))
			return nil
		})
	})
	if out == nil {
		out = []domain.HubAddress{}
	}
	return out, err
}

// Purge removes hub from every set. A hub calls it on start so that entries
// left by an unclean shutdown do not attract relays.
func (b *Bolt) Purge(_ context.Context, hub domain.HubAddress) (int, error) {
	var n int
	err := b.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(presenceBucket))
		var hosted [][]byte
		if err := root.ForEachBucket(func(id []byte) error {
			if root.Bucket(id).Get([]byte(hub)) != nil {
				hosted = append(hosted, append([]byte(nil), id...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, id := range hosted {
			bkt := root.Bucket(id)
			if err := bkt.Delete([]byte(hub)); err != nil {
				return err
			}
			n++
			if k, _ := bkt.Cursor().First(); k == nil {
				if err := root.DeleteBucket(id); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return n, err
}

// Close syncs and closes the database.
func (b *Bolt) Close() error {
	_ = b.db.Sync()
	return b.db.Close()
}
