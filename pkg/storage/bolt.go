package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pion/logging"
	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

var bucketPlayers = []byte("players")

// Record encoding is deterministic so an unchanged record is stored
// byte-identical.
var (
	recordEncMode cbor.EncMode
	recordDecMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	recordEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create record CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}
	recordDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create record CBOR decoder mode: %v", err))
	}
}

// BoltConfig configures a BoltStorage.
type BoltConfig struct {
	// Path of the database file. Required.
	Path string

	// Timeout for acquiring the file lock. Defaults to 5 seconds.
	Timeout time.Duration

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// BoltStorage implements Storage on a bbolt database file.
type BoltStorage struct {
	db  *bolt.DB
	log logging.LeveledLogger
}

// OpenBolt opens or creates the database at config.Path.
func OpenBolt(config BoltConfig) (*BoltStorage, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("storage: database path required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	db, err := bolt.Open(config.Path, 0600, &bolt.Options{Timeout: config.Timeout})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", config.Path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPlayers)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create buckets: %w", err)
	}

	s := &BoltStorage{db: db}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("storage")
		s.log.Debugf("opened %s", config.Path)
	}
	return s, nil
}

// SavePlayer stores r under its ID.
func (s *BoltStorage) SavePlayer(r *PlayerRecord) error {
	if r == nil || r.ID == "" {
		return ErrInvalidRecord
	}
	data, err := recordEncMode.Marshal(r)
	if err != nil {
		return fmt.Errorf("storage: encode player %q: %w", r.ID, err)
	}

	err = s.update(func(b *bolt.Bucket) error {
		return b.Put([]byte(r.ID), data)
	})
	if err == nil && s.log != nil {
		s.log.Tracef("saved player %q", r.ID)
	}
	return err
}

// LoadPlayer returns the record stored under id.
func (s *BoltStorage) LoadPlayer(id string) (*PlayerRecord, error) {
	var r PlayerRecord
	err := s.view(func(b *bolt.Bucket) error {
		data := b.Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return recordDecMode.Unmarshal(data, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadPlayers returns all records in key order.
func (s *BoltStorage) LoadPlayers() ([]*PlayerRecord, error) {
	var players []*PlayerRecord
	err := s.view(func(b *bolt.Bucket) error {
		players = make([]*PlayerRecord, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			var r PlayerRecord
			if err := recordDecMode.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("storage: decode player %q: %w", k, err)
			}
			players = append(players, &r)
			return nil
		})
	})
	return players, err
}

// DeletePlayer removes the record stored under id.
func (s *BoltStorage) DeletePlayer(id string) error {
	return s.update(func(b *bolt.Bucket) error {
		return b.Delete([]byte(id))
	})
}

// Close closes the database.
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

func (s *BoltStorage) view(fn func(b *bolt.Bucket) error) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPlayers)
		if b == nil {
			return fmt.Errorf("storage: bucket %q not found", bucketPlayers)
		}
		return fn(b)
	})
	if errors.Is(err, berrors.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}

func (s *BoltStorage) update(fn func(b *bolt.Bucket) error) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPlayers)
		if b == nil {
			return fmt.Errorf("storage: bucket %q not found", bucketPlayers)
		}
		return fn(b)
	})
	if errors.Is(err, berrors.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}

var _ Storage = (*BoltStorage)(nil)
