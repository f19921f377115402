// Package storage persists the casting players a controller has connected
// to, together with the endpoint list enumerated on the last connection.
package storage

import (
	"errors"
	"time"
)

// Storage errors.
var (
	// ErrNotFound is returned when a player is not stored.
	ErrNotFound = errors.New("storage: not found")

	// ErrClosed is returned by operations on a closed storage.
	ErrClosed = errors.New("storage: closed")

	// ErrInvalidRecord is returned when a record has no ID.
	ErrInvalidRecord = errors.New("storage: invalid record")
)

// EndpointRecord is the stored form of one player endpoint.
type EndpointRecord struct {
	ID          uint16   `cbor:"1,keyasint"`
	VendorID    uint16   `cbor:"2,keyasint,omitempty"`
	ProductID   uint16   `cbor:"3,keyasint,omitempty"`
	DeviceTypes []uint32 `cbor:"4,keyasint,omitempty"`
	Clusters    []uint32 `cbor:"5,keyasint,omitempty"`
}

// PlayerRecord is the stored form of a casting player.
type PlayerRecord struct {
	ID         string           `cbor:"1,keyasint"`
	DeviceName string           `cbor:"2,keyasint,omitempty"`
	VendorID   uint16           `cbor:"3,keyasint,omitempty"`
	ProductID  uint16           `cbor:"4,keyasint,omitempty"`
	DeviceType uint32           `cbor:"5,keyasint,omitempty"`
	Host       string           `cbor:"6,keyasint,omitempty"`
	Port       int              `cbor:"7,keyasint,omitempty"`
	IPs        []string         `cbor:"8,keyasint,omitempty"`
	Endpoints  []EndpointRecord `cbor:"9,keyasint,omitempty"`
	LastSeen   time.Time        `cbor:"10,keyasint"`
}

// Clone returns a deep copy of r.
func (r *PlayerRecord) Clone() *PlayerRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.IPs = append([]string(nil), r.IPs...)
	if r.Endpoints != nil {
		cp.Endpoints = make([]EndpointRecord, len(r.Endpoints))
		for i, e := range r.Endpoints {
			e.DeviceTypes = append([]uint32(nil), e.DeviceTypes...)
			e.Clusters = append([]uint32(nil), e.Clusters...)
			cp.Endpoints[i] = e
		}
	}
	return &cp
}

// Storage abstracts persistent storage of known players.
//
// All methods must be safe for concurrent use.
type Storage interface {
	// SavePlayer stores or replaces the record with the same ID.
	SavePlayer(r *PlayerRecord) error

	// LoadPlayer returns the record with the given ID or ErrNotFound.
	LoadPlayer(id string) (*PlayerRecord, error)

	// LoadPlayers returns all records, ordered by ID.
	LoadPlayers() ([]*PlayerRecord, error)

	// DeletePlayer removes a record. Deleting a missing record is not an error.
	DeletePlayer(id string) error

	Close() error
}
