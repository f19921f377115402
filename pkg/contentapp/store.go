package contentapp

import (
	"sort"
	"sync"

	"github.com/backkem/matter-tv/pkg/datamodel"
)

// AttributeStore holds the current attribute values of a content app.
//
// Writes are atomic per key and values are copied on the way in and out, so
// a reader never observes a partially written value. The store does not
// validate values and does not notify anyone; pair Set with
// Notifier.ReportAttributeChange (or use Notifier.SetAndReport).
type AttributeStore struct {
	mu     sync.RWMutex
	values map[datamodel.AttributeKey]datamodel.Value
}

// NewAttributeStore creates an empty store.
func NewAttributeStore() *AttributeStore {
	return &AttributeStore{
		values: make(map[datamodel.AttributeKey]datamodel.Value),
	}
}

// Set records value for (cluster, attribute), replacing any previous value.
// Setting the absent sentinel clears the entry.
func (s *AttributeStore) Set(cluster datamodel.ClusterID, attribute datamodel.AttributeID, value datamodel.Value) {
	key := datamodel.AttributeKey{Cluster: cluster, Attribute: attribute}
	v := value.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if v.IsAbsent() {
		delete(s.values, key)
		return
	}
	s.values[key] = v
}

// Get returns the value recorded for (cluster, attribute) and whether one
// was ever set.
func (s *AttributeStore) Get(cluster datamodel.ClusterID, attribute datamodel.AttributeID) (datamodel.Value, bool) {
	s.mu.RLock()
	v, ok := s.values[datamodel.AttributeKey{Cluster: cluster, Attribute: attribute}]
	s.mu.RUnlock()

	if !ok {
		return datamodel.Value{}, false
	}
	return v.Clone(), true
}

// Value returns the value for (cluster, attribute), or the absent sentinel
// if it was never set.
func (s *AttributeStore) Value(cluster datamodel.ClusterID, attribute datamodel.AttributeID) datamodel.Value {
	v, _ := s.Get(cluster, attribute)
	return v
}

// Delete removes the value for (cluster, attribute).
func (s *AttributeStore) Delete(cluster datamodel.ClusterID, attribute datamodel.AttributeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, datamodel.AttributeKey{Cluster: cluster, Attribute: attribute})
}

// Len returns the number of configured attributes.
func (s *AttributeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Keys returns the configured keys sorted by cluster then attribute.
func (s *AttributeStore) Keys() []datamodel.AttributeKey {
	s.mu.RLock()
	keys := make([]datamodel.AttributeKey, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sortKeys(keys)
	return keys
}

// ClusterAttributes returns the configured attribute IDs of one cluster, sorted.
func (s *AttributeStore) ClusterAttributes(cluster datamodel.ClusterID) []datamodel.AttributeID {
	s.mu.RLock()
	var ids []datamodel.AttributeID
	for k := range s.values {
		if k.Cluster == cluster {
			ids = append(ids, k.Attribute)
		}
	}
	s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortKeys(keys []datamodel.AttributeKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Cluster != keys[j].Cluster {
			return keys[i].Cluster < keys[j].Cluster
		}
		return keys[i].Attribute < keys[j].Attribute
	})
}

// CommandResponseStore holds canned, pre-serialized responses for commands
// that the content app answers without custom logic (for example the setup
// PIN returned by AccountLogin.GetSetupPIN).
type CommandResponseStore struct {
	mu        sync.RWMutex
	responses map[datamodel.CommandKey][]byte
}

// NewCommandResponseStore creates an empty store.
func NewCommandResponseStore() *CommandResponseStore {
	return &CommandResponseStore{
		responses: make(map[datamodel.CommandKey][]byte),
	}
}

// Set registers payload as the response for (cluster, command). A later Set
// for the same key overwrites it.
func (s *CommandResponseStore) Set(cluster datamodel.ClusterID, command datamodel.CommandID, payload []byte) {
	p := append([]byte(nil), payload...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[datamodel.CommandKey{Cluster: cluster, Command: command}] = p
}

// SetString registers a textual payload, typically JSON.
func (s *CommandResponseStore) SetString(cluster datamodel.ClusterID, command datamodel.CommandID, payload string) {
	s.Set(cluster, command, []byte(payload))
}

// Get returns the registered payload for (cluster, command). Unregistered
// keys return (nil, false); this is not an error.
func (s *CommandResponseStore) Get(cluster datamodel.ClusterID, command datamodel.CommandID) ([]byte, bool) {
	s.mu.RLock()
	p, ok := s.responses[datamodel.CommandKey{Cluster: cluster, Command: command}]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	return append([]byte(nil), p...), true
}

// Delete removes the registered payload for (cluster, command).
func (s *CommandResponseStore) Delete(cluster datamodel.ClusterID, command datamodel.CommandID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.responses, datamodel.CommandKey{Cluster: cluster, Command: command})
}
