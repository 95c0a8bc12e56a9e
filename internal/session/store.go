package session

import (
	"encoding/json"
	"fmt"

	"github.com/claude/setlog/internal/kvstore"
	"github.com/claude/setlog/internal/models"
)

// SlotKey is the fixed key the live session is stored under.
const SlotKey = "active_workout_session"

// Store persists the single live session.
type Store interface {
	// Load returns the stored state, or nil when the slot is empty.
	Load() (*models.ExecutionState, error)
	Save(state *models.ExecutionState) error
	Clear() error
}

// KVStore keeps the session as JSON in a key-value store slot.
type KVStore struct {
	kv  kvstore.KV
	key string
}

// NewKVStore creates a KVStore using SlotKey.
func NewKVStore(kv kvstore.KV) *KVStore {
	return &KVStore{kv: kv, key: SlotKey}
}

// Load implements Store.
func (s *KVStore) Load() (*models.ExecutionState, error) {
	raw, ok, err := s.kv.Get(s.key)
	if err != nil {
		return nil, fmt.Errorf("reading session slot: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var st models.ExecutionState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decoding session slot: %w", err)
	}
	if !st.Status.IsValid() {
		return nil, fmt.Errorf("decoding session slot: unknown status %q", st.Status)
	}
	return &st, nil
}

// Save implements Store.
func (s *KVStore) Save(state *models.ExecutionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.kv.Set(s.key, string(data)); err != nil {
		return fmt.Errorf("writing session slot: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *KVStore) Clear() error {
	if err := s.kv.Remove(s.key); err != nil {
		return fmt.Errorf("clearing session slot: %w", err)
	}
	return nil
}
