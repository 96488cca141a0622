// Package kv is the persistent string-keyed layer every collection lives in.
// Each collection is serialized as one JSON document under a namespaced key
// and rewritten whole on every mutation.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Namespace prefixes every key so a generic change listener can recognize
// relevant storage events.
const Namespace = "mechflow"

const (
	KeyUsers         = Namespace + ":users"
	KeyEstimates     = Namespace + ":estimates"
	KeyNotifications = Namespace + ":notifications"
	KeySettings      = Namespace + ":settings"
	KeyShopStatus    = Namespace + ":shop_status"
	KeyDeviceHistory = Namespace + ":device_history"
	KeySecurityLogs  = Namespace + ":security_logs"
)

// ErrNotFound signals an absent key. Callers reading collections treat it as
// the empty collection.
var ErrNotFound = errors.New("kv: key not found")

// Store is the persistence contract. Set overwrites atomically from the
// caller's point of view; Get returns ErrNotFound for absent keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// ChangeEvent describes a write observed on a shared backend. Origin is the
// writing instance's id so listeners can skip their own writes.
type ChangeEvent struct {
	Origin string `json:"origin"`
	Key    string `json:"key"`
}

// ChangeFeed is implemented by backends that can surface writes made by
// other instances sharing the same storage.
type ChangeFeed interface {
	Changes(ctx context.Context) (<-chan ChangeEvent, func() error)
}

// SessionKey builds the key holding the session user record for a token.
func SessionKey(token string) string {
	return Namespace + ":session:" + token
}

// InNamespace reports whether the key belongs to this application.
func InNamespace(key string) bool {
	return strings.HasPrefix(key, Namespace+":")
}

// LoadJSON reads and parses the document at key into dest. Absent keys and
// corrupt payloads are non-fatal: dest is left untouched and loaded is
// false. Only backend failures are returned as errors.
func LoadJSON(ctx context.Context, s Store, key string, dest any) (loaded bool, err error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if json.Unmarshal([]byte(raw), dest) != nil {
		return false, nil
	}
	return true, nil
}

// SaveJSON serializes value and overwrites the document at key.
func SaveJSON(ctx context.Context, s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(raw))
}
