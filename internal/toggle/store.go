// Package toggle remembers which chart overlays a user switched on, per
// asset, on top of a kv.Store.
package toggle

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"CryptoDash/internal/kv"
)

// Namespace prefixes every key written by the store.
const Namespace = "cryptodash:toggles:"

// State maps toggle keys to their checked state.
type State map[string]bool

// Store reads and writes toggle state. Persistence is best effort: Load never
// fails and Save never reports an error to the caller.
type Store struct {
	kv kv.Store
}

// New wraps backend. A nil backend gives a store that remembers nothing.
func New(backend kv.Store) *Store {
	return &Store{kv: backend}
}

// Key is the storage key for asset.
func Key(asset string) string { return Namespace + asset }

// Load returns the saved state of asset, or an empty state when nothing
// usable is stored.
func (s *Store) Load(ctx context.Context, asset string) State {
	if s == nil || s.kv == nil {
		return State{}
	}
	raw, ok, err := s.kv.Get(ctx, Key(asset))
	if err != nil {
		log.Warn().Err(err).Str("asset", asset).Msg("toggle state unavailable")
		return State{}
	}
	if !ok || raw == "" {
		return State{}
	}
	st := State{}
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		log.Warn().Err(err).Str("asset", asset).Msg("discarding corrupt toggle state")
		return State{}
	}
	return st
}

// Save merges one key into the stored state of asset and writes the whole
// object back.
func (s *Store) Save(ctx context.Context, asset, key string, checked bool) {
	if s == nil || s.kv == nil {
		return
	}
	st := s.Load(ctx, asset)
	st[key] = checked
	s.write(ctx, asset, st)
}

// Replace overwrites the stored state of asset.
func (s *Store) Replace(ctx context.Context, asset string, st State) {
	if s == nil || s.kv == nil {
		return
	}
	if st == nil {
		st = State{}
	}
	s.write(ctx, asset, st)
}

// Reset forgets everything stored for asset.
func (s *Store) Reset(ctx context.Context, asset string) {
	if s == nil || s.kv == nil {
		return
	}
	if err := s.kv.Remove(ctx, Key(asset)); err != nil {
		log.Warn().Err(err).Str("asset", asset).Msg("toggle state reset failed")
	}
}

func (s *Store) write(ctx context.Context, asset string, st State) {
	data, err := json.Marshal(st)
	if err != nil {
		log.Warn().Err(err).Str("asset", asset).Msg("encode toggle state")
		return
	}
	if err := s.kv.Set(ctx, Key(asset), string(data)); err != nil {
		log.Warn().Err(err).Str("asset", asset).Msg("toggle state not saved")
	}
}

// Merge overlays saved on defaults into a new state.
func Merge(defaults, saved State) State {
	out := make(State, len(defaults)+len(saved))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range saved {
		out[k] = v
	}
	return out
}
