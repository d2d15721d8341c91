package repos

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"storefront/internal/domain"
	applog "storefront/internal/log"
)

// SessionKey is the storage form of a session id: a blake2b-256 hex digest,
// so raw session tokens never land in the persistence medium.
func SessionKey(sessionID string) string {
	sum := blake2b.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:])
}

// CartKey namespaces a session's cart.
func CartKey(namespace, sessionID string) string {
	return namespace + ":" + SessionKey(sessionID)
}

// CartStore loads and saves one cart's line items under a single key.
type CartStore struct {
	kv  KV
	key string
}

func NewCartStore(kv KV, key string) *CartStore { return &CartStore{kv: kv, key: key} }

func (s *CartStore) Key() string { return s.key }

// Load reads the cart. A missing or malformed entry yields an empty cart; an
// unreachable backend is an error, since the entry may still hold items.
func (s *CartStore) Load(ctx context.Context) ([]domain.LineItem, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, ErrKeyNotFound) {
		return []domain.LineItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", s.key, err)
	}

	var items []domain.LineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		applog.Warn(nil, "store.load.degraded", err, map[string]any{"key": s.key, "reason": "malformed"})
		return []domain.LineItem{}, nil
	}
	return normalize(items), nil
}

func (s *CartStore) Save(ctx context.Context, items []domain.LineItem) error {
	if items == nil {
		items = []domain.LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	return s.kv.Set(ctx, s.key, data)
}

// Delete drops the entry; a later Load sees an empty cart.
func (s *CartStore) Delete(ctx context.Context) error {
	return s.kv.Delete(ctx, s.key)
}

// normalize drops entries that could not have been written by a cart:
// quantity below 1, negative prices and repeated ids (first one wins).
func normalize(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if it.Quantity < 1 || it.UnitPrice.IsNegative() {
			continue
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}
