// Package orders implements the order collection engine: a per
// conversation collection window, per-user append-only order lists, and
// a count summary over them. All state lives in the key-value store;
// the engine keeps nothing in process, so any number of callers and bot
// instances can share one store.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MayStepanyan/lunchbreakbot/internal/kv"
)

// Sentinel errors for the orders layer.
var (
	// ErrValidation indicates a malformed identifier or item
	// (e.g., empty conversation ID or username).
	ErrValidation = errors.New("validation error")
)

// Key scheme, carried over from the Redis layout the bot has always
// used. The username segment is the only variable part between the
// fixed "user:" prefix and ":orders" suffix, so a single wildcard
// recovers exactly the users who ordered in a conversation.
func collectingKey(conversationID string) string {
	return "conversation:" + conversationID + ":is_collecting"
}

func ordersKey(conversationID, username string) string {
	return "conversation:" + conversationID + ":user:" + username + ":orders"
}

func ordersPattern(conversationID string) string {
	return "conversation:" + conversationID + ":user:*:orders"
}

// usernameFromKey extracts the username segment from a key produced by
// ordersKey. Reports false for keys of any other shape.
func usernameFromKey(conversationID, key string) (string, bool) {
	prefix := "conversation:" + conversationID + ":user:"
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return "", false
	}
	return strings.CutSuffix(rest, ":orders")
}

// Service is the caller-facing order collection engine.
type Service struct {
	store kv.Store
}

func NewService(store kv.Store) *Service {
	return &Service{store: store}
}

// validateID rejects identifiers that are empty or would break the key
// scheme: a ':' could collide with another conversation's keys, and
// '*', '?', '[' and ']' act as wildcards during key enumeration (glob
// in the memory and sqlite backends, KEYS patterns in redis), which
// would let one identifier read another conversation's data.
func validateID(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s must not be empty: %w", field, ErrValidation)
	}
	if strings.ContainsAny(v, ":*?[]") {
		return fmt.Errorf("%s must not contain ':', '*', '?', '[' or ']': %w", field, ErrValidation)
	}
	return nil
}

// StartCollection opens the collection window for a conversation.
// Idempotent; items accumulated earlier are unaffected.
func (s *Service) StartCollection(ctx context.Context, conversationID string) error {
	if err := validateID("conversation id", conversationID); err != nil {
		return err
	}
	return s.store.Set(ctx, collectingKey(conversationID), "true")
}

// CancelCollection closes the collection window. Idempotent. Collected
// orders are retained; reclaiming them is a separate, explicit clear.
func (s *Service) CancelCollection(ctx context.Context, conversationID string) error {
	if err := validateID("conversation id", conversationID); err != nil {
		return err
	}
	return s.store.Set(ctx, collectingKey(conversationID), "false")
}

// IsCollecting reports whether the collection window is open. A
// conversation that never started is simply not collecting.
func (s *Service) IsCollecting(ctx context.Context, conversationID string) (bool, error) {
	if err := validateID("conversation id", conversationID); err != nil {
		return false, err
	}
	v, ok, err := s.store.Get(ctx, collectingKey(conversationID))
	if err != nil {
		return false, err
	}
	return ok && v == "true", nil
}

// AddOrder appends one item to the user's order list, but only while
// the conversation's collection window is open; otherwise it is a
// silent no-op so callers can forward all non-command text unchecked.
//
// The gate read and the append are two store round-trips, not one
// atomic operation: an item can still land if a concurrent cancel flips
// the gate between them. Best-effort by design; the kv contract has no
// conditional write to close the window tighter.
func (s *Service) AddOrder(ctx context.Context, conversationID, username, item string) error {
	if err := validateID("conversation id", conversationID); err != nil {
		return err
	}
	if err := validateID("username", username); err != nil {
		return err
	}
	if item == "" {
		return fmt.Errorf("item must not be empty: %w", ErrValidation)
	}
	collecting, err := s.IsCollecting(ctx, conversationID)
	if err != nil {
		return err
	}
	if !collecting {
		return nil
	}
	return s.store.Append(ctx, ordersKey(conversationID, username), item)
}

// UserOrders returns one user's orders in insertion order; empty if the
// user never ordered.
func (s *Service) UserOrders(ctx context.Context, conversationID, username string) ([]string, error) {
	if err := validateID("conversation id", conversationID); err != nil {
		return nil, err
	}
	if err := validateID("username", username); err != nil {
		return nil, err
	}
	return s.store.List(ctx, ordersKey(conversationID, username))
}

// AllOrders returns every user's orders for the conversation. Order
// within one user's items is preserved; the order in which users are
// concatenated follows key enumeration and is not stable across calls,
// so consumers must treat the result as a multiset.
func (s *Service) AllOrders(ctx context.Context, conversationID string) ([]string, error) {
	if err := validateID("conversation id", conversationID); err != nil {
		return nil, err
	}
	keys, err := s.store.Keys(ctx, ordersPattern(conversationID))
	if err != nil {
		return nil, err
	}
	all := []string{}
	for _, key := range keys {
		items, err := s.store.List(ctx, key)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}

// OrdersByUser returns the conversation's orders grouped by username.
func (s *Service) OrdersByUser(ctx context.Context, conversationID string) (map[string][]string, error) {
	if err := validateID("conversation id", conversationID); err != nil {
		return nil, err
	}
	keys, err := s.store.Keys(ctx, ordersPattern(conversationID))
	if err != nil {
		return nil, err
	}
	byUser := make(map[string][]string, len(keys))
	for _, key := range keys {
		username, ok := usernameFromKey(conversationID, key)
		if !ok {
			continue
		}
		items, err := s.store.List(ctx, key)
		if err != nil {
			return nil, err
		}
		byUser[username] = items
	}
	return byUser, nil
}

// ClearUserOrders drops one user's order list. No error if it did not
// exist.
func (s *Service) ClearUserOrders(ctx context.Context, conversationID, username string) error {
	if err := validateID("conversation id", conversationID); err != nil {
		return err
	}
	if err := validateID("username", username); err != nil {
		return err
	}
	return s.store.Delete(ctx, ordersKey(conversationID, username))
}

// ClearOrders drops every user's order list for the conversation. If
// some deletes fail the rest are still attempted and the failures are
// reported as a *PartialClearError; rerunning the clear is safe because
// deleting an already-cleared key is a no-op.
func (s *Service) ClearOrders(ctx context.Context, conversationID string) error {
	if err := validateID("conversation id", conversationID); err != nil {
		return err
	}
	keys, err := s.store.Keys(ctx, ordersPattern(conversationID))
	if err != nil {
		return err
	}
	var failed []string
	var errs []error
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			failed = append(failed, key)
			errs = append(errs, err)
		}
	}
	if len(failed) > 0 {
		return &PartialClearError{Failed: failed, err: errors.Join(errs...)}
	}
	return nil
}

// PartialClearError reports a clear that deleted some order lists but
// not all of them. The whole clear can be retried.
type PartialClearError struct {
	// Failed lists the keys whose delete failed.
	Failed []string
	err    error
}

func (e *PartialClearError) Error() string {
	return fmt.Sprintf("cleared with %d failed deletes: %v", len(e.Failed), e.err)
}

func (e *PartialClearError) Unwrap() error { return e.err }
