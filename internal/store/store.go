package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

var ErrNotFound = errors.New("store: not found")

// Gateway is the document store boundary. Paths are either "collection"
// (the whole collection as an id-keyed object) or "collection/id" (one
// document). There are no transactions: each call is atomic on its own,
// sequences of calls are not.
type Gateway interface {
	// Get returns the raw JSON at path, or nil when nothing exists there.
	Get(ctx context.Context, path string) (json.RawMessage, error)
	// Set writes value at path, replacing any existing document.
	Set(ctx context.Context, path string, value any) error
	// Update merges partial into the document at path, creating it when
	// absent. Only top-level fields are merged.
	Update(ctx context.Context, path string, partial map[string]any) error
	Remove(ctx context.Context, path string) error
	// Push stores value under a new server-generated key within the
	// collection at path and returns that key.
	Push(ctx context.Context, path string, value any) (string, error)
	Ping(ctx context.Context) error
}

func splitPath(path string) (collection, id string, err error) {
	parts := strings.SplitN(strings.Trim(path, "/"), "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("store: empty path %q", path)
	}
	if len(parts) == 1 {
		return parts[0], "", nil
	}
	if parts[1] == "" {
		return "", "", fmt.Errorf("store: malformed path %q", path)
	}
	return parts[0], parts[1], nil
}

var pushCounter uint64

// pushKey generates a unique, time-ordered document key. Keys created in
// the same process sort by creation order even within one millisecond.
func pushKey() string {
	n := atomic.AddUint64(&pushCounter, 1)
	return fmt.Sprintf("-%011x%04x", time.Now().UnixMilli(), n&0xffff)
}
