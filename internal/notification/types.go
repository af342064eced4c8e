// Package notification maintains the client-side view of a user's
// notifications for the FarmBridge marketplace: an in-memory cache merged
// from the REST snapshot and the push channel, with read-state
// synchronization against the backend.
package notification

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/farmbridge/notify/internal/errors"
)

// Kind discriminates the producer type of a notification.
type Kind string

const (
	// KindAlert marks pest/disease alert notifications, the only kind this
	// client acts on. Other kinds may appear in the stream and are ignored.
	KindAlert Kind = "alert"
)

// Sentinel errors for notification operations
var (
	ErrNotificationNotFound = errors.Newf("notification not found").Component("notification").Category(errors.CategoryNotFound).Build()
)

// Notification represents a single notification surfaced to the user.
type Notification struct {
	// ID is the unique identifier, stable across snapshot and push delivery
	ID string `json:"id"`
	// Kind categorizes the producer
	Kind Kind `json:"kind"`
	// Title is a short summary; may be empty when Message carries the text
	Title string `json:"title"`
	// Message provides detailed information; may be empty when Title carries the text
	Message string `json:"message"`
	// CreatedAt is the origination timestamp; nil values sort last
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	// IsRead tracks the read transition
	IsRead bool `json:"isRead"`
	// ReadAt is set at the moment of the read transition
	ReadAt *time.Time `json:"readAt,omitempty"`
	// Fields holds the raw wire record. Producers are not consistent about
	// field names, so the correlation resolver works from this bag rather
	// than the typed fields above.
	Fields map[string]any `json:"-"`
}

// idFieldNames are the wire field names an identifier may arrive under,
// in priority order. Snapshot records use "id", push payloads have been
// observed with "notificationId" and "_id".
var idFieldNames = []string{"id", "notificationId", "_id"}

// kindFieldNames are the wire field names the producer discriminator may
// arrive under.
var kindFieldNames = []string{"kind", "type"}

// UnmarshalJSON decodes a notification from its wire shape, tolerating the
// identifier and kind appearing under alternate field names and numeric
// identifiers.
func (n *Notification) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	n.Fields = raw
	n.ID = stringField(raw, idFieldNames...)
	n.Kind = Kind(stringField(raw, kindFieldNames...))
	n.Title = stringField(raw, "title")
	n.Message = stringField(raw, "message")

	if v, ok := raw["isRead"].(bool); ok {
		n.IsRead = v
	}
	if t := timeField(raw, "createdAt", "created_at"); t != nil {
		n.CreatedAt = t
	}
	if t := timeField(raw, "readAt", "read_at"); t != nil {
		n.ReadAt = t
		n.IsRead = true // presence of readAt implies read
	}

	return nil
}

// stringField returns the first non-empty value under the given keys,
// rendering numbers as their decimal form.
func stringField(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// timeField parses the first RFC3339 timestamp found under the given keys.
func timeField(raw map[string]any, keys ...string) *time.Time {
	for _, key := range keys {
		s, ok := raw[key].(string)
		if !ok || s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return &t
		}
	}
	return nil
}

// MarkAsRead sets the read flag and timestamp.
func (n *Notification) MarkAsRead() {
	if n.IsRead {
		return
	}
	n.IsRead = true
	now := time.Now()
	n.ReadAt = &now
}

// Clone creates a copy of the notification, including the raw field bag,
// so broadcast consumers cannot mutate cached state.
func (n *Notification) Clone() *Notification {
	if n == nil {
		return nil
	}

	clone := *n

	if n.CreatedAt != nil {
		createdAt := *n.CreatedAt
		clone.CreatedAt = &createdAt
	}
	if n.ReadAt != nil {
		readAt := *n.ReadAt
		clone.ReadAt = &readAt
	}
	if n.Fields != nil {
		fields := make(map[string]any, len(n.Fields))
		for k, v := range n.Fields {
			fields[k] = v
		}
		clone.Fields = fields
	}

	return &clone
}

// Cache is the thread-safe in-memory source of truth for the session's
// notifications. Push-delivered entries are prepended, snapshot order is
// kept, and entries are deduplicated by id. The cache is rebuilt from the
// snapshot on every session start; it has no persistence of its own.
type Cache struct {
	mu          sync.RWMutex
	entries     map[string]*Notification
	order       []string // consumer-visible order, newest first
	maxSize     int
	unreadCount int
}

// DefaultMaxNotifications bounds the cache when no explicit limit is
// configured. Long sessions evict the oldest entries past this point.
const DefaultMaxNotifications = 1000

// NewCache creates a notification cache bounded to maxSize entries.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxNotifications
	}

	return &Cache{
		entries: make(map[string]*Notification),
		maxSize: maxSize,
	}
}

// Upsert inserts a pushed notification at the head of the order, or merges
// it into the existing entry when the id is already present. The merge
// never regresses a read entry back to unread, so a replayed delivery
// cannot resurrect an alert the user already opened. Records without a
// resolvable id are dropped; there is nothing to deduplicate them by.
func (c *Cache) Upsert(n *Notification) {
	if n == nil || n.ID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[n.ID]; ok {
		c.merge(existing, n)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	clone := n.Clone()
	c.entries[clone.ID] = clone
	c.order = append([]string{clone.ID}, c.order...)
	if !clone.IsRead {
		c.unreadCount++
	}
}

// LoadSnapshot merges the authoritative history into the cache. Entries
// already present from the push channel are updated in place instead of
// duplicated; new snapshot entries keep their server order behind any
// pushed ones.
func (c *Cache) LoadSnapshot(items []*Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, n := range items {
		if n == nil || n.ID == "" {
			continue
		}

		if existing, ok := c.entries[n.ID]; ok {
			c.merge(existing, n)
			continue
		}

		if len(c.entries) >= c.maxSize {
			break
		}

		clone := n.Clone()
		c.entries[clone.ID] = clone
		c.order = append(c.order, clone.ID)
		if !clone.IsRead {
			c.unreadCount++
		}
	}
}

// merge copies the fields present in the incoming record onto the existing
// entry, preserving the read transition. Caller holds the lock.
func (c *Cache) merge(existing, incoming *Notification) {
	if incoming.Title != "" {
		existing.Title = incoming.Title
	}
	if incoming.Message != "" {
		existing.Message = incoming.Message
	}
	if incoming.Kind != "" {
		existing.Kind = incoming.Kind
	}
	if incoming.CreatedAt != nil {
		createdAt := *incoming.CreatedAt
		existing.CreatedAt = &createdAt
	}
	if incoming.Fields != nil {
		existing.Fields = incoming.Clone().Fields
	}

	// Read state is monotonic: a replay carrying isRead=false must not
	// flip a read entry back to unread.
	if incoming.IsRead && !existing.IsRead {
		existing.IsRead = true
		if incoming.ReadAt != nil {
			readAt := *incoming.ReadAt
			existing.ReadAt = &readAt
		} else {
			now := time.Now()
			existing.ReadAt = &now
		}
		c.unreadCount--
	}
}

// MarkRead applies a local read transition. Unknown ids are a silent
// no-op.
func (c *Cache) MarkRead(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[id]
	if !ok || n.IsRead {
		return
	}

	n.MarkAsRead()
	c.unreadCount--
}

// Get retrieves a copy of a notification by id.
func (c *Cache) Get(id string) (*Notification, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n, ok := c.entries[id]; ok {
		return n.Clone(), nil
	}
	return nil, ErrNotificationNotFound
}

// List returns copies of all notifications in consumer-visible order:
// pushed entries newest first, then the snapshot in server order.
func (c *Cache) List() []*Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()

	results := make([]*Notification, 0, len(c.order))
	for _, id := range c.order {
		if n, ok := c.entries[id]; ok {
			results = append(results, n.Clone())
		}
	}
	return results
}

// UnreadCount returns the number of unread notifications.
func (c *Cache) UnreadCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.unreadCount
}

// Len returns the number of cached notifications.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictOldest removes the entry at the tail of the order. Caller holds the
// lock.
func (c *Cache) evictOldest() {
	if len(c.order) == 0 {
		return
	}

	oldestID := c.order[len(c.order)-1]
	c.order = c.order[:len(c.order)-1]

	if n, ok := c.entries[oldestID]; ok {
		if !n.IsRead {
			c.unreadCount--
		}
		delete(c.entries, oldestID)
	}
}
