package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"hostelpass.org/internal/directory"
	"hostelpass.org/internal/ids"
	"hostelpass.org/internal/store"
)

// RecipientWarden is the pooled recipient: any viewer with warden capability
// sees these, instead of a specific user id.
const RecipientWarden = "WARDEN"

// Category classifies a notification for display.
type Category string

const (
	CategoryInfo    Category = "info"
	CategorySuccess Category = "success"
	CategoryError   Category = "error"
)

// Notification is one message addressed to a student or the warden pool.
// Records are never deleted; the only mutation is marking as read.
type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
	Category    Category  `json:"category"`
}

// Service creates and lists notifications on top of the record store.
type Service struct {
	mu    sync.Mutex
	store store.Store
	now   func() time.Time
}

func NewService(s store.Store) *Service {
	return &Service{store: s, now: func() time.Time { return time.Now().UTC() }}
}

// Notify appends an unread notification for the recipient. No deduplication:
// repeated calls produce repeated records.
func (s *Service) Notify(ctx context.Context, recipientID, message string, category Category) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := store.Load[Notification](ctx, s.store, store.Notifications)
	if err != nil {
		return Notification{}, err
	}
	n := Notification{
		ID:          ids.New(),
		RecipientID: recipientID,
		Message:     message,
		IsRead:      false,
		CreatedAt:   s.now(),
		Category:    category,
	}
	updated := append([]Notification{n}, all...)
	if err := store.Save(ctx, s.store, store.Notifications, updated); err != nil {
		return Notification{}, err
	}
	return n, nil
}

// ListFor returns the viewer's notifications, newest first. Wardens
// additionally see everything addressed to the warden pool. Ties on
// CreatedAt keep stored (insertion) order.
func (s *Service) ListFor(ctx context.Context, viewerID string, role directory.Role) ([]Notification, error) {
	all, err := store.Load[Notification](ctx, s.store, store.Notifications)
	if err != nil {
		return nil, err
	}
	var out []Notification
	for _, n := range all {
		if n.RecipientID == viewerID || (role == directory.RoleWarden && n.RecipientID == RecipientWarden) {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// MarkRead flips the notification to read. Idempotent; unknown ids are a
// no-op, matching the tolerant mark-as-read contract.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := store.Load[Notification](ctx, s.store, store.Notifications)
	if err != nil {
		return err
	}
	changed := false
	for i := range all {
		if all[i].ID == id && !all[i].IsRead {
			all[i].IsRead = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return store.Save(ctx, s.store, store.Notifications, all)
}
