package pass

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"hostelpass.org/internal/directory"
	"hostelpass.org/internal/enrich"
	"hostelpass.org/internal/ids"
	"hostelpass.org/internal/notify"
	"hostelpass.org/internal/store"
)

// Service owns the pass lifecycle: creation, status transitions and the
// notifications both emit. All mutation is read-all/replace-all against the
// record store; the mutex serializes writers within this process.
type Service struct {
	mu       sync.Mutex
	store    store.Store
	notes    *notify.Service
	enricher enrich.Enricher
	now      func() time.Time
}

func NewService(s store.Store, notes *notify.Service, enricher enrich.Enricher) *Service {
	return &Service{
		store:    s,
		notes:    notes,
		enricher: enricher,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new PENDING pass for the requester and notifies the warden
// pool. Enrichment runs synchronously before the write so the stored record
// always carries a risk annotation; its fallback guarantees it cannot fail.
func (s *Service) Create(ctx context.Context, requester directory.User, kind Kind, reason, destination string, departureAt, returnAt time.Time) (Pass, error) {
	if !kind.Valid() {
		return Pass{}, ErrInvalidKind
	}

	annotation := s.enricher.Summarize(ctx, reason, DurationDays(departureAt, returnAt))

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := store.Load[Pass](ctx, s.store, store.Passes)
	if err != nil {
		return Pass{}, err
	}

	p := Pass{
		ID:             ids.New(),
		RequesterID:    requester.ID,
		RequesterName:  requester.Name,
		RoomNumber:     roomOrNA(requester.RoomNumber),
		Kind:           kind,
		Reason:         reason,
		Destination:    destination,
		DepartureAt:    departureAt,
		ReturnAt:       returnAt,
		Status:         StatusPending,
		CreatedAt:      s.now(),
		RiskAnnotation: annotation.Encode(),
	}

	updated := append([]Pass{p}, all...)
	if err := store.Save(ctx, s.store, store.Passes, updated); err != nil {
		return Pass{}, err
	}

	msg := fmt.Sprintf("New %s request from %s", kind.Label(), requester.Name)
	if _, err := s.notes.Notify(ctx, notify.RecipientWarden, msg, notify.CategoryInfo); err != nil {
		return Pass{}, err
	}
	return p, nil
}

// SetStatus transitions a pass to APPROVED or REJECTED and notifies the
// requester. Unknown ids return ErrNotFound with both collections untouched;
// repeating a transition is idempotent in effect.
func (s *Service) SetStatus(ctx context.Context, id string, target Status) (Pass, error) {
	if target != StatusApproved && target != StatusRejected {
		return Pass{}, ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := store.Load[Pass](ctx, s.store, store.Passes)
	if err != nil {
		return Pass{}, err
	}

	idx := -1
	for i := range all {
		if all[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Pass{}, ErrNotFound
	}

	p := all[idx]
	p.Status = target
	if target == StatusApproved {
		// The three-signature flow collapses into one atomic flip.
		p.Stages = ApprovalStages{Mentor: true, Warden: true, ChiefWarden: true}
	}
	all[idx] = p

	if err := store.Save(ctx, s.store, store.Passes, all); err != nil {
		return Pass{}, err
	}

	category := notify.CategorySuccess
	if target == StatusRejected {
		category = notify.CategoryError
	}
	msg := fmt.Sprintf("Your pass to %s has been %s", p.Destination, target)
	if _, err := s.notes.Notify(ctx, p.RequesterID, msg, category); err != nil {
		return Pass{}, err
	}
	return p, nil
}

// List returns the stored collection in insertion order (newest prepended).
func (s *Service) List(ctx context.Context) ([]Pass, error) {
	return store.Load[Pass](ctx, s.store, store.Passes)
}

// ViewFor derives the role-specific view. Students see only their own
// requests, newest first. Any other role sees everything with a stable
// partition: every PENDING pass before every non-PENDING one.
func ViewFor(viewerID string, role directory.Role, all []Pass) []Pass {
	out := make([]Pass, 0, len(all))
	if role == directory.RoleStudent {
		for _, p := range all {
			if p.RequesterID == viewerID {
				out = append(out, p)
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
		return out
	}
	out = append(out, all...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Status == StatusPending && out[j].Status != StatusPending
	})
	return out
}

// DurationDays is the whole-day span fed to enrichment: ceil of the elapsed
// time in days, never negative.
func DurationDays(departureAt, returnAt time.Time) int {
	d := returnAt.Sub(departureAt)
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

func roomOrNA(room string) string {
	if room == "" {
		return "N/A"
	}
	return room
}
