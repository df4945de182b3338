package audience

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlive/backend/internal/models"
)

// ListService is the external audience-list collaborator.
type ListService interface {
	CreateList(ctx context.Context, name string) (string, error)
	GetMembers(ctx context.Context, listID string) ([]string, error)
	UpdateMembers(ctx context.Context, listID string, toAdd, toRemove []string) error
	ResolveOrCreateContact(ctx context.Context, email, fullName string) (string, error)
}

// WebinarStore is the webinar-side contract for reconciliation.
type WebinarStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
	SetAudienceListID(ctx context.Context, id uuid.UUID, listID string) error
}

// RosterStore lists the attendees whose contacts mirror into the list.
type RosterStore interface {
	ListByWebinar(ctx context.Context, webinarID uuid.UUID) ([]models.AttendanceRecord, error)
}

// Result reports what a reconciliation applied.
type Result struct {
	ListID  string `json:"list_id"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
}

// Reconciler converges the external list membership to the current roster.
// Reconcile is a pure function of desired vs current state: re-running it with
// an unchanged roster applies nothing.
type Reconciler struct {
	webinars WebinarStore
	roster   RosterStore
	lists    ListService
	logger   *zap.Logger
}

// NewReconciler creates an audience reconciler.
func NewReconciler(webinars WebinarStore, roster RosterStore, lists ListService, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{webinars: webinars, roster: roster, lists: lists, logger: logger}
}

// Reconcile resolves every attendee to an external contact, lazily creates the
// list on first sync, then applies the minimal add/remove delta.
func (r *Reconciler) Reconcile(ctx context.Context, webinarID uuid.UUID) (*Result, error) {
	w, err := r.webinars.GetByID(ctx, webinarID)
	if err != nil {
		return nil, err
	}
	attendees, err := r.roster.ListByWebinar(ctx, webinarID)
	if err != nil {
		return nil, err
	}

	// Resolve the desired contact-id set. Contact resolution is an idempotent
	// upsert, and the set is deduplicated: two attendees sharing an email
	// resolve to one contact.
	desired := make(map[string]struct{}, len(attendees))
	for _, a := range attendees {
		contactID, err := r.lists.ResolveOrCreateContact(ctx, a.Email, a.FullName)
		if err != nil {
			return nil, err
		}
		desired[contactID] = struct{}{}
	}

	if w.AudienceListID == nil {
		listID, err := r.lists.CreateList(ctx, w.Slug)
		if err != nil {
			return nil, err
		}
		toAdd := sortedKeys(desired)
		if err := r.lists.UpdateMembers(ctx, listID, toAdd, nil); err != nil {
			return nil, err
		}
		if err := r.webinars.SetAudienceListID(ctx, webinarID, listID); err != nil {
			return nil, err
		}
		r.logger.Info("audience list created",
			zap.String("webinar_id", webinarID.String()),
			zap.String("list_id", listID),
			zap.Int("members", len(toAdd)),
		)
		return &Result{ListID: listID, Added: len(toAdd)}, nil
	}

	listID := *w.AudienceListID
	current, err := r.lists.GetMembers(ctx, listID)
	if err != nil {
		return nil, err
	}
	currentSet := make(map[string]struct{}, len(current))
	for _, id := range current {
		currentSet[id] = struct{}{}
	}

	var toAdd, toRemove []string
	for id := range desired {
		if _, ok := currentSet[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	for id := range currentSet {
		if _, ok := desired[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	sort.Strings(toAdd)
	sort.Strings(toRemove)

	if err := r.lists.UpdateMembers(ctx, listID, toAdd, toRemove); err != nil {
		return nil, err
	}
	r.logger.Info("audience list reconciled",
		zap.String("webinar_id", webinarID.String()),
		zap.String("list_id", listID),
		zap.Int("added", len(toAdd)),
		zap.Int("removed", len(toRemove)),
	)
	return &Result{ListID: listID, Added: len(toAdd), Removed: len(toRemove)}, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
