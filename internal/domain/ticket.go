package domain

import "time"

// Ticket is the aggregate for support requests. Reference snapshots
// (status, priority, category, creator, assignee) are populated on read
// so callers can evaluate labels without extra lookups.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Status      Status
	Priority    Priority
	Category    Category
	Creator     *UserRef
	Assignee    *UserRef
	SlaDueAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// IsTrashed reports whether the ticket is soft-deleted. Trashed tickets
// are excluded from every normal listing and aggregate and are only
// reachable through the trash views until restored or purged.
func (t *Ticket) IsTrashed() bool {
	return t.DeletedAt != nil
}

// IsAssigned reports whether the ticket currently has an assignee.
func (t *Ticket) IsAssigned() bool {
	return t.Assignee != nil
}

// CreatedBy reports whether the given user is the ticket's creator.
func (t *Ticket) CreatedBy(userID string) bool {
	return t.Creator != nil && t.Creator.ID == userID
}

// AssignedTo reports whether the given user is the ticket's assignee.
func (t *Ticket) AssignedTo(userID string) bool {
	return t.Assignee != nil && t.Assignee.ID == userID
}

// IsLate reports whether the ticket breached its SLA: the due date has
// passed and the status label is not in the done set. Tickets without an
// SLA due date are never late.
func (t *Ticket) IsLate(ref time.Time, doneLabels LabelSet) bool {
	if t.SlaDueAt == nil {
		return false
	}
	if doneLabels.Contains(t.Status.Label) {
		return false
	}
	return t.SlaDueAt.Before(ref)
}

// LabelSet is a case-sensitive membership lookup over status labels.
// Statuses are free-text reference data, so logical states (open,
// in progress, resolved, closed) are resolved by set membership rather
// than by an enumerated code.
type LabelSet map[string]struct{}

// NewLabelSet builds a set from the given labels.
func NewLabelSet(labels ...string) LabelSet {
	set := make(LabelSet, len(labels))
	for _, label := range labels {
		set[label] = struct{}{}
	}
	return set
}

// Contains reports membership.
func (s LabelSet) Contains(label string) bool {
	_, ok := s[label]
	return ok
}

// Union returns a new set holding the labels of both sets.
func (s LabelSet) Union(other LabelSet) LabelSet {
	merged := make(LabelSet, len(s)+len(other))
	for label := range s {
		merged[label] = struct{}{}
	}
	for label := range other {
		merged[label] = struct{}{}
	}
	return merged
}

// Labels returns the members in unspecified order.
func (s LabelSet) Labels() []string {
	labels := make([]string, 0, len(s))
	for label := range s {
		labels = append(labels, label)
	}
	return labels
}
