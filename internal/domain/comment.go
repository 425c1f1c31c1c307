package domain

import "time"

// TicketComment is a reply in a ticket thread. Internal comments are
// visible to TECH-and-above viewers only.
type TicketComment struct {
	ID         string
	TicketID   string
	Author     UserRef
	Content    string
	IsInternal bool
	CreatedAt  time.Time
}

// VisibleTo reports whether the viewer role may see the comment.
func (c *TicketComment) VisibleTo(role Role) bool {
	if !c.IsInternal {
		return true
	}
	return role.AtLeast(RoleTech)
}
