package domain

import "time"

// KbArticle is a knowledge-base entry. Only published articles are
// visible to clients; drafts are gated to TECH-and-above.
type KbArticle struct {
	ID          string
	Title       string
	Content     string
	IsPublished bool
	Author      UserRef
	Category    *Category
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EditableBy reports whether the user may edit or delete the article:
// managers and above always can, technicians only their own articles.
func (a *KbArticle) EditableBy(user *User) bool {
	if user == nil {
		return false
	}
	if user.Role.AtLeast(RoleManager) {
		return true
	}
	return a.Author.ID == user.ID
}
