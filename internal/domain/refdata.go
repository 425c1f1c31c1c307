package domain

// Category classifies tickets (Hardware, Software, ...). Labels are
// unique within the type.
type Category struct {
	ID    string
	Label string
}

// Priority ranks ticket urgency. Level 1 is the most urgent; the SLA
// clock is derived from Level at creation time.
type Priority struct {
	ID    string
	Label string
	Level int
}

// Status is an open-ended reference value, not a fixed enum: deployments
// seed their own labels (possibly localized) and the lifecycle engine
// matches them against configured label sets.
type Status struct {
	ID    string
	Label string
}
