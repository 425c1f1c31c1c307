package domain

import "time"

// Attachment stores metadata for a file attached to a ticket. The
// backing file lives under the storage root at FilePath; both the row
// and the file are removed together when the ticket is purged.
type Attachment struct {
	ID        string
	TicketID  string
	FilePath  string
	FileName  string
	MimeType  string
	SizeBytes int64
	CreatedAt time.Time
}
