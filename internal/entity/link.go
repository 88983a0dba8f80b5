// Package entity defines the entities and errors used in the application.
// It includes the Link struct, which maps a short code to its target URL, the
// AccessRecord struct, which stores one enriched access of a link, and the
// errors shared between the use case and adapter layers.
package entity

import "time"

// Link represents a shortened URL.
type Link struct {
	ID             int64      // ID is the unique identifier of the link in the database.
	Code           string     // Code is the generated short code that resolves to TargetURL.
	TargetURL      string     // TargetURL is the full URL the short code resolves to.
	OwnerID        *string    // OwnerID is the identity of the creator, nil when auth is disabled.
	ClickCount     int64      // ClickCount is the number of successful resolutions.
	CreatedAt      time.Time  // CreatedAt is the timestamp when the link was created.
	LastAccessedAt *time.Time // LastAccessedAt is the timestamp of the last resolution, nil until the first one.
}

// OwnedBy reports whether the link may be inspected by callerID.
// Links without an owner are public.
func (l *Link) OwnedBy(callerID *string) bool {
	if l.OwnerID == nil {
		return true
	}
	return callerID != nil && *callerID == *l.OwnerID
}

// ShortLink is the result of shortening a URL.
type ShortLink struct {
	Link
	ShortURL string // ShortURL is the public base URL joined with the code.
}

// LinkStats is a link together with its most recent access records.
type LinkStats struct {
	Link
	Accesses []AccessRecord
}
