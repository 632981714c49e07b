package models

import "time"

// RoleEnterprise unlocks batch shortening.
const RoleEnterprise = "ENTERPRISE"

// URL represents a shortened URL and its associated metadata.
type URL struct {
	// ID is the unique identifier for the shortened URL record.
	ID int64
	// ShortCode is the code associated with the original URL. It is unique
	// across all records, soft-deleted ones included.
	ShortCode string
	// CustomCode is set when the code was chosen by the caller rather than generated.
	CustomCode string
	// OriginalURL is the original, full-length URL that the short code points to.
	OriginalURL string
	// Visits tracks the number of successful resolutions. It never decreases.
	Visits int64
	// IsActive is false once the record is soft-deleted. Inactive records
	// don't resolve but keep their short code reserved.
	IsActive bool
	// ExpiryDate, when set and in the past, makes resolution fail.
	ExpiryDate *time.Time
	// Password, when non-empty, gates resolution on an exact match.
	Password string
	// OwnerID references the owning user. It never changes after creation.
	OwnerID int64
	// CreatedAt is the timestamp indicating when the shortened URL was created.
	CreatedAt time.Time
	// LastAccessedAt is updated on every successful resolution.
	LastAccessedAt *time.Time
}

// User is the principal URLs are owned by.
type User struct {
	ID       int64
	Username string
	Role     string
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role string) bool {
	return u.Role == role
}
