package chat

import "time"

// PresenceStatus mirrors the presence_status lookup table
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
)

// Valid reports whether s is one of the known statuses.
func (s PresenceStatus) Valid() bool {
	return s == PresenceOnline || s == PresenceOffline
}

// Participant is a user that can take part in conversations.
// LastSeen is the last-activity instant; zero when never recorded.
type Participant struct {
	ID       string         `db:"id" json:"id"`
	Name     string         `db:"name" json:"name"`
	LastName string         `db:"last_name" json:"lastName"`
	Email    string         `db:"email" json:"email"`
	Phone    *string        `db:"phone" json:"phone,omitempty"`
	Photo    *string        `db:"photo" json:"photo,omitempty"`
	Status   PresenceStatus `db:"status" json:"status"`
	LastSeen time.Time      `db:"last_seen" json:"lastSeen"`
}

// ProfileUpdate is the partial field set accepted by profile edits.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Name     *string
	LastName *string
	Phone    *string
	Photo    *string
	Status   *PresenceStatus
}

// Empty reports whether the update carries no field at all.
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.LastName == nil && u.Phone == nil && u.Photo == nil && u.Status == nil
}
