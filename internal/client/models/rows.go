package models

import "time"

// Wire rows for the remote store. Field names follow the remote schema
// (snake_case); dates travel as "yyyy-MM-dd" strings in UTC.

const ymdLayout = "2006-01-02"

// FormatYMD renders a date for the remote store. Nil maps to "".
func FormatYMD(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(ymdLayout)
}

// ParseYMD parses a remote date column. Empty or malformed input yields nil;
// the remote value is best-effort display data, not something to fail a
// merge over.
func ParseYMD(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(ymdLayout, s, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}

// SetlistRow is the shared concert cache row: derived deterministically from
// the upstream source, upserted by id, shared by all users.
type SetlistRow struct {
	ID             string   `json:"id"`
	ArtistName     string   `json:"artist_name"`
	VenueName      string   `json:"venue_name,omitempty"`
	City           string   `json:"city,omitempty"`
	Country        string   `json:"country,omitempty"`
	EventDate      string   `json:"event_date,omitempty"`
	Songs          []string `json:"songs"`
	AttributionURL string   `json:"attribution_url,omitempty"`
}

// UserSetlistWrite is the save edge linking a user to a concert.
type UserSetlistWrite struct {
	UserID     string `json:"user_id"`
	SetlistID  string `json:"setlist_id"`
	AttendedOn string `json:"attended_on,omitempty"`
}

// ReviewWrite upserts a user's review of a concert (one per user+setlist).
type ReviewWrite struct {
	UserID    string `json:"user_id"`
	SetlistID string `json:"setlist_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

// ReviewRead is a review as returned by the reviews_with_users view.
type ReviewRead struct {
	ID        int64  `json:"id"`
	SetlistID string `json:"setlist_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	UserID    string `json:"user_id"`
	Username  string `json:"username,omitempty"`

	ArtistName string `json:"artist_name,omitempty"`
	VenueName  string `json:"venue_name,omitempty"`
	EventDate  string `json:"event_date,omitempty"`

	UpVotes   int `json:"up_votes"`
	DownVotes int `json:"down_votes"`
}

// VoteWrite upserts a user's vote (+1/-1) on a review.
type VoteWrite struct {
	ReviewID int64  `json:"review_id"`
	UserID   string `json:"user_id"`
	Value    int    `json:"value"`
}

// ProfileRow is the user profile record.
type ProfileRow struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Email       string `json:"email,omitempty"`
}
