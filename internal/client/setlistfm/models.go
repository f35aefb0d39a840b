package setlistfm

import "time"

// Wire types for the search provider. Shapes follow the provider's JSON;
// every nested level is optional in practice, so accessors below do the
// nil-walking once.

type ArtistSummary struct {
	Name string `json:"name"`
	MBID string `json:"mbid,omitempty"`
}

type Country struct {
	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`
}

type City struct {
	Name      string   `json:"name,omitempty"`
	State     string   `json:"state,omitempty"`
	StateCode string   `json:"stateCode,omitempty"`
	Country   *Country `json:"country,omitempty"`
}

type Venue struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	City *City  `json:"city,omitempty"`
}

type Song struct {
	Name string `json:"name,omitempty"`
}

type SetBlock struct {
	Name string `json:"name,omitempty"`
	Song []Song `json:"song,omitempty"`
}

type Sets struct {
	Set []SetBlock `json:"set,omitempty"`
}

type Setlist struct {
	ID        string        `json:"id"`
	EventDate string        `json:"eventDate,omitempty"` // dd-MM-yyyy
	Artist    ArtistSummary `json:"artist"`
	Venue     *Venue        `json:"venue,omitempty"`
	Sets      *Sets         `json:"sets,omitempty"`
	URL       string        `json:"url,omitempty"`
}

// listEnvelope is the provider's paging envelope. The entity key varies by
// endpoint.
type listEnvelope struct {
	Type         string          `json:"type,omitempty"`
	ItemsPerPage int             `json:"itemsPerPage,omitempty"`
	Page         int             `json:"page,omitempty"`
	Total        int             `json:"total,omitempty"`
	Setlist      []Setlist       `json:"setlist,omitempty"`
	Artist       []ArtistSummary `json:"artist,omitempty"`
	Venue        []Venue         `json:"venue,omitempty"`
}

// eventDateLayout is the provider's date format for both the eventDate field
// and the date search parameter.
const eventDateLayout = "02-01-2006"

// EventTime parses the setlist's event date. Nil when absent or malformed.
func (s Setlist) EventTime() *time.Time {
	if s.EventDate == "" {
		return nil
	}
	t, err := time.ParseInLocation(eventDateLayout, s.EventDate, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}

// SongNames flattens the set blocks into a single ordered song list.
func (s Setlist) SongNames() []string {
	if s.Sets == nil {
		return nil
	}
	var names []string
	for _, block := range s.Sets.Set {
		for _, song := range block.Song {
			if song.Name != "" {
				names = append(names, song.Name)
			}
		}
	}
	return names
}

// VenueName returns the venue name, or "".
func (s Setlist) VenueName() string {
	if s.Venue == nil {
		return ""
	}
	return s.Venue.Name
}

// CityName returns the venue's city name, or "".
func (s Setlist) CityName() string {
	if s.Venue == nil || s.Venue.City == nil {
		return ""
	}
	return s.Venue.City.Name
}

// CountryName prefers the country's display name over its code.
func (s Setlist) CountryName() string {
	if s.Venue == nil || s.Venue.City == nil || s.Venue.City.Country == nil {
		return ""
	}
	if s.Venue.City.Country.Name != "" {
		return s.Venue.City.Country.Name
	}
	return s.Venue.City.Country.Code
}
