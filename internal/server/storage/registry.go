// Package storage implements the server's generic collection store: a
// registry of exposed tables with their authorization rules, and SQL
// builders for the upsert/select/delete verbs the HTTP API offers.
package storage

import (
	"fmt"

	"github.com/encorehq/encore/internal/common"
)

// Column describes one exposed table column. Nullable columns store empty
// client values as NULL so DATE and similar types stay clean.
type Column struct {
	Name     string
	Nullable bool
}

// Collection is one table exposed through the generic verbs.
//
// OwnerColumn, when set, scopes rows to the authenticated user: writes must
// carry the caller's id in that column, and deletes must filter on it.
// Collections without an owner column are shared caches writable by any
// authenticated user and never deletable through the API.
type Collection struct {
	Name        string
	Columns     []Column
	OwnerColumn string
}

func (c Collection) column(name string) (Column, bool) {
	for _, col := range c.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// Registry returns the exposed collections keyed by name.
func Registry() map[string]Collection {
	list := []Collection{
		{
			Name: "setlists",
			Columns: []Column{
				{Name: "id"}, {Name: "artist_name"}, {Name: "venue_name"},
				{Name: "city"}, {Name: "country"}, {Name: "event_date", Nullable: true},
				{Name: "songs"}, {Name: "attribution_url"},
			},
		},
		{
			Name:        "user_setlists",
			OwnerColumn: "user_id",
			Columns: []Column{
				{Name: "user_id"}, {Name: "setlist_id"},
				{Name: "attended_on", Nullable: true},
			},
		},
		{
			Name:        "reviews",
			OwnerColumn: "user_id",
			Columns: []Column{
				{Name: "id"}, {Name: "user_id"}, {Name: "setlist_id"},
				{Name: "rating"}, {Name: "comment"},
			},
		},
		{
			Name:        "review_votes",
			OwnerColumn: "user_id",
			Columns: []Column{
				{Name: "review_id"}, {Name: "user_id"}, {Name: "value"},
			},
		},
		{
			Name:        "profiles",
			OwnerColumn: "id",
			Columns: []Column{
				{Name: "id"}, {Name: "username"}, {Name: "display_name"},
				{Name: "avatar_url"}, {Name: "email"},
			},
		},
	}

	out := make(map[string]Collection, len(list))
	for _, c := range list {
		out[c.Name] = c
	}
	return out
}

// AuthorizeWrite checks that row may be upserted by userID: only known
// columns, and owned collections carry the caller's id in the owner column.
func (c Collection) AuthorizeWrite(row map[string]any, userID string) error {
	for name := range row {
		if _, ok := c.column(name); !ok {
			return fmt.Errorf("unknown column %q in %s", name, c.Name)
		}
	}
	if c.OwnerColumn == "" {
		return nil
	}
	owner, _ := row[c.OwnerColumn].(string)
	if owner == "" || owner != userID {
		return fmt.Errorf("%w: %s rows must carry the caller in %s",
			common.ErrUnauthenticated, c.Name, c.OwnerColumn)
	}
	return nil
}

// AuthorizeDelete checks that filters name only known columns and pin the
// owner column to the caller. Shared collections cannot be deleted from.
func (c Collection) AuthorizeDelete(filters map[string]any, userID string) error {
	if c.OwnerColumn == "" {
		return fmt.Errorf("%w: %s is not deletable", common.ErrUnauthenticated, c.Name)
	}
	for name := range filters {
		if _, ok := c.column(name); !ok {
			return fmt.Errorf("unknown column %q in %s", name, c.Name)
		}
	}
	owner, _ := filters[c.OwnerColumn].(string)
	if owner == "" || owner != userID {
		return fmt.Errorf("%w: deletes on %s require an owner filter",
			common.ErrUnauthenticated, c.Name)
	}
	return nil
}

// ValidateFilters checks a select's filter columns.
func (c Collection) ValidateFilters(filters map[string]any) error {
	for name := range filters {
		if _, ok := c.column(name); !ok {
			return fmt.Errorf("unknown column %q in %s", name, c.Name)
		}
	}
	return nil
}
