// Package services holds the client's application layer: the sync engine,
// authentication flows, and review operations. Services sit between the CLI
// and the repositories/gateway, and every operation is scoped to the owner
// the session held when it started.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/encorehq/encore/internal/client/httpx"
	"github.com/encorehq/encore/internal/client/identity"
	"github.com/encorehq/encore/internal/client/models"
	"github.com/encorehq/encore/internal/client/remote"
	"github.com/encorehq/encore/internal/client/repositories/concerts"
	"github.com/encorehq/encore/internal/common"
	"github.com/encorehq/encore/internal/logging"
)

// SyncService reconciles the local mirror with the remote store. All remote
// work runs on the session's epoch context, so a sign-out mid-sync aborts
// the in-flight cycle instead of writing into the wrong owner scope.
type SyncService struct {
	log      logging.Logger
	store    remote.Store
	concerts concerts.Repository
	session  *identity.Session

	// serializes sync cycles; saves and unsaves do not take it
	syncMu sync.Mutex

	now func() time.Time
}

func NewSyncService(log logging.Logger, store remote.Store, repo concerts.Repository, session *identity.Session) *SyncService {
	return &SyncService{
		log:      log,
		store:    store,
		concerts: repo,
		session:  session,
		now:      time.Now,
	}
}

// Sync runs one full cycle for the current owner: merge remote state into
// the mirror, then push pending local rows. Guests have nothing remote, so
// the cycle is a no-op for them. If the identity changes while the cycle is
// queued behind another one, the stale cycle is dropped.
func (s *SyncService) Sync(ctx context.Context, trigger string) error {
	owner := s.session.Current()
	if owner.IsGuest() {
		return nil
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	if s.session.Current() != owner {
		s.log.Info(ctx, "dropping stale sync cycle", "trigger", trigger, "owner", owner.ID())
		return nil
	}

	epoch := s.session.Context()
	s.log.Info(ctx, "sync started", "trigger", trigger, "owner", owner.ID())

	if err := s.MergeRemoteIntoLocal(epoch, owner); err != nil {
		return fmt.Errorf("sync merge: %w", err)
	}
	if err := s.PushPending(epoch, owner); err != nil {
		return fmt.Errorf("sync push: %w", err)
	}

	s.log.Info(ctx, "sync finished", "trigger", trigger, "owner", owner.ID())
	return nil
}

// Run consumes the session's identity-change feed until ctx ends, firing a
// sync cycle on every sign-in. Long-lived callers (the watch daemon) start
// this so a login is reconciled without an explicit sync command; failures
// are logged, never fatal.
func (s *SyncService) Run(ctx context.Context) {
	changes := s.session.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-changes:
			if change.Event != identity.EventSignedIn {
				continue
			}
			if err := s.Sync(ctx, "sign-in"); err != nil {
				s.log.Warn(ctx, "sign-in sync failed", "error", err)
			}
		}
	}
}

// MergeRemoteIntoLocal folds the owner's remote saves into the mirror.
// Remote rows overwrite local display fields; local-only notes survive, and
// rows the remote does not mention are left alone. The merge never deletes:
// a pending local save missing remotely is exactly what the next push is
// for.
func (s *SyncService) MergeRemoteIntoLocal(ctx context.Context, owner identity.Owner) error {
	rows, err := s.store.LoadSavedSetlists(ctx, owner)
	if err != nil {
		return fmt.Errorf("loading remote saves: %w", err)
	}

	now := s.now().UTC()
	for _, row := range rows {
		if err := s.mergeOne(ctx, owner, row, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *SyncService) mergeOne(ctx context.Context, owner identity.Owner, row models.SetlistRow, now time.Time) error {
	local, err := s.concerts.GetByKey(ctx, row.ID, owner)
	switch {
	case errors.Is(err, common.ErrNotFound):
		local = &models.SavedConcert{SetlistID: row.ID, Owner: owner}
	case err != nil:
		return fmt.Errorf("reading mirror row %s: %w", row.ID, err)
	}

	local.ArtistName = row.ArtistName
	local.VenueName = row.VenueName
	local.City = row.City
	local.Country = row.Country
	local.EventDate = models.ParseYMD(row.EventDate)
	local.Songs = row.Songs
	local.AttributionURL = row.AttributionURL
	local.PendingPush = false
	local.LastSyncAt = &now

	if err := s.concerts.Upsert(ctx, local); err != nil {
		return fmt.Errorf("writing mirror row %s: %w", row.ID, err)
	}
	return nil
}

// PushPending uploads the owner's unconfirmed rows. Each row is pushed
// independently: one failing row is logged and skipped so the rest still
// make it up, and the aggregate error reports what was left behind.
func (s *SyncService) PushPending(ctx context.Context, owner identity.Owner) error {
	pending, err := s.concerts.ListPending(ctx, owner)
	if err != nil {
		return fmt.Errorf("listing pending rows: %w", err)
	}

	var failed []error
	for i := range pending {
		c := &pending[i]
		if err := s.pushOne(ctx, owner, c); err != nil {
			if httpx.IsCancelled(err) {
				return err
			}
			s.log.Warn(ctx, "push failed, row stays pending", "setlist", c.SetlistID, "error", err)
			failed = append(failed, fmt.Errorf("pushing %s: %w", c.SetlistID, err))
		}
	}
	return errors.Join(failed...)
}

func (s *SyncService) pushOne(ctx context.Context, owner identity.Owner, c *models.SavedConcert) error {
	if err := s.store.UpsertSetlist(ctx, setlistRowFrom(c)); err != nil {
		return err
	}
	if err := s.store.SaveToUser(ctx, owner, c.SetlistID, models.FormatYMD(c.EventDate)); err != nil {
		return err
	}

	now := s.now().UTC()
	c.PendingPush = false
	c.LastSyncAt = &now
	return s.concerts.Upsert(ctx, c)
}

// SaveEdge saves a concert for the current owner. Signed-in saves go to the
// remote store first; only when the remote confirms is the mirror row
// written clean. A transient remote failure still queues the row, flagged
// pending so the next sync retries it, but the failure is returned: a save
// is explicit user intent and the caller must surface it. Guest saves are
// local-only and never pending.
func (s *SyncService) SaveEdge(ctx context.Context, c *models.SavedConcert) error {
	owner := s.session.Current()
	c.Owner = owner

	if owner.IsGuest() {
		c.PendingPush = false
		c.LastSyncAt = nil
		return s.concerts.Upsert(ctx, c)
	}

	err := s.saveRemote(ctx, owner, c)
	switch {
	case err == nil:
		now := s.now().UTC()
		c.PendingPush = false
		c.LastSyncAt = &now
		return s.concerts.Upsert(ctx, c)
	case httpx.IsCancelled(err):
		return err
	case errors.Is(err, common.ErrUnauthenticated):
		return err
	default:
		s.log.Warn(ctx, "remote save failed, queueing", "setlist", c.SetlistID, "error", err)
		c.PendingPush = true
		c.LastSyncAt = nil
		if upErr := s.concerts.Upsert(ctx, c); upErr != nil {
			return errors.Join(fmt.Errorf("remote save: %w", err), fmt.Errorf("queueing locally: %w", upErr))
		}
		return fmt.Errorf("remote save: %w", err)
	}
}

func (s *SyncService) saveRemote(ctx context.Context, owner identity.Owner, c *models.SavedConcert) error {
	if err := s.store.UpsertSetlist(ctx, setlistRowFrom(c)); err != nil {
		return err
	}
	return s.store.SaveToUser(ctx, owner, c.SetlistID, models.FormatYMD(c.EventDate))
}

// UnsaveEdge removes a saved concert. For a signed-in owner the remote edge
// must go first: if that delete fails the local row is kept, so the device
// can never show "unsaved" while the server still holds the edge.
func (s *SyncService) UnsaveEdge(ctx context.Context, setlistID string) error {
	owner := s.session.Current()

	if !owner.IsGuest() {
		if err := s.store.UnsaveFromUser(ctx, owner, setlistID); err != nil {
			return fmt.Errorf("remote unsave: %w", err)
		}
	}
	if err := s.concerts.DeleteByKey(ctx, setlistID, owner); err != nil {
		return fmt.Errorf("local unsave: %w", err)
	}
	return nil
}

// ListSaved returns the current owner's mirror rows, newest event first.
func (s *SyncService) ListSaved(ctx context.Context) ([]models.SavedConcert, error) {
	return s.concerts.ListByOwner(ctx, s.session.Current())
}

// GetSaved returns one mirror row for the current owner.
func (s *SyncService) GetSaved(ctx context.Context, setlistID string) (*models.SavedConcert, error) {
	return s.concerts.GetByKey(ctx, setlistID, s.session.Current())
}

// cascade order for account deletion: children before parents, so a failure
// partway leaves no orphaned child rows behind.
var deleteCascade = []string{
	remote.CollectionReviewVotes,
	remote.CollectionReviews,
	remote.CollectionUserSetlists,
	remote.CollectionProfiles,
}

// DeleteAllOwnedContent removes everything the owner has on the remote
// store, in cascade order, then wipes the owner's mirror rows. Any remote
// step failing aborts the cascade so it can be retried from the top.
func (s *SyncService) DeleteAllOwnedContent(ctx context.Context) error {
	owner := s.session.Current()
	if owner.IsGuest() {
		return fmt.Errorf("delete account: %w", common.ErrUnauthenticated)
	}

	for _, collection := range deleteCascade {
		if err := s.store.DeleteAllForOwner(ctx, collection, owner); err != nil {
			return fmt.Errorf("deleting %s: %w", collection, err)
		}
	}
	if err := s.concerts.DeleteAllForOwner(ctx, owner); err != nil {
		return fmt.Errorf("wiping mirror: %w", err)
	}
	return nil
}

func setlistRowFrom(c *models.SavedConcert) models.SetlistRow {
	return models.SetlistRow{
		ID:             c.SetlistID,
		ArtistName:     c.ArtistName,
		VenueName:      c.VenueName,
		City:           c.City,
		Country:        c.Country,
		EventDate:      models.FormatYMD(c.EventDate),
		Songs:          c.Songs,
		AttributionURL: c.AttributionURL,
	}
}
