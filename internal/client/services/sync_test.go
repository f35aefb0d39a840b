package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/encorehq/encore/internal/client/identity"
	"github.com/encorehq/encore/internal/client/models"
	"github.com/encorehq/encore/internal/client/remote"
	"github.com/encorehq/encore/internal/common"
	"github.com/encorehq/encore/internal/logging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedInSession() (*identity.Session, identity.Owner) {
	owner := identity.User(uuid.New())
	s := identity.NewSession()
	s.SignIn(owner, "access", "refresh")
	return s, owner
}

func newSyncFixture(t *testing.T) (*SyncService, *memStore, identity.Owner) {
	t.Helper()
	repos, _ := newTestRepos(t)
	store := newMemStore()
	session, owner := signedInSession()
	svc := NewSyncService(logging.NewNopLogger(), store, repos.Concerts, session)
	return svc, store, owner
}

func remoteRow(id, artist string) models.SetlistRow {
	return models.SetlistRow{
		ID:         id,
		ArtistName: artist,
		VenueName:  "Orpheum",
		City:       "Boston",
		Country:    "United States",
		EventDate:  "2024-06-01",
		Songs:      []string{"Opener", "Closer"},
	}
}

func TestRun_SyncsOnSignIn(t *testing.T) {
	repos, _ := newTestRepos(t)
	store := newMemStore()
	session := identity.NewSession()
	svc := NewSyncService(logging.NewNopLogger(), store, repos.Concerts, session)

	owner := identity.User(uuid.New())
	store.seedRemoteSave(owner, remoteRow("sl-a", "Wilco"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	// re-fire the sign-in until the subscriber is up and has merged
	require.Eventually(t, func() bool {
		session.SignIn(owner, "access", "refresh")
		rows, err := repos.Concerts.ListByOwner(context.Background(), owner)
		return err == nil && len(rows) == 1
	}, time.Second, 10*time.Millisecond)

	got, err := repos.Concerts.GetByKey(context.Background(), "sl-a", owner)
	require.NoError(t, err)
	assert.Equal(t, "Wilco", got.ArtistName)
	assert.False(t, got.PendingPush)
}

func TestMerge_AddsRemoteRowsAndStampsSync(t *testing.T) {
	svc, store, owner := newSyncFixture(t)
	ctx := context.Background()
	store.seedRemoteSave(owner, remoteRow("sl-a", "Wilco"))

	require.NoError(t, svc.MergeRemoteIntoLocal(ctx, owner))

	got, err := svc.concerts.GetByKey(ctx, "sl-a", owner)
	require.NoError(t, err)
	assert.Equal(t, "Wilco", got.ArtistName)
	assert.Equal(t, []string{"Opener", "Closer"}, got.Songs)
	assert.False(t, got.PendingPush)
	require.NotNil(t, got.LastSyncAt)
	require.NotNil(t, got.EventDate)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), got.EventDate.UTC())
}

func TestMerge_PreservesLocalNotesAndIsIdempotent(t *testing.T) {
	svc, store, owner := newSyncFixture(t)
	ctx := context.Background()

	rating := 5
	require.NoError(t, svc.concerts.Upsert(ctx, &models.SavedConcert{
		SetlistID:    "sl-a",
		Owner:        owner,
		ArtistName:   "stale name",
		LocalRating:  &rating,
		LocalComment: "front row!",
		PendingPush:  true,
	}))
	store.seedRemoteSave(owner, remoteRow("sl-a", "Wilco"))

	require.NoError(t, svc.MergeRemoteIntoLocal(ctx, owner))
	require.NoError(t, svc.MergeRemoteIntoLocal(ctx, owner))

	rows, err := svc.concerts.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	got := rows[0]
	assert.Equal(t, "Wilco", got.ArtistName, "remote wins display fields")
	require.NotNil(t, got.LocalRating)
	assert.Equal(t, 5, *got.LocalRating)
	assert.Equal(t, "front row!", got.LocalComment)
	assert.False(t, got.PendingPush)
}

func TestMerge_NeverDeletesLocalRows(t *testing.T) {
	svc, store, owner := newSyncFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.concerts.Upsert(ctx, &models.SavedConcert{
		SetlistID:   "sl-local",
		Owner:       owner,
		ArtistName:  "Local Only",
		PendingPush: true,
	}))
	store.seedRemoteSave(owner, remoteRow("sl-a", "Wilco"))

	require.NoError(t, svc.MergeRemoteIntoLocal(ctx, owner))

	rows, err := svc.concerts.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "a merge must not drop rows the remote does not mention")
}

func TestMerge_OwnerIsolation(t *testing.T) {
	svc, store, owner := newSyncFixture(t)
	ctx := context.Background()
	other := identity.User(uuid.New())

	require.NoError(t, svc.concerts.Upsert(ctx, &models.SavedConcert{
		SetlistID: "sl-other", Owner: other, ArtistName: "Someone Else",
	}))
	require.NoError(t, svc.concerts.Upsert(ctx, &models.SavedConcert{
		SetlistID: "sl-guest", Owner: identity.Guest, ArtistName: "Guest Row",
	}))
	store.seedRemoteSave(owner, remoteRow("sl-a", "Wilco"))

	require.NoError(t, svc.MergeRemoteIntoLocal(ctx, owner))

	mine, err := svc.concerts.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := svc.concerts.ListByOwner(ctx, other)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, "Someone Else", theirs[0].ArtistName)

	guest, err := svc.concerts.ListByOwner(ctx, identity.Guest)
	require.NoError(t, err)
	assert.Len(t, guest, 1)
}

func TestPushPending_UploadsAndClearsFlag(t *testing.T) {
	svc, store, owner := newSyncFixture(t)
	ctx := context.Background()

	d := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.concerts.Upsert(ctx, &models.SavedConcert{
		SetlistID:   "sl-c",
		Owner:       owner,
		ArtistName:  "Big Thief",
		EventDate:   &d,
		Songs:       []string{"Not"},
		PendingPush: true,
	}))

	require.NoError(t, svc.PushPending(ctx, owner))

	assert.Equal(t, 1, store.edgeCount(owner))
	assert.Equal(t, "Big Thief", store.setlists["sl-c"].ArtistName)
	assert.Equal(t, "2024-06-01", store.edges[owner.ID()]["sl-c"])

	got, err := svc.concerts.GetByKey(ctx, "sl-c", owner)
	require.NoError(t, err)
	assert.False(t, got.PendingPush)
	assert.NotNil(t, got.LastSyncAt)
}

func TestPushPending_IsolatesPerRowFailures(t *testing.T) {
	svc, store, owner := newSyncFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.concerts.Upsert(ctx, &models.SavedConcert{
		SetlistID: "sl-1", Owner: owner, ArtistName: "A", PendingPush: true,
	}))
	require.NoError(t, svc.concerts.Upsert(ctx, &models.SavedConcert{
		SetlistID: "sl-2", Owner: owner, ArtistName: "B", PendingPush: true,
	}))

	store.saveToUserErr = common.ErrTransient
	err := svc.PushPending(ctx, owner)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTransient)

	// both rows still pending, nothing was half-confirmed
	pending, err := svc.concerts.ListPending(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	// recovery: the next push drains the queue
	store.saveToUserErr = nil
	require.NoError(t, svc.PushPending(ctx, owner))
	pending, err = svc.concerts.ListPending(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSync_ConvergesMixedState(t *testing.T) {
	// remote knows A and B; the device holds B (with local notes) and a
	// pending C. After one cycle both sides know all three.
	svc, store, owner := newSyncFixture(t)
	ctx := context.Background()

	store.seedRemoteSave(owner, remoteRow("sl-a", "Wilco"))
	store.seedRemoteSave(owner, remoteRow("sl-b", "Big Thief"))

	rating := 4
	require.NoError(t, svc.concerts.Upsert(ctx, &models.SavedConcert{
		SetlistID: "sl-b", Owner: owner, ArtistName: "Big Thief", LocalRating: &rating,
	}))
	require.NoError(t, svc.concerts.Upsert(ctx, &models.SavedConcert{
		SetlistID: "sl-c", Owner: owner, ArtistName: "Mitski", PendingPush: true,
	}))

	require.NoError(t, svc.Sync(ctx, "test"))

	rows, err := svc.concerts.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	for _, r := range rows {
		assert.False(t, r.PendingPush, "cycle must leave nothing pending")
		if r.SetlistID == "sl-b" {
			require.NotNil(t, r.LocalRating)
			assert.Equal(t, 4, *r.LocalRating)
		}
	}
	assert.Equal(t, 3, store.edgeCount(owner))
}

func TestSync_GuestIsNoOp(t *testing.T) {
	repos, _ := newTestRepos(t)
	store := newMemStore()
	store.loadErr = errors.New("must not be called")
	svc := NewSyncService(logging.NewNopLogger(), store, repos.Concerts, identity.NewSession())

	require.NoError(t, svc.Sync(context.Background(), "test"))
}

func TestSaveEdge_SignedInWritesRemoteFirst(t *testing.T) {
	svc, store, owner := newSyncFixture(t)
	ctx := context.Background()

	c := &models.SavedConcert{SetlistID: "sl-a", ArtistName: "Wilco"}
	require.NoError(t, svc.SaveEdge(ctx, c))

	assert.Equal(t, owner, c.Owner)
	assert.False(t, c.PendingPush)
	assert.NotNil(t, c.LastSyncAt)
	assert.Equal(t, 1, store.edgeCount(owner))

	got, err := svc.concerts.GetByKey(ctx, "sl-a", owner)
	require.NoError(t, err)
	assert.False(t, got.PendingPush)
}

func TestSaveEdge_RemoteFailureQueuesLocallyAndReportsIt(t *testing.T) {
	svc, store, owner := newSyncFixture(t)
	ctx := context.Background()
	store.upsertSetlistErr = common.ErrTransient

	c := &models.SavedConcert{SetlistID: "sl-a", ArtistName: "Wilco"}
	err := svc.SaveEdge(ctx, c)
	require.Error(t, err, "an explicit save must surface the remote failure")
	assert.ErrorIs(t, err, common.ErrTransient)

	// the row is still queued so the next sync retries it
	got, err := svc.concerts.GetByKey(ctx, "sl-a", owner)
	require.NoError(t, err)
	assert.True(t, got.PendingPush)
	assert.Nil(t, got.LastSyncAt)
	assert.Equal(t, 0, store.edgeCount(owner))
}

func TestSaveEdge_GuestIsLocalOnly(t *testing.T) {
	repos, _ := newTestRepos(t)
	store := newMemStore()
	store.upsertSetlistErr = errors.New("must not be called")
	svc := NewSyncService(logging.NewNopLogger(), store, repos.Concerts, identity.NewSession())
	ctx := context.Background()

	c := &models.SavedConcert{SetlistID: "sl-a", ArtistName: "Wilco"}
	require.NoError(t, svc.SaveEdge(ctx, c))

	assert.True(t, c.Owner.IsGuest())
	assert.False(t, c.PendingPush, "guest rows are never queued for push")

	got, err := repos.Concerts.GetByKey(ctx, "sl-a", identity.Guest)
	require.NoError(t, err)
	assert.Equal(t, "Wilco", got.ArtistName)
}

func TestUnsaveEdge_RemoteDeleteComesFirst(t *testing.T) {
	svc, store, owner := newSyncFixture(t)
	ctx := context.Background()

	c := &models.SavedConcert{SetlistID: "sl-a", ArtistName: "Wilco"}
	require.NoError(t, svc.SaveEdge(ctx, c))

	store.unsaveErr = common.ErrTransient
	err := svc.UnsaveEdge(ctx, "sl-a")
	require.Error(t, err)

	// remote delete failed, so the local row must survive
	_, err = svc.concerts.GetByKey(ctx, "sl-a", owner)
	require.NoError(t, err)

	store.unsaveErr = nil
	require.NoError(t, svc.UnsaveEdge(ctx, "sl-a"))
	_, err = svc.concerts.GetByKey(ctx, "sl-a", owner)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, 0, store.edgeCount(owner))
}

func TestDeleteAllOwnedContent_CascadeOrder(t *testing.T) {
	svc, store, owner := newSyncFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveEdge(ctx, &models.SavedConcert{SetlistID: "sl-a", ArtistName: "Wilco"}))
	require.NoError(t, svc.DeleteAllOwnedContent(ctx))

	assert.Equal(t, []string{
		remote.CollectionReviewVotes,
		remote.CollectionReviews,
		remote.CollectionUserSetlists,
		remote.CollectionProfiles,
	}, store.deletedCollections)

	rows, err := svc.concerts.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDeleteAllOwnedContent_GuestRejected(t *testing.T) {
	repos, _ := newTestRepos(t)
	svc := NewSyncService(logging.NewNopLogger(), newMemStore(), repos.Concerts, identity.NewSession())

	err := svc.DeleteAllOwnedContent(context.Background())
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestDeleteAllOwnedContent_RemoteFailureKeepsMirror(t *testing.T) {
	svc, store, owner := newSyncFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveEdge(ctx, &models.SavedConcert{SetlistID: "sl-a", ArtistName: "Wilco"}))
	store.deleteErr = common.ErrTransient

	err := svc.DeleteAllOwnedContent(ctx)
	require.Error(t, err)

	rows, err := svc.concerts.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "an aborted cascade must leave the mirror intact")
}
