package services

import (
	"context"
	"fmt"

	"github.com/encorehq/encore/internal/client/identity"
	"github.com/encorehq/encore/internal/client/models"
	"github.com/encorehq/encore/internal/client/remote"
	"github.com/encorehq/encore/internal/common"
)

// ReviewWithMyVote pairs a review with the current user's vote on it
// (+1, -1, or 0 when unvoted).
type ReviewWithMyVote struct {
	models.ReviewRead
	MyVote int
}

// ReviewService covers public reviews and votes. Everything here requires a
// signed-in identity; guests read nothing and write nothing.
type ReviewService struct {
	store   remote.Store
	session *identity.Session
}

func NewReviewService(store remote.Store, session *identity.Session) *ReviewService {
	return &ReviewService{store: store, session: session}
}

func (s *ReviewService) owner() (identity.Owner, error) {
	owner := s.session.Current()
	if owner.IsGuest() {
		return identity.Guest, fmt.Errorf("reviews require an account: %w", common.ErrUnauthenticated)
	}
	return owner, nil
}

// Submit upserts the user's review of a setlist; one review per user and
// setlist, resubmitting replaces it.
func (s *ReviewService) Submit(ctx context.Context, setlistID string, rating int, comment string) error {
	owner, err := s.owner()
	if err != nil {
		return err
	}
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5")
	}
	return s.store.SubmitReview(ctx, models.ReviewWrite{
		UserID:    owner.ID(),
		SetlistID: setlistID,
		Rating:    rating,
		Comment:   comment,
	})
}

// ForSetlist loads a setlist's reviews annotated with the user's own votes.
func (s *ReviewService) ForSetlist(ctx context.Context, setlistID string) ([]ReviewWithMyVote, error) {
	owner, err := s.owner()
	if err != nil {
		return nil, err
	}
	reviews, err := s.store.LoadReviews(ctx, setlistID)
	if err != nil {
		return nil, fmt.Errorf("loading reviews: %w", err)
	}
	return s.annotate(ctx, owner, reviews)
}

// Mine loads the user's own reviews across all setlists.
func (s *ReviewService) Mine(ctx context.Context) ([]ReviewWithMyVote, error) {
	owner, err := s.owner()
	if err != nil {
		return nil, err
	}
	reviews, err := s.store.LoadMyReviews(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("loading reviews: %w", err)
	}
	return s.annotate(ctx, owner, reviews)
}

func (s *ReviewService) annotate(ctx context.Context, owner identity.Owner, reviews []models.ReviewRead) ([]ReviewWithMyVote, error) {
	ids := make([]int64, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.ID)
	}
	votes, err := s.store.LoadMyVotes(ctx, owner, ids)
	if err != nil {
		return nil, fmt.Errorf("loading votes: %w", err)
	}

	out := make([]ReviewWithMyVote, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, ReviewWithMyVote{ReviewRead: r, MyVote: votes[r.ID]})
	}
	return out, nil
}

// Delete removes the user's own review.
func (s *ReviewService) Delete(ctx context.Context, reviewID int64) error {
	owner, err := s.owner()
	if err != nil {
		return err
	}
	return s.store.DeleteMyReview(ctx, owner, reviewID)
}

// Vote records an up (+1) or down (-1) vote, value 0 clears the vote.
func (s *ReviewService) Vote(ctx context.Context, reviewID int64, value int) error {
	owner, err := s.owner()
	if err != nil {
		return err
	}
	switch value {
	case 0:
		return s.store.ClearVote(ctx, owner, reviewID)
	case 1, -1:
		return s.store.UpsertVote(ctx, models.VoteWrite{
			ReviewID: reviewID,
			UserID:   owner.ID(),
			Value:    value,
		})
	default:
		return fmt.Errorf("vote must be +1, -1 or 0")
	}
}
