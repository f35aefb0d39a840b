package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/encorehq/encore/internal/client/services"
	"github.com/spf13/cobra"
)

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Public reviews and votes",
	}
	cmd.AddCommand(
		newReviewSubmitCmd(),
		newReviewListCmd(),
		newReviewMineCmd(),
		newReviewDeleteCmd(),
		newReviewVoteCmd(),
	)
	return cmd
}

func newReviewSubmitCmd() *cobra.Command {
	var rating int

	cmd := &cobra.Command{
		Use:   "submit <setlist-id>",
		Short: "Write or replace your review of a concert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)

			comment, err := GetMultiline(a.reader, "Your review", os.Stdout)
			if err != nil {
				return err
			}
			if err := a.Reviews.Submit(cmd.Context(), args[0], rating, comment); err != nil {
				return err
			}
			successColor.Fprintln(a.out, "Review published.")
			return nil
		},
	}

	cmd.Flags().IntVar(&rating, "rating", 0, "rating (1-5)")
	_ = cmd.MarkFlagRequired("rating")
	return cmd
}

func newReviewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <setlist-id>",
		Short: "Read a concert's reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			reviews, err := a.Reviews.ForSetlist(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printReviews(a, reviews)
			return nil
		},
	}
}

func newReviewMineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your own reviews",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			reviews, err := a.Reviews.Mine(cmd.Context())
			if err != nil {
				return err
			}
			printReviews(a, reviews)
			return nil
		},
	}
}

func newReviewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <review-id>",
		Short: "Delete your review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad review id %q", args[0])
			}
			if err := a.Reviews.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Deleted.")
			return nil
		},
	}
}

func newReviewVoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vote <review-id> <up|down|clear>",
		Short: "Vote on a review",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad review id %q", args[0])
			}

			var value int
			switch args[1] {
			case "up":
				value = 1
			case "down":
				value = -1
			case "clear":
				value = 0
			default:
				return fmt.Errorf("vote must be up, down or clear")
			}
			return a.Reviews.Vote(cmd.Context(), id, value)
		},
	}
}

func printReviews(a *App, reviews []services.ReviewWithMyVote) {
	if len(reviews) == 0 {
		fmt.Fprintln(a.out, "No reviews yet.")
		return
	}
	for _, r := range reviews {
		mine := ""
		switch r.MyVote {
		case 1:
			mine = " [voted up]"
		case -1:
			mine = " [voted down]"
		}
		headerColor.Fprintf(a.out, "#%d %s - %d/5 (+%d/-%d)%s\n",
			r.ID, r.Username, r.Rating, r.UpVotes, r.DownVotes, mine)
		if r.Comment != "" {
			fmt.Fprintln(a.out, r.Comment)
		}
	}
}
