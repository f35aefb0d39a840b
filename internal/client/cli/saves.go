package cli

import (
	"fmt"
	"strconv"

	"github.com/encorehq/encore/internal/client/models"
	"github.com/spf13/cobra"
)

func newSaveCmd() *cobra.Command {
	var (
		rating  int
		comment string
	)

	cmd := &cobra.Command{
		Use:   "save <setlist-id>",
		Short: "Save a concert to your collection",
		Long: `Fetches the setlist and saves it. Signed in, the save goes to your
account first and is mirrored locally; as a guest it stays on this device.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)

			s, err := a.Search.GetSetlist(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetching setlist: %w", err)
			}

			c := &models.SavedConcert{
				SetlistID:      s.ID,
				ArtistName:     s.Artist.Name,
				VenueName:      s.VenueName(),
				City:           s.CityName(),
				Country:        s.CountryName(),
				EventDate:      s.EventTime(),
				Songs:          s.SongNames(),
				AttributionURL: s.URL,
			}
			if rating != 0 {
				if rating < 1 || rating > 5 {
					return fmt.Errorf("rating must be between 1 and 5")
				}
				c.LocalRating = &rating
			}
			c.LocalComment = comment

			if err := a.Sync.SaveEdge(cmd.Context(), c); err != nil {
				if c.PendingPush {
					fmt.Fprintln(a.out, "Saved locally; will upload on the next sync.")
				}
				return fmt.Errorf("couldn't save: %w", err)
			}
			successColor.Fprintf(a.out, "Saved %s @ %s.\n", c.ArtistName, c.VenueName)
			return nil
		},
	}

	cmd.Flags().IntVar(&rating, "rating", 0, "private rating (1-5), never uploaded")
	cmd.Flags().StringVar(&comment, "note", "", "private note, never uploaded")
	return cmd
}

func newUnsaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unsave <setlist-id>",
		Short: "Remove a concert from your collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if err := a.Sync.UnsaveEdge(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Removed.")
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your saved concerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)

			rows, err := a.Sync.ListSaved(cmd.Context())
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(a.out, "Nothing saved yet. Try 'encore search'.")
				return nil
			}

			for _, c := range rows {
				printSavedLine(a, c, verbose)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include songs and notes")
	return cmd
}

func printSavedLine(a *App, c models.SavedConcert, verbose bool) {
	when := ""
	if c.EventDate != nil {
		when = c.EventDate.Format("2006-01-02")
	}
	marker := " "
	if c.PendingPush {
		marker = "*"
	}
	fmt.Fprintf(a.out, "%s %s  %s  %s @ %s (%s)\n",
		marker, dimColor.Sprint(c.SetlistID), when, c.ArtistName, c.VenueName,
		joinNonEmpty(c.City, c.Country))

	if !verbose {
		return
	}
	if c.LocalRating != nil {
		fmt.Fprintf(a.out, "    rating: %s\n", strconv.Itoa(*c.LocalRating))
	}
	if c.LocalComment != "" {
		fmt.Fprintf(a.out, "    note: %s\n", c.LocalComment)
	}
	for _, song := range c.Songs {
		fmt.Fprintf(a.out, "      %s\n", song)
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync the local mirror with your account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if a.Session.Current().IsGuest() {
				fmt.Fprintln(a.out, "Guests have nothing to sync. 'encore login' first.")
				return nil
			}
			if err := a.Sync.Sync(cmd.Context(), "manual"); err != nil {
				return err
			}
			successColor.Fprintln(a.out, "Sync complete.")
			return nil
		},
	}
}
