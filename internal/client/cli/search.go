package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/encorehq/encore/internal/client/setlistfm"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	dimColor    = color.New(color.Faint)
)

func newSearchCmd() *cobra.Command {
	var (
		artist  string
		city    string
		venue   string
		country string
		date    string
		page    int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search concert setlists",
		Example: `  encore search --artist "The National"
  encore search --artist Wilco --city Chicago --date 2024-06-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)

			q := setlistfm.SetlistQuery{
				ArtistName:  artist,
				CityName:    city,
				VenueName:   venue,
				CountryCode: country,
				Page:        page,
			}
			if date != "" {
				d, err := time.ParseInLocation("2006-01-02", date, time.UTC)
				if err != nil {
					return fmt.Errorf("bad date %q, want yyyy-mm-dd", date)
				}
				q.Date = &d
			}

			results, err := a.Search.SearchSetlists(cmd.Context(), q)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(a.out, "No setlists found.")
				return nil
			}

			for _, s := range results {
				printSetlistLine(a, s)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&artist, "artist", "", "artist name")
	cmd.Flags().StringVar(&city, "city", "", "city name")
	cmd.Flags().StringVar(&venue, "venue", "", "venue name")
	cmd.Flags().StringVar(&country, "country", "", "two-letter country code")
	cmd.Flags().StringVar(&date, "date", "", "event date (yyyy-mm-dd)")
	cmd.Flags().IntVar(&page, "page", 1, "result page")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <setlist-id>",
		Short: "Show one setlist in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)

			s, err := a.Search.GetSetlist(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			headerColor.Fprintln(a.out, s.Artist.Name)
			fmt.Fprintf(a.out, "%s - %s, %s\n", s.VenueName(), s.CityName(), s.CountryName())
			if t := s.EventTime(); t != nil {
				fmt.Fprintln(a.out, t.Format("Mon, 2 Jan 2006"))
			}
			for i, song := range s.SongNames() {
				fmt.Fprintf(a.out, "%3d. %s\n", i+1, song)
			}
			if s.URL != "" {
				dimColor.Fprintf(a.out, "source: %s\n", s.URL)
			}
			return nil
		},
	}
}

func printSetlistLine(a *App, s setlistfm.Setlist) {
	when := s.EventDate
	if t := s.EventTime(); t != nil {
		when = t.Format("2006-01-02")
	}
	fmt.Fprintf(a.out, "%s  %s  %s @ %s (%s)\n",
		dimColor.Sprint(s.ID), when, s.Artist.Name, s.VenueName(),
		joinNonEmpty(s.CityName(), s.CountryName()))
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
