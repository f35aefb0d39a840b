package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/encorehq/encore/internal/client/geo"
	"github.com/encorehq/encore/internal/client/proximity"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the proximity watcher on a location feed",
		Long: `Reads "lat,lon" location fixes from stdin, one per line, and keeps a
geofence set of venues with shows near the latest fix. Entering one raises a
notification (see the -n flag for webhook delivery).`,
		Example: `  gpspipe -w | jq -r ... | encore watch
  echo "47.07,15.44" | encore watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)

			loop := proximity.NewLoop(a.Log, a.Geocoder, a.GeoCache, a.Search, a.Notifier())
			// a feed on stdin implies the user granted us their location
			loop.OnPermissionChanged(proximity.PermissionAlways)

			// reconcile saves if an identity change lands mid-watch
			go a.Sync.Run(cmd.Context())

			fixes := make(chan geo.Coordinate)
			errc := make(chan error, 1)
			go func() {
				defer close(fixes)
				errc <- readFixes(cmd.Context(), cmd.InOrStdin(), fixes)
			}()

			fmt.Fprintln(a.out, "Watching. Feed lat,lon lines on stdin; Ctrl-D to stop.")
			loop.Run(cmd.Context(), fixes)
			return <-errc
		},
	}
	return cmd
}

// readFixes parses "lat,lon" lines into coordinates. Blank lines and lines
// starting with '#' are skipped; a malformed line aborts the feed.
func readFixes(ctx context.Context, r io.Reader, out chan<- geo.Coordinate) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		coord, err := parseFix(line)
		if err != nil {
			return err
		}
		select {
		case out <- coord:
		case <-ctx.Done():
			return nil
		}
	}
	return scanner.Err()
}

func parseFix(line string) (geo.Coordinate, error) {
	lat, lon, ok := strings.Cut(line, ",")
	if !ok {
		return geo.Coordinate{}, fmt.Errorf("bad location fix %q, want lat,lon", line)
	}
	latF, err1 := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	lonF, err2 := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err1 != nil || err2 != nil {
		return geo.Coordinate{}, fmt.Errorf("bad location fix %q, want lat,lon", line)
	}
	if latF < -90 || latF > 90 || lonF < -180 || lonF > 180 {
		return geo.Coordinate{}, fmt.Errorf("location fix %q out of range", line)
	}
	return geo.Coordinate{Lat: latF, Lon: lonF}, nil
}
