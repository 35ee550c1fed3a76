package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/tracker/internal/tracker/store"
)

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show 24 hour counts and last occurrence for every event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			names := a.cfg.EventNames()

			var (
				last   map[string]*time.Time
				counts map[string]int
			)
			err := store.WithSession(ctx, a.openStore(nil), func(sess store.Session) error {
				var err error
				if last, err = sess.LastOccurrences(ctx, names); err != nil {
					return err
				}
				counts, err = sess.NumInLast24Hours(ctx, names)
				return err
			})
			if err != nil {
				return err
			}

			return writeStatus(cmd.OutOrStdout(), a.cfg.Pages, last, counts, time.Now())
		},
	}
}

func writeStatus(w io.Writer, pages [][]string, last map[string]*time.Time, counts map[string]int, now time.Time) error {
	table := tablewriter.NewWriter(w)
	table.Header("Page", "Event", "Last 24h", "Last", "Age")

	seen := make(map[string]bool)
	for i, page := range pages {
		for _, name := range page {
			if seen[name] {
				continue
			}
			seen[name] = true

			lastText, age := "never", "-"
			if t := last[name]; t != nil {
				lastText = t.Format("2006-01-02 15:04")
				age = humanize.RelTime(*t, now, "ago", "from now")
			}
			if err := table.Append([]string{
				strconv.Itoa(i + 1), name, strconv.Itoa(counts[name]), lastText, age,
			}); err != nil {
				return fmt.Errorf("status row %q: %w", name, err)
			}
		}
	}
	return table.Render()
}
