package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/tracker/internal/tracker/store"
)

func newRecordCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "record <event>",
		Short: "Record one occurrence of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]

			err := store.WithSession(ctx, a.openStore(nil), func(sess store.Session) error {
				return sess.InsertEvent(ctx, name)
			})
			if errors.Is(err, store.ErrUnknownEventType) {
				return fmt.Errorf("%q is not on any page (known: %q)", name, a.cfg.EventNames())
			}
			if err != nil {
				return err
			}

			a.logger.Info().Str("event", name).Msg("event recorded")
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %s\n", name)
			return nil
		},
	}
}
