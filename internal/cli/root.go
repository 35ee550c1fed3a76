package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/tracker/internal/config"
	"github.com/BrandonDHaskell/tracker/internal/metrics"
	"github.com/BrandonDHaskell/tracker/internal/tracker/catalog"
	"github.com/BrandonDHaskell/tracker/internal/tracker/service"
	"github.com/BrandonDHaskell/tracker/internal/tracker/store"
	"github.com/BrandonDHaskell/tracker/internal/tracker/store/sqlite"
)

var Version = "develop"

// app is the state shared by every subcommand once the root has run.
type app struct {
	configPath string
	dbPath     string
	verbose    int

	cfg    *config.Config
	loc    *time.Location
	logger zerolog.Logger
}

func NewRootCommand() *cobra.Command {
	a := &app{logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:           "tracker",
		Short:         "Record and review everyday events from a button board",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().CountVarP(&a.verbose, "verbose", "v", "-v for debug logs (-vv for trace)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "Override database.path")

	root.AddCommand(
		newRunCommand(a),
		newRecordCommand(a),
		newStatusCommand(a),
		newExportCommand(a),
	)
	return root
}

// Execute runs the root command against os.Args and returns the exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tracker: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) init(logOut io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.loc = loc

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch clamp(2, a.verbose) {
	case 2:
		level = zerolog.TraceLevel
	case 1:
		level = zerolog.DebugLevel
	}

	writer := logOut
	if cfg.Log.Local {
		writer = zerolog.ConsoleWriter{
			Out:        logOut,
			TimeFormat: time.RFC3339,
		}
	}
	a.logger = zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()

	a.logger.Debug().
		Str("db", cfg.Database.Path).
		Str("timezone", cfg.Display.Timezone).
		Int("pages", len(cfg.Pages)).
		Msg("config loaded")
	return nil
}

// openStore builds the SQLite store over every configured event name. rec
// may be nil.
func (a *app) openStore(rec *metrics.Recorder) store.Store {
	cat := catalog.FromPages(a.cfg.Pages)
	var st store.Store = sqlite.New(a.cfg.Database.Path, cat,
		sqlite.WithLocation(a.loc),
		sqlite.WithLogger(a.logger),
	)
	if rec != nil {
		st = rec.Instrument(st)
	}
	return st
}

func (a *app) layout() service.Layout {
	return service.Layout{
		Buttons:        a.cfg.Display.Buttons,
		NextPageButton: a.cfg.Display.NextPageButton,
		Pages:          a.cfg.Pages,
	}
}

func clamp(limit, a int) int {
	if a >= limit {
		return limit
	}
	return a
}
