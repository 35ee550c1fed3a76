package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/BrandonDHaskell/tracker/internal/metrics"
	"github.com/BrandonDHaskell/tracker/internal/tracker/service"
)

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Drive the button board from the terminal",
		Long: "Shows the current page and reads button numbers from the prompt.\n" +
			"Type 1..N to press a button, q to quit.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			idle, err := a.cfg.IdleTimeout()
			if err != nil {
				return err
			}
			interval, err := a.cfg.MetricsInterval()
			if err != nil {
				return err
			}

			rec := metrics.NewRecorder()
			screen := service.NewIdleScreen(idle, func(on bool) {
				a.logger.Debug().Bool("on", on).Msg("screen")
			})
			defer screen.Stop()

			board, err := service.NewBoard(a.openStore(rec), screen, a.layout(),
				service.WithBoardLogger(a.logger))
			if err != nil {
				return err
			}
			if err := board.Refresh(ctx); err != nil {
				return err
			}

			flusher := metrics.NewFlusher(rec, a.cfg.Metrics.Textfile, interval, a.logger)
			flusher.Start(ctx)
			defer flusher.Stop()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "\033[32m>\033[0m ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdout:          cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				<-gctx.Done()
				return rl.Close()
			})
			g.Go(func() error {
				defer stop()
				return serve(gctx, rl, board, cmd.OutOrStdout(), a.logger)
			})
			return g.Wait()
		},
	}
}

// lineReader is the part of *readline.Instance the prompt loop needs.
type lineReader interface {
	Readline() (string, error)
}

// serve renders the board and turns each input line into a button press
// until EOF, q, or ctx is done. Store errors are reported and the loop
// keeps going.
func serve(ctx context.Context, in lineReader, board *service.Board, out io.Writer, logger zerolog.Logger) error {
	buttons := len(board.Rows())

	if err := service.RenderText(out, board.Rows()); err != nil {
		return err
	}

	for ctx.Err() == nil {
		line, err := in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "q", "quit", "exit":
			return nil
		}

		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > buttons {
			fmt.Fprintf(out, "press a button 1-%d, or q to quit\n", buttons)
			continue
		}

		if err := board.Press(ctx, n-1); err != nil {
			logger.Error().Err(err).Int("button", n).Msg("press failed")
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if err := service.RenderText(out, board.Rows()); err != nil {
			return err
		}
	}
	return nil
}
