package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/tracker/internal/tracker/store"
)

var (
	ErrInvalidButton = errors.New("button out of range")
	ErrInvalidLayout = errors.New("invalid layout")
)

const lastLayout = "01/02: 15:04"

// Layout describes the physical buttons and the pages of event labels
// shown next to them. One button is reserved for paging.
type Layout struct {
	Buttons        int
	NextPageButton int
	Pages          [][]string
}

func (l Layout) Validate() error {
	if l.Buttons < 2 {
		return fmt.Errorf("%w: need at least 2 buttons, got %d", ErrInvalidLayout, l.Buttons)
	}
	if l.NextPageButton < 0 || l.NextPageButton >= l.Buttons {
		return fmt.Errorf("%w: next page button %d out of range", ErrInvalidLayout, l.NextPageButton)
	}
	if len(l.Pages) == 0 {
		return fmt.Errorf("%w: no pages", ErrInvalidLayout)
	}
	for i, page := range l.Pages {
		if len(page) > l.Buttons-1 {
			return fmt.Errorf("%w: page %d has %d labels for %d slots", ErrInvalidLayout, i+1, len(page), l.Buttons-1)
		}
	}
	return nil
}

// Row is what one button's line on the display shows.
type Row struct {
	Count string
	Last  string
	Label string
}

type Board struct {
	store  store.Store
	screen Screen
	layout Layout
	clock  store.Clock
	logger zerolog.Logger

	mu   sync.Mutex
	page int
	rows []Row
}

type BoardOption func(*Board)

// WithBoardClock sets the clock the "x ago" suffix is measured against.
func WithBoardClock(c store.Clock) BoardOption {
	return func(b *Board) { b.clock = c }
}

func WithBoardLogger(l zerolog.Logger) BoardOption {
	return func(b *Board) { b.logger = l }
}

func NewBoard(st store.Store, screen Screen, layout Layout, opts ...BoardOption) (*Board, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	b := &Board{
		store:  st,
		screen: screen,
		layout: layout,
		logger: zerolog.Nop(),
		rows:   make([]Row, layout.Buttons),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Press handles one physical button press. With the screen off the press
// only wakes it and returns to the first page.
func (b *Board) Press(ctx context.Context, button int) error {
	if button < 0 || button >= b.layout.Buttons {
		return fmt.Errorf("%w: %d", ErrInvalidButton, button)
	}

	b.mu.Lock()
	if !b.screen.IsOn() {
		b.page = 0
	} else if button == b.layout.NextPageButton {
		b.page = (b.page + 1) % len(b.layout.Pages)
	} else if label, ok := b.labelFor(button); ok {
		err := store.WithSession(ctx, b.store, func(sess store.Session) error {
			return sess.InsertEvent(ctx, label)
		})
		if err != nil {
			b.mu.Unlock()
			b.logger.Error().Err(err).Str("event", label).Msg("record event failed")
			return fmt.Errorf("record %q: %w", label, err)
		}
		b.logger.Info().Str("event", label).Int("button", button).Msg("event recorded")
	}
	b.mu.Unlock()

	b.screen.TurnOn()
	return b.Refresh(ctx)
}

// labelFor maps a button to the current page's label, skipping the paging
// slot. Callers hold b.mu.
func (b *Board) labelFor(button int) (string, bool) {
	idx := button
	if button > b.layout.NextPageButton {
		idx--
	}
	page := b.layout.Pages[b.page]
	if idx >= len(page) {
		return "", false
	}
	return page[idx], true
}

// Refresh reloads counts and last times for the current page in a single
// session. On error the previous rows are kept.
func (b *Board) Refresh(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	labels := b.layout.Pages[b.page]

	var (
		last   map[string]*time.Time
		counts map[string]int
	)
	err := store.WithSession(ctx, b.store, func(sess store.Session) error {
		var err error
		if last, err = sess.LastOccurrences(ctx, labels); err != nil {
			return err
		}
		counts, err = sess.NumInLast24Hours(ctx, labels)
		return err
	})
	if err != nil {
		return fmt.Errorf("refresh page %d: %w", b.page+1, err)
	}

	now := b.clock.Now()
	rows := make([]Row, b.layout.Buttons)
	next := 0
	for i := range rows {
		if i == b.layout.NextPageButton {
			rows[i] = Row{
				Count: fmt.Sprintf("Page %d / %d", b.page+1, len(b.layout.Pages)),
				Label: "Next page",
			}
			continue
		}
		if next >= len(labels) {
			continue
		}
		label := labels[next]
		next++
		rows[i] = Row{
			Count: fmt.Sprintf("In last 24 hours: %d", counts[label]),
			Last:  "Last: " + formatLast(last[label], now),
			Label: label,
		}
	}
	b.rows = rows
	return nil
}

func formatLast(t *time.Time, now time.Time) string {
	if t == nil {
		return "Never"
	}
	return fmt.Sprintf("%s (%s)", t.Format(lastLayout), humanize.RelTime(*t, now, "ago", "from now"))
}

// Rows returns a copy of what is currently displayed, one per button.
func (b *Board) Rows() []Row {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Row, len(b.rows))
	copy(out, b.rows)
	return out
}

// Page is the zero-based index of the page on display.
func (b *Board) Page() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page
}
