package service

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

var (
	// Columns are left aligned with a two-space gutter and no rules.
	boardRendition = tw.Rendition{
		Borders: tw.BorderNone,
		Settings: tw.Settings{
			Separators: tw.Separators{
				ShowHeader:     tw.Off,
				ShowFooter:     tw.Off,
				BetweenRows:    tw.Off,
				BetweenColumns: tw.Off,
			},
			Lines: tw.Lines{
				ShowTop:        tw.Off,
				ShowBottom:     tw.Off,
				ShowHeaderLine: tw.Off,
				ShowFooterLine: tw.Off,
			},
		},
		Symbols: tw.NewSymbols(tw.StyleNone),
	}

	gutter       = tw.Padding{Right: "  ", Overwrite: true}
	boardPadding = []tw.Padding{gutter, gutter, tw.PaddingNone}
)

// RenderText draws rows as three aligned columns, one line per button.
func RenderText(w io.Writer, rows []Row) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(boardRendition)),
		tablewriter.WithRowPaddingPerColumn(boardPadding),
		tablewriter.WithRowAlignment(tw.AlignLeft),
	)
	for i, r := range rows {
		if err := table.Append([]string{r.Count, r.Last, r.Label}); err != nil {
			return fmt.Errorf("board row %d: %w", i, err)
		}
	}
	return table.Render()
}
