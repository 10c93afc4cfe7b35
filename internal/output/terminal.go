package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"
)

const defaultTermWidth = 80

// Layout sizes a result table against the terminal.
type Layout struct {
	// MinWidth is the floor for the per-column maximum width.
	MinWidth int
	// Overhead is the width taken by borders, padding and narrow columns.
	Overhead int
	// Grouped merges repeated first-column cells and separates rows,
	// which suits one-domain-many-records output.
	Grouped bool
}

// Layouts used by the result renderers.
var (
	EmailLayout  = Layout{MinWidth: 20, Overhead: 40}
	DomainLayout = Layout{MinWidth: 20, Overhead: 20, Grouped: true}
	ConfigLayout = Layout{MinWidth: 20, Overhead: 6}
)

// TerminalWidth returns the width of the terminal behind w, or 80 columns
// when w is not a terminal.
func TerminalWidth(w io.Writer) int {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return defaultTermWidth
	}
	width, _, err := term.GetSize(int(f.Fd())) //nolint:gosec // file descriptors fit in int
	if err != nil || width <= 0 {
		return defaultTermWidth
	}
	return width
}

// ColumnWidth is the per-column wrap width for l on a terminal of termWidth.
func (l Layout) ColumnWidth(termWidth int) int {
	return max(l.MinWidth, termWidth-l.Overhead)
}

// NewTable returns a table writing to w whose cells wrap to fit the terminal.
func NewTable(w io.Writer, l Layout) *tablewriter.Table {
	row := tw.CellConfig{
		Formatting:   tw.CellFormatting{AutoWrap: tw.WrapNormal},
		ColMaxWidths: tw.CellWidth{Global: l.ColumnWidth(TerminalWidth(w))},
	}
	opts := []tablewriter.Option{}
	if l.Grouped {
		row.Formatting.MergeMode = tw.MergeHierarchical
		opts = append(opts, tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On}},
		})))
	}
	opts = append(opts, tablewriter.WithConfig(tablewriter.Config{Row: row}))
	return tablewriter.NewTable(w, opts...)
}
