package display

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/cdtran/vnquote/series"
	"github.com/charmbracelet/lipgloss"
)

// Column headers of the summary table.
const (
	ColumnIndustry = "Industry"
	ColumnSymbol   = "Symbol"
	ColumnPrice    = "Price"
	Column1D       = "1d%"
	Column1W       = "1w%"
	Column1M       = "1m%"
	Column6M       = "6m%"
	ColumnVolume   = "Volume"
)

// columnGap separates adjacent table columns.
const columnGap = "  "

// ValidSortColumn reports whether the summary table can be sorted by the
// provided column.
func ValidSortColumn(column string) bool {
	switch strings.ToLower(column) {
	case "industry", "symbol", "price", "1d%", "1w%", "1m%", "6m%", "volume":
		return true
	default:
		return false
	}
}

// SortColumns splits the provided sort specification into its column list.
// Multiple columns are comma separated, earlier columns take precedence.
func SortColumns(spec string) []string {
	var columns []string
	for _, column := range strings.Split(spec, ",") {
		if column = strings.TrimSpace(column); column != "" {
			columns = append(columns, column)
		}
	}

	return columns
}

// SummaryRow represents one symbol's line of the summary table.
type SummaryRow struct {
	Industry string
	Symbol   string
	Price    float64
	Ret1D    float64
	Ret1W    float64
	Ret1M    float64
	Ret6M    float64
	Volume   float64
}

// TableConfig represents the configuration for the summary table.
type TableConfig struct {
	// Industries maps symbols to industry names. Optional, an empty map
	// omits the industry column.
	Industries map[string]string
	// SortBy is the column or comma separated column list the table is
	// sorted by, ascending. Empty sorts by symbol.
	SortBy string
	// NoColor renders the table without styling.
	NoColor bool
}

// Table renders per-symbol summaries. The style set is chosen once at
// construction, rendering itself never fails.
type Table struct {
	cfg     *TableConfig
	palette Palette
}

// NewTable initializes a summary table.
func NewTable(cfg *TableConfig) *Table {
	palette := defaultPalette()
	if cfg.NoColor {
		palette = plainPalette()
	}

	return &Table{
		cfg:     cfg,
		palette: palette,
	}
}

// Build forms the summary rows from the most recent row of every symbol in
// the provided frame, sorted by the configured column.
func (t *Table) Build(frame *series.Frame) ([]SummaryRow, error) {
	if frame == nil || frame.Len() == 0 {
		return nil, fmt.Errorf("building summary: frame has no records, run a fetch first")
	}
	if !frame.HasReturns() {
		return nil, fmt.Errorf("building summary: returns have not been computed")
	}

	latest := frame.Latest()

	rows := make([]SummaryRow, 0, len(latest))
	for idx := range latest {
		row := &latest[idx]
		rows = append(rows, SummaryRow{
			Industry: t.cfg.Industries[row.Symbol],
			Symbol:   row.Symbol,
			Price:    row.AdjClose,
			Ret1D:    row.Ret1D,
			Ret1W:    row.Ret1W,
			Ret1M:    row.Ret1M,
			Ret6M:    row.Ret6M,
			Volume:   row.Volume,
		})
	}

	t.sortRows(rows)

	return rows, nil
}

// sortKey returns the provided row's numeric key for a sort column.
func sortKey(row *SummaryRow, column string) float64 {
	switch column {
	case "price":
		return row.Price
	case "1d%":
		return row.Ret1D
	case "1w%":
		return row.Ret1W
	case "1m%":
		return row.Ret1M
	case "6m%":
		return row.Ret6M
	case "volume":
		return row.Volume
	default:
		return math.NaN()
	}
}

// compareWithUndefined orders values ascending with undefined ones last.
func compareWithUndefined(a float64, b float64) int {
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return 1
	case math.IsNaN(b):
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// sortRows sorts the summary rows ascending by the configured columns.
// Numeric columns sort on their values, never on their formatted strings,
// with undefined values last. Ties break on the symbol.
func (t *Table) sortRows(rows []SummaryRow) {
	columns := SortColumns(strings.ToLower(t.cfg.SortBy))

	slices.SortStableFunc(rows, func(a, b SummaryRow) int {
		for _, column := range columns {
			switch column {
			case "industry":
				if c := strings.Compare(a.Industry, b.Industry); c != 0 {
					return c
				}
			case "symbol":
				if c := strings.Compare(a.Symbol, b.Symbol); c != 0 {
					return c
				}
			default:
				if c := compareWithUndefined(sortKey(&a, column), sortKey(&b, column)); c != 0 {
					return c
				}
			}
		}

		return strings.Compare(a.Symbol, b.Symbol)
	})
}

// headers forms the table's column headers.
func (t *Table) headers() []string {
	headers := []string{ColumnSymbol, ColumnPrice, Column1D, Column1W, Column1M, Column6M, ColumnVolume}
	if len(t.cfg.Industries) > 0 {
		headers = append([]string{ColumnIndustry}, headers...)
	}

	return headers
}

// plainCells forms the unstyled cell text of the provided row.
func (t *Table) plainCells(row *SummaryRow) []string {
	cells := []string{
		row.Symbol,
		FormatThousands(row.Price),
		FormatPercent(row.Ret1D),
		FormatPercent(row.Ret1W),
		FormatPercent(row.Ret1M),
		FormatPercent(row.Ret6M),
		FormatMillions(row.Volume),
	}
	if len(t.cfg.Industries) > 0 {
		cells = append([]string{row.Industry}, cells...)
	}

	return cells
}

// leftAligned reports whether the provided column holds text and left
// aligns.
func leftAligned(column string) bool {
	return column == ColumnIndustry || column == ColumnSymbol
}

// pad pads the provided cell to width, right aligning numeric columns.
func pad(cell string, width int, right bool) string {
	if right {
		return fmt.Sprintf("%*s", width, cell)
	}

	return fmt.Sprintf("%-*s", width, cell)
}

// returnStyle selects the style of a trailing return cell by its sign.
func (t *Table) returnStyle(value float64) lipgloss.Style {
	switch {
	case math.IsNaN(value):
		return t.palette.Plain
	case value < 0:
		return t.palette.Loss
	default:
		return t.palette.Gain
	}
}

// styleCell renders the provided padded cell with its column's style.
func (t *Table) styleCell(column string, row *SummaryRow, padded string) string {
	switch column {
	case ColumnIndustry:
		return t.palette.Industry.Render(padded)
	case Column1D:
		return t.returnStyle(row.Ret1D).Render(padded)
	case Column1W:
		return t.returnStyle(row.Ret1W).Render(padded)
	case Column1M:
		return t.returnStyle(row.Ret1M).Render(padded)
	case Column6M:
		return t.returnStyle(row.Ret6M).Render(padded)
	default:
		return padded
	}
}

// Render renders the summary rows as a fixed width table. Column widths
// are computed from the unstyled cell text, styles wrap the padded cells.
func (t *Table) Render(rows []SummaryRow) string {
	headers := t.headers()

	cells := make([][]string, len(rows))
	for idx := range rows {
		cells[idx] = t.plainCells(&rows[idx])
	}

	widths := make([]int, len(headers))
	for idx := range headers {
		widths[idx] = len(headers[idx])
	}
	for _, row := range cells {
		for idx := range row {
			widths[idx] = max(widths[idx], len(row[idx]))
		}
	}

	var sb strings.Builder
	for idx := range headers {
		if idx > 0 {
			sb.WriteString(columnGap)
		}
		sb.WriteString(t.palette.Header.Render(pad(headers[idx], widths[idx], !leftAligned(headers[idx]))))
	}
	sb.WriteString("\n")

	for rowIdx := range rows {
		for idx := range headers {
			if idx > 0 {
				sb.WriteString(columnGap)
			}

			padded := pad(cells[rowIdx][idx], widths[idx], !leftAligned(headers[idx]))
			sb.WriteString(t.styleCell(headers[idx], &rows[rowIdx], padded))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
