package display

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/cdtran/vnquote/series"
	"github.com/cdtran/vnquote/shared"
	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
)

// bar forms a flat priced bar for the provided symbol, date string and
// close.
func bar(t *testing.T, symbol string, date string, close float64) shared.Bar {
	t.Helper()

	parsed, err := time.Parse(shared.DateLayout, date)
	assert.NoError(t, err)

	return shared.Bar{
		Symbol:   symbol,
		Date:     parsed,
		Open:     close,
		High:     close,
		Low:      close,
		Close:    close,
		AdjClose: close,
		Volume:   2_500_000,
	}
}

// summaryFrame forms a two symbol frame with computed returns, AAA gaining
// ten percent on the day and BBB losing ten.
func summaryFrame(t *testing.T) *series.Frame {
	t.Helper()

	frame, err := series.NewFrame([]shared.Bar{
		bar(t, "AAA", "2024-01-02", 100),
		bar(t, "AAA", "2024-01-03", 110),
		bar(t, "BBB", "2024-01-02", 50),
		bar(t, "BBB", "2024-01-03", 45),
	})
	assert.NoError(t, err)
	assert.NoError(t, frame.WithReturns())

	return frame
}

func TestTableBuild(t *testing.T) {
	table := NewTable(&TableConfig{SortBy: "1d%"})

	rows, err := table.Build(summaryFrame(t))
	assert.NoError(t, err)

	// Ensure only the latest row of each symbol is kept, sorted ascending
	// on the numeric return rather than its formatted string.
	assert.Equal(t, len(rows), 2)
	assert.Equal(t, rows[0].Symbol, "BBB")
	assert.Equal(t, rows[0].Price, float64(45))
	assert.True(t, rows[0].Ret1D < 0)
	assert.Equal(t, rows[1].Symbol, "AAA")
	assert.Equal(t, rows[1].Price, float64(110))

	// Ensure longer lookbacks stay undefined on short series.
	assert.True(t, math.IsNaN(rows[0].Ret6M))
}

func TestTableBuildSortsUndefinedLast(t *testing.T) {
	frame, err := series.NewFrame([]shared.Bar{
		bar(t, "AAA", "2024-01-02", 100),
		bar(t, "AAA", "2024-01-03", 110),
		// A single observation, its one day return is undefined.
		bar(t, "CCC", "2024-01-03", 70),
		bar(t, "BBB", "2024-01-02", 50),
		bar(t, "BBB", "2024-01-03", 45),
	})
	assert.NoError(t, err)
	assert.NoError(t, frame.WithReturns())

	table := NewTable(&TableConfig{SortBy: "1d%"})
	rows, err := table.Build(frame)
	assert.NoError(t, err)

	// Ensure undefined sort keys order last.
	assert.Equal(t, rows[0].Symbol, "BBB")
	assert.Equal(t, rows[1].Symbol, "AAA")
	assert.Equal(t, rows[2].Symbol, "CCC")
}

func TestTableBuildMultiColumnSort(t *testing.T) {
	frame, err := series.NewFrame([]shared.Bar{
		bar(t, "AAA", "2024-01-02", 100),
		bar(t, "AAA", "2024-01-03", 110),
		bar(t, "BBB", "2024-01-02", 50),
		bar(t, "BBB", "2024-01-03", 55),
		bar(t, "CCC", "2024-01-02", 70),
		bar(t, "CCC", "2024-01-03", 63),
	})
	assert.NoError(t, err)
	assert.NoError(t, frame.WithReturns())

	industries := map[string]string{
		"AAA": "Technology",
		"BBB": "Banks",
		"CCC": "Banks",
	}
	table := NewTable(&TableConfig{Industries: industries, SortBy: "industry,1d%"})

	rows, err := table.Build(frame)
	assert.NoError(t, err)

	// Ensure later columns break ties left by earlier ones, CCC's losing
	// day ranks it before BBB within the shared industry.
	assert.Equal(t, rows[0].Symbol, "CCC")
	assert.Equal(t, rows[1].Symbol, "BBB")
	assert.Equal(t, rows[2].Symbol, "AAA")
}

func TestTableBuildByIndustry(t *testing.T) {
	industries := map[string]string{
		"AAA": "Technology",
		"BBB": "Banks",
	}
	table := NewTable(&TableConfig{Industries: industries, SortBy: "industry"})

	rows, err := table.Build(summaryFrame(t))
	assert.NoError(t, err)

	assert.Equal(t, rows[0].Industry, "Banks")
	assert.Equal(t, rows[1].Industry, "Technology")
}

func TestTableBuildErrors(t *testing.T) {
	table := NewTable(&TableConfig{})

	// Ensure building from a missing frame errors.
	_, err := table.Build(nil)
	assert.Error(t, err)

	// Ensure building before the returns stage errors.
	frame, err := series.NewFrame([]shared.Bar{bar(t, "AAA", "2024-01-02", 100)})
	assert.NoError(t, err)

	_, err = table.Build(frame)
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "returns have not been computed"))
}

func TestTableRenderPlain(t *testing.T) {
	table := NewTable(&TableConfig{SortBy: "1d%", NoColor: true})

	rows, err := table.Build(summaryFrame(t))
	assert.NoError(t, err)

	rendered := table.Render(rows)

	// Ensure plain rendering emits no escape sequences.
	assert.False(t, strings.Contains(rendered, "\x1b"))

	lines := strings.Split(strings.TrimSuffix(rendered, "\n"), "\n")
	assert.Equal(t, len(lines), 3)

	// Ensure every line is padded to the same fixed width.
	assert.Equal(t, len(lines[1]), len(lines[0]))
	assert.Equal(t, len(lines[2]), len(lines[0]))

	// Ensure the cell contents, undefined values render as dashes.
	if !cmp.Equal(strings.Fields(lines[0]), []string{"Symbol", "Price", "1d%", "1w%", "1m%", "6m%", "Volume"}) {
		t.Errorf("mismatched header, got %v", strings.Fields(lines[0]))
	}
	if !cmp.Equal(strings.Fields(lines[1]), []string{"BBB", "$45.0K", "-10.00%", "-", "-", "-", "$2.5M"}) {
		t.Errorf("mismatched first row, got %v", strings.Fields(lines[1]))
	}
	if !cmp.Equal(strings.Fields(lines[2]), []string{"AAA", "$110.0K", "10.00%", "-", "-", "-", "$2.5M"}) {
		t.Errorf("mismatched second row, got %v", strings.Fields(lines[2]))
	}
}

func TestTableRenderWithIndustries(t *testing.T) {
	industries := map[string]string{
		"AAA": "Technology",
		"BBB": "Banks",
	}
	table := NewTable(&TableConfig{Industries: industries, NoColor: true})

	rows, err := table.Build(summaryFrame(t))
	assert.NoError(t, err)

	rendered := table.Render(rows)
	lines := strings.Split(strings.TrimSuffix(rendered, "\n"), "\n")

	// Ensure the industry column leads when an industry map is set.
	assert.True(t, strings.HasPrefix(lines[0], "Industry"))
	assert.True(t, strings.HasPrefix(lines[1], "Technology"))
}

func TestTableRenderStyled(t *testing.T) {
	table := NewTable(&TableConfig{SortBy: "1d%"})

	rows, err := table.Build(summaryFrame(t))
	assert.NoError(t, err)

	// Ensure styled rendering keeps the cell contents intact.
	rendered := table.Render(rows)
	assert.True(t, strings.Contains(rendered, "AAA"))
	assert.True(t, strings.Contains(rendered, "-10.00%"))
}

func TestValidSortColumn(t *testing.T) {
	tests := []struct {
		column string
		want   bool
	}{
		{"6m%", true},
		{"Volume", true},
		{"symbol", true},
		{"industry", true},
		{"open", false},
		{"", false},
	}

	for _, test := range tests {
		if got := ValidSortColumn(test.column); got != test.want {
			t.Errorf("%q: mismatched validity, got %v, expected %v", test.column, got, test.want)
		}
	}
}

func TestSortColumns(t *testing.T) {
	tests := []struct {
		spec string
		want []string
	}{
		{"6m%", []string{"6m%"}},
		{"industry, 1d%", []string{"industry", "1d%"}},
		{",symbol, ", []string{"symbol"}},
		{"", nil},
	}

	for _, test := range tests {
		if got := SortColumns(test.spec); !cmp.Equal(got, test.want) {
			t.Errorf("%q: mismatched columns, got %v, expected %v", test.spec, got, test.want)
		}
	}
}
