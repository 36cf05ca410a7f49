// Package sheet reads submitted rows from and writes row results to XLSX
// workbooks.
package sheet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/phrazzld/imagebatch/internal/domain"
)

// ResultsSheet is the name of the sheet written by WriteResults.
const ResultsSheet = "Results"

var (
	// ErrNoSheet is returned for a workbook without sheets.
	ErrNoSheet = errors.New("workbook has no sheets")

	// ErrMissingColumn is returned when the header row lacks the search
	// column.
	ErrMissingColumn = errors.New("required column missing")
)

// Header aliases, compared after lowercasing and dropping spaces,
// underscores and dashes.
var (
	brandAliases  = []string{"brand", "brandvalue", "brandname"}
	searchAliases = []string{"search", "searchvalue", "searchterm", "query", "style"}
	rowAliases    = []string{"row", "rowindex", "absoluterowindex", "entryid"}
)

// ReadItems reads the first sheet of the workbook at path. The first row
// is the header. When the row column is absent the worksheet row number is
// used as the absolute row index. Rows with an empty search value are
// skipped. Every item is stamped with fileID.
func ReadItems(path, fileID string) ([]domain.SubmittedItem, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, "search")
	}

	header := rows[0]
	searchCol := findColumn(header, searchAliases)
	if searchCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, "search")
	}
	brandCol := findColumn(header, brandAliases)
	rowCol := findColumn(header, rowAliases)

	items := make([]domain.SubmittedItem, 0, len(rows)-1)
	for i, row := range rows[1:] {
		search := cell(row, searchCol)
		if search == "" {
			continue
		}

		// Worksheet rows are 1-based and the header takes the first.
		index := i + 2
		if raw := cell(row, rowCol); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid row index %q: %w", i+2, raw, err)
			}
			index = n
		}

		items = append(items, domain.SubmittedItem{
			BrandValue:       cell(row, brandCol),
			SearchValue:      search,
			AbsoluteRowIndex: index,
			UniqueID:         fileID,
		})
	}
	return items, nil
}

// WriteResults writes results to a new workbook at path.
func WriteResults(path string, results []domain.RowResult) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := []any{"Row", "Search", "Image URL", "Error"}
	if err := f.SetSheetRow(ResultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range results {
		url := ""
		if r.Result != nil {
			url = r.Result.URL
		}
		values := []any{r.AbsoluteRowIndex, r.SearchValue, url, r.Error}

		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ResultsSheet, cellName, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	_ = f.SetColWidth(ResultsSheet, "B", "B", 28)
	_ = f.SetColWidth(ResultsSheet, "C", "C", 60)
	_ = f.SetColWidth(ResultsSheet, "D", "D", 40)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func findColumn(header []string, aliases []string) int {
	for i, name := range header {
		key := normalize(name)
		for _, alias := range aliases {
			if key == alias {
				return i
			}
		}
	}
	return -1
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
