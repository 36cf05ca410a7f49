package main

import (
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/phrazzld/imagebatch/internal/domain"
)

func renderTable(headers []string, rows [][]string, aligns []text.Align) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(aligns))
	for i, align := range aligns {
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// renderResults formats row results as a table. Failed rows are coloured
// red when colorize is set.
func renderResults(results []domain.RowResult, colorize bool) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "ok"
		detail := ""
		if r.Result != nil {
			detail = r.Result.URL
		}
		if !r.Succeeded() {
			status = "error"
			detail = r.Error
			if colorize {
				status = text.FgRed.Sprint(status)
			}
		}
		rows = append(rows, []string{strconv.Itoa(r.AbsoluteRowIndex), r.SearchValue, status, detail})
	}

	return renderTable(
		[]string{"Row", "Search", "Status", "Result"},
		rows,
		[]text.Align{text.AlignRight, text.AlignLeft, text.AlignLeft, text.AlignLeft},
	)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
