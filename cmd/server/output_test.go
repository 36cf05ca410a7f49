package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/imagebatch/internal/domain"
)

func TestRenderResults(t *testing.T) {
	t.Parallel()

	item := domain.SubmittedItem{SearchValue: "red shoes", AbsoluteRowIndex: 5, UniqueID: "F1"}
	other := domain.SubmittedItem{SearchValue: "blue hat", AbsoluteRowIndex: 12, UniqueID: "F1"}
	results := []domain.RowResult{
		domain.NewRowSuccess(item, "https://img.example.com/red.jpg"),
		domain.NewRowError(other, domain.MsgIncomplete),
	}

	out := renderResults(results, false)

	header := strings.ToLower(strings.Split(out, "\n")[1])
	assert.Contains(t, header, "row")
	assert.Contains(t, header, "search")
	assert.Contains(t, out, "red shoes")
	assert.Contains(t, out, "https://img.example.com/red.jpg")
	assert.Contains(t, out, "blue hat")
	assert.Contains(t, out, domain.MsgIncomplete)
	assert.NotContains(t, out, "\x1b[", "no colour codes without a terminal")
}

func TestRenderResults_Colorized(t *testing.T) {
	// NO_COLOR in the environment would otherwise turn colours off.
	text.EnableColors()

	item := domain.SubmittedItem{SearchValue: "red shoes", AbsoluteRowIndex: 5, UniqueID: "F1"}
	out := renderResults([]domain.RowResult{domain.NewRowError(item, domain.MsgFailedToStart)}, true)

	assert.Contains(t, out, "\x1b[")
}

func TestIsTerminal_Buffer(t *testing.T) {
	t.Parallel()
	assert.False(t, isTerminal(&bytes.Buffer{}))
}
