package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	records := []Record{
		{{"Symbol", "AAPL"}, {"Shares", 10.5}, {"Rating", nil}},
		{{"Symbol", "MSFT, Corp"}, {"Shares", 3.0}, {"Rating", "Hold"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, "investments", records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"investments"}, f.GetSheetList())

	rows, err := f.GetRows("investments")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Symbol", "Shares", "Rating"}, rows[0])
	assert.Equal(t, []string{"AAPL", "10.5"}, rows[1])
	assert.Equal(t, []string{"MSFT, Corp", "3", "Hold"}, rows[2])
}

func TestWriteXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, "", nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(defaultSheetName)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
