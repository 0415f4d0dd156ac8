package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sample() Dataset {
	return Dataset{
		Title:   "Complaints",
		Headers: []string{"id", "title", "status"},
		Rows: []map[string]string{
			{"id": "c-1", "title": "Broken fan", "status": "pending"},
			{"id": "c-2", "title": "Leaking tap, hostel B", "status": "resolved"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.Equal(t, "text/csv", FormatCSV.ContentType())

	_, err = ParseFormat("docx")
	assert.Error(t, err)
}

func TestCSVRenderer(t *testing.T) {
	out, err := CSVRenderer{}.Render(sample())
	require.NoError(t, err)
	assert.Equal(t, "id,title,status\nc-1,Broken fan,pending\nc-2,\"Leaking tap, hostel B\",resolved\n", string(out))
}

func TestPDFRenderer(t *testing.T) {
	out, err := PDFRenderer{}.Render(sample())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXRenderer(t *testing.T) {
	out, err := XLSXRenderer{}.Render(sample())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("Complaints", "B3")
	require.NoError(t, err)
	assert.Equal(t, "Leaking tap, hostel B", v)
}

func TestRenderersRequireHeaders(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatPDF, FormatXLSX} {
		r, err := RendererFor(format)
		require.NoError(t, err)
		_, err = r.Render(Dataset{})
		assert.Error(t, err, format)
	}
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, defaultSheet, sheetName(""))
	assert.Equal(t, "ab", sheetName("a/b"))
	assert.Len(t, []rune(sheetName("this title is definitely longer than thirty one characters")), 31)
}
