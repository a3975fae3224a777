package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	return Report{
		Title: "Dashboard",
		Sections: []Dataset{
			{
				Title:   "Payment Status",
				Headers: []string{"status", "count"},
				Rows: []map[string]string{
					{"status": "Paid", "count": "12"},
					{"status": "Not Paid", "count": "3"},
				},
			},
			{
				Title:   "Payment Methods",
				Headers: []string{"method", "count"},
				Rows:    []map[string]string{{"method": "gcash", "count": "9"}},
			},
		},
	}
}

func TestCSVRenderSingleSection(t *testing.T) {
	out, err := NewCSVExporter().Render(Report{Sections: []Dataset{{
		Headers: []string{"id", "name"},
		Rows:    []map[string]string{{"id": "1", "name": "Ana"}},
	}}})
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,Ana\n", string(out))
}

func TestCSVRenderSections(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "Payment Status\nstatus,count\nPaid,12\nNot Paid,3\n\nPayment Methods\nmethod,count\ngcash,9\n", string(out))
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Report{Sections: []Dataset{{Title: "empty"}}})
	assert.Error(t, err)
	_, err = NewCSVExporter().Render(Report{})
	assert.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleReport())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 100))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnopqrstuvwxyz", 16))
}
