package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/specs-nexus-api/pkg/export"
	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
)

type failingRenderer struct{}

func (failingRenderer) Render(report export.Report) ([]byte, error) {
	return nil, errors.New("boom")
}

func sampleExportReport() export.Report {
	return export.Report{
		Title: "Clearances",
		Sections: []export.Dataset{{
			Headers: []string{"Name", "Status"},
			Rows:    []map[string]string{{"Name": "Ana Cruz", "Status": "Clear"}},
		}},
	}
}

func newTestExportService() *ExportService {
	svc := NewExportService(nil, nil, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestExportServiceRenderCSV(t *testing.T) {
	file, err := newTestExportService().Render("", "Membership Clearances", sampleExportReport())
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "membership_clearances_20250310_120000.csv", file.Filename)
	assert.True(t, strings.HasPrefix(string(file.Data), "Name,Status\n"))
}

func TestExportServiceRenderPDF(t *testing.T) {
	file, err := newTestExportService().Render("PDF", "dashboard", sampleExportReport())
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	_, err := newTestExportService().Render("xlsx", "dashboard", sampleExportReport())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServiceRenderFailure(t *testing.T) {
	svc := NewExportService(failingRenderer{}, nil, nil)
	_, err := svc.Render("csv", "x", sampleExportReport())
	require.Error(t, err)
	assert.Equal(t, 500, appErrors.FromError(err).Status)
}
