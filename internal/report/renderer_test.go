package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/report-dispatcher/pkg/utils"
)

func TestRenderIncludesDashboards(t *testing.T) {
	now := time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)
	r, err := NewTemplateRenderer(func() time.Time { return now })
	require.NoError(t, err)

	out, err := r.Render(context.Background(), []string{"overview", "revenue"})
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "<h1>Analytics Report</h1>")
	assert.Contains(t, html, "Generated on 2024-01-15")
	assert.Contains(t, html, "<h2>overview</h2>")
	assert.Contains(t, html, "<h2>revenue</h2>")
}

func TestRenderEscapesDashboardNames(t *testing.T) {
	r, err := NewTemplateRenderer(nil)
	require.NoError(t, err)

	out, err := r.Render(context.Background(), []string{"<script>alert(1)</script>"})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>")
}

func TestRenderRejectsEmptyDashboards(t *testing.T) {
	r, err := NewTemplateRenderer(nil)
	require.NoError(t, err)

	_, err = r.Render(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeRender, utils.ErrorCode(err))
}

func TestArtifactStoreRoundTrip(t *testing.T) {
	store, err := NewFileArtifactStore(t.TempDir(), "http://localhost:8081/reports/")
	require.NoError(t, err)

	name := ArtifactName("r1", time.UnixMilli(1705312800000))
	assert.Equal(t, "report-r1-1705312800000.pdf", name)

	url, err := store.Put(context.Background(), name, []byte("content"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8081/reports/"+name, url)

	// Readable by plain name and by the returned URL
	data, err := store.Get(context.Background(), name)
	require.NoError(t, err)
	assert.Equal(t, []byte("content"), data)

	data, err = store.Get(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, []byte("content"), data)
}

func TestArtifactStoreRejectsPathTraversal(t *testing.T) {
	store, err := NewFileArtifactStore(t.TempDir(), "http://localhost/reports")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../escape.pdf", []byte("x"))
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeValidation, utils.ErrorCode(err))
}

func TestArtifactStoreMissingFile(t *testing.T) {
	store, err := NewFileArtifactStore(t.TempDir(), "http://localhost/reports")
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "report-missing-0.pdf")
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeNotFound, utils.ErrorCode(err))
}
