package doi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/crates/pkg/types"
)

const crossrefBody = `{
  "status": "ok",
  "message": {
    "DOI": "10.1234/heart",
    "title": ["Heart Rate Study"],
    "author": [{"given": "Ada", "family": "Lovelace"}, {"given": "Alan", "family": "Turing"}],
    "published": {"date-parts": [[2021, 3]]},
    "abstract": "Resting heart rate.",
    "subject": ["cardiology", "physiology"],
    "version": "2"
  }
}`

const dataciteBody = `{
  "data": {
    "id": "10.5061/dryad.x",
    "attributes": {
      "doi": "10.5061/dryad.x",
      "title": "Dryad Package",
      "author": [{"given": "Grace", "family": "Hopper"}],
      "published": "2019",
      "description": "Field data.",
      "version": "1.0"
    }
  }
}`

type provider struct {
	status int
	body   string
	calls  atomic.Int32
	path   atomic.Value
}

func (p *provider) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.calls.Add(1)
		p.path.Store(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(p.status)
		_, _ = w.Write([]byte(p.body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient(t *testing.T, crossref, datacite *provider) *Client {
	t.Helper()
	return NewClient(
		WithCrossRefURL(crossref.server(t).URL+"/works"),
		WithDataCiteURL(datacite.server(t).URL+"/works/"),
	)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.1234/abc", "10.1234/abc"},
		{"https://doi.org/10.1234/abc", "10.1234/abc"},
		{"http://dx.doi.org/10.1234/abc", "10.1234/abc"},
		{"DOI:10.1234/abc", "10.1234/abc"},
		{"doi:10.1234/abc", "10.1234/abc"},
		{"  10.1234/abc  ", "10.1234/abc"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestResolveCrossRef(t *testing.T) {
	crossref := &provider{status: http.StatusOK, body: crossrefBody}
	datacite := &provider{status: http.StatusOK, body: dataciteBody}
	c := testClient(t, crossref, datacite)

	rec, err := c.Resolve(context.Background(), "https://doi.org/10.1234/heart")
	require.NoError(t, err)

	assert.Equal(t, SourceCrossRef, rec.Source)
	assert.Equal(t, "10.1234/heart", rec.DOI)
	assert.Equal(t, Metadata{
		Name:          "Heart Rate Study",
		Author:        "Ada Lovelace, Alan Turing",
		DatePublished: "2021-03-01",
		Description:   "Resting heart rate.",
		Keywords:      []string{"cardiology", "physiology"},
		URL:           "https://doi.org/10.1234/heart",
		Version:       "2",
	}, rec.Metadata)
	assert.Equal(t, "/works/10.1234/heart", crossref.path.Load())
	assert.Zero(t, datacite.calls.Load())
}

func TestResolveFallsThroughToDataCite(t *testing.T) {
	crossref := &provider{status: http.StatusNotFound, body: "Resource not found."}
	datacite := &provider{status: http.StatusOK, body: dataciteBody}
	c := testClient(t, crossref, datacite)

	rec, err := c.Resolve(context.Background(), "10.5061/dryad.x")
	require.NoError(t, err)

	assert.Equal(t, SourceDataCite, rec.Source)
	assert.Equal(t, "Dryad Package", rec.Metadata.Name)
	assert.Equal(t, "Grace Hopper", rec.Metadata.Author)
	assert.Equal(t, "2019-01-01", rec.Metadata.DatePublished)
	assert.Equal(t, "https://doi.org/10.5061/dryad.x", rec.Metadata.URL)
	assert.Equal(t, "/works/10.5061/dryad.x", datacite.path.Load())
	assert.Equal(t, int32(1), crossref.calls.Load())
}

func TestResolveNumericDataCiteYear(t *testing.T) {
	crossref := &provider{status: http.StatusInternalServerError}
	datacite := &provider{status: http.StatusOK, body: strings.Replace(dataciteBody, `"2019"`, `2018`, 1)}
	c := testClient(t, crossref, datacite)

	rec, err := c.Resolve(context.Background(), "10.5061/dryad.x")
	require.NoError(t, err)
	assert.Equal(t, "2018-01-01", rec.Metadata.DatePublished)
}

func TestResolveNotFound(t *testing.T) {
	crossref := &provider{status: http.StatusNotFound}
	datacite := &provider{status: http.StatusOK, body: "not json"}
	c := testClient(t, crossref, datacite)

	_, err := c.Resolve(context.Background(), "10.0000/none")
	require.Error(t, err)

	var notFound *types.MetadataNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "10.0000/none", notFound.DOI)
	assert.ErrorIs(t, err, types.ErrMetadataNotFound)
	assert.True(t, types.IsUserError(err))
}

func TestResolveCaches(t *testing.T) {
	crossref := &provider{status: http.StatusOK, body: crossrefBody}
	datacite := &provider{status: http.StatusOK, body: dataciteBody}
	c := testClient(t, crossref, datacite)

	first, err := c.Resolve(context.Background(), "10.1234/heart")
	require.NoError(t, err)
	second, err := c.Resolve(context.Background(), "DOI:10.1234/heart")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), crossref.calls.Load())
}

func TestResolveEmptyDOI(t *testing.T) {
	_, err := NewClient().Resolve(context.Background(), " https://doi.org/ ")
	assert.ErrorIs(t, err, types.ErrInvalidValue)
}

func TestResolveCanceled(t *testing.T) {
	crossref := &provider{status: http.StatusOK, body: crossrefBody}
	datacite := &provider{status: http.StatusOK, body: dataciteBody}
	c := testClient(t, crossref, datacite)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Resolve(ctx, "10.1234/heart")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, types.IsUserError(err))
}
