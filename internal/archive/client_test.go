package archive

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/editiondiff/internal/cache"
	apperrors "github.com/lepinkainen/editiondiff/internal/errors"
	"github.com/lepinkainen/editiondiff/internal/fetch"
	"github.com/lepinkainen/editiondiff/internal/testutil"
)

const sampleTracks = `[
  {"type":"folder","title":"MP3","children":[
    {"type":"audio","title":"01.mp3","mediaDownloadUrl":"https://cdn.test/01.mp3"},
    {"type":"audio","title":"02.mp3","mediaStreamUrl":"https://cdn.test/02.mp3"}
  ]},
  {"type":"text","title":"readme.txt","mediaDownloadUrl":"https://cdn.test/readme.txt"}
]`

// newTestClient wires a client to two fake hosts and returns it with
// per-host request counters.
func newTestClient(t *testing.T, primary, mirror http.HandlerFunc) (*Client, *atomic.Int32, *atomic.Int32) {
	t.Helper()

	var primaryCalls, mirrorCalls atomic.Int32
	primarySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryCalls.Add(1)
		primary(w, r)
	}))
	t.Cleanup(primarySrv.Close)
	mirrorSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mirrorCalls.Add(1)
		mirror(w, r)
	}))
	t.Cleanup(mirrorSrv.Close)

	f := fetch.New(fetch.WithRetries(0), fetch.WithRatePerSecond(0))
	client := NewClient(f, WithPrimaryURL(primarySrv.URL), WithMirrorURL(mirrorSrv.URL+"/"))
	return client, &primaryCalls, &mirrorCalls
}

func failing(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusInternalServerError)
}

func unexpected(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL)
		w.WriteHeader(http.StatusTeapot)
	}
}

func TestSearchRequest(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search/RJ01348345", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "release", r.URL.Query().Get("order"))
		assert.Equal(t, "desc", r.URL.Query().Get("sort"))
		assert.Equal(t, "Mozilla/5.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"works":[{"id":1}]}`))
	}, unexpected(t))

	res, err := client.Search(context.Background(), "  RJ01348345 ")
	require.NoError(t, err)
	assert.Len(t, res.Works(), 1)
}

func TestSearchMirrorRequest(t *testing.T) {
	client, _, _ := newTestClient(t, unexpected(t), func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search/ RJ01348345", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "create_date", q.Get("order"))
		assert.Equal(t, "20", q.Get("pageSize"))
		assert.Equal(t, "0", q.Get("subtitle"))
		assert.Equal(t, "true", q.Get("includeTranslationWorks"))
		_, _ = w.Write([]byte(`{"works":[]}`))
	})

	res, err := client.SearchMirror(context.Background(), " RJ01348345")
	require.NoError(t, err)
	assert.Empty(t, res.Works())
}

func TestSearchResponseWithoutWorks(t *testing.T) {
	assert.Nil(t, SearchResponse{}.Works())
	assert.Nil(t, SearchResponse{"works": "nope"}.Works())
}

func TestSearchRejectsNonObject(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[1,2,3]`))
	}, unexpected(t))

	_, err := client.Search(context.Background(), "RJ1")
	require.Error(t, err)
	assert.True(t, apperrors.IsParseError(err))
}

func TestSummarizeFallsBackToMirror(t *testing.T) {
	client, _, mirrorCalls := newTestClient(t,
		func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.HasPrefix(r.URL.Path, "/api/search/"):
				_, _ = w.Write([]byte(`{"works":[],"pagination":{"totalCount":0}}`))
			case r.URL.Path == "/api/tracks/445566":
				_, _ = w.Write([]byte(sampleTracks))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		},
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/search/ RJ01348345", r.URL.Path)
			_, _ = w.Write([]byte(`{"works":[{"id":445566,"source_id":"RJ01348345","title":" 癒しの音 ","tags":[{"name":"ASMR"},{"id":3},{"name":"バイノーラル"}]}]}`))
		},
	)

	s, err := client.Summarize(context.Background(), "RJ01348345")
	require.NoError(t, err)
	assert.Equal(t, int32(1), mirrorCalls.Load())

	assert.True(t, s.Hit)
	assert.Equal(t, "RJ01348345", s.Keyword)
	assert.Equal(t, "445566", s.ID)
	assert.Equal(t, "RJ01348345", s.SourceID)
	assert.Equal(t, "癒しの音", s.Title)
	assert.Equal(t, []string{"ASMR", "バイノーラル"}, s.Tags)
	assert.Equal(t, 3, s.LeafCount)
	assert.Equal(t, []string{"MP3/01.mp3", "MP3/02.mp3", "readme.txt"}, s.LeafSamples)
}

func TestSummarizeNoMirrorForFreeText(t *testing.T) {
	client, _, mirrorCalls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"works":[]}`))
	}, unexpected(t))

	s, err := client.Summarize(context.Background(), "ヒーリング")
	require.NoError(t, err)
	assert.False(t, s.Hit)
	assert.Equal(t, int32(0), mirrorCalls.Load())
}

func TestSummarizeMissBothHosts(t *testing.T) {
	empty := func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"works":[]}`))
	}
	client, _, _ := newTestClient(t, empty, empty)

	s, err := client.Summarize(context.Background(), "RJ404")
	require.NoError(t, err)
	assert.Equal(t, Summary{Keyword: "RJ404"}, s)
}

func TestSummarizeFirstResultNotObject(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"works":["RJ1"]}`))
	}, unexpected(t))

	s, err := client.Summarize(context.Background(), "RJ1")
	require.NoError(t, err)
	assert.False(t, s.Hit)
}

func TestSummarizeTrackFailureIsSwallowed(t *testing.T) {
	client, _, mirrorCalls := newTestClient(t,
		func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/search/") {
				_, _ = w.Write([]byte(`{"works":[{"id":"77","source_id":"RJ77","title":"t"}]}`))
				return
			}
			failing(w, r)
		},
		failing,
	)

	s, err := client.Summarize(context.Background(), "RJ77")
	require.NoError(t, err)
	assert.True(t, s.Hit)
	assert.Equal(t, "77", s.ID)
	assert.Equal(t, 0, s.LeafCount)
	assert.Empty(t, s.LeafSamples)
	assert.Equal(t, int32(1), mirrorCalls.Load())
}

func TestSummarizeCapsSamples(t *testing.T) {
	var tree strings.Builder
	tree.WriteString("[")
	for i := range 12 {
		if i > 0 {
			tree.WriteString(",")
		}
		fmt.Fprintf(&tree, `{"title":"%02d.wav","url":"https://cdn.test/%d"}`, i+1, i)
	}
	tree.WriteString("]")

	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/search/") {
			_, _ = w.Write([]byte(`{"works":[{"id":9}]}`))
			return
		}
		_, _ = w.Write([]byte(tree.String()))
	}, unexpected(t))

	s, err := client.Summarize(context.Background(), "RJ9")
	require.NoError(t, err)
	assert.Equal(t, 12, s.LeafCount)
	require.Len(t, s.LeafSamples, 10)
	assert.Equal(t, "01.wav", s.LeafSamples[0])
	assert.Equal(t, "10.wav", s.LeafSamples[9])
}

func TestSummarizeSearchError(t *testing.T) {
	client, _, mirrorCalls := newTestClient(t, failing, unexpected(t))

	_, err := client.Summarize(context.Background(), "RJ01348345")
	require.Error(t, err)
	assert.True(t, apperrors.IsFetchError(err))
	assert.True(t, apperrors.IsStatusError(err))
	assert.Equal(t, int32(0), mirrorCalls.Load())
}

func TestTracksFallsBackToMirror(t *testing.T) {
	client, primaryCalls, _ := newTestClient(t, failing, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tracks/42", r.URL.Path)
		_, _ = w.Write([]byte(sampleTracks))
	})

	tree, err := client.Tracks(context.Background(), " 42 ")
	require.NoError(t, err)
	assert.Equal(t, int32(1), primaryCalls.Load())
	assert.Len(t, FlattenTracks(tree), 3)
}

func TestIsCodeShaped(t *testing.T) {
	testCases := []struct {
		keyword string
		want    bool
	}{
		{"RJ01348345", true},
		{" rj01348345\n", true},
		{"RJ", false},
		{"RJ0134x", false},
		{"BJ01348345", false},
		{"ヒーリング", false},
		{"", false},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, IsCodeShaped(tc.keyword), "keyword %q", tc.keyword)
	}
}

func TestSearchTTLShortensEmptyResults(t *testing.T) {
	testutil.ResetViper(t)

	assert.Equal(t, cache.NegativeCacheTTL, searchTTL(`{"works":[]}`))
	assert.Equal(t, cache.NegativeCacheTTL, searchTTL(`{"pagination":{"totalCount":0}}`))
	assert.Equal(t, cache.DefaultCacheTTL, searchTTL(`{"works":[{"id":1}]}`))
}

