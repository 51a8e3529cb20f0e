package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/weavearchive/internal/core/domain"
	"github.com/vietddude/weavearchive/internal/infra/rpc/routing"
)

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlIndex struct {
	mu       sync.Mutex
	requests []gqlRequest
	// pages returns the tags and hasNextPage for the nth request of an owner.
	pages func(owner string, n int) ([][]domain.Tag, bool)
	perOwner map[string]int
}

func (g *gqlIndex) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graphql" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req gqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		owners, _ := req.Variables["owners"].([]any)
		owner, _ := owners[0].(string)

		g.mu.Lock()
		g.requests = append(g.requests, req)
		if g.perOwner == nil {
			g.perOwner = map[string]int{}
		}
		g.perOwner[owner]++
		n := g.perOwner[owner]
		g.mu.Unlock()

		nodes, hasNext := g.pages(owner, n)
		edges := make([]map[string]any, 0, len(nodes))
		for i, tags := range nodes {
			edges = append(edges, map[string]any{
				"node":   map[string]any{"tags": tags},
				"cursor": fmt.Sprintf("%s-%d-%d", owner, n, i),
			})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"transactions": map[string]any{
					"edges": edges,
					"pageInfo": map[string]any{
						"hasNextPage": hasNext,
						"endCursor":   fmt.Sprintf("%s-page-%d", owner, n),
					},
				},
			},
		})
	}
}

func blockTags(n string) []domain.Tag {
	return []domain.Tag{
		{Name: domain.TagProtocol, Value: "WeaveVM-ExEx"},
		{Name: domain.TagBlockNumber, Value: n},
	}
}

func newTestScanner(url string) *Scanner {
	return NewScanner(ScannerConfig{
		GatewayURL: url,
		Protocol:   "WeaveVM-ExEx",
		PageSize:   2,
		Timeout:    2 * time.Second,
		Retry: routing.RetryConfig{
			MaxAttempts:     2,
			InitialDelay:    time.Millisecond,
			MaxDelay:        2 * time.Millisecond,
			BackoffMultiple: 2,
		},
	}, nil)
}

func TestScanner_PageCapFetchesOneExtraPage(t *testing.T) {
	idx := &gqlIndex{
		pages: func(owner string, n int) ([][]domain.Tag, bool) {
			return [][]domain.Tag{blockTags(fmt.Sprint(n * 10))}, true
		},
	}
	server := httptest.NewServer(idx.handler(t))
	defer server.Close()

	got, err := newTestScanner(server.URL).Scan(context.Background(), 2, []string{"owner-a"})
	require.NoError(t, err)

	require.Len(t, idx.requests, 3)
	// Page 3's results are kept.
	assert.Equal(t, []uint64{10, 20, 30}, got)

	// The cursor from each page is passed to the next.
	assert.Nil(t, idx.requests[0].Variables["cursor"])
	assert.Equal(t, "owner-a-page-1", idx.requests[1].Variables["cursor"])
	assert.Equal(t, "owner-a-page-2", idx.requests[2].Variables["cursor"])
	assert.Equal(t, float64(2), idx.requests[0].Variables["pageSize"])
	assert.Equal(t, "WeaveVM-ExEx", idx.requests[0].Variables["protocol"])
}

func TestScanner_StopsWhenNoNextPage(t *testing.T) {
	idx := &gqlIndex{
		pages: func(owner string, n int) ([][]domain.Tag, bool) {
			return [][]domain.Tag{blockTags(fmt.Sprint(n))}, n < 2
		},
	}
	server := httptest.NewServer(idx.handler(t))
	defer server.Close()

	got, err := newTestScanner(server.URL).Scan(context.Background(), 100, []string{"owner-a"})
	require.NoError(t, err)
	assert.Len(t, idx.requests, 2)
	assert.Equal(t, []uint64{1, 2}, got)
}

func TestScanner_SkipsUnparseableTags(t *testing.T) {
	idx := &gqlIndex{
		pages: func(owner string, n int) ([][]domain.Tag, bool) {
			return [][]domain.Tag{
				blockTags("7"),
				blockTags("not-a-number"),
				blockTags("-3"),
				{{Name: domain.TagProtocol, Value: "WeaveVM-ExEx"}},
				blockTags("5"),
			}, false
		},
	}
	server := httptest.NewServer(idx.handler(t))
	defer server.Close()

	got, err := newTestScanner(server.URL).Scan(context.Background(), 10, []string{"owner-a"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 7}, got)
}

func TestScanner_MergesOwnersSortedAndDeduped(t *testing.T) {
	idx := &gqlIndex{
		pages: func(owner string, n int) ([][]domain.Tag, bool) {
			if owner == "owner-a" {
				return [][]domain.Tag{blockTags("9"), blockTags("3"), blockTags("3")}, false
			}
			return [][]domain.Tag{blockTags("3"), blockTags("1")}, false
		},
	}
	server := httptest.NewServer(idx.handler(t))
	defer server.Close()

	got, err := newTestScanner(server.URL).Scan(context.Background(), 10, []string{"owner-a", "owner-b"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3, 9}, got)
	assert.Equal(t, 1, idx.perOwner["owner-a"])
	assert.Equal(t, 1, idx.perOwner["owner-b"])
}

func TestScanner_UnreachableIndex(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestScanner(server.URL).Scan(context.Background(), 10, []string{"owner-a"})
	assert.ErrorIs(t, err, domain.ErrIndexUnreachable)
	assert.Equal(t, 2, calls, "page request should be retried")
}

func TestScanner_NoIdentities(t *testing.T) {
	got, err := newTestScanner("http://127.0.0.1:1").Scan(context.Background(), 10, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScanner_RejectsMalformedPages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "empty data", status: http.StatusOK, body: `{"data":{}}`},
		{name: "null data", status: http.StatusOK, body: `{"data":null}`},
		{name: "gateway error with json body", status: http.StatusBadGateway, body: `{"data":{}}`},
		{name: "missing page info", status: http.StatusOK, body: `{"data":{"transactions":{"edges":[]}}}`},
		{
			name:   "next page without cursor",
			status: http.StatusOK,
			body:   `{"data":{"transactions":{"edges":[],"pageInfo":{"hasNextPage":true,"endCursor":null}}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				mu    sync.Mutex
				calls int
			)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				calls++
				mu.Unlock()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			got, err := newTestScanner(server.URL).Scan(context.Background(), 10, []string{"owner-a"})
			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, domain.ErrIndexUnreachable)
			assert.ErrorIs(t, err, domain.ErrMalformedResponse)

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 1, calls, "malformed page should not be retried")
		})
	}
}
