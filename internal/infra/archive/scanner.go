package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/machinebox/graphql"

	"github.com/vietddude/weavearchive/internal/core/domain"
	"github.com/vietddude/weavearchive/internal/indexing/backfill"
	"github.com/vietddude/weavearchive/internal/indexing/metrics"
	"github.com/vietddude/weavearchive/internal/infra/rpc/routing"
)

const transactionsQuery = `
query GetTransactions($cursor: String, $pageSize: Int!, $protocol: String!, $owners: [String!]) {
	transactions(
		first: $pageSize,
		after: $cursor,
		order: DESC,
		tags: [{ name: "Protocol", values: [$protocol] }],
		owners: $owners
	) {
		edges {
			node {
				tags {
					name
					value
				}
			}
			cursor
		}
		pageInfo {
			hasNextPage
			endCursor
		}
	}
}`

// ScannerConfig configures the archive index scanner.
type ScannerConfig struct {
	GatewayURL string
	Protocol   string
	PageSize   int
	Timeout    time.Duration // per page request
	Retry      routing.RetryConfig
}

// Scanner pages through the archive index to learn which blocks are archived.
type Scanner struct {
	client *graphql.Client
	cfg    ScannerConfig
	log    *slog.Logger
}

type transactionsPage struct {
	Transactions *struct {
		Edges []struct {
			Node struct {
				Tags []domain.Tag `json:"tags"`
			} `json:"node"`
			Cursor string `json:"cursor"`
		} `json:"edges"`
		PageInfo *struct {
			HasNextPage bool    `json:"hasNextPage"`
			EndCursor   *string `json:"endCursor"`
		} `json:"pageInfo"`
	} `json:"transactions"`
}

// validate rejects pages that decoded without the connection shape the
// pager depends on, e.g. a null data field or a gateway error body.
func (p *transactionsPage) validate() error {
	if p.Transactions == nil {
		return fmt.Errorf("%w: page has no transactions field", domain.ErrMalformedResponse)
	}
	info := p.Transactions.PageInfo
	if info == nil {
		return fmt.Errorf("%w: page has no pageInfo field", domain.ErrMalformedResponse)
	}
	if info.HasNextPage && (info.EndCursor == nil || *info.EndCursor == "") {
		return fmt.Errorf("%w: hasNextPage set without endCursor", domain.ErrMalformedResponse)
	}
	return nil
}

// NewScanner creates a scanner querying <gateway>/graphql.
func NewScanner(cfg ScannerConfig, httpClient *http.Client) *Scanner {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = routing.DefaultRetryConfig
	}
	return &Scanner{
		client: graphql.NewClient(cfg.GatewayURL+"/graphql", graphql.WithHTTPClient(httpClient)),
		cfg:    cfg,
		log:    slog.Default().With("component", "scanner"),
	}
}

// Scan returns the sorted, de-duplicated block numbers archived by any of the
// identities. Each identity is paged until the index reports no further pages
// or the page counter exceeds maxPages. Any page that still fails after
// retries aborts the scan with ErrIndexUnreachable.
func (s *Scanner) Scan(ctx context.Context, maxPages uint32, identities []string) ([]uint64, error) {
	sets := make([][]uint64, 0, len(identities))
	for _, owner := range identities {
		numbers, err := s.scanOwner(ctx, maxPages, owner)
		if err != nil {
			return nil, err
		}
		sets = append(sets, numbers)
	}

	archived := backfill.MergeArchived(sets...)
	s.log.Info("archive scan complete", "owners", len(identities), "archived", len(archived))
	return archived, nil
}

func (s *Scanner) scanOwner(ctx context.Context, maxPages uint32, owner string) ([]uint64, error) {
	var (
		numbers   []uint64
		cursor    *string
		pageCount uint32
	)

	for {
		pageCount++
		s.log.Debug("fetching index page", "owner", owner, "page", pageCount)

		page, err := s.fetchPage(ctx, owner, cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: owner %s page %d: %w", domain.ErrIndexUnreachable, owner, pageCount, err)
		}
		metrics.IndexPagesScanned.WithLabelValues(owner).Inc()

		for _, edge := range page.Transactions.Edges {
			if n, ok := blockNumberTag(edge.Node.Tags); ok {
				numbers = append(numbers, n)
			}
		}

		info := page.Transactions.PageInfo
		if !info.HasNextPage {
			break
		}
		cursor = info.EndCursor
		if pageCount > maxPages {
			s.log.Warn("page cap reached before end of index", "owner", owner, "max_pages", maxPages)
			break
		}
	}

	s.log.Debug("owner scanned", "owner", owner, "pages", pageCount, "numbers", len(numbers))
	return numbers, nil
}

func (s *Scanner) fetchPage(ctx context.Context, owner string, cursor *string) (*transactionsPage, error) {
	var page transactionsPage
	err := routing.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		req := graphql.NewRequest(transactionsQuery)
		req.Var("cursor", cursor)
		req.Var("pageSize", s.cfg.PageSize)
		req.Var("protocol", s.cfg.Protocol)
		req.Var("owners", []string{owner})

		pageCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()

		page = transactionsPage{}
		err := s.client.Run(pageCtx, req, &page)
		if err == nil {
			// Malformed pages are not retried.
			return page.validate()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(pageCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: page request timed out after %s", domain.ErrTransport, s.cfg.Timeout)
		}
		return fmt.Errorf("%w: %w", domain.ErrTransport, err)
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// blockNumberTag extracts the Block-Number tag. Missing or unparseable tags are skipped.
func blockNumberTag(tags []domain.Tag) (uint64, bool) {
	for _, tag := range tags {
		if tag.Name != domain.TagBlockNumber {
			continue
		}
		n, err := strconv.ParseUint(tag.Value, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
