package store

import (
	"context"
	"fmt"
	"time"
)

// Stats is a point-in-time snapshot of the store's row counts, for
// `tariffctl stats` (§6 admin surface).
type Stats struct {
	Documents        int
	Chunks           int
	CurrentMeasures  int
	Assertions       int
	ReviewsPending   int
	ReviewsResolved  int
	ReviewsDismissed int
	SourceVersions   int
}

// Stats reports row counts across every table the admin CLI surfaces,
// with measures counted as of now.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM document`, &st.Documents},
		{`SELECT COUNT(*) FROM document_chunk`, &st.Chunks},
		{`SELECT COUNT(*) FROM verified_assertion WHERE effective_end IS NULL`, &st.Assertions},
		{`SELECT COUNT(*) FROM needs_review_queue WHERE status = 'pending'`, &st.ReviewsPending},
		{`SELECT COUNT(*) FROM needs_review_queue WHERE status = 'resolved'`, &st.ReviewsResolved},
		{`SELECT COUNT(*) FROM needs_review_queue WHERE status = 'dismissed'`, &st.ReviewsDismissed},
		{`SELECT COUNT(*) FROM source_version`, &st.SourceVersions},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return Stats{}, fmt.Errorf("stats query %q: %w", c.query, err)
		}
	}

	measures, err := s.AllCurrentMeasures(ctx, time.Now())
	if err != nil {
		return Stats{}, err
	}
	st.CurrentMeasures = len(measures)

	return st, nil
}
