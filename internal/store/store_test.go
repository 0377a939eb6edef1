package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type post struct {
	ID     string `json:"contentId"`
	Status string `json:"status"`
}

type metric struct {
	EntityID string `json:"entityId"`
	Date     string `json:"date"`
	Clicks   int    `json:"clicks"`
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	lite, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	file, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "bridge.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		lite.Close()
		file.Close()
	})
	return map[string]Store{
		"memory":      NewMemoryStore(),
		"sqlite":      lite,
		"sqlite-file": file,
	}
}

func put(t *testing.T, s Store, table string, d Document) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), table, d))
}

func TestGetPutUpsert(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "posts", "p1", "")
			assert.ErrorIs(t, err, ErrNotFound)

			d, err := NewDocument("p1", "", post{ID: "p1", Status: "draft"})
			require.NoError(t, err)
			put(t, s, "posts", d)

			d, err = NewDocument("p1", "", post{ID: "p1", Status: "published"})
			require.NoError(t, err)
			put(t, s, "posts", d)

			got, err := s.Get(ctx, "posts", "p1", "")
			require.NoError(t, err)
			p, err := Decode[post](got)
			require.NoError(t, err)
			assert.Equal(t, "published", p.Status)

			all, err := s.Scan(ctx, "posts", nil, 0)
			require.NoError(t, err)
			assert.Len(t, all, 1)

			_, err = s.Get(ctx, "other", "p1", "")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestScanFilterAndLimit(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, p := range []post{{"a", "published"}, {"b", "draft"}, {"c", "published"}, {"d", "published"}} {
				d, err := NewDocument(p.ID, "", p)
				require.NoError(t, err)
				put(t, s, "posts", d)
			}

			docs, err := s.Scan(ctx, "posts", Filter{"status": "published"}, 0)
			require.NoError(t, err)
			posts, err := DecodeAll[post](docs)
			require.NoError(t, err)
			assert.Equal(t, []post{{"a", "published"}, {"c", "published"}, {"d", "published"}}, posts)

			docs, err = s.Scan(ctx, "posts", Filter{"status": "published"}, 2)
			require.NoError(t, err)
			assert.Len(t, docs, 2)

			docs, err = s.Scan(ctx, "posts", Filter{"status": "archived"}, 0)
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestQueryRangesAndSecondaryIndex(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, m := range []metric{
				{"c1", "2025-08-01", 1},
				{"c1", "2025-08-02", 2},
				{"c2", "2025-08-02", 3},
				{"c1", "2025-08-05", 4},
			} {
				d, err := NewDocument("content", m.Date+"#"+m.EntityID, m)
				require.NoError(t, err)
				d.IndexPK, d.IndexSK = m.EntityID, m.Date
				put(t, s, "metrics", d)
			}

			docs, err := s.Query(ctx, "metrics", Query{PK: "content", From: "2025-08-02", To: "2025-08-02~"})
			require.NoError(t, err)
			ms, err := DecodeAll[metric](docs)
			require.NoError(t, err)
			require.Len(t, ms, 2)
			assert.Equal(t, "c1", ms[0].EntityID)
			assert.Equal(t, "c2", ms[1].EntityID)

			docs, err = s.Query(ctx, "metrics", Query{Index: IndexSecondary, PK: "c1", Descending: true, Limit: 2})
			require.NoError(t, err)
			ms, err = DecodeAll[metric](docs)
			require.NoError(t, err)
			require.Len(t, ms, 2)
			assert.Equal(t, "2025-08-05", ms[0].Date)
			assert.Equal(t, "2025-08-02", ms[1].Date)

			docs, err = s.Query(ctx, "metrics", Query{PK: "campaign"})
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestSecondaryIndexTiesOrderByPrimaryKey(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, typ := range []string{"keyword", "ad", "content", "campaign"} {
				d, err := NewDocument(typ, "2025-08-01#x1", metric{EntityID: "x1", Date: "2025-08-01"})
				require.NoError(t, err)
				d.IndexPK, d.IndexSK = "x1", "2025-08-01"
				put(t, s, "metrics", d)
			}
			d, err := NewDocument("content", "2025-07-31#x1", metric{EntityID: "x1", Date: "2025-07-31"})
			require.NoError(t, err)
			d.IndexPK, d.IndexSK = "x1", "2025-07-31"
			put(t, s, "metrics", d)

			for range 20 {
				docs, err := s.Query(ctx, "metrics", Query{Index: IndexSecondary, PK: "x1", Descending: true, Limit: 3})
				require.NoError(t, err)
				pks := make([]string, 0, len(docs))
				for _, d := range docs {
					pks = append(pks, d.PK)
				}
				require.Equal(t, []string{"ad", "campaign", "content"}, pks)
			}

			docs, err := s.Query(ctx, "metrics", Query{Index: IndexSecondary, PK: "x1"})
			require.NoError(t, err)
			require.Len(t, docs, 5)
			assert.Equal(t, "2025-07-31", docs[0].IndexSK)
			assert.Equal(t, "ad", docs[1].PK)
			assert.Equal(t, "keyword", docs[4].PK)
		})
	}
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()
	assert.ErrorIs(t, s.Put(ctx, "t", Document{PK: "x"}), context.Canceled)
	_, err := s.Scan(ctx, "t", nil, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
