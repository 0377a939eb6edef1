package bridge

import (
	"context"
	"errors"

	"github.com/angelcm/pse-data-bridge/internal/apperr"
	"github.com/angelcm/pse-data-bridge/internal/config"
	"github.com/angelcm/pse-data-bridge/internal/models"
	"github.com/angelcm/pse-data-bridge/internal/store"
)

// sortKeyCeiling sorts after every "<date>#<entityId>" sort key of that date.
const sortKeyCeiling = "~"

// Repo maps typed records onto store documents.
type Repo struct {
	st store.Store
	t  config.Tables
}

func NewRepo(st store.Store, t config.Tables) *Repo { return &Repo{st: st, t: t} }

func (r *Repo) PutContent(ctx context.Context, c models.ContentItem) error {
	return r.put(ctx, r.t.PostTracking, c.ContentID, "", "", "", c)
}

func (r *Repo) PutBlogContent(ctx context.Context, c models.ContentItem) error {
	return r.put(ctx, r.t.BlogContent, c.ContentID, "", "", "", c)
}

func (r *Repo) PutKeyword(ctx context.Context, k models.Keyword) error {
	return r.put(ctx, r.t.Keywords, k.KeywordID, "", "", "", k)
}

func (r *Repo) PutMapping(ctx context.Context, m models.Mapping) error {
	return r.put(ctx, r.t.ContentMap, m.MappingID, "", "", "", m)
}

func (r *Repo) PutMetric(ctx context.Context, m models.MetricRecord) error {
	return r.put(ctx, r.t.Metrics, m.EntityType, m.Date+"#"+m.EntityID, m.EntityID, m.Date, m)
}

func (r *Repo) PutRevenue(ctx context.Context, rec models.RevenueRecord) error {
	return r.put(ctx, r.t.Revenue, rec.Date, rec.RecordID, "", "", rec)
}

func (r *Repo) put(ctx context.Context, table, pk, sk, ipk, isk string, v any) error {
	d, err := store.NewDocument(pk, sk, v)
	if err != nil {
		return err
	}
	d.IndexPK, d.IndexSK = ipk, isk
	if err := r.st.Put(ctx, table, d); err != nil {
		return apperr.Dependency("put "+table, err)
	}
	return nil
}

func (r *Repo) ContentByStatus(ctx context.Context, status string, limit int) ([]models.ContentItem, error) {
	return scan[models.ContentItem](ctx, r.st, r.t.PostTracking, store.Filter{"status": status}, limit)
}

func (r *Repo) Keywords(ctx context.Context) ([]models.Keyword, error) {
	return scan[models.Keyword](ctx, r.st, r.t.Keywords, nil, 0)
}

func (r *Repo) Mappings(ctx context.Context) ([]models.Mapping, error) {
	return scan[models.Mapping](ctx, r.st, r.t.ContentMap, nil, 0)
}

func (r *Repo) Mapping(ctx context.Context, id string) (models.Mapping, error) {
	return get[models.Mapping](ctx, r.st, r.t.ContentMap, id)
}

func (r *Repo) BlogContent(ctx context.Context, id string) (models.ContentItem, error) {
	return get[models.ContentItem](ctx, r.st, r.t.BlogContent, id)
}

// MetricsByType returns the records of one entity type whose date lies in
// [start, end].
func (r *Repo) MetricsByType(ctx context.Context, entityType, start, end string) ([]models.MetricRecord, error) {
	return query[models.MetricRecord](ctx, r.st, r.t.Metrics, store.Query{PK: entityType, From: start, To: end + sortKeyCeiling})
}

// RecentMetrics returns the newest limit records of one entity, newest first.
func (r *Repo) RecentMetrics(ctx context.Context, entityID string, limit int) ([]models.MetricRecord, error) {
	return query[models.MetricRecord](ctx, r.st, r.t.Metrics, store.Query{Index: store.IndexSecondary, PK: entityID, Descending: true, Limit: limit})
}

func (r *Repo) RevenueOn(ctx context.Context, date string) ([]models.RevenueRecord, error) {
	return query[models.RevenueRecord](ctx, r.st, r.t.Revenue, store.Query{PK: date})
}

// Probe reads at most one document of table.
func (r *Repo) Probe(ctx context.Context, table string) error {
	_, err := r.st.Scan(ctx, table, nil, 1)
	return err
}

func get[T any](ctx context.Context, st store.Store, table, key string) (T, error) {
	var zero T
	d, err := st.Get(ctx, table, key, "")
	if errors.Is(err, store.ErrNotFound) {
		return zero, apperr.NotFound("get "+table, key)
	}
	if err != nil {
		return zero, apperr.Dependency("get "+table, err)
	}
	v, err := store.Decode[T](d)
	if err != nil {
		return zero, apperr.Dependency("get "+table, err)
	}
	return v, nil
}

func scan[T any](ctx context.Context, st store.Store, table string, f store.Filter, limit int) ([]T, error) {
	docs, err := st.Scan(ctx, table, f, limit)
	if err != nil {
		return nil, apperr.Dependency("scan "+table, err)
	}
	out, err := store.DecodeAll[T](docs)
	if err != nil {
		return nil, apperr.Dependency("scan "+table, err)
	}
	return out, nil
}

func query[T any](ctx context.Context, st store.Store, table string, q store.Query) ([]T, error) {
	docs, err := st.Query(ctx, table, q)
	if err != nil {
		return nil, apperr.Dependency("query "+table, err)
	}
	out, err := store.DecodeAll[T](docs)
	if err != nil {
		return nil, apperr.Dependency("query "+table, err)
	}
	return out, nil
}
