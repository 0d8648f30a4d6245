package masters_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/match-video-api/internal/db"
	"github.com/noah-isme/match-video-api/internal/masters"
)

type fakeQueries struct {
	calls int
	err   error
}

func (f *fakeQueries) ListVideoTiers(context.Context) ([]db.VideoTier, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	id, _ := db.ParseUUID("11111111-1111-1111-1111-111111111111")
	return []db.VideoTier{
		{ID: id, Name: "2", Price: 17820, Description: pgtype.Text{String: "2試合", Valid: true}},
	}, nil
}

func (f *fakeQueries) ListEditOptions(context.Context) ([]db.EditOption, error) {
	id, _ := db.ParseUUID("22222222-2222-2222-2222-222222222222")
	return []db.EditOption{{ID: id, Name: "両方", Price: 5500}}, nil
}

func (f *fakeQueries) ListDeliveryMethods(context.Context) ([]db.DeliveryMethod, error) {
	dl, _ := db.ParseUUID("33333333-3333-3333-3333-333333333333")
	sd, _ := db.ParseUUID("44444444-4444-4444-4444-444444444444")
	return []db.DeliveryMethod{
		{ID: dl, Name: "DL", Price: 0},
		{ID: sd, Name: "SD", Price: 3300, ShippingPrice: pgtype.Int8{Int64: 550, Valid: true}},
	}, nil
}

func (f *fakeQueries) ListHolderOptions(context.Context) ([]db.HolderOption, error) {
	id, _ := db.ParseUUID("55555555-5555-5555-5555-555555555555")
	return []db.HolderOption{{ID: id, Name: "購入する", Price: 1000}}, nil
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestListMapsRows(t *testing.T) {
	svc, err := masters.NewService(masters.ServiceConfig{Queries: &fakeQueries{}, Logger: zerolog.Nop()})
	require.NoError(t, err)

	catalog, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog.VideoTiers, 1)
	require.Equal(t, "11111111-1111-1111-1111-111111111111", catalog.VideoTiers[0].ID)
	require.NotNil(t, catalog.VideoTiers[0].Description)
	require.Equal(t, "2試合", *catalog.VideoTiers[0].Description)
	require.Len(t, catalog.DeliveryMethods, 2)
	require.Nil(t, catalog.DeliveryMethods[0].ShippingPrice)
	require.NotNil(t, catalog.DeliveryMethods[1].ShippingPrice)
	require.Equal(t, int64(550), *catalog.DeliveryMethods[1].ShippingPrice)
}

func TestListServesFromCache(t *testing.T) {
	mr, client := newRedis(t)
	queries := &fakeQueries{}
	svc, err := masters.NewService(masters.ServiceConfig{
		Queries: queries,
		Cache:   masters.NewCache(client, time.Minute),
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	ctx := context.Background()

	first, err := svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, queries.calls)
	require.True(t, mr.Exists(masters.CacheKey))

	second, err := svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, queries.calls, "second read should hit redis")
	require.Equal(t, first, second)

	require.NoError(t, svc.Invalidate(ctx))
	require.False(t, mr.Exists(masters.CacheKey))
	_, err = svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, queries.calls)
	require.True(t, mr.Exists(masters.CacheKey), "reload after invalidation warms the cache")

	mr.FastForward(2 * time.Minute)
	require.False(t, mr.Exists(masters.CacheKey))
}

func TestListFallsBackWhenRedisDown(t *testing.T) {
	mr, client := newRedis(t)
	queries := &fakeQueries{}
	svc, err := masters.NewService(masters.ServiceConfig{
		Queries: queries,
		Cache:   masters.NewCache(client, time.Minute),
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	mr.Close()

	catalog, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog.HolderOptions, 1)
	require.Equal(t, 1, queries.calls)
}

func TestHandlerList(t *testing.T) {
	svc, err := masters.NewService(masters.ServiceConfig{Queries: &fakeQueries{}, Logger: zerolog.Nop()})
	require.NoError(t, err)
	h := masters.NewHandler(svc)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/masters", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data masters.Catalog `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "両方", resp.Data.EditOptions[0].Name)
	require.Equal(t, "SD", resp.Data.DeliveryMethods[1].Name)
}

func TestHandlerListError(t *testing.T) {
	svc, err := masters.NewService(masters.ServiceConfig{Queries: &fakeQueries{err: errors.New("boom")}, Logger: zerolog.Nop()})
	require.NoError(t, err)
	h := masters.NewHandler(svc)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/masters", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), `"INTERNAL"`)
}

func TestNewServiceRequiresQueries(t *testing.T) {
	_, err := masters.NewService(masters.ServiceConfig{})
	require.Error(t, err)
}
