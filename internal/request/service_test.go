package request

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/match-video-api/internal/common"
	"github.com/noah-isme/match-video-api/internal/db"
	"github.com/noah-isme/match-video-api/internal/notify"
	"github.com/noah-isme/match-video-api/internal/quote"
)

type fixture struct {
	store      *memStore
	tournament pgtype.UUID
	tier       pgtype.UUID
	editBoth   pgtype.UUID
	editScore  pgtype.UUID
	editNone   pgtype.UUID
	delivery   pgtype.UUID
	download   pgtype.UUID
	holder     pgtype.UUID
}

func newFixture() *fixture {
	s := newMemStore()
	f := &fixture{
		store:      s,
		tournament: newID(),
		tier:       newID(),
		editBoth:   newID(),
		editScore:  newID(),
		editNone:   newID(),
		delivery:   newID(),
		download:   newID(),
		holder:     newID(),
	}
	s.tournaments[db.UUIDString(f.tournament)] = db.Tournament{
		ID: f.tournament, Name: "春季大会", SetType: "ONE_SET", IsActive: true,
		Categories: []string{"U12", "U15"},
	}
	s.tiers[db.UUIDString(f.tier)] = db.VideoTier{ID: f.tier, Name: "2", Price: 17820}
	s.edits[db.UUIDString(f.editBoth)] = db.EditOption{ID: f.editBoth, Name: quote.EditBoth, Price: 5500}
	s.edits[db.UUIDString(f.editScore)] = db.EditOption{ID: f.editScore, Name: quote.EditScore, Price: 4400}
	s.edits[db.UUIDString(f.editNone)] = db.EditOption{ID: f.editNone, Name: quote.EditNone, Price: 0}
	s.deliveries[db.UUIDString(f.delivery)] = db.DeliveryMethod{
		ID: f.delivery, Name: "SD", Price: 3300, ShippingPrice: pgtype.Int8{Int64: 550, Valid: true},
	}
	s.deliveries[db.UUIDString(f.download)] = db.DeliveryMethod{ID: f.download, Name: "DL", Price: 0}
	s.holders[db.UUIDString(f.holder)] = db.HolderOption{ID: f.holder, Name: "購入する", Price: 1000}
	return f
}

func (f *fixture) input() SubmitInput {
	return SubmitInput{
		TournamentID:     db.UUIDString(f.tournament),
		Email:            "parent@example.com",
		CustomerName:     "山田 花子",
		PlayerName:       "山田 太郎",
		Phone:            "090-1234-5678",
		VideoTierID:      db.UUIDString(f.tier),
		EditOptionID:     db.UUIDString(f.editBoth),
		DeliveryMethodID: db.UUIDString(f.delivery),
		HolderOptionID:   db.UUIDString(f.holder),
		Items: []ItemInput{
			{Category: "U12", Round: "1回戦", Opponent: "東中"},
			{Category: "U15", Round: "2回戦", Opponent: "西中"},
		},
		Agree: true,
	}
}

// seqRand hands out 0, 1, 2, ... so receipts never collide by chance.
type seqRand struct{ next int }

func (r *seqRand) IntN(n int) int {
	v := r.next % n
	r.next++
	return v
}

type fixedRand int

func (r fixedRand) IntN(n int) int { return int(r) % n }

type recordingNotifier struct {
	mu       sync.Mutex
	payloads []notify.ReceiptPayload
	err      error
}

func (n *recordingNotifier) EnqueueReceipt(_ context.Context, p notify.ReceiptPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, p)
	return n.err
}

func newTestService(f *fixture, notifier ReceiptNotifier) *Service {
	clock := func() time.Time { return time.Date(2025, 4, 30, 16, 0, 0, 0, time.UTC) }
	jst := time.FixedZone("JST", 9*60*60)
	return NewService(f.store, NewReceiptGenerator(clock, &seqRand{}, jst), notifier, zerolog.Nop())
}

func requireValidation(t *testing.T, err error, field, constraint string) {
	t.Helper()
	var vErr *common.ValidationError
	require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
	require.Equal(t, field, vErr.Field)
	require.Equal(t, constraint, vErr.Constraint)
}

func TestSubmitRecomputesTotal(t *testing.T) {
	f := newFixture()
	notifier := &recordingNotifier{}
	svc := newTestService(f, notifier)

	out, err := svc.Submit(context.Background(), f.input())
	require.NoError(t, err)
	require.Equal(t, quote.Breakdown{
		Video: 12540, Edit: 4950, Delivery: 3300, Shipping: 550, Holder: 1000, Total: 22340,
	}, out.Breakdown)
	require.Equal(t, quote.Money(22340), out.Total)
	require.Equal(t, "20250501-0000", out.ReceiptNumber)

	saved, err := f.store.GetRequestByReceipt(context.Background(), out.ReceiptNumber)
	require.NoError(t, err)
	require.Equal(t, int64(22340), saved.TotalAmount)
	require.Equal(t, string(quote.EditModeSingle), saved.EditMode)
	require.Equal(t, quote.RulesVersion, saved.RulesVersion)
	var stored quote.Breakdown
	require.NoError(t, json.Unmarshal(saved.Breakdown, &stored))
	require.Equal(t, out.Breakdown, stored)

	require.Equal(t, 2, f.store.itemCount())
	require.Equal(t, int32(1), f.store.useCount(f.tournament))

	require.Len(t, notifier.payloads, 1)
	require.Equal(t, out.ReceiptNumber, notifier.payloads[0].ReceiptNumber)
	require.Equal(t, "春季大会", notifier.payloads[0].TournamentName)
	require.Equal(t, 2, notifier.payloads[0].ItemCount)
}

func TestSubmitUsesStoredPricesOnly(t *testing.T) {
	f := newFixture()
	svc := newTestService(f, nil)
	override := int64(5000)
	t2 := f.store.tournaments[db.UUIDString(f.tournament)]
	t2.PriceOverride = pgtype.Int8{Int64: override, Valid: true}
	f.store.tournaments[db.UUIDString(f.tournament)] = t2

	out, err := svc.Submit(context.Background(), f.input())
	require.NoError(t, err)
	require.Equal(t, quote.Money(5000), out.Breakdown.Video)
	require.Equal(t, quote.Money(5000+4950+3300+550+1000), out.Total)
}

func TestSubmitWithoutItemsUsesTierName(t *testing.T) {
	f := newFixture()
	svc := newTestService(f, nil)
	in := f.input()
	in.Items = nil

	out, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, quote.Money(12540), out.Breakdown.Video)
	require.Equal(t, 0, f.store.itemCount())
}

func TestSubmitPerItemEdits(t *testing.T) {
	f := newFixture()
	svc := newTestService(f, nil)
	in := f.input()
	in.EditMode = quote.EditModePerItem
	score := db.UUIDString(f.editScore)
	in.Items[0].EditOptionID = &score

	out, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, quote.Money(3300+4950), out.Breakdown.Edit)

	detail, err := svc.GetByReceipt(context.Background(), out.ReceiptNumber)
	require.NoError(t, err)
	require.Equal(t, string(quote.EditModePerItem), detail.EditMode)
	require.Len(t, detail.Items, 2)
	require.Equal(t, score, *detail.Items[0].EditOptionID)
	require.Equal(t, db.UUIDString(f.editBoth), *detail.Items[1].EditOptionID)
}

func TestSubmitPerItemRequiresItems(t *testing.T) {
	f := newFixture()
	svc := newTestService(f, nil)
	in := f.input()
	in.EditMode = quote.EditModePerItem
	in.Items = nil

	_, err := svc.Submit(context.Background(), in)
	requireValidation(t, err, "items", "min=1")
}

func TestSubmitAcceptsUpperCaseIDs(t *testing.T) {
	f := newFixture()
	svc := newTestService(f, nil)
	in := f.input()
	in.TournamentID = strings.ToUpper(in.TournamentID)
	in.VideoTierID = " " + strings.ToUpper(in.VideoTierID) + " "
	in.EditOptionID = strings.ToUpper(in.EditOptionID)
	in.DeliveryMethodID = strings.ToUpper(in.DeliveryMethodID)
	in.HolderOptionID = strings.ToUpper(in.HolderOptionID)
	in.EditMode = quote.EditModePerItem
	score := strings.ToUpper(db.UUIDString(f.editScore))
	in.Items[0].EditOptionID = &score

	out, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, quote.Money(3300+4950), out.Breakdown.Edit)
	require.Equal(t, int32(1), f.store.useCount(f.tournament))
	require.Equal(t, strings.ToUpper(db.UUIDString(f.editScore)), score, "caller's value is left untouched")
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture()
	svc := newTestService(f, nil)

	tests := []struct {
		name       string
		mutate     func(*SubmitInput)
		field      string
		constraint string
	}{
		{name: "agreement", mutate: func(in *SubmitInput) { in.Agree = false }, field: "agree", constraint: "eq=true"},
		{name: "email", mutate: func(in *SubmitInput) { in.Email = "not-an-email" }, field: "email", constraint: "email"},
		{name: "tournament id", mutate: func(in *SubmitInput) { in.TournamentID = "abc" }, field: "tournamentId", constraint: "uuid"},
		{name: "blank player", mutate: func(in *SubmitInput) { in.PlayerName = "  " }, field: "playerName", constraint: "notblank"},
		{name: "edit mode", mutate: func(in *SubmitInput) { in.EditMode = "mixed" }, field: "editMode", constraint: "oneof=single per_item"},
		{name: "item round", mutate: func(in *SubmitInput) { in.Items[1].Round = "" }, field: "items[1].round", constraint: "notblank"},
		{name: "too many items", mutate: func(in *SubmitInput) {
			for len(in.Items) < 7 {
				in.Items = append(in.Items, ItemInput{Category: "U12", Round: "r", Opponent: "o"})
			}
		}, field: "items", constraint: "max=6"},
		{name: "unknown category", mutate: func(in *SubmitInput) { in.Items[0].Category = "U18" }, field: "items[0].category", constraint: "oneof=U12 U15"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := f.input()
			tc.mutate(&in)
			_, err := svc.Submit(context.Background(), in)
			requireValidation(t, err, tc.field, tc.constraint)
			require.Zero(t, f.store.requestCount())
		})
	}
}

func TestSubmitInactiveTournament(t *testing.T) {
	f := newFixture()
	row := f.store.tournaments[db.UUIDString(f.tournament)]
	row.IsActive = false
	f.store.tournaments[db.UUIDString(f.tournament)] = row

	_, err := newTestService(f, nil).Submit(context.Background(), f.input())
	requireValidation(t, err, "tournamentId", "active")
}

func TestSubmitUnknownDeliveryLeavesNoTrace(t *testing.T) {
	f := newFixture()
	svc := newTestService(f, nil)
	delete(f.store.deliveries, db.UUIDString(f.delivery))

	_, err := svc.Submit(context.Background(), f.input())
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, common.CodeNotFound, appErr.Code)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	var nf *common.NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "deliveryMethod", nf.Resource)

	require.Zero(t, f.store.requestCount())
	require.Zero(t, f.store.itemCount())
	require.Equal(t, int32(0), f.store.useCount(f.tournament))
}

func TestSubmitRollsBackOnWriteFailure(t *testing.T) {
	for _, stage := range []string{"request", "item", "increment"} {
		t.Run(stage, func(t *testing.T) {
			f := newFixture()
			f.store.failOn = stage
			notifier := &recordingNotifier{}
			_, err := newTestService(f, notifier).Submit(context.Background(), f.input())

			var appErr *common.AppError
			require.True(t, errors.As(err, &appErr))
			require.Equal(t, common.CodeSubmissionFailed, appErr.Code)
			var txErr *TransactionError
			require.True(t, errors.As(err, &txErr))
			require.ErrorIs(t, err, errInjected)

			require.Zero(t, f.store.requestCount())
			require.Zero(t, f.store.itemCount())
			require.Equal(t, int32(0), f.store.useCount(f.tournament))
			require.Empty(t, notifier.payloads)
		})
	}
}

func TestSubmitDeletedTournamentBeforeIncrement(t *testing.T) {
	f := newFixture()
	svc := newTestService(f, nil)
	in := f.input()
	// the tournament is resolved, then vanishes before the write group runs
	svc.Store = &vanishingStore{memStore: f.store, id: db.UUIDString(f.tournament)}

	_, err := svc.Submit(context.Background(), in)
	require.ErrorIs(t, err, errTournamentGone)
	require.Zero(t, f.store.requestCount())
}

type vanishingStore struct {
	*memStore
	id string
}

func (v *vanishingStore) InTx(ctx context.Context, fn func(Writer) error) error {
	v.mu.Lock()
	delete(v.tournaments, v.id)
	v.mu.Unlock()
	return v.memStore.InTx(ctx, fn)
}

func TestSubmitRetriesReceiptConflict(t *testing.T) {
	f := newFixture()
	f.store.conflicts = 2
	out, err := newTestService(f, nil).Submit(context.Background(), f.input())
	require.NoError(t, err)
	require.Equal(t, "20250501-0002", out.ReceiptNumber)

	g := newFixture()
	g.store.conflicts = maxReceiptAttempts
	_, err = newTestService(g, nil).Submit(context.Background(), g.input())
	require.ErrorIs(t, err, db.ErrReceiptConflict)
	require.Zero(t, g.store.requestCount())
}

func TestSubmitIgnoresNotifierFailure(t *testing.T) {
	f := newFixture()
	notifier := &recordingNotifier{err: errors.New("redis down")}
	out, err := newTestService(f, notifier).Submit(context.Background(), f.input())
	require.NoError(t, err)
	require.NotEmpty(t, out.ID)
	require.Equal(t, 1, f.store.requestCount())
}

func TestConcurrentSubmissionsCountEveryUse(t *testing.T) {
	f := newFixture()
	svc := newTestService(f, nil)
	const n = 25

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), f.input())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(n), f.store.useCount(f.tournament))
	require.Equal(t, n, f.store.requestCount())
	require.Equal(t, 2*n, f.store.itemCount())
}

func TestReceiptGenerator(t *testing.T) {
	clock := func() time.Time { return time.Date(2025, 4, 30, 15, 30, 0, 0, time.UTC) }
	jst := time.FixedZone("JST", 9*60*60)

	require.Equal(t, "20250501-0042", NewReceiptGenerator(clock, fixedRand(42), jst).Next())
	require.Equal(t, "20250430-9999", NewReceiptGenerator(clock, fixedRand(9999), time.UTC).Next())
	require.Regexp(t, `^\d{8}-\d{4}$`, NewReceiptGenerator(nil, nil, nil).Next())
}

func TestGetByReceipt(t *testing.T) {
	f := newFixture()
	svc := newTestService(f, nil)
	memo := "午前の試合のみ"
	in := f.input()
	in.Memo = &memo
	out, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)

	detail, err := svc.GetByReceipt(context.Background(), out.ReceiptNumber)
	require.NoError(t, err)
	require.Equal(t, out.ID, detail.ID)
	require.Equal(t, out.Breakdown, detail.Breakdown)
	require.Equal(t, memo, *detail.Memo)
	require.Equal(t, 1, detail.Items[0].Position)
	require.Nil(t, detail.Items[0].EditOptionID)

	_, err = svc.GetByReceipt(context.Background(), "2025-05-01")
	requireValidation(t, err, "receiptNumber", "format=YYYYMMDD-NNNN")

	_, err = svc.GetByReceipt(context.Background(), "20990101-0001")
	var nf *common.NotFoundError
	require.True(t, errors.As(err, &nf))
}

func TestPreview(t *testing.T) {
	f := newFixture()
	svc := newTestService(f, nil)
	ctx := context.Background()
	ptr := func(id pgtype.UUID) *string { s := db.UUIDString(id); return &s }

	partial := PreviewInput{TournamentID: ptr(f.tournament), VideoTierID: ptr(f.tier)}
	out, err := svc.Preview(ctx, partial)
	require.NoError(t, err)
	require.False(t, out.Ready)
	require.Nil(t, out.Breakdown)

	full := PreviewInput{
		TournamentID:     ptr(f.tournament),
		VideoTierID:      ptr(f.tier),
		EditOptionID:     ptr(f.editBoth),
		DeliveryMethodID: ptr(f.delivery),
		HolderOptionID:   ptr(f.holder),
		Items:            []PreviewItem{{}, {}},
	}
	out, err = svc.Preview(ctx, full)
	require.NoError(t, err)
	require.True(t, out.Ready)
	require.Equal(t, quote.Money(22340), out.Breakdown.Total)
	require.Equal(t, quote.RulesVersion, out.RulesVersion)

	submitted, err := svc.Submit(ctx, f.input())
	require.NoError(t, err)
	require.Equal(t, submitted.Breakdown, *out.Breakdown)

	unknown := full
	missing := "8f9e0d1c-0000-4000-8000-000000000000"
	unknown.HolderOptionID = &missing
	out, err = svc.Preview(ctx, unknown)
	require.NoError(t, err)
	require.False(t, out.Ready)

	perItem := full
	perItem.EditMode = quote.EditModePerItem
	perItem.Items = []PreviewItem{{EditOptionID: ptr(f.editNone)}, {}}
	out, err = svc.Preview(ctx, perItem)
	require.NoError(t, err)
	require.True(t, out.Ready)
	require.Equal(t, quote.Money(0+4950), out.Breakdown.Edit)
}

func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestHandlerStatusMapping(t *testing.T) {
	f := newFixture()
	h := &Handler{Service: newTestService(f, nil)}

	body := func(mutate func(map[string]any)) *strings.Reader {
		in := f.input()
		raw, _ := json.Marshal(in)
		m := map[string]any{}
		_ = json.Unmarshal(raw, &m)
		mutate(m)
		raw, _ = json.Marshal(m)
		return strings.NewReader(string(raw))
	}

	t.Run("created ignores client total", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/requests", body(func(m map[string]any) { m["total"] = 1 })))
		require.Equal(t, http.StatusCreated, rec.Code)
		var resp struct {
			Data SubmitOutput `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, quote.Money(22340), resp.Data.Total)
		require.Regexp(t, `^\d{8}-\d{4}$`, resp.Data.ReceiptNumber)
	})

	t.Run("validation", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/requests", body(func(m map[string]any) { m["agree"] = false })))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), `"VALIDATION_ERROR"`)
		require.Contains(t, rec.Body.String(), `"field":"agree"`)
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/requests", body(func(m map[string]any) {
			m["holderOptionId"] = "8f9e0d1c-0000-4000-8000-000000000000"
		})))
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Contains(t, rec.Body.String(), `"resource":"holderOption"`)
	})

	t.Run("malformed json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader("{")))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("transaction failure", func(t *testing.T) {
		f.store.failOn = "item"
		defer func() { f.store.failOn = "" }()
		rec := httptest.NewRecorder()
		h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/requests", body(func(map[string]any) {})))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Contains(t, rec.Body.String(), `"SUBMISSION_FAILED"`)
	})

	t.Run("preview", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Preview(rec, httptest.NewRequest(http.MethodPost, "/api/v1/quotes/preview", strings.NewReader(`{}`)))
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"data":{"ready":false}}`, rec.Body.String())
	})

	t.Run("admin lookup", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := withParam(httptest.NewRequest(http.MethodGet, "/api/v1/admin/requests/x", nil), "receiptNumber", "20250501-0000")
		h.AdminGet(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"receiptNumber":"20250501-0000"`)
	})
}
