package request

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/match-video-api/internal/db"
)

// memStore is an in-memory Store. Transactions are serialised and their
// writes only become visible on commit.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	tournaments map[string]db.Tournament
	tiers       map[string]db.VideoTier
	edits       map[string]db.EditOption
	deliveries  map[string]db.DeliveryMethod
	holders     map[string]db.HolderOption
	requests    map[string]db.Request
	items       map[string][]db.RequestItem

	failOn    string
	conflicts int
}

func newMemStore() *memStore {
	return &memStore{
		tournaments: map[string]db.Tournament{},
		tiers:       map[string]db.VideoTier{},
		edits:       map[string]db.EditOption{},
		deliveries:  map[string]db.DeliveryMethod{},
		holders:     map[string]db.HolderOption{},
		requests:    map[string]db.Request{},
		items:       map[string][]db.RequestItem{},
	}
}

func newID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

func lookup[T any](s *memStore, m map[string]T, id pgtype.UUID) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := m[db.UUIDString(id)]
	if !ok {
		var zero T
		return zero, pgx.ErrNoRows
	}
	return v, nil
}

func (s *memStore) GetTournament(_ context.Context, id pgtype.UUID) (db.Tournament, error) {
	return lookup(s, s.tournaments, id)
}

func (s *memStore) GetVideoTier(_ context.Context, id pgtype.UUID) (db.VideoTier, error) {
	return lookup(s, s.tiers, id)
}

func (s *memStore) GetEditOption(_ context.Context, id pgtype.UUID) (db.EditOption, error) {
	return lookup(s, s.edits, id)
}

func (s *memStore) GetDeliveryMethod(_ context.Context, id pgtype.UUID) (db.DeliveryMethod, error) {
	return lookup(s, s.deliveries, id)
}

func (s *memStore) GetHolderOption(_ context.Context, id pgtype.UUID) (db.HolderOption, error) {
	return lookup(s, s.holders, id)
}

func (s *memStore) GetRequestByReceipt(_ context.Context, receipt string) (db.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[receipt]
	if !ok {
		return db.Request{}, pgx.ErrNoRows
	}
	return r, nil
}

func (s *memStore) ListRequestItems(_ context.Context, requestID pgtype.UUID) ([]db.RequestItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]db.RequestItem(nil), s.items[db.UUIDString(requestID)]...), nil
}

func (s *memStore) InTx(ctx context.Context, fn func(Writer) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range tx.requests {
		s.requests[r.ReceiptNumber] = r
	}
	for _, it := range tx.items {
		key := db.UUIDString(it.RequestID)
		s.items[key] = append(s.items[key], it)
	}
	for _, id := range tx.increments {
		t := s.tournaments[id]
		t.UseCount++
		t.LastUsedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
		s.tournaments[id] = t
	}
	return nil
}

func (s *memStore) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *memStore) itemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, items := range s.items {
		n += len(items)
	}
	return n
}

func (s *memStore) useCount(id pgtype.UUID) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tournaments[db.UUIDString(id)].UseCount
}

type memTx struct {
	store      *memStore
	requests   []db.Request
	items      []db.RequestItem
	increments []string
}

var errInjected = errors.New("injected failure")

func (t *memTx) CreateRequest(_ context.Context, arg db.CreateRequestParams) (db.Request, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == "request" {
		return db.Request{}, errInjected
	}
	if s.conflicts > 0 {
		s.conflicts--
		return db.Request{}, db.ErrReceiptConflict
	}
	if _, taken := s.requests[arg.ReceiptNumber]; taken {
		return db.Request{}, db.ErrReceiptConflict
	}
	row := db.Request{
		ID:               newID(),
		ReceiptNumber:    arg.ReceiptNumber,
		TournamentID:     arg.TournamentID,
		Email:            arg.Email,
		CustomerName:     arg.CustomerName,
		PlayerName:       arg.PlayerName,
		Phone:            arg.Phone,
		VideoTierID:      arg.VideoTierID,
		EditOptionID:     arg.EditOptionID,
		DeliveryMethodID: arg.DeliveryMethodID,
		HolderOptionID:   arg.HolderOptionID,
		EditMode:         arg.EditMode,
		Note:             arg.Note,
		TotalAmount:      arg.TotalAmount,
		Breakdown:        arg.Breakdown,
		RulesVersion:     arg.RulesVersion,
		CreatedAt:        pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	t.requests = append(t.requests, row)
	return row, nil
}

func (t *memTx) CreateRequestItem(_ context.Context, arg db.CreateRequestItemParams) (db.RequestItem, error) {
	s := t.store
	s.mu.Lock()
	fail := s.failOn == "item"
	s.mu.Unlock()
	if fail {
		return db.RequestItem{}, errInjected
	}
	row := db.RequestItem{
		ID:           newID(),
		RequestID:    arg.RequestID,
		Position:     arg.Position,
		Category:     arg.Category,
		Round:        arg.Round,
		Opponent:     arg.Opponent,
		Note:         arg.Note,
		OtherInfo:    arg.OtherInfo,
		EditOptionID: arg.EditOptionID,
	}
	t.items = append(t.items, row)
	return row, nil
}

func (t *memTx) IncrementTournamentUsage(_ context.Context, id pgtype.UUID) (int64, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == "increment" {
		return 0, errInjected
	}
	if _, ok := s.tournaments[db.UUIDString(id)]; !ok {
		return 0, nil
	}
	t.increments = append(t.increments, db.UUIDString(id))
	return 1, nil
}
