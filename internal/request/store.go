package request

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/match-video-api/internal/db"
)

// Reader fetches the records a submission is priced from.
type Reader interface {
	GetTournament(ctx context.Context, id pgtype.UUID) (db.Tournament, error)
	GetVideoTier(ctx context.Context, id pgtype.UUID) (db.VideoTier, error)
	GetEditOption(ctx context.Context, id pgtype.UUID) (db.EditOption, error)
	GetDeliveryMethod(ctx context.Context, id pgtype.UUID) (db.DeliveryMethod, error)
	GetHolderOption(ctx context.Context, id pgtype.UUID) (db.HolderOption, error)
	GetRequestByReceipt(ctx context.Context, receiptNumber string) (db.Request, error)
	ListRequestItems(ctx context.Context, requestID pgtype.UUID) ([]db.RequestItem, error)
}

// Writer holds the statements that run inside the submission transaction.
type Writer interface {
	CreateRequest(ctx context.Context, arg db.CreateRequestParams) (db.Request, error)
	CreateRequestItem(ctx context.Context, arg db.CreateRequestItemParams) (db.RequestItem, error)
	IncrementTournamentUsage(ctx context.Context, id pgtype.UUID) (int64, error)
}

// Store is a Reader that can also run a Writer inside one transaction.
type Store interface {
	Reader
	InTx(ctx context.Context, fn func(Writer) error) error
}

// PgStore adapts db.Store to Store.
type PgStore struct {
	*db.Store
}

// NewPgStore wraps s.
func NewPgStore(s *db.Store) *PgStore {
	return &PgStore{Store: s}
}

// InTx runs fn in a single pgx transaction.
func (s *PgStore) InTx(ctx context.Context, fn func(Writer) error) error {
	return s.Store.InTx(ctx, func(q *db.Queries) error {
		return fn(q)
	})
}
