package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const requestColumns = `id, receipt_number, tournament_id, email, customer_name, player_name, phone,
       video_tier_id, edit_option_id, delivery_method_id, holder_option_id, edit_mode, note,
       total_amount, breakdown, rules_version, created_at`

const createRequest = `INSERT INTO requests (
    receipt_number, tournament_id, email, customer_name, player_name, phone,
    video_tier_id, edit_option_id, delivery_method_id, holder_option_id,
    edit_mode, note, total_amount, breakdown, rules_version
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING ` + requestColumns

type CreateRequestParams struct {
	ReceiptNumber    string
	TournamentID     pgtype.UUID
	Email            string
	CustomerName     string
	PlayerName       string
	Phone            string
	VideoTierID      pgtype.UUID
	EditOptionID     pgtype.UUID
	DeliveryMethodID pgtype.UUID
	HolderOptionID   pgtype.UUID
	EditMode         string
	Note             pgtype.Text
	TotalAmount      int64
	Breakdown        []byte
	RulesVersion     string
}

// CreateRequest inserts the request header. A clash on the receipt number is
// reported as ErrReceiptConflict so callers can pick a fresh one.
func (q *Queries) CreateRequest(ctx context.Context, arg CreateRequestParams) (Request, error) {
	row := q.db.QueryRow(ctx, createRequest,
		arg.ReceiptNumber,
		arg.TournamentID,
		arg.Email,
		arg.CustomerName,
		arg.PlayerName,
		arg.Phone,
		arg.VideoTierID,
		arg.EditOptionID,
		arg.DeliveryMethodID,
		arg.HolderOptionID,
		arg.EditMode,
		arg.Note,
		arg.TotalAmount,
		arg.Breakdown,
		arg.RulesVersion,
	)
	i, err := scanRequest(row)
	if isUniqueViolation(err, "requests_receipt_number_key") {
		return Request{}, ErrReceiptConflict
	}
	return i, err
}

func scanRequest(row interface{ Scan(...any) error }) (Request, error) {
	var i Request
	err := row.Scan(
		&i.ID,
		&i.ReceiptNumber,
		&i.TournamentID,
		&i.Email,
		&i.CustomerName,
		&i.PlayerName,
		&i.Phone,
		&i.VideoTierID,
		&i.EditOptionID,
		&i.DeliveryMethodID,
		&i.HolderOptionID,
		&i.EditMode,
		&i.Note,
		&i.TotalAmount,
		&i.Breakdown,
		&i.RulesVersion,
		&i.CreatedAt,
	)
	return i, err
}

const getRequestByReceipt = `SELECT ` + requestColumns + ` FROM requests WHERE receipt_number = $1`

func (q *Queries) GetRequestByReceipt(ctx context.Context, receiptNumber string) (Request, error) {
	return scanRequest(q.db.QueryRow(ctx, getRequestByReceipt, receiptNumber))
}

const createRequestItem = `INSERT INTO request_items (
    request_id, position, category, round, opponent, note, other_info, edit_option_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, request_id, position, category, round, opponent, note, other_info, edit_option_id, created_at`

type CreateRequestItemParams struct {
	RequestID    pgtype.UUID
	Position     int16
	Category     string
	Round        string
	Opponent     string
	Note         pgtype.Text
	OtherInfo    pgtype.Text
	EditOptionID pgtype.UUID
}

func (q *Queries) CreateRequestItem(ctx context.Context, arg CreateRequestItemParams) (RequestItem, error) {
	var i RequestItem
	err := q.db.QueryRow(ctx, createRequestItem,
		arg.RequestID,
		arg.Position,
		arg.Category,
		arg.Round,
		arg.Opponent,
		arg.Note,
		arg.OtherInfo,
		arg.EditOptionID,
	).Scan(
		&i.ID,
		&i.RequestID,
		&i.Position,
		&i.Category,
		&i.Round,
		&i.Opponent,
		&i.Note,
		&i.OtherInfo,
		&i.EditOptionID,
		&i.CreatedAt,
	)
	return i, err
}

const listRequestItems = `SELECT id, request_id, position, category, round, opponent, note, other_info, edit_option_id, created_at
FROM request_items WHERE request_id = $1 ORDER BY position ASC`

func (q *Queries) ListRequestItems(ctx context.Context, requestID pgtype.UUID) ([]RequestItem, error) {
	rows, err := q.db.Query(ctx, listRequestItems, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []RequestItem{}
	for rows.Next() {
		var i RequestItem
		if err := rows.Scan(
			&i.ID,
			&i.RequestID,
			&i.Position,
			&i.Category,
			&i.Round,
			&i.Opponent,
			&i.Note,
			&i.OtherInfo,
			&i.EditOptionID,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
