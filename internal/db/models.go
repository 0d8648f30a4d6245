package db

import "github.com/jackc/pgx/v5/pgtype"

type VideoTier struct {
	ID          pgtype.UUID        `json:"id"`
	Name        string             `json:"name"`
	Price       int64              `json:"price"`
	Description pgtype.Text        `json:"description"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
}

type EditOption struct {
	ID          pgtype.UUID        `json:"id"`
	Name        string             `json:"name"`
	Price       int64              `json:"price"`
	Description pgtype.Text        `json:"description"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
}

type DeliveryMethod struct {
	ID            pgtype.UUID        `json:"id"`
	Name          string             `json:"name"`
	Price         int64              `json:"price"`
	ShippingPrice pgtype.Int8        `json:"shipping_price"`
	Description   pgtype.Text        `json:"description"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
}

type HolderOption struct {
	ID          pgtype.UUID        `json:"id"`
	Name        string             `json:"name"`
	Price       int64              `json:"price"`
	Description pgtype.Text        `json:"description"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
}

type Tournament struct {
	ID            pgtype.UUID        `json:"id"`
	Name          string             `json:"name"`
	SetType       string             `json:"set_type"`
	PriceOverride pgtype.Int8        `json:"price_override"`
	Categories    []string           `json:"categories"`
	IsActive      bool               `json:"is_active"`
	CustomNotice  pgtype.Text        `json:"custom_notice"`
	Note          pgtype.Text        `json:"note"`
	StartDate     pgtype.Date        `json:"start_date"`
	EndDate       pgtype.Date        `json:"end_date"`
	UseCount      int32              `json:"use_count"`
	LastUsedAt    pgtype.Timestamptz `json:"last_used_at"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	UpdatedAt     pgtype.Timestamptz `json:"updated_at"`
}

type Request struct {
	ID               pgtype.UUID        `json:"id"`
	ReceiptNumber    string             `json:"receipt_number"`
	TournamentID     pgtype.UUID        `json:"tournament_id"`
	Email            string             `json:"email"`
	CustomerName     string             `json:"customer_name"`
	PlayerName       string             `json:"player_name"`
	Phone            string             `json:"phone"`
	VideoTierID      pgtype.UUID        `json:"video_tier_id"`
	EditOptionID     pgtype.UUID        `json:"edit_option_id"`
	DeliveryMethodID pgtype.UUID        `json:"delivery_method_id"`
	HolderOptionID   pgtype.UUID        `json:"holder_option_id"`
	EditMode         string             `json:"edit_mode"`
	Note             pgtype.Text        `json:"note"`
	TotalAmount      int64              `json:"total_amount"`
	Breakdown        []byte             `json:"breakdown"`
	RulesVersion     string             `json:"rules_version"`
	CreatedAt        pgtype.Timestamptz `json:"created_at"`
}

type RequestItem struct {
	ID           pgtype.UUID        `json:"id"`
	RequestID    pgtype.UUID        `json:"request_id"`
	Position     int16              `json:"position"`
	Category     string             `json:"category"`
	Round        string             `json:"round"`
	Opponent     string             `json:"opponent"`
	Note         pgtype.Text        `json:"note"`
	OtherInfo    pgtype.Text        `json:"other_info"`
	EditOptionID pgtype.UUID        `json:"edit_option_id"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}
