package request

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/noah-isme/match-video-api/internal/common"
	"github.com/noah-isme/match-video-api/internal/db"
	"github.com/noah-isme/match-video-api/internal/quote"
)

var receiptPattern = regexp.MustCompile(`^\d{8}-\d{4}$`)

// Item is a stored request item.
type Item struct {
	Position     int     `json:"position"`
	Category     string  `json:"category"`
	Round        string  `json:"round"`
	Opponent     string  `json:"opponent"`
	Note         *string `json:"note,omitempty"`
	OtherInfo    *string `json:"otherInfo,omitempty"`
	EditOptionID *string `json:"editOptionId,omitempty"`
}

// Detail is the admin view of a stored request.
type Detail struct {
	ID               string          `json:"id"`
	ReceiptNumber    string          `json:"receiptNumber"`
	TournamentID     string          `json:"tournamentId"`
	Email            string          `json:"email"`
	CustomerName     string          `json:"customerName"`
	PlayerName       string          `json:"playerName"`
	Phone            string          `json:"phone"`
	VideoTierID      string          `json:"videoTierId"`
	EditOptionID     string          `json:"editOptionId"`
	DeliveryMethodID string          `json:"deliveryMethodId"`
	HolderOptionID   string          `json:"holderOptionId"`
	EditMode         string          `json:"editMode"`
	Memo             *string         `json:"memo,omitempty"`
	Total            quote.Money     `json:"total"`
	Breakdown        quote.Breakdown `json:"breakdown"`
	RulesVersion     string          `json:"rulesVersion"`
	Items            []Item          `json:"items"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// GetByReceipt loads a request and its items by receipt number.
func (s *Service) GetByReceipt(ctx context.Context, receiptNumber string) (Detail, error) {
	receiptNumber = strings.TrimSpace(receiptNumber)
	if !receiptPattern.MatchString(receiptNumber) {
		return Detail{}, common.Invalid("receiptNumber", "format=YYYYMMDD-NNNN")
	}
	row, err := s.Store.GetRequestByReceipt(ctx, receiptNumber)
	if err != nil {
		return Detail{}, lookupErr(err, "request", receiptNumber)
	}
	items, err := s.Store.ListRequestItems(ctx, row.ID)
	if err != nil {
		return Detail{}, fmt.Errorf("list request items: %w", err)
	}
	var breakdown quote.Breakdown
	if len(row.Breakdown) > 0 {
		if err := json.Unmarshal(row.Breakdown, &breakdown); err != nil {
			return Detail{}, fmt.Errorf("decode breakdown: %w", err)
		}
	}
	out := Detail{
		ID:               db.UUIDString(row.ID),
		ReceiptNumber:    row.ReceiptNumber,
		TournamentID:     db.UUIDString(row.TournamentID),
		Email:            row.Email,
		CustomerName:     row.CustomerName,
		PlayerName:       row.PlayerName,
		Phone:            row.Phone,
		VideoTierID:      db.UUIDString(row.VideoTierID),
		EditOptionID:     db.UUIDString(row.EditOptionID),
		DeliveryMethodID: db.UUIDString(row.DeliveryMethodID),
		HolderOptionID:   db.UUIDString(row.HolderOptionID),
		EditMode:         row.EditMode,
		Memo:             db.TextPtr(row.Note),
		Total:            row.TotalAmount,
		Breakdown:        breakdown,
		RulesVersion:     row.RulesVersion,
		Items:            make([]Item, 0, len(items)),
		CreatedAt:        row.CreatedAt.Time,
	}
	for _, it := range items {
		item := Item{
			Position:  int(it.Position),
			Category:  it.Category,
			Round:     it.Round,
			Opponent:  it.Opponent,
			Note:      db.TextPtr(it.Note),
			OtherInfo: db.TextPtr(it.OtherInfo),
		}
		if it.EditOptionID.Valid {
			id := db.UUIDString(it.EditOptionID)
			item.EditOptionID = &id
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}
