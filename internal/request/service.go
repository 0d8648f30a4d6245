// Package request accepts customer video requests. Totals are always
// recomputed here from freshly fetched master records; a client-sent total
// never reaches the database.
package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/match-video-api/internal/common"
	"github.com/noah-isme/match-video-api/internal/db"
	"github.com/noah-isme/match-video-api/internal/notify"
	"github.com/noah-isme/match-video-api/internal/obs"
	"github.com/noah-isme/match-video-api/internal/quote"
)

const maxReceiptAttempts = 3

// ItemInput is one match the customer wants filmed.
type ItemInput struct {
	Category     string  `json:"category" validate:"notblank,max=100"`
	Round        string  `json:"round" validate:"notblank,max=100"`
	Opponent     string  `json:"opponent" validate:"notblank,max=100"`
	Note         *string `json:"note" validate:"omitempty,max=1000"`
	OtherInfo    *string `json:"otherInfo" validate:"omitempty,max=1000"`
	EditOptionID *string `json:"editOptionId" validate:"omitempty,uuid"`
}

// SubmitInput is the submission payload. Any total the client sends is not
// part of it and is dropped during decoding.
type SubmitInput struct {
	TournamentID     string         `json:"tournamentId" validate:"required,uuid"`
	Email            string         `json:"email" validate:"required,email,max=254"`
	CustomerName     string         `json:"customerName" validate:"notblank,max=100"`
	PlayerName       string         `json:"playerName" validate:"notblank,max=100"`
	Phone            string         `json:"phone" validate:"notblank,max=30"`
	VideoTierID      string         `json:"videoTierId" validate:"required,uuid"`
	EditOptionID     string         `json:"editOptionId" validate:"required,uuid"`
	DeliveryMethodID string         `json:"deliveryMethodId" validate:"required,uuid"`
	HolderOptionID   string         `json:"holderOptionId" validate:"required,uuid"`
	EditMode         quote.EditMode `json:"editMode" validate:"omitempty,oneof=single per_item"`
	Items            []ItemInput    `json:"items" validate:"max=6,dive"`
	Agree            bool           `json:"agree" validate:"eq=true"`
	Memo             *string        `json:"memo" validate:"omitempty,max=2000"`
}

// normalizedIDs returns a copy with every id trimmed and lower-cased so
// upper-case UUIDs pass the uuid rule.
func (in SubmitInput) normalizedIDs() SubmitInput {
	in.TournamentID = normalizeID(in.TournamentID)
	in.VideoTierID = normalizeID(in.VideoTierID)
	in.EditOptionID = normalizeID(in.EditOptionID)
	in.DeliveryMethodID = normalizeID(in.DeliveryMethodID)
	in.HolderOptionID = normalizeID(in.HolderOptionID)
	items := make([]ItemInput, len(in.Items))
	for i, item := range in.Items {
		if item.EditOptionID != nil {
			id := normalizeID(*item.EditOptionID)
			item.EditOptionID = &id
		}
		items[i] = item
	}
	if in.Items != nil {
		in.Items = items
	}
	return in
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// SubmitOutput is returned for an accepted request.
type SubmitOutput struct {
	ID            string          `json:"id"`
	ReceiptNumber string          `json:"receiptNumber"`
	Total         quote.Money     `json:"total"`
	Breakdown     quote.Breakdown `json:"breakdown"`
}

// ReceiptNotifier is told about each committed request.
type ReceiptNotifier interface {
	EnqueueReceipt(ctx context.Context, p notify.ReceiptPayload) error
}

// Service prices and persists requests.
type Service struct {
	Store    Store
	Engine   quote.Engine
	Receipts *ReceiptGenerator
	Notifier ReceiptNotifier
	Logger   zerolog.Logger
}

// NewService returns a Service using the default rule set.
func NewService(store Store, receipts *ReceiptGenerator, notifier ReceiptNotifier, logger zerolog.Logger) *Service {
	if receipts == nil {
		receipts = NewReceiptGenerator(nil, nil, nil)
	}
	return &Service{
		Store:    store,
		Engine:   quote.DefaultEngine,
		Receipts: receipts,
		Notifier: notifier,
		Logger:   logger,
	}
}

// priced is the engine input assembled from stored records.
type priced struct {
	tournament db.Tournament
	mode       quote.EditMode
	input      quote.Input
	itemEdits  []pgtype.UUID
}

// Submit validates in, recomputes its quote from stored records and persists
// the request, its items and the tournament usage bump in one transaction.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (out SubmitOutput, err error) {
	if s == nil || s.Store == nil {
		return SubmitOutput{}, errors.New("request service not configured")
	}
	defer func() {
		obs.ObserveSubmission(resultLabel(err), out.Total)
	}()

	in = in.normalizedIDs()
	if err := common.ValidateStruct(in); err != nil {
		return SubmitOutput{}, err
	}
	p, err := s.resolve(ctx, in)
	if err != nil {
		return SubmitOutput{}, err
	}
	if err := quote.Validate(p.input); err != nil {
		return SubmitOutput{}, common.NewAppError(common.CodeInternal, "stored pricing data is invalid", http.StatusInternalServerError, err)
	}
	breakdown := s.Engine.Calc(p.input)
	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return SubmitOutput{}, fmt.Errorf("encode breakdown: %w", err)
	}

	var saved db.Request
	for attempt := 1; ; attempt++ {
		receipt := s.Receipts.Next()
		saved, err = s.persist(ctx, in, p, receipt, breakdown.Total, breakdownJSON)
		if err == nil {
			break
		}
		if errors.Is(err, db.ErrReceiptConflict) && attempt < maxReceiptAttempts {
			obs.ObserveReceiptConflict()
			s.Logger.Warn().Str("receipt_number", receipt).Int("attempt", attempt).Msg("receipt number taken, regenerating")
			continue
		}
		return SubmitOutput{}, submissionFailed(err)
	}

	out = SubmitOutput{
		ID:            db.UUIDString(saved.ID),
		ReceiptNumber: saved.ReceiptNumber,
		Total:         breakdown.Total,
		Breakdown:     breakdown,
	}
	s.notify(ctx, in, p, out, saved.CreatedAt)
	return out, nil
}

func (s *Service) persist(ctx context.Context, in SubmitInput, p priced, receipt string, total quote.Money, breakdownJSON []byte) (db.Request, error) {
	var saved db.Request
	err := s.Store.InTx(ctx, func(w Writer) error {
		row, err := w.CreateRequest(ctx, db.CreateRequestParams{
			ReceiptNumber:    receipt,
			TournamentID:     p.tournament.ID,
			Email:            strings.TrimSpace(in.Email),
			CustomerName:     strings.TrimSpace(in.CustomerName),
			PlayerName:       strings.TrimSpace(in.PlayerName),
			Phone:            strings.TrimSpace(in.Phone),
			VideoTierID:      mustID(in.VideoTierID),
			EditOptionID:     mustID(in.EditOptionID),
			DeliveryMethodID: mustID(in.DeliveryMethodID),
			HolderOptionID:   mustID(in.HolderOptionID),
			EditMode:         string(p.mode),
			Note:             db.Text(in.Memo),
			TotalAmount:      total,
			Breakdown:        breakdownJSON,
			RulesVersion:     s.Engine.Rules.Version,
		})
		if err != nil {
			return err
		}
		for i, item := range in.Items {
			var editID pgtype.UUID
			if p.mode == quote.EditModePerItem {
				editID = p.itemEdits[i]
			}
			if _, err := w.CreateRequestItem(ctx, db.CreateRequestItemParams{
				RequestID:    row.ID,
				Position:     int16(i + 1),
				Category:     strings.TrimSpace(item.Category),
				Round:        strings.TrimSpace(item.Round),
				Opponent:     strings.TrimSpace(item.Opponent),
				Note:         db.Text(item.Note),
				OtherInfo:    db.Text(item.OtherInfo),
				EditOptionID: editID,
			}); err != nil {
				return fmt.Errorf("insert item %d: %w", i+1, err)
			}
		}
		n, err := w.IncrementTournamentUsage(ctx, p.tournament.ID)
		if err != nil {
			return fmt.Errorf("increment tournament usage: %w", err)
		}
		if n == 0 {
			return errTournamentGone
		}
		saved = row
		return nil
	})
	return saved, err
}

// resolve fetches every referenced record and builds the engine input from
// them alone.
func (s *Service) resolve(ctx context.Context, in SubmitInput) (priced, error) {
	mode := in.EditMode
	if mode == "" {
		mode = quote.EditModeSingle
	}

	t, err := s.Store.GetTournament(ctx, mustID(in.TournamentID))
	if err != nil {
		return priced{}, lookupErr(err, "tournament", in.TournamentID)
	}
	if !t.IsActive {
		return priced{}, common.Invalid("tournamentId", "active")
	}
	if len(t.Categories) > 0 {
		allowed := make(map[string]struct{}, len(t.Categories))
		for _, c := range t.Categories {
			allowed[c] = struct{}{}
		}
		for i, item := range in.Items {
			if _, ok := allowed[strings.TrimSpace(item.Category)]; !ok {
				return priced{}, common.Invalid(fmt.Sprintf("items[%d].category", i), "oneof="+strings.Join(t.Categories, " "))
			}
		}
	}

	tier, err := s.Store.GetVideoTier(ctx, mustID(in.VideoTierID))
	if err != nil {
		return priced{}, lookupErr(err, "videoTier", in.VideoTierID)
	}
	edit, err := s.Store.GetEditOption(ctx, mustID(in.EditOptionID))
	if err != nil {
		return priced{}, lookupErr(err, "editOption", in.EditOptionID)
	}
	delivery, err := s.Store.GetDeliveryMethod(ctx, mustID(in.DeliveryMethodID))
	if err != nil {
		return priced{}, lookupErr(err, "deliveryMethod", in.DeliveryMethodID)
	}
	holder, err := s.Store.GetHolderOption(ctx, mustID(in.HolderOptionID))
	if err != nil {
		return priced{}, lookupErr(err, "holderOption", in.HolderOptionID)
	}

	p := priced{
		tournament: t,
		mode:       mode,
		input: quote.Input{
			VideoTier:      toQuoteTier(tier),
			EditOption:     toQuoteEdit(edit),
			DeliveryMethod: toQuoteDelivery(delivery),
			HolderOption:   toQuoteHolder(holder),
			Tournament:     toQuoteTournament(t),
		},
	}
	if n := len(in.Items); n > 0 {
		p.input.VideoCount = &n
	}

	if mode == quote.EditModePerItem {
		if len(in.Items) == 0 {
			return priced{}, common.Invalid("items", "min=1")
		}
		resolved := map[string]db.EditOption{db.UUIDString(edit.ID): edit}
		edits := make([]quote.EditOption, 0, len(in.Items))
		p.itemEdits = make([]pgtype.UUID, 0, len(in.Items))
		for i, item := range in.Items {
			id := in.EditOptionID
			if item.EditOptionID != nil && strings.TrimSpace(*item.EditOptionID) != "" {
				id = strings.TrimSpace(*item.EditOptionID)
			}
			key := db.UUIDString(mustID(id))
			opt, ok := resolved[key]
			if !ok {
				opt, err = s.Store.GetEditOption(ctx, mustID(id))
				if err != nil {
					return priced{}, lookupErr(err, fmt.Sprintf("items[%d].editOption", i), id)
				}
				resolved[key] = opt
			}
			edits = append(edits, toQuoteEdit(opt))
			p.itemEdits = append(p.itemEdits, opt.ID)
		}
		sum := s.Engine.ItemEditTotal(p.input.Tournament.SetType, edits)
		p.input.EditTotalOverride = &sum
	}
	return p, nil
}

func (s *Service) notify(ctx context.Context, in SubmitInput, p priced, out SubmitOutput, createdAt pgtype.Timestamptz) {
	if s.Notifier == nil {
		return
	}
	submitted := time.Now()
	if createdAt.Valid {
		submitted = createdAt.Time
	}
	err := s.Notifier.EnqueueReceipt(ctx, notify.ReceiptPayload{
		RequestID:      out.ID,
		ReceiptNumber:  out.ReceiptNumber,
		Email:          strings.TrimSpace(in.Email),
		CustomerName:   strings.TrimSpace(in.CustomerName),
		PlayerName:     strings.TrimSpace(in.PlayerName),
		TournamentName: p.tournament.Name,
		ItemCount:      len(in.Items),
		Breakdown:      out.Breakdown,
		SubmittedAt:    submitted,
	})
	if err != nil {
		s.Logger.Warn().Err(err).Str("receipt_number", out.ReceiptNumber).Msg("receipt email not enqueued")
	}
}

func lookupErr(err error, resource, id string) error {
	if db.IsNotFound(err) {
		return common.NotFound(resource, id)
	}
	return fmt.Errorf("get %s: %w", resource, err)
}

// mustID parses an id that has already passed uuid validation.
func mustID(id string) pgtype.UUID {
	uid, err := db.ParseUUID(strings.TrimSpace(id))
	if err != nil {
		return pgtype.UUID{}
	}
	return uid
}

func toQuoteTier(r db.VideoTier) quote.VideoTier {
	return quote.VideoTier{ID: db.UUIDString(r.ID), Name: r.Name, Price: r.Price}
}

func toQuoteEdit(r db.EditOption) quote.EditOption {
	return quote.EditOption{ID: db.UUIDString(r.ID), Name: r.Name, Price: r.Price}
}

func toQuoteDelivery(r db.DeliveryMethod) quote.DeliveryMethod {
	return quote.DeliveryMethod{
		ID:            db.UUIDString(r.ID),
		Name:          r.Name,
		Price:         r.Price,
		ShippingPrice: db.Int8Ptr(r.ShippingPrice),
	}
}

func toQuoteHolder(r db.HolderOption) quote.HolderOption {
	return quote.HolderOption{ID: db.UUIDString(r.ID), Name: r.Name, Price: r.Price}
}

func toQuoteTournament(r db.Tournament) quote.Tournament {
	return quote.Tournament{
		ID:            db.UUIDString(r.ID),
		PriceOverride: db.Int8Ptr(r.PriceOverride),
		SetType:       quote.SetType(r.SetType),
	}
}

func optionalID(id *string) (pgtype.UUID, bool) {
	if id == nil {
		return pgtype.UUID{}, false
	}
	uid, err := db.ParseUUID(strings.TrimSpace(*id))
	if err != nil {
		return pgtype.UUID{}, false
	}
	return uid, true
}
