package request

import (
	"context"
	"strings"

	"github.com/noah-isme/match-video-api/internal/common"
	"github.com/noah-isme/match-video-api/internal/db"
	"github.com/noah-isme/match-video-api/internal/obs"
	"github.com/noah-isme/match-video-api/internal/quote"
)

// PreviewItem carries the per-item edit choice of an in-progress form.
type PreviewItem struct {
	EditOptionID *string `json:"editOptionId"`
}

// PreviewInput is the in-progress form. Every id may still be missing.
type PreviewInput struct {
	TournamentID     *string        `json:"tournamentId"`
	VideoTierID      *string        `json:"videoTierId"`
	EditOptionID     *string        `json:"editOptionId"`
	DeliveryMethodID *string        `json:"deliveryMethodId"`
	HolderOptionID   *string        `json:"holderOptionId"`
	EditMode         quote.EditMode `json:"editMode" validate:"omitempty,oneof=single per_item"`
	Items            []PreviewItem  `json:"items" validate:"max=6"`
}

// PreviewOutput is either {ready:false} or a full breakdown.
type PreviewOutput struct {
	Ready        bool             `json:"ready"`
	Breakdown    *quote.Breakdown `json:"breakdown,omitempty"`
	RulesVersion string           `json:"rulesVersion,omitempty"`
}

// Preview prices an in-progress form with the same engine Submit uses.
// Ids that are missing, malformed or unknown leave the form not ready
// rather than failing the call.
func (s *Service) Preview(ctx context.Context, in PreviewInput) (PreviewOutput, error) {
	if err := common.ValidateStruct(in); err != nil {
		return PreviewOutput{}, err
	}
	var sel quote.Selection

	if uid, ok := optionalID(in.TournamentID); ok {
		t, err := s.Store.GetTournament(ctx, uid)
		if err != nil && !db.IsNotFound(err) {
			return PreviewOutput{}, lookupErr(err, "tournament", *in.TournamentID)
		}
		if err == nil && t.IsActive {
			qt := toQuoteTournament(t)
			sel.Tournament = &qt
		}
	}
	if uid, ok := optionalID(in.VideoTierID); ok {
		r, err := s.Store.GetVideoTier(ctx, uid)
		if err != nil && !db.IsNotFound(err) {
			return PreviewOutput{}, lookupErr(err, "videoTier", *in.VideoTierID)
		}
		if err == nil {
			v := toQuoteTier(r)
			sel.VideoTier = &v
		}
	}
	if uid, ok := optionalID(in.EditOptionID); ok {
		r, err := s.Store.GetEditOption(ctx, uid)
		if err != nil && !db.IsNotFound(err) {
			return PreviewOutput{}, lookupErr(err, "editOption", *in.EditOptionID)
		}
		if err == nil {
			v := toQuoteEdit(r)
			sel.EditOption = &v
		}
	}
	if uid, ok := optionalID(in.DeliveryMethodID); ok {
		r, err := s.Store.GetDeliveryMethod(ctx, uid)
		if err != nil && !db.IsNotFound(err) {
			return PreviewOutput{}, lookupErr(err, "deliveryMethod", *in.DeliveryMethodID)
		}
		if err == nil {
			v := toQuoteDelivery(r)
			sel.DeliveryMethod = &v
		}
	}
	if uid, ok := optionalID(in.HolderOptionID); ok {
		r, err := s.Store.GetHolderOption(ctx, uid)
		if err != nil && !db.IsNotFound(err) {
			return PreviewOutput{}, lookupErr(err, "holderOption", *in.HolderOptionID)
		}
		if err == nil {
			v := toQuoteHolder(r)
			sel.HolderOption = &v
		}
	}

	if n := len(in.Items); n > 0 {
		sel.VideoCount = &n
	}
	if in.EditMode == quote.EditModePerItem && sel.Tournament != nil {
		sum, ok, err := s.previewItemEdits(ctx, in, sel.Tournament.SetType)
		if err != nil {
			return PreviewOutput{}, err
		}
		if !ok {
			obs.ObservePreview(false)
			return PreviewOutput{Ready: false}, nil
		}
		sel.EditTotalOverride = &sum
	}

	b, ok := s.Engine.Preview(sel)
	obs.ObservePreview(ok)
	if !ok {
		return PreviewOutput{Ready: false}, nil
	}
	return PreviewOutput{Ready: true, Breakdown: &b, RulesVersion: s.Engine.Rules.Version}, nil
}

// previewItemEdits sums per-item edit prices. ok is false while any item
// still lacks a resolvable edit option.
func (s *Service) previewItemEdits(ctx context.Context, in PreviewInput, st quote.SetType) (quote.Money, bool, error) {
	if len(in.Items) == 0 {
		return 0, false, nil
	}
	cache := map[string]quote.EditOption{}
	edits := make([]quote.EditOption, 0, len(in.Items))
	for _, item := range in.Items {
		ref := item.EditOptionID
		if ref == nil || strings.TrimSpace(*ref) == "" {
			ref = in.EditOptionID
		}
		uid, ok := optionalID(ref)
		if !ok {
			return 0, false, nil
		}
		key := db.UUIDString(uid)
		opt, seen := cache[key]
		if !seen {
			r, err := s.Store.GetEditOption(ctx, uid)
			if db.IsNotFound(err) {
				return 0, false, nil
			}
			if err != nil {
				return 0, false, lookupErr(err, "editOption", key)
			}
			opt = toQuoteEdit(r)
			cache[key] = opt
		}
		edits = append(edits, opt)
	}
	return s.Engine.ItemEditTotal(st, edits), true, nil
}
