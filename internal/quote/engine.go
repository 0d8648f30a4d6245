// Package quote computes request price breakdowns. The engine is pure: the
// preview endpoint and the authoritative submission path call the same code.
package quote

import (
	"strconv"
	"strings"
)

// VideoTier is a match-count tier. Name holds the count as a string ("0".."6").
type VideoTier struct {
	ID    string `json:"id" validate:"notblank"`
	Name  string `json:"name" validate:"notblank"`
	Price Money  `json:"price" validate:"gte=0"`
}

// EditOption is an editing choice keyed by name in the edit price table.
type EditOption struct {
	ID    string `json:"id" validate:"notblank"`
	Name  string `json:"name" validate:"notblank"`
	Price Money  `json:"price" validate:"gte=0"`
}

// DeliveryMethod is a delivery medium. A nil ShippingPrice means no shipping.
type DeliveryMethod struct {
	ID            string `json:"id" validate:"notblank"`
	Name          string `json:"name" validate:"notblank"`
	Price         Money  `json:"price" validate:"gte=0"`
	ShippingPrice *Money `json:"shippingPrice,omitempty" validate:"omitempty,gte=0"`
}

// HolderOption is the optional holder purchase.
type HolderOption struct {
	ID    string `json:"id" validate:"notblank"`
	Name  string `json:"name" validate:"notblank"`
	Price Money  `json:"price" validate:"gte=0"`
}

// Tournament carries the fields of a tournament that affect pricing.
type Tournament struct {
	ID            string  `json:"id" validate:"notblank"`
	PriceOverride *Money  `json:"priceOverride,omitempty"`
	SetType       SetType `json:"setType,omitempty" validate:"omitempty,oneof=ONE_SET THREE_SET"`
}

// Input is everything the engine needs to price one request.
type Input struct {
	VideoTier         VideoTier      `json:"videoTier"`
	EditOption        EditOption     `json:"editOption"`
	DeliveryMethod    DeliveryMethod `json:"deliveryMethod"`
	HolderOption      HolderOption   `json:"holderOption"`
	Tournament        Tournament     `json:"tournament"`
	VideoCount        *int           `json:"videoCount,omitempty" validate:"omitempty,gte=0,lte=6"`
	Discount          Money          `json:"discount" validate:"gte=0"`
	EditTotalOverride *Money         `json:"editTotalOverride,omitempty" validate:"omitempty,gte=0"`
}

// Breakdown is the itemised result of a quote.
type Breakdown struct {
	Video    Money `json:"video"`
	Edit     Money `json:"edit"`
	Delivery Money `json:"delivery"`
	Shipping Money `json:"shipping"`
	Holder   Money `json:"holder"`
	Discount Money `json:"discount"`
	Total    Money `json:"total"`
}

// Subtotal returns the sum of all positive components.
func (b Breakdown) Subtotal() Money {
	return b.Video + b.Edit + b.Delivery + b.Shipping + b.Holder
}

// EditMode chooses how the edit component is priced.
type EditMode string

const (
	// EditModeSingle prices one edit option for the whole request.
	EditModeSingle EditMode = "single"
	// EditModePerItem sums the edit option chosen for each video item.
	EditModePerItem EditMode = "per_item"
)

// Engine prices inputs against a rule set.
type Engine struct {
	Rules RuleSet
}

// DefaultEngine uses DefaultRules.
var DefaultEngine = Engine{Rules: DefaultRules}

// Calc prices in with DefaultEngine.
func Calc(in Input) Breakdown {
	return DefaultEngine.Calc(in)
}

// Calc computes the breakdown for in. It never fails: unknown names fall back
// to stored prices, counts are clamped and the total never drops below zero.
func (e Engine) Calc(in Input) Breakdown {
	table := e.Rules.Table(in.Tournament.SetType)

	var video Money
	if in.Tournament.PriceOverride != nil {
		video = *in.Tournament.PriceOverride
	} else {
		video = table.VideoPrice(videoCount(in))
	}

	var edit Money
	if in.EditTotalOverride != nil {
		edit = *in.EditTotalOverride
	} else {
		edit = table.EditPrice(in.EditOption.Name, in.EditOption.Price)
	}

	var shipping Money
	if in.DeliveryMethod.ShippingPrice != nil {
		shipping = *in.DeliveryMethod.ShippingPrice
	}

	discount := in.Discount
	if discount < 0 {
		discount = 0
	}

	b := Breakdown{
		Video:    video,
		Edit:     edit,
		Delivery: in.DeliveryMethod.Price,
		Shipping: shipping,
		Holder:   in.HolderOption.Price,
		Discount: discount,
	}
	b.Total = b.Subtotal() - discount
	if b.Total < 0 {
		b.Total = 0
	}
	return b
}

// ItemEditTotal sums the table price of each per-item edit selection.
func (e Engine) ItemEditTotal(st SetType, edits []EditOption) Money {
	table := e.Rules.Table(st)
	var total Money
	for _, opt := range edits {
		total += table.EditPrice(opt.Name, opt.Price)
	}
	return total
}

// ItemEditTotal sums per-item edit selections with DefaultEngine.
func ItemEditTotal(st SetType, edits []EditOption) Money {
	return DefaultEngine.ItemEditTotal(st, edits)
}

func videoCount(in Input) int {
	if in.VideoCount != nil {
		return ClampCount(*in.VideoCount)
	}
	n, err := strconv.Atoi(strings.TrimSpace(in.VideoTier.Name))
	if err != nil {
		return 0
	}
	return ClampCount(n)
}
