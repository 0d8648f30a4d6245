package quote

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/match-video-api/internal/common"
)

func TestValidateAcceptsWellFormedInput(t *testing.T) {
	in := baseInput()
	in.VideoCount = intPtr(0)
	in.EditTotalOverride = money(0)
	require.NoError(t, Validate(in))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Input)
		field      string
		constraint string
	}{
		{name: "blank video tier id", mutate: func(in *Input) { in.VideoTier.ID = "  " }, field: "videoTier.id", constraint: "notblank"},
		{name: "empty edit name", mutate: func(in *Input) { in.EditOption.Name = "" }, field: "editOption.name", constraint: "notblank"},
		{name: "negative delivery price", mutate: func(in *Input) { in.DeliveryMethod.Price = -1 }, field: "deliveryMethod.price", constraint: "gte=0"},
		{name: "negative shipping", mutate: func(in *Input) { in.DeliveryMethod.ShippingPrice = money(-550) }, field: "deliveryMethod.shippingPrice", constraint: "gte=0"},
		{name: "negative holder price", mutate: func(in *Input) { in.HolderOption.Price = -1000 }, field: "holderOption.price", constraint: "gte=0"},
		{name: "missing tournament id", mutate: func(in *Input) { in.Tournament.ID = "" }, field: "tournament.id", constraint: "notblank"},
		{name: "unknown set type", mutate: func(in *Input) { in.Tournament.SetType = "TWO_SET" }, field: "tournament.setType", constraint: "oneof=ONE_SET THREE_SET"},
		{name: "video count too high", mutate: func(in *Input) { in.VideoCount = intPtr(7) }, field: "videoCount", constraint: "lte=6"},
		{name: "video count negative", mutate: func(in *Input) { in.VideoCount = intPtr(-1) }, field: "videoCount", constraint: "gte=0"},
		{name: "negative discount", mutate: func(in *Input) { in.Discount = -1 }, field: "discount", constraint: "gte=0"},
		{name: "negative edit override", mutate: func(in *Input) { in.EditTotalOverride = money(-10) }, field: "editTotalOverride", constraint: "gte=0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := baseInput()
			tc.mutate(&in)
			err := Validate(in)
			var vErr *common.ValidationError
			require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
			require.Equal(t, tc.field, vErr.Field)
			require.Equal(t, tc.constraint, vErr.Constraint)
		})
	}
}

func TestValidateAndCalcStopsOnInvalidInput(t *testing.T) {
	in := baseInput()
	in.Discount = -5
	b, err := ValidateAndCalc(in)
	require.Error(t, err)
	require.Equal(t, Breakdown{}, b)

	in.Discount = 0
	in.VideoCount = intPtr(2)
	b, err = ValidateAndCalc(in)
	require.NoError(t, err)
	require.Equal(t, Money(22340), b.Total)
}

func TestPreviewRequiresCompleteSelection(t *testing.T) {
	in := baseInput()
	full := Selection{
		VideoTier:      &in.VideoTier,
		EditOption:     &in.EditOption,
		DeliveryMethod: &in.DeliveryMethod,
		HolderOption:   &in.HolderOption,
		Tournament:     &in.Tournament,
		VideoCount:     intPtr(2),
	}
	b, ok := Preview(full)
	require.True(t, ok)
	require.Equal(t, Money(22340), b.Total)

	partials := map[string]Selection{}
	noTier := full
	noTier.VideoTier = nil
	partials["video tier"] = noTier
	noHolder := full
	noHolder.HolderOption = nil
	partials["holder"] = noHolder
	noTournament := full
	noTournament.Tournament = nil
	partials["tournament"] = noTournament

	for name, sel := range partials {
		b, ok := Preview(sel)
		require.False(t, ok, name)
		require.Equal(t, Breakdown{}, b, name)
	}
}

func TestPreviewMatchesCalc(t *testing.T) {
	in := baseInput()
	in.VideoCount = intPtr(5)
	in.EditTotalOverride = money(9900)
	b, ok := Preview(Selection{
		VideoTier:         &in.VideoTier,
		EditOption:        &in.EditOption,
		DeliveryMethod:    &in.DeliveryMethod,
		HolderOption:      &in.HolderOption,
		Tournament:        &in.Tournament,
		VideoCount:        in.VideoCount,
		EditTotalOverride: in.EditTotalOverride,
	})
	require.True(t, ok)
	require.Equal(t, Calc(in), b)
}
