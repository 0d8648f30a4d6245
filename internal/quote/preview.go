package quote

// Selection is an in-progress set of choices. Any field may still be unset.
type Selection struct {
	VideoTier         *VideoTier
	EditOption        *EditOption
	DeliveryMethod    *DeliveryMethod
	HolderOption      *HolderOption
	Tournament        *Tournament
	VideoCount        *int
	EditTotalOverride *Money
}

// Ready reports whether every option and the tournament have been chosen.
func (s Selection) Ready() bool {
	return s.VideoTier != nil && s.EditOption != nil && s.DeliveryMethod != nil &&
		s.HolderOption != nil && s.Tournament != nil
}

// Preview prices an in-progress selection with DefaultEngine.
func Preview(s Selection) (Breakdown, bool) {
	return DefaultEngine.Preview(s)
}

// Preview prices an in-progress selection. ok is false until the selection
// is complete; callers show a "not yet selectable" state rather than zeros.
func (e Engine) Preview(s Selection) (b Breakdown, ok bool) {
	if !s.Ready() {
		return Breakdown{}, false
	}
	return e.Calc(Input{
		VideoTier:         *s.VideoTier,
		EditOption:        *s.EditOption,
		DeliveryMethod:    *s.DeliveryMethod,
		HolderOption:      *s.HolderOption,
		Tournament:        *s.Tournament,
		VideoCount:        s.VideoCount,
		EditTotalOverride: s.EditTotalOverride,
	}), true
}
