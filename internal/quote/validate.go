package quote

import "github.com/noah-isme/match-video-api/internal/common"

// Validate rejects malformed engine input. The returned error is a
// *common.ValidationError naming the offending field and constraint.
func Validate(in Input) error {
	return common.ValidateStruct(in)
}

// ValidateAndCalc validates in and prices it only when it is well formed.
func ValidateAndCalc(in Input) (Breakdown, error) {
	if err := Validate(in); err != nil {
		return Breakdown{}, err
	}
	return Calc(in), nil
}
