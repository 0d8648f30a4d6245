package quote

// Money represents a monetary value in whole yen.
type Money = int64

// SetType selects the rule table used for a tournament.
type SetType string

const (
	SetTypeOneSet   SetType = "ONE_SET"
	SetTypeThreeSet SetType = "THREE_SET"
)

// Edit option names. They are the lookup keys of the edit price table.
const (
	EditNone  = "不要"
	EditScore = "スコア"
	EditCut   = "カット"
	EditBoth  = "両方"
)

// MaxVideoCount is the largest number of matches a single request can cover.
const MaxVideoCount = 6

// RulesVersion identifies the active rule tables and is stored alongside each
// persisted request.
const RulesVersion = "2024-setType-v2"

// RuleTable holds the prices that apply to one set type.
type RuleTable struct {
	Video [MaxVideoCount + 1]Money
	Edit  map[string]Money
}

// RuleSet groups the rule tables of every set type under one version.
type RuleSet struct {
	Version string
	Tables  map[SetType]RuleTable
}

// DefaultRules is the rule set used by Calc.
var DefaultRules = RuleSet{
	Version: RulesVersion,
	Tables: map[SetType]RuleTable{
		SetTypeOneSet: {
			Video: [MaxVideoCount + 1]Money{0, 6600, 12540, 17820, 23100, 28380, 33660},
			Edit: map[string]Money{
				EditNone:  0,
				EditScore: 3300,
				EditCut:   3300,
				EditBoth:  4950,
			},
		},
		SetTypeThreeSet: {
			Video: [MaxVideoCount + 1]Money{0, 9900, 17820, 23760, 29700, 35640, 41580},
			Edit: map[string]Money{
				EditNone:  0,
				EditScore: 4400,
				EditCut:   4400,
				EditBoth:  5500,
			},
		},
	},
}

// ResolveSetType returns st when it names a known table and ONE_SET otherwise.
func ResolveSetType(st SetType) SetType {
	switch st {
	case SetTypeOneSet, SetTypeThreeSet:
		return st
	default:
		return SetTypeOneSet
	}
}

// Table returns the rule table for the given set type.
func (rs RuleSet) Table(st SetType) RuleTable {
	if t, ok := rs.Tables[ResolveSetType(st)]; ok {
		return t
	}
	return rs.Tables[SetTypeOneSet]
}

// VideoPrice looks up the base video price for a clamped match count.
func (t RuleTable) VideoPrice(count int) Money {
	return t.Video[ClampCount(count)]
}

// EditPrice looks up the edit price by option name, falling back to the
// option's stored price when the name is not in the table.
func (t RuleTable) EditPrice(name string, fallback Money) Money {
	if price, ok := t.Edit[name]; ok {
		return price
	}
	return fallback
}

// ClampCount limits a match count to [0, MaxVideoCount].
func ClampCount(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxVideoCount {
		return MaxVideoCount
	}
	return n
}
