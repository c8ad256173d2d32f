package validation

import "strings"

const (
	// Game account identifier length bounds (digits only).
	MinGameIDLength = 6
	MaxGameIDLength = 10

	// Game server identifier length bounds (digits only).
	MinServerIDLength = 3
	MaxServerIDLength = 5
)

// ValidGameID reports whether id is a 6-10 digit game account identifier.
func ValidGameID(id string) bool {
	if len(id) < MinGameIDLength || len(id) > MaxGameIDLength {
		return false
	}
	return allDigits(id)
}

// ValidServerID reports whether id is a 3-5 digit game server identifier.
func ValidServerID(id string) bool {
	if len(id) < MinServerIDLength || len(id) > MaxServerIDLength {
		return false
	}
	return allDigits(id)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// BannedAccountFilter flags game accounts that match known-bad
// patterns. It is a coarse placeholder, not a fraud signal; false
// positives are accepted.
type BannedAccountFilter struct {
	denied map[string]struct{}
}

// DefaultDenyList carries the known-bad identifiers the service
// shipped with.
var DefaultDenyList = []string{
	"123456789",
	"000000000",
	"111111111",
}

func NewBannedAccountFilter(denyList []string) *BannedAccountFilter {
	denied := make(map[string]struct{}, len(denyList))
	for _, id := range denyList {
		denied[id] = struct{}{}
	}
	return &BannedAccountFilter{denied: denied}
}

// IsBanned reports whether gameID matches any heuristic: deny-list
// membership, all digits identical, or a triple-zero prefix/suffix.
func (f *BannedAccountFilter) IsBanned(gameID string) bool {
	if _, ok := f.denied[gameID]; ok {
		return true
	}
	if gameID != "" && strings.Count(gameID, gameID[:1]) == len(gameID) {
		return true
	}
	if strings.HasPrefix(gameID, "000") || strings.HasSuffix(gameID, "000") {
		return true
	}
	return false
}
