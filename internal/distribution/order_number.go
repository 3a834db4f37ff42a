package distribution

import (
	"math/rand"

	custom_error "github.com/NatiEfraim/tokyo-api-sub000/pkg/errors"
)

const (
	orderNumberMin = 1_000_000
	orderNumberMax = 9_999_999

	// Enough attempts that hitting the cap means the 7-digit space is
	// effectively saturated, not bad luck.
	maxOrderNumberAttempts = 64
)

// GenerateOrderNumber draws a 7-digit number not present in inUse. The check
// is advisory: callers load inUse once, so a concurrent order can still grab
// the same number. The distribution_orders primary key is the authoritative
// guard and the caller redraws on a duplicate-key insert.
func GenerateOrderNumber(inUse map[int]struct{}) (int, error) {
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		candidate := orderNumberMin + rand.Intn(orderNumberMax-orderNumberMin+1)
		if _, taken := inUse[candidate]; !taken {
			return candidate, nil
		}
	}

	return 0, custom_error.ErrOrderNumberExhausted
}
