package checkout

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// OrderNumber generates a human-readable order number of the form
// {prefix}-{last 6 digits of unix millis}-{random 0..999}. Uniqueness is
// enforced by the store's unique index; callers retry on collision.
func OrderNumber(prefix string) string {
	suffix := time.Now().UnixMilli() % 1_000_000
	return fmt.Sprintf("%s-%06d-%d", prefix, suffix, rand.IntN(1000))
}
