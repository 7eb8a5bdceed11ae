package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber builds a human-readable order number from the creation time
// plus 32 bits of random entropy. The suffix is wide enough that concurrent
// creations within one millisecond do not collide in practice.
func NewOrderNumber() string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}
