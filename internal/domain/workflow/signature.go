package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewSignature returns an opaque audit token stamped on a decision.
// Format: SIG-<unix millis>-<8 hex chars>. Only uniqueness matters.
func NewSignature(now time.Time) string {
	return fmt.Sprintf("SIG-%d-%s", now.UnixMilli(), uuid.New().String()[:8])
}
