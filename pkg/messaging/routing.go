package messaging

import (
	"strings"
	"unicode"
)

// ToRoutingKey converts a PascalCase event discriminator to its snake_case
// routing key, e.g. "OrderReservationCompleted" -> "order_reservation_completed".
func ToRoutingKey(eventType string) string {
	var b strings.Builder
	b.Grow(len(eventType) + 4)

	runes := []rune(eventType)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
