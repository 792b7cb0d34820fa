package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const orderCodeSuffixLen = 12

// newOrderCode генерирует код заказа вида cz_<userID>_<unix>_<12 hex>. Код служит ключом идемпотентности
// на стороне шлюза, поэтому случайная часть берется из UUIDv4.
func newOrderCode(userID int64, now time.Time) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate order code: %w", err)
	}
	suffix := strings.ReplaceAll(id.String(), "-", "")[:orderCodeSuffixLen]
	return fmt.Sprintf("cz_%d_%d_%s", userID, now.Unix(), suffix), nil
}
