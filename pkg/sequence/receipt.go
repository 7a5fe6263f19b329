package sequence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Generator issues globally unique receipt numbers.
type Generator interface {
	Next(ctx context.Context) (string, error)
}

// ReceiptGenerator issues monotonic receipt numbers from a per-year redis
// counter, formatted as RCP-<year>-<seq>. When redis is unavailable it falls
// back to a timestamp plus random suffix; the receipt column's unique index
// still backs the uniqueness guarantee either way.
type ReceiptGenerator struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewReceiptGenerator constructs a ReceiptGenerator. The client may be nil,
// forcing fallback numbering.
func NewReceiptGenerator(client *redis.Client, prefix string) *ReceiptGenerator {
	if prefix == "" {
		prefix = "RCP"
	}
	return &ReceiptGenerator{client: client, prefix: prefix, now: time.Now}
}

// Next returns the next receipt number.
func (g *ReceiptGenerator) Next(ctx context.Context) (string, error) {
	year := g.now().UTC().Year()
	if g.client != nil {
		key := fmt.Sprintf("receipts:%d", year)
		seq, err := g.client.Incr(ctx, key).Result()
		if err == nil {
			return fmt.Sprintf("%s-%d-%06d", g.prefix, year, seq), nil
		}
	}
	return g.fallback(year), nil
}

func (g *ReceiptGenerator) fallback(year int) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%d-%d-%s", g.prefix, year, g.now().UTC().UnixNano(), suffix)
}
