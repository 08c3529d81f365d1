package guest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

const profileCacheKey = "guest:profiles"

// DB is the subset of pgxpool.Pool the service depends on.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Service aggregates guest orders into virtual customer profiles for the
// admin view, with a Redis cache in front of the fold.
type Service struct {
	DB  DB
	R   *redis.Client
	TTL time.Duration
}

// Profiles returns aggregated guest profiles, most recently active first.
func (s *Service) Profiles(ctx context.Context) ([]Profile, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("guest service not configured")
	}
	if profiles, ok := s.fromCache(ctx); ok {
		return profiles, nil
	}
	orders, err := s.listGuestOrders(ctx)
	if err != nil {
		return nil, err
	}
	profiles := Aggregate(orders)
	s.store(ctx, profiles)
	return profiles, nil
}

func (s *Service) listGuestOrders(ctx context.Context) ([]Order, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT customer_email, customer_name, customer_phone, city, pricing_total, order_number, created_at
		FROM orders
		WHERE user_id IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var order Order
		if err := rows.Scan(&order.Email, &order.Name, &order.Phone, &order.City, &order.Total, &order.OrderNumber, &order.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (s *Service) fromCache(ctx context.Context) ([]Profile, bool) {
	if s.R == nil || s.TTL <= 0 {
		return nil, false
	}
	data, err := s.R.Get(ctx, profileCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var profiles []Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, false
	}
	return profiles, true
}

func (s *Service) store(ctx context.Context, profiles []Profile) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(profiles)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, profileCacheKey, data, s.TTL).Err()
}
