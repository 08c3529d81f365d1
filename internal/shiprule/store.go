package shiprule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/atlasargan/backend-store/internal/pricing"
)

// ErrFetchFailed wraps a settings fetch that did not complete. Callers must
// treat this differently from a confirmed absence: absence triggers the
// documented fallback policy, a failed fetch must surface to the user.
var ErrFetchFailed = errors.New("shipping rule fetch failed")

// noneMarker is cached for a confirmed absence so repeated lookups do not hit
// the database.
const noneMarker = "none"

// DB is the subset of pgxpool.Pool the store depends on.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store exposes per-class shipping rules backed by the settings table, with a
// Redis cache in front. Reads retry once on transient failure; a fetch that
// still fails is reported as ErrFetchFailed, never silently treated as
// "no rule configured".
type Store struct {
	DB  DB
	R   *redis.Client
	TTL time.Duration
}

type cachedRule struct {
	ID               string        `json:"id"`
	Class            pricing.Class `json:"class"`
	BasePrice        pricing.Money `json:"basePrice"`
	FreeOverSubtotal pricing.Money `json:"freeOverSubtotal"`
	FreeOverItems    int           `json:"freeOverItems"`
	Enabled          bool          `json:"enabled"`
}

func cacheKey(class pricing.Class) string {
	return "shiprule:" + string(class)
}

// GetRuleFor returns the single enabled rule for the class, or (nil, nil)
// when none is configured.
func (s *Store) GetRuleFor(ctx context.Context, class pricing.Class) (*pricing.Rule, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("shipping rule store not configured")
	}
	if rule, absent, ok := s.fromCache(ctx, class); ok {
		if absent {
			return nil, nil
		}
		return rule, nil
	}

	rule, err := s.fetch(ctx, class)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		// One immediate retry on a transient failure.
		rule, err = s.fetch(ctx, class)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.store(ctx, class, nil)
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	s.store(ctx, class, rule)
	return rule, nil
}

func (s *Store) fetch(ctx context.Context, class pricing.Class) (*pricing.Rule, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT id, customer_class, base_price, free_over_subtotal, free_over_items, enabled
		FROM shipping_rules
		WHERE customer_class = $1 AND enabled`, string(class))
	var (
		rule pricing.Rule
		id   uuid.UUID
	)
	if err := row.Scan(&id, &rule.Class, &rule.BasePrice, &rule.FreeOverSubtotal, &rule.FreeOverItems, &rule.Enabled); err != nil {
		return nil, err
	}
	rule.ID = id.String()
	return &rule, nil
}

// List returns every configured rule regardless of enabled state, for the
// admin settings view.
func (s *Store) List(ctx context.Context) ([]pricing.Rule, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("shipping rule store not configured")
	}
	rows, err := s.DB.Query(ctx, `
		SELECT id, customer_class, base_price, free_over_subtotal, free_over_items, enabled
		FROM shipping_rules
		ORDER BY customer_class`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer rows.Close()

	var rules []pricing.Rule
	for rows.Next() {
		var (
			rule pricing.Rule
			id   uuid.UUID
		)
		if err := rows.Scan(&id, &rule.Class, &rule.BasePrice, &rule.FreeOverSubtotal, &rule.FreeOverItems, &rule.Enabled); err != nil {
			return nil, err
		}
		rule.ID = id.String()
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// Save persists the rule for its class. One row per class; every field is
// independently editable and the last write wins.
func (s *Store) Save(ctx context.Context, rule pricing.Rule) (pricing.Rule, error) {
	if s == nil || s.DB == nil {
		return pricing.Rule{}, errors.New("shipping rule store not configured")
	}
	id := uuid.New()
	if rule.ID != "" {
		parsed, err := uuid.Parse(rule.ID)
		if err != nil {
			return pricing.Rule{}, fmt.Errorf("parse rule id: %w", err)
		}
		id = parsed
	}
	// On conflict the existing row keeps its id, so read it back rather
	// than reporting the candidate.
	row := s.DB.QueryRow(ctx, `
		INSERT INTO shipping_rules (id, customer_class, base_price, free_over_subtotal, free_over_items, enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (customer_class) DO UPDATE SET
			base_price = EXCLUDED.base_price,
			free_over_subtotal = EXCLUDED.free_over_subtotal,
			free_over_items = EXCLUDED.free_over_items,
			enabled = EXCLUDED.enabled,
			updated_at = now()
		RETURNING id`,
		id, string(rule.Class), rule.BasePrice, rule.FreeOverSubtotal, rule.FreeOverItems, rule.Enabled)
	if err := row.Scan(&id); err != nil {
		return pricing.Rule{}, err
	}
	rule.ID = id.String()
	s.invalidate(ctx, rule.Class)
	return rule, nil
}

func (s *Store) fromCache(ctx context.Context, class pricing.Class) (rule *pricing.Rule, absent, ok bool) {
	if s.R == nil || s.TTL <= 0 {
		return nil, false, false
	}
	data, err := s.R.Get(ctx, cacheKey(class)).Bytes()
	if err != nil {
		return nil, false, false
	}
	if string(data) == noneMarker {
		return nil, true, true
	}
	var cached cachedRule
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false, false
	}
	return &pricing.Rule{
		ID:               cached.ID,
		Class:            cached.Class,
		BasePrice:        cached.BasePrice,
		FreeOverSubtotal: cached.FreeOverSubtotal,
		FreeOverItems:    cached.FreeOverItems,
		Enabled:          cached.Enabled,
	}, false, true
}

func (s *Store) store(ctx context.Context, class pricing.Class, rule *pricing.Rule) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	if rule == nil {
		_ = s.R.Set(ctx, cacheKey(class), noneMarker, s.TTL).Err()
		return
	}
	data, err := json.Marshal(cachedRule{
		ID:               rule.ID,
		Class:            rule.Class,
		BasePrice:        rule.BasePrice,
		FreeOverSubtotal: rule.FreeOverSubtotal,
		FreeOverItems:    rule.FreeOverItems,
		Enabled:          rule.Enabled,
	})
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, cacheKey(class), data, s.TTL).Err()
}

func (s *Store) invalidate(ctx context.Context, class pricing.Class) {
	if s.R == nil {
		return
	}
	_ = s.R.Del(ctx, cacheKey(class)).Err()
}
