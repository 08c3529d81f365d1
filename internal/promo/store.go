package promo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrCodeExists indicates an attempt to create a promo code that already exists.
var ErrCodeExists = errors.New("promo code already exists")

// DB is the subset of pgxpool.Pool the store depends on.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store persists the promo code rule table.
type Store struct {
	DB  DB
	Now func() time.Time
}

func (s *Store) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Load reads every promo rule, most recently created first.
func (s *Store) Load(ctx context.Context) ([]Rule, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("promo store not configured")
	}
	rows, err := s.DB.Query(ctx, `
		SELECT id, code, percent_bps, valid_from, valid_to, usage_limit, used_count
		FROM promo_codes
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.ID, &rule.Code, &rule.PercentBps, &rule.ValidFrom, &rule.ValidTo, &rule.UsageLimit, &rule.UsedCount); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// Resolver builds a pure resolver over the currently persisted rule table,
// seeding the defaults when the table is empty.
func (s *Store) Resolver(ctx context.Context) (*Resolver, error) {
	rules, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return NewResolver(rules), nil
}

// Create inserts a new promo rule. Codes are stored normalized so lookups
// stay case-insensitive.
func (s *Store) Create(ctx context.Context, rule Rule) (Rule, error) {
	if s == nil || s.DB == nil {
		return Rule{}, errors.New("promo store not configured")
	}
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	rule.Code = Normalize(rule.Code)
	_, err := s.DB.Exec(ctx, `
		INSERT INTO promo_codes (id, code, percent_bps, valid_from, valid_to, usage_limit, used_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7)`,
		rule.ID, rule.Code, rule.PercentBps, rule.ValidFrom, rule.ValidTo, rule.UsageLimit, s.now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Rule{}, ErrCodeExists
		}
		return Rule{}, err
	}
	return rule, nil
}
