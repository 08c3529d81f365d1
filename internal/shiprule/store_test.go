package shiprule

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/atlasargan/backend-store/internal/pricing"
)

type stubRow struct {
	rule *pricing.Rule
	err  error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*uuid.UUID) = uuid.MustParse(r.rule.ID)
	*dest[1].(*pricing.Class) = r.rule.Class
	*dest[2].(*pricing.Money) = r.rule.BasePrice
	*dest[3].(*pricing.Money) = r.rule.FreeOverSubtotal
	*dest[4].(*int) = r.rule.FreeOverItems
	*dest[5].(*bool) = r.rule.Enabled
	return nil
}

type idRow struct {
	id  uuid.UUID
	err error
}

func (r idRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*uuid.UUID) = r.id
	return nil
}

type stubDB struct {
	rule    *pricing.Rule
	rowErrs []error
	calls   int

	existingID uuid.UUID
	saveErr    error
	savedSQLs  []string
}

func (db *stubDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if strings.Contains(sql, "INSERT") {
		db.savedSQLs = append(db.savedSQLs, sql)
		if db.saveErr != nil {
			return idRow{err: db.saveErr}
		}
		id := db.existingID
		if id == uuid.Nil {
			id = args[0].(uuid.UUID)
		}
		return idRow{id: id}
	}
	db.calls++
	if len(db.rowErrs) > 0 {
		err := db.rowErrs[0]
		db.rowErrs = db.rowErrs[1:]
		if err != nil {
			return stubRow{err: err}
		}
	}
	if db.rule == nil {
		return stubRow{err: pgx.ErrNoRows}
	}
	return stubRow{rule: db.rule}
}

func (db *stubDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func testRule() *pricing.Rule {
	return &pricing.Rule{
		ID:               uuid.NewString(),
		Class:            pricing.ClassRetail,
		BasePrice:        35,
		FreeOverSubtotal: 250,
		Enabled:          true,
	}
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestGetRuleForReturnsRule(t *testing.T) {
	db := &stubDB{rule: testRule()}
	store := &Store{DB: db}
	rule, err := store.GetRuleFor(context.Background(), pricing.ClassRetail)
	require.NoError(t, err)
	require.NotNil(t, rule)
	require.Equal(t, pricing.Money(35), rule.BasePrice)
}

func TestGetRuleForConfirmedAbsenceIsNotAnError(t *testing.T) {
	store := &Store{DB: &stubDB{}}
	rule, err := store.GetRuleFor(context.Background(), pricing.ClassReseller)
	require.NoError(t, err)
	require.Nil(t, rule)
}

func TestGetRuleForFetchFailureSurfaces(t *testing.T) {
	boom := errors.New("connection refused")
	db := &stubDB{rowErrs: []error{boom, boom}}
	store := &Store{DB: db}
	_, err := store.GetRuleFor(context.Background(), pricing.ClassRetail)
	require.ErrorIs(t, err, ErrFetchFailed)
	require.Equal(t, 2, db.calls, "expected exactly one retry")
}

func TestGetRuleForRetriesOnceThenSucceeds(t *testing.T) {
	db := &stubDB{rule: testRule(), rowErrs: []error{errors.New("transient")}}
	store := &Store{DB: db}
	rule, err := store.GetRuleFor(context.Background(), pricing.ClassRetail)
	require.NoError(t, err)
	require.NotNil(t, rule)
	require.Equal(t, 2, db.calls)
}

func TestGetRuleForCachesPositiveHit(t *testing.T) {
	db := &stubDB{rule: testRule()}
	store := &Store{DB: db, R: newTestRedis(t), TTL: time.Minute}
	ctx := context.Background()

	_, err := store.GetRuleFor(ctx, pricing.ClassRetail)
	require.NoError(t, err)
	_, err = store.GetRuleFor(ctx, pricing.ClassRetail)
	require.NoError(t, err)
	require.Equal(t, 1, db.calls, "second read must come from cache")
}

func TestGetRuleForCachesAbsence(t *testing.T) {
	db := &stubDB{}
	store := &Store{DB: db, R: newTestRedis(t), TTL: time.Minute}
	ctx := context.Background()

	rule, err := store.GetRuleFor(ctx, pricing.ClassRetail)
	require.NoError(t, err)
	require.Nil(t, rule)
	rule, err = store.GetRuleFor(ctx, pricing.ClassRetail)
	require.NoError(t, err)
	require.Nil(t, rule)
	require.Equal(t, 1, db.calls)
}

func TestSaveConflictReturnsPersistedID(t *testing.T) {
	existing := uuid.New()
	db := &stubDB{existingID: existing}
	store := &Store{DB: db}

	saved, err := store.Save(context.Background(), pricing.Rule{Class: pricing.ClassRetail, BasePrice: 40, Enabled: true})
	require.NoError(t, err)
	require.Equal(t, existing.String(), saved.ID, "id must come from the persisted row, not the insert candidate")
	require.Contains(t, db.savedSQLs[0], "RETURNING id")
}

func TestSaveInvalidatesCache(t *testing.T) {
	db := &stubDB{rule: testRule()}
	store := &Store{DB: db, R: newTestRedis(t), TTL: time.Minute}
	ctx := context.Background()

	_, err := store.GetRuleFor(ctx, pricing.ClassRetail)
	require.NoError(t, err)

	_, err = store.Save(ctx, pricing.Rule{Class: pricing.ClassRetail, BasePrice: 40, Enabled: true})
	require.NoError(t, err)

	_, err = store.GetRuleFor(ctx, pricing.ClassRetail)
	require.NoError(t, err)
	require.Equal(t, 2, db.calls, "save must drop the cached rule")
}
