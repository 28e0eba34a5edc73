package exchange

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calle1003/easel/internal/domain"
	"github.com/calle1003/easel/internal/repository"
)

type fakeCodeStore struct {
	codes  map[string]*domain.ExchangeCode
	nextID int64
}

func newFakeCodeStore() *fakeCodeStore {
	return &fakeCodeStore{codes: map[string]*domain.ExchangeCode{}}
}

func (f *fakeCodeStore) add(code, performer string, redeemed bool) {
	f.nextID++
	f.codes[code] = &domain.ExchangeCode{
		ID:            f.nextID,
		Code:          code,
		PerformerName: performer,
		Redeemed:      redeemed,
	}
}

func (f *fakeCodeStore) Find(_ context.Context, code string) (*domain.ExchangeCode, error) {
	c, ok := f.codes[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCodeStore) Exists(_ context.Context, code string) (bool, error) {
	_, ok := f.codes[code]
	return ok, nil
}

func (f *fakeCodeStore) Create(_ context.Context, code, performer string) (*domain.ExchangeCode, error) {
	if _, ok := f.codes[code]; ok {
		return nil, repository.ErrConflict
	}
	f.add(code, performer, false)
	cp := *f.codes[code]
	return &cp, nil
}

func (f *fakeCodeStore) List(_ context.Context) ([]domain.ExchangeCode, error) {
	out := make([]domain.ExchangeCode, 0, len(f.codes))
	for _, c := range f.codes {
		out = append(out, *c)
	}
	return out, nil
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{" abc123 ", "ABC123", "abc123", "", "xyz", "XYZ "})
	assert.Equal(t, []string{"ABC123", "XYZ"}, got)
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	store := newFakeCodeStore()
	store.add("GOODCODE", "Aoi", false)
	store.add("USEDCODE", "Aoi", true)
	svc := New(store)

	t.Run("ValidIsCaseInsensitive", func(t *testing.T) {
		c, err := svc.Validate(ctx, "  goodcode ")
		require.NoError(t, err)
		assert.Equal(t, "Aoi", c.PerformerName)
	})

	t.Run("ValidationDoesNotConsume", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := svc.Validate(ctx, "GOODCODE")
			require.NoError(t, err)
		}
		assert.False(t, store.codes["GOODCODE"].Redeemed)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := svc.Validate(ctx, "NOPE")
		assert.ErrorIs(t, err, ErrUnknownCode)
	})

	t.Run("Redeemed", func(t *testing.T) {
		_, err := svc.Validate(ctx, "usedcode")
		assert.ErrorIs(t, err, ErrCodeRedeemed)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := svc.Validate(ctx, "   ")
		assert.ErrorIs(t, err, ErrEmptyCode)
	})
}

func TestValidateBatch(t *testing.T) {
	ctx := context.Background()
	store := newFakeCodeStore()
	store.add("GOODCODE", "Aoi", false)
	store.add("USEDCODE", "Aoi", true)
	svc := New(store)

	results, valid, err := svc.ValidateBatch(ctx, []string{
		"goodcode", "GOODCODE", // same physical code twice: counts once
		"usedcode",
		"unknown1",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, valid)
	require.Len(t, results, 3)
	assert.True(t, results[0].Valid)
	assert.Equal(t, "GOODCODE", results[0].Code)
	assert.False(t, results[1].Valid)
	assert.False(t, results[2].Valid)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	store := newFakeCodeStore()
	svc := New(store)

	c, err := svc.Create(ctx, " newcode1 ", "Aoi")
	require.NoError(t, err)
	assert.Equal(t, "NEWCODE1", c.Code)

	_, err = svc.Create(ctx, "newcode1", "Aoi")
	assert.ErrorIs(t, err, ErrDuplicateCode)
}

func TestGenerateBatch(t *testing.T) {
	ctx := context.Background()
	store := newFakeCodeStore()
	svc := New(store)

	codes, err := svc.GenerateBatch(ctx, "Aoi", 10)
	require.NoError(t, err)
	require.Len(t, codes, 10)

	seen := map[string]bool{}
	for _, c := range codes {
		assert.Len(t, c.Code, 8)
		for _, r := range c.Code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected rune %q", r)
		}
		assert.False(t, seen[c.Code])
		seen[c.Code] = true
	}

	t.Run("CapAt50", func(t *testing.T) {
		codes, err := svc.GenerateBatch(ctx, "Aoi", 500)
		require.NoError(t, err)
		assert.Len(t, codes, 50)
	})
}
