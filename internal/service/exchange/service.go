// Package exchange validates and administers performer exchange codes.
// Validation is side-effect free; a code is consumed only inside the order
// confirmation transaction.
package exchange

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/calle1003/easel/internal/domain"
	"github.com/calle1003/easel/internal/repository"
)

// Unambiguous alphabet for generated codes: no I/O/0/1.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	generatedCodeLen = 8
	maxBatchSize     = 50
)

type CodeStore interface {
	Find(ctx context.Context, code string) (*domain.ExchangeCode, error)
	Exists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, code, performerName string) (*domain.ExchangeCode, error)
	List(ctx context.Context) ([]domain.ExchangeCode, error)
}

type Service struct {
	codes CodeStore
}

func New(codes CodeStore) *Service {
	return &Service{codes: codes}
}

// Normalize maps user input to the canonical code form: trimmed, uppercase.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Dedupe normalizes a submission and drops repeats, preserving first-seen
// order. Duplicate codes in one order must count once toward the discount,
// never twice.
func Dedupe(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))

	for _, c := range codes {
		n := Normalize(c)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}

	return out
}

// Validation is the per-code outcome of a batch validation.
type Validation struct {
	Code          string `json:"code"`
	Valid         bool   `json:"valid"`
	Reason        string `json:"reason,omitempty"`
	PerformerName string `json:"performerName,omitempty"`
}

// Validate checks a single code's redeemability without consuming it.
//
// Returns:
//   - exchange.ErrEmptyCode, exchange.ErrUnknownCode, exchange.ErrCodeRedeemed.
func (s *Service) Validate(ctx context.Context, code string) (*domain.ExchangeCode, error) {
	const op = "service.exchange.Validate"

	n := Normalize(code)
	if n == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyCode)
	}

	c, err := s.codes.Find(ctx, n)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUnknownCode)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if c.Redeemed {
		return nil, fmt.Errorf("%s: %w", op, ErrCodeRedeemed)
	}

	return c, nil
}

// ValidateBatch validates a submission after deduplication. The returned
// validCount is the number of distinct valid codes, the figure the pricing
// engine takes as validCodeCount.
func (s *Service) ValidateBatch(ctx context.Context, codes []string) ([]Validation, int, error) {
	const op = "service.exchange.ValidateBatch"

	deduped := Dedupe(codes)
	results := make([]Validation, 0, len(deduped))
	valid := 0

	for _, code := range deduped {
		c, err := s.Validate(ctx, code)
		switch {
		case err == nil:
			valid++
			results = append(results, Validation{
				Code:          code,
				Valid:         true,
				PerformerName: c.PerformerName,
			})
		case errors.Is(err, ErrUnknownCode):
			results = append(results, Validation{Code: code, Reason: "unknown code"})
		case errors.Is(err, ErrCodeRedeemed):
			results = append(results, Validation{Code: code, Reason: "code already redeemed"})
		default:
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	return results, valid, nil
}

// Create registers a single pre-sold code.
func (s *Service) Create(ctx context.Context, code, performerName string) (*domain.ExchangeCode, error) {
	const op = "service.exchange.Create"

	n := Normalize(code)
	if n == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyCode)
	}

	c, err := s.codes.Create(ctx, n, performerName)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s: %w", op, ErrDuplicateCode)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// GenerateBatch mints count fresh codes for a performer, capped at 50 per
// call. Collisions with existing codes are retried.
func (s *Service) GenerateBatch(ctx context.Context, performerName string, count int) ([]domain.ExchangeCode, error) {
	const op = "service.exchange.GenerateBatch"

	if count <= 0 {
		return nil, nil
	}
	if count > maxBatchSize {
		count = maxBatchSize
	}

	out := make([]domain.ExchangeCode, 0, count)
	for len(out) < count {
		code, err := randomCode()
		if err != nil {
			return out, fmt.Errorf("%s: %w", op, err)
		}

		c, err := s.codes.Create(ctx, code, performerName)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				continue
			}
			return out, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *c)
	}

	return out, nil
}

func (s *Service) List(ctx context.Context) ([]domain.ExchangeCode, error) {
	const op = "service.exchange.List"

	codes, err := s.codes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return codes, nil
}

func randomCode() (string, error) {
	var b strings.Builder
	for i := 0; i < generatedCodeLen; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
