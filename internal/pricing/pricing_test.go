package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	t.Run("DiscountCappedByGeneralQuantity", func(t *testing.T) {
		q := Compute(3, 1, 4500, 5500, 2)
		assert.Equal(t, 2, q.DiscountedGeneralCount)
		assert.Equal(t, 9000, q.DiscountAmount)
		assert.Equal(t, 1*4500+1*5500, q.Total)
	})

	t.Run("SurplusCodesIgnored", func(t *testing.T) {
		q := Compute(2, 0, 4500, 5500, 5)
		assert.Equal(t, 2, q.DiscountedGeneralCount)
		assert.Equal(t, 9000, q.DiscountAmount)
		assert.Equal(t, 0, q.Total)
	})

	t.Run("NoCodes", func(t *testing.T) {
		q := Compute(2, 3, 4500, 5500, 0)
		assert.Equal(t, 0, q.DiscountedGeneralCount)
		assert.Equal(t, 0, q.DiscountAmount)
		assert.Equal(t, 2*4500+3*5500, q.Total)
	})

	t.Run("CodesNeverDiscountReservedSeats", func(t *testing.T) {
		q := Compute(0, 2, 4500, 5500, 3)
		assert.Equal(t, 0, q.DiscountedGeneralCount)
		assert.Equal(t, 0, q.DiscountAmount)
		assert.Equal(t, 11000, q.Total)
	})

	t.Run("NegativeInputsClampedToZero", func(t *testing.T) {
		q := Compute(-1, -2, 4500, 5500, -3)
		assert.Equal(t, Quote{}, q)
	})
}

func TestComputeProperties(t *testing.T) {
	const generalPrice, reservedPrice = 4500, 5500

	for generalQty := 0; generalQty <= 6; generalQty++ {
		for codes := 0; codes <= 8; codes++ {
			q := Compute(generalQty, 1, generalPrice, reservedPrice, codes)

			want := codes
			if want > generalQty {
				want = generalQty
			}
			assert.Equal(t, want, q.DiscountedGeneralCount)
			assert.Equal(t, want*generalPrice, q.DiscountAmount)
			assert.GreaterOrEqual(t, q.DiscountAmount, 0)
			assert.LessOrEqual(t, q.DiscountAmount, generalQty*generalPrice)
			assert.GreaterOrEqual(t, q.Total, 0)
		}
	}
}
