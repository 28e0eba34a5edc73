// Package pricing computes the authoritative order total. The same function
// backs the client-side preview endpoint and the server-side charge amount;
// any total supplied by a client is discarded and recomputed here.
package pricing

// Quote is the discount breakdown for one order.
type Quote struct {
	DiscountedGeneralCount int `json:"discountedGeneralCount"`
	DiscountAmount         int `json:"discountAmount"`
	Total                  int `json:"total"`
}

// Compute is pure and deterministic: no I/O, no clock, no state.
//
// Exchange codes discount general seats only, one code per seat. Codes beyond
// generalQty are ignored, not an error: a surplus code stays unredeemed.
func Compute(generalQty, reservedQty, generalPrice, reservedPrice, validCodeCount int) Quote {
	if generalQty < 0 {
		generalQty = 0
	}
	if reservedQty < 0 {
		reservedQty = 0
	}
	if validCodeCount < 0 {
		validCodeCount = 0
	}

	discounted := validCodeCount
	if discounted > generalQty {
		discounted = generalQty
	}

	return Quote{
		DiscountedGeneralCount: discounted,
		DiscountAmount:         discounted * generalPrice,
		Total:                  (generalQty-discounted)*generalPrice + reservedQty*reservedPrice,
	}
}
