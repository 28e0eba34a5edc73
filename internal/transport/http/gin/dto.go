package httpgin

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/calle1003/easel/internal/domain"
)

type CreateOrderRequest struct {
	PerformanceID    int64         `json:"performanceId" binding:"required"`
	GeneralQuantity  int           `json:"generalQuantity" binding:"min=0"`
	ReservedQuantity int           `json:"reservedQuantity" binding:"min=0"`
	ExchangeCodes    []string      `json:"exchangeCodes" binding:"omitempty,max=50,dive,exchangecode"`
	Customer         CustomerInput `json:"customer" binding:"required"`
}

type CustomerInput struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
}

type ConfirmPaymentRequest struct {
	OrderID     string `json:"orderId" binding:"required,uuid"`
	ProviderRef string `json:"providerRef" binding:"required"`
}

type ValidateCodesRequest struct {
	Codes []string `json:"codes" binding:"required,min=1,max=50,dive,required"`
}

type CheckInRequest struct {
	Code string `json:"code" binding:"required"`
}

type SetOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type SetSaleStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type CreatePerformanceRequest struct {
	Title            string `json:"title" binding:"required"`
	Volume           string `json:"volume"`
	Date             string `json:"date" binding:"required"`
	DoorsOpen        string `json:"doorsOpen"`
	StartTime        string `json:"startTime"`
	VenueName        string `json:"venueName"`
	VenueAddress     string `json:"venueAddress"`
	GeneralPrice     int    `json:"generalPrice" binding:"min=0"`
	ReservedPrice    int    `json:"reservedPrice" binding:"min=0"`
	GeneralCapacity  int    `json:"generalCapacity" binding:"min=0"`
	ReservedCapacity int    `json:"reservedCapacity" binding:"min=0"`
}

// CreateCodesRequest covers both forms: a hand-picked code, or a generated
// batch of count codes.
type CreateCodesRequest struct {
	Code          string `json:"code" binding:"omitempty,exchangecode"`
	PerformerName string `json:"performerName" binding:"required"`
	Count         int    `json:"count" binding:"omitempty,min=1,max=50"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type OrderResponse struct {
	OrderID                string           `json:"orderId"`
	PerformanceID          int64            `json:"performanceId"`
	GeneralQuantity        int              `json:"generalQuantity"`
	ReservedQuantity       int              `json:"reservedQuantity"`
	DiscountedGeneralCount int              `json:"discountedGeneralCount"`
	DiscountAmount         int              `json:"discountAmount"`
	TotalAmount            int              `json:"totalAmount"`
	AppliedCodes           []string         `json:"appliedCodes,omitempty"`
	Status                 string           `json:"status"`
	PaidAt                 *time.Time       `json:"paidAt,omitempty"`
	Tickets                []TicketResponse `json:"tickets,omitempty"`
}

type TicketResponse struct {
	Code        string     `json:"code"`
	Type        string     `json:"type"`
	IsExchanged bool       `json:"isExchanged"`
	IsUsed      bool       `json:"isUsed"`
	UsedAt      *time.Time `json:"usedAt,omitempty"`
}

type CheckInResponse struct {
	Result       string     `json:"result"`
	Code         string     `json:"code"`
	Type         string     `json:"type"`
	CustomerName string     `json:"customerName,omitempty"`
	UsedAt       *time.Time `json:"usedAt,omitempty"`
}

func toOrderResponse(o domain.Order, applied []string, tickets []domain.Ticket) OrderResponse {
	resp := OrderResponse{
		OrderID:                o.ID.String(),
		PerformanceID:          o.PerformanceID,
		GeneralQuantity:        o.GeneralQuantity,
		ReservedQuantity:       o.ReservedQuantity,
		DiscountedGeneralCount: o.DiscountedGeneralCount,
		DiscountAmount:         o.DiscountAmount,
		TotalAmount:            o.TotalAmount,
		AppliedCodes:           applied,
		Status:                 string(o.Status),
		PaidAt:                 o.PaidAt,
	}
	for _, t := range tickets {
		resp.Tickets = append(resp.Tickets, toTicketResponse(t))
	}
	return resp
}

func toTicketResponse(t domain.Ticket) TicketResponse {
	return TicketResponse{
		Code:        t.Code,
		Type:        string(t.Type),
		IsExchanged: t.IsExchanged,
		IsUsed:      t.IsUsed,
		UsedAt:      t.UsedAt,
	}
}

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{4,32}$`)

// RegisterValidators installs the exchangecode rule on gin's validator
// engine. Call once before building the router.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("exchangecode", func(fl validator.FieldLevel) bool {
			return codePattern.MatchString(strings.TrimSpace(fl.Field().String()))
		})
	}
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
