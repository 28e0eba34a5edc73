package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/calle1003/easel/internal/domain"
	"github.com/calle1003/easel/internal/qr"
	redisrepo "github.com/calle1003/easel/internal/repository/redis"
	"github.com/calle1003/easel/internal/service"
	"github.com/calle1003/easel/internal/service/admin"
	"github.com/calle1003/easel/internal/service/checkin"
	"github.com/calle1003/easel/internal/service/checkout"
	"github.com/calle1003/easel/internal/service/exchange"
	"github.com/calle1003/easel/internal/service/query"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	limiter *redisrepo.SlidingWindowLimiter,
	authSecret string,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	RegisterValidators()

	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/performances", handleListPerformances(svcs))
	r.GET("/performances/:id", handleGetPerformance(svcs))

	r.POST("/orders", RateLimitMiddleware(limiter), handleCreateOrder(svcs, idem))
	r.GET("/orders/:id", handleGetOrder(svcs))

	r.POST("/payments/confirm", handleConfirmPayment(svcs))

	r.POST("/exchange-codes/validate", handleValidateCodes(svcs))

	r.GET("/tickets/:code/qr", handleTicketQR(svcs))

	// Staff API
	staff := r.Group("/admin", JWTAuth(authSecret))
	{
		staff.POST("/checkin", handleCheckIn(svcs))
		staff.GET("/checkin/:code", handleVerifyTicket(svcs))

		staff.GET("/stats/today", handleStatsToday(svcs))
		staff.GET("/stats/totals", handleStatsTotals(svcs))
		staff.GET("/stats/sales", handleStatsSales(svcs))

		staff.POST("/performances", handleCreatePerformance(svcs))
		staff.PATCH("/performances/:id/sale-status", handleSetSaleStatus(svcs))

		staff.GET("/orders", handleListOrders(svcs))
		staff.PATCH("/orders/:id/status", handleSetOrderStatus(svcs))

		staff.POST("/codes", handleCreateCodes(svcs))
		staff.GET("/codes", handleListCodes(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  List performances
// @Success  200  {array}  domain.Performance
// @Router   /performances [get]
func handleListPerformances(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Query.ListPerformances(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 30s
		writeJSONWithCache(c, http.StatusOK, list, "public, max-age=30", true)
	}
}

// @Summary  Get performance
// @Param    id  path  int  true  "Performance ID"
// @Success  200  {object}  domain.Performance
// @Failure  404  {object}  ErrorResponse
// @Router   /performances/{id} [get]
func handleGetPerformance(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		p, err := svcs.Query.GetPerformance(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 15s, availability moves during sales
		writeJSONWithCache(c, http.StatusOK, p, "public, max-age=15", true)
	}
}

// @Summary  Create order (idempotent)
// @Param    req body  CreateOrderRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} OrderResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "sold out / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /orders [post]
func handleCreateOrder(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemOrder(req.PerformanceID, idemKey)

			if payload, ok, _ := idem.GetResult(
				c.Request.Context(),
				idemStorageKey,
			); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(
					http.StatusCreated,
					"application/json; charset=utf-8",
					[]byte(payload),
				)
				return
			}

			locked, err := idem.AcquireLock(
				c.Request.Context(),
				idemStorageKey,
				60*time.Second,
			)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(
					c.Request.Context(),
					idemStorageKey,
				); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(
						http.StatusCreated,
						"application/json; charset=utf-8",
						[]byte(payload),
					)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(
					http.StatusConflict,
					ErrorResponse{Error: "idempotency key in progress"},
				)
				return
			}
		}

		res, err := svcs.Checkout.CreateOrder(c.Request.Context(), checkout.CreateOrderInput{
			PerformanceID:    req.PerformanceID,
			GeneralQuantity:  req.GeneralQuantity,
			ReservedQuantity: req.ReservedQuantity,
			ExchangeCodes:    req.ExchangeCodes,
			Customer: domain.Customer{
				Name:  req.Customer.Name,
				Email: req.Customer.Email,
				Phone: req.Customer.Phone,
			},
		})
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := toOrderResponse(res.Order, res.AppliedCodes, res.Tickets)

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Get order with tickets
// @Param    id  path  string  true  "Order ID (uuid)"
// @Success  200 {object} OrderResponse
// @Failure  404 {object} ErrorResponse
// @Router   /orders/{id} [get]
func handleGetOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		ot, err := svcs.Query.GetOrder(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(ot.Order, ot.Order.ExchangeCodes, ot.Tickets))
	}
}

// @Summary  Confirm payment (idempotent)
// @Param    req body  ConfirmPaymentRequest true "payload"
// @Success  200 {object} OrderResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "inventory or code conflict"
// @Router   /payments/confirm [post]
func handleConfirmPayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConfirmPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			badRequest(c, "invalid orderId")
			return
		}

		confirmed, err := svcs.Checkout.ConfirmPayment(
			c.Request.Context(),
			orderID,
			req.ProviderRef,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(confirmed.Order, confirmed.Order.ExchangeCodes, confirmed.Tickets))
	}
}

// @Summary  Validate exchange codes (non-consuming)
// @Param    req body  ValidateCodesRequest true "payload"
// @Success  200 {array} exchange.Validation
// @Router   /exchange-codes/validate [post]
func handleValidateCodes(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ValidateCodesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		results, validCount, err := svcs.Exchange.ValidateBatch(c.Request.Context(), req.Codes)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"results":    results,
			"validCount": validCount,
		})
	}
}

// @Summary  Ticket QR code
// @Param    code  path  string  true  "Ticket code"
// @Produce  png
// @Success  200
// @Failure  404 {object} ErrorResponse
// @Router   /tickets/{code}/qr [get]
func handleTicketQR(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")

		// Existence check only; a used ticket still renders.
		t, err := svcs.Query.GetTicket(c.Request.Context(), code)
		if err != nil {
			respondErr(c, err)
			return
		}

		size := parseIntDefault(c.Query("size"), 256)
		png, err := qr.PNG(t.Code, size)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Cache-Control", "private, max-age=86400")
		c.Data(http.StatusOK, "image/png", png)
	}
}

// @Summary  Check in a ticket
// @Param    req body  CheckInRequest true "payload"
// @Success  200 {object} CheckInResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} CheckInResponse "already used, carries original usedAt"
// @Router   /admin/checkin [post]
func handleCheckIn(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckInRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		res, err := svcs.CheckIn.CheckIn(c.Request.Context(), req.Code)
		if err != nil {
			var used *checkin.AlreadyUsedError
			if errors.As(err, &used) && used.Ticket != nil {
				c.JSON(http.StatusConflict, CheckInResponse{
					Result:       "already_used",
					Code:         used.Ticket.Code,
					Type:         string(used.Ticket.Type),
					CustomerName: used.Ticket.CustomerName,
					UsedAt:       used.Ticket.UsedAt,
				})
				return
			}
			respondErr(c, err)
			return
		}

		usedAt := res.CheckedInAt
		c.JSON(http.StatusOK, CheckInResponse{
			Result:       "ok",
			Code:         res.Ticket.Code,
			Type:         string(res.Ticket.Type),
			CustomerName: res.Ticket.CustomerName,
			UsedAt:       &usedAt,
		})
	}
}

// @Summary  Verify a ticket without consuming it
// @Param    code  path  string  true  "Ticket code"
// @Success  200 {object} CheckInResponse
// @Router   /admin/checkin/{code} [get]
func handleVerifyTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := svcs.CheckIn.Verify(c.Request.Context(), c.Param("code"))
		if err != nil {
			var used *checkin.AlreadyUsedError
			if errors.As(err, &used) && used.Ticket != nil {
				c.JSON(http.StatusConflict, CheckInResponse{
					Result:       "already_used",
					Code:         used.Ticket.Code,
					Type:         string(used.Ticket.Type),
					CustomerName: used.Ticket.CustomerName,
					UsedAt:       used.Ticket.UsedAt,
				})
				return
			}
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, CheckInResponse{
			Result:       "admissible",
			Code:         t.Code,
			Type:         string(t.Type),
			CustomerName: t.CustomerName,
		})
	}
}

// @Summary  Today's check-in counters
// @Success  200 {object} domain.CheckInStats
// @Router   /admin/stats/today [get]
func handleStatsToday(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := svcs.Stats.Today(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, st, "private, max-age=5", true)
	}
}

// @Summary  Lifetime ticket totals
// @Success  200 {object} domain.TicketTotals
// @Router   /admin/stats/totals [get]
func handleStatsTotals(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := svcs.Stats.Totals(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, t, "private, max-age=5", true)
	}
}

// @Summary  Sales report over PAID orders
// @Success  200 {object} domain.SalesStats
// @Router   /admin/stats/sales [get]
func handleStatsSales(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := svcs.Admin.SalesStats(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

// @Summary  Create performance
// @Param    req body  CreatePerformanceRequest true "payload"
// @Success  201 {object} map[string]int64
// @Router   /admin/performances [post]
func handleCreatePerformance(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreatePerformanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		date, err := parseRFC3339(req.Date)
		if err != nil {
			badRequest(c, "invalid date (RFC3339)")
			return
		}

		id, err := svcs.Admin.CreatePerformance(c.Request.Context(), &domain.Performance{
			Title:            req.Title,
			Volume:           req.Volume,
			Date:             date,
			DoorsOpen:        req.DoorsOpen,
			StartTime:        req.StartTime,
			VenueName:        req.VenueName,
			VenueAddress:     req.VenueAddress,
			GeneralPrice:     req.GeneralPrice,
			ReservedPrice:    req.ReservedPrice,
			GeneralCapacity:  req.GeneralCapacity,
			ReservedCapacity: req.ReservedCapacity,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"performanceId": id})
	}
}

// @Summary  Change sale status
// @Param    id  path  int  true  "Performance ID"
// @Param    req body  SetSaleStatusRequest true "payload"
// @Success  204
// @Router   /admin/performances/{id}/sale-status [patch]
func handleSetSaleStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req SetSaleStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		status := domain.SaleStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
		if err := svcs.Admin.SetSaleStatus(c.Request.Context(), id, status); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  List orders by status
// @Param    status  query  string  false  "PENDING|PAID|CANCELLED|REFUNDED (default PAID)"
// @Success  200 {array} OrderResponse
// @Router   /admin/orders [get]
func handleListOrders(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := svcs.Admin.ListOrders(c.Request.Context(), c.Query("status"))
		if err != nil {
			respondErr(c, err)
			return
		}
		out := make([]OrderResponse, 0, len(orders))
		for _, o := range orders {
			out = append(out, toOrderResponse(o, nil, nil))
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Staff order transition (cancel / refund)
// @Param    id  path  string  true  "Order ID (uuid)"
// @Param    req body  SetOrderStatusRequest true "payload"
// @Success  200 {object} OrderResponse
// @Failure  409 {object} ErrorResponse "concurrent change"
// @Router   /admin/orders/{id}/status [patch]
func handleSetOrderStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req SetOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		to := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
		o, err := svcs.Admin.SetOrderStatus(c.Request.Context(), id, to)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(*o, nil, nil))
	}
}

// @Summary  Create exchange codes
// @Param    req body  CreateCodesRequest true "payload"
// @Success  201 {array} domain.ExchangeCode
// @Failure  409 {object} ErrorResponse "duplicate code"
// @Router   /admin/codes [post]
func handleCreateCodes(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCodesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		if req.Code != "" {
			code, err := svcs.Exchange.Create(c.Request.Context(), req.Code, req.PerformerName)
			if err != nil {
				respondErr(c, err)
				return
			}
			c.JSON(http.StatusCreated, []domain.ExchangeCode{*code})
			return
		}

		count := req.Count
		if count == 0 {
			count = 1
		}
		codes, err := svcs.Exchange.GenerateBatch(c.Request.Context(), req.PerformerName, count)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, codes)
	}
}

// @Summary  List exchange codes
// @Success  200 {array} domain.ExchangeCode
// @Router   /admin/codes [get]
func handleListCodes(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		codes, err := svcs.Exchange.List(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, codes)
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var verr *checkout.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: verr.Error()})
		return
	}
	var icerr *checkout.InvalidCodeError
	if errors.As(err, &icerr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: icerr.Error()})
		return
	}

	switch {
	// checkout service
	case errors.Is(err, checkout.ErrPerformanceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "performance not found"})
	case errors.Is(err, checkout.ErrNotOnSale):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "performance is not on sale"})
	case errors.Is(err, checkout.ErrSoldOut):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "not enough seats remaining"})
	case errors.Is(err, checkout.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "order not found"})
	case errors.Is(err, checkout.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "order is not awaiting payment"})
	case errors.Is(err, checkout.ErrCodeConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "exchange code already redeemed"})
	// check-in service
	case errors.Is(err, checkin.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket not found"})
	case errors.Is(err, checkin.ErrAlreadyUsed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "ticket already used"})
	case errors.Is(err, checkin.ErrInadmissible):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "order is not paid"})
	// exchange service
	case errors.Is(err, exchange.ErrUnknownCode):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown exchange code"})
	case errors.Is(err, exchange.ErrCodeRedeemed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "exchange code already redeemed"})
	case errors.Is(err, exchange.ErrDuplicateCode):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "exchange code already exists"})
	case errors.Is(err, exchange.ErrEmptyCode):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty exchange code"})
	// query service
	case errors.Is(err, query.ErrPerformanceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "performance not found"})
	case errors.Is(err, query.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "order not found"})
	case errors.Is(err, query.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket not found"})
	// admin service
	case errors.Is(err, admin.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "order not found"})
	case errors.Is(err, admin.ErrPerformanceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "performance not found"})
	case errors.Is(err, admin.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid status"})
	case errors.Is(err, admin.ErrForbiddenTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "transition not allowed"})
	case errors.Is(err, admin.ErrConcurrentChange):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "order changed concurrently"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
