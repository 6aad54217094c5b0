// Package gateway is the HTTP surface of the checkout service. Auth and
// request validation beyond shape checks happen upstream; handlers bind
// JSON, call the orchestrator and translate its error taxonomy to status
// codes.
package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/storefront/pkg/checkout"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/inventory"
	"github.com/example/storefront/pkg/lifecycle"
	"github.com/example/storefront/pkg/voucher"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

type Gateway struct {
	config   *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	checkout *checkout.Service
}

func NewGateway(cfg *config.Config, logger *zap.Logger, svc *checkout.Service) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Gateway{
		config:   cfg,
		logger:   logger,
		router:   router,
		checkout: svc,
	}
}

func (g *Gateway) SetupRoutes() {
	// Health check
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := g.router.Group("/api/v1")
	{
		v1.POST("/checkout", g.createOrder)

		orders := v1.Group("/orders")
		{
			orders.POST("/:id/cod/process", g.processCOD)
			orders.PATCH("/:id/cancel", g.cancelOrder)
			orders.GET("/:id/details", g.getOrderDetails)
		}

		vouchers := v1.Group("/vouchers")
		{
			vouchers.POST("/apply", g.applyVoucher)
			vouchers.POST("/validate-user", g.validateVoucherForUser)
		}
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)
	g.logger.Info("Gateway starting", zap.String("address", addr))
	return g.router.Run(addr)
}

type checkoutRequest struct {
	UserID          string   `json:"user_id" binding:"required"`
	CartID          string   `json:"cart_id" binding:"required"`
	PaymentMethodID string   `json:"payment_method_id" binding:"required"`
	TotalAmount     float64  `json:"total_amount" binding:"required"`
	VoucherCode     string   `json:"voucher_code"`
	FinalAmount     *float64 `json:"final_amount"`
	ShippingAddress string   `json:"shipping_address"`
	Notes           string   `json:"notes"`
}

func (g *Gateway) createOrder(c *gin.Context) {
	var req checkoutRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	summary, err := g.checkout.CreateOrderWithPayment(c.Request.Context(), &checkout.CheckoutRequest{
		UserID:          req.UserID,
		CartID:          req.CartID,
		PaymentMethodID: req.PaymentMethodID,
		TotalAmount:     req.TotalAmount,
		VoucherCode:     req.VoucherCode,
		FinalAmount:     req.FinalAmount,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		g.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, summary)
}

func (g *Gateway) processCOD(c *gin.Context) {
	order, err := g.checkout.ProcessCODPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (g *Gateway) cancelOrder(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
			return
		}
	}

	order, err := g.checkout.CancelOrder(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) getOrderDetails(c *gin.Context) {
	details, err := g.checkout.GetOrderWithPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

type applyVoucherRequest struct {
	Code        string  `json:"code" binding:"required"`
	OrderAmount float64 `json:"order_amount" binding:"required"`
}

func (g *Gateway) applyVoucher(c *gin.Context) {
	var req applyVoucherRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	result, err := g.checkout.PreviewVoucher(c.Request.Context(), req.Code, req.OrderAmount)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type validateVoucherRequest struct {
	Code        string  `json:"code" binding:"required"`
	UserID      string  `json:"user_id" binding:"required"`
	OrderAmount float64 `json:"order_amount" binding:"required"`
}

func (g *Gateway) validateVoucherForUser(c *gin.Context) {
	var req validateVoucherRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	result, err := g.checkout.ValidateVoucherForUser(c.Request.Context(), req.Code, req.UserID, req.OrderAmount)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// respondError maps the orchestrator's error taxonomy onto HTTP. Not-found
// kinds are 404, business rejections are 400, anything else is 500.
func (g *Gateway) respondError(c *gin.Context, err error) {
	var validationErr *voucher.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{"code": validationErr.Reason, "message": validationErr.Message})
		return
	}

	switch {
	case errors.Is(err, checkout.ErrCartNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "CART_NOT_FOUND", "message": err.Error()})
	case errors.Is(err, checkout.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "PRODUCT_NOT_FOUND", "message": err.Error()})
	case errors.Is(err, checkout.ErrPaymentMethodNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "PAYMENT_METHOD_NOT_FOUND", "message": err.Error()})
	case errors.Is(err, checkout.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "ORDER_NOT_FOUND", "message": err.Error()})
	case errors.Is(err, voucher.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "VOUCHER_NOT_FOUND", "message": err.Error()})
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"code": "EMPTY_CART", "message": err.Error()})
	case errors.Is(err, inventory.ErrInsufficientStock):
		c.JSON(http.StatusBadRequest, gin.H{"code": "INSUFFICIENT_STOCK", "message": err.Error()})
	case errors.Is(err, checkout.ErrAmountMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"code": "AMOUNT_MISMATCH", "message": err.Error()})
	case errors.Is(err, checkout.ErrPaymentMethodInactive):
		c.JSON(http.StatusBadRequest, gin.H{"code": "PAYMENT_METHOD_INACTIVE", "message": err.Error()})
	case errors.Is(err, checkout.ErrNotCOD):
		c.JSON(http.StatusBadRequest, gin.H{"code": "NOT_COD", "message": err.Error()})
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_TRANSITION", "message": err.Error()})
	default:
		g.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "internal server error"})
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
