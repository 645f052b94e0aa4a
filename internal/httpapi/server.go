// Package httpapi exposes the administrative surface over HTTP.
//
// Callers identify themselves with the X-Admin-ID header; authorization is
// enforced by the engine, the API only translates identities and errors.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/maksline/lavka/internal/engine"
	"github.com/maksline/lavka/internal/fault"
	"github.com/maksline/lavka/internal/ledger"
)

type Server struct {
	router *gin.Engine
	eng    *engine.Engine
}

// NewServer creates a new server instance around the storefront engine.
func NewServer(eng *engine.Engine) *Server {
	router := gin.Default()

	server := &Server{
		router: router,
		eng:    eng,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)

		api.GET("/orders", s.listOrders)
		api.POST("/orders/:id/confirm", s.confirmOrder)
		api.POST("/orders/:id/reject", s.rejectOrder)

		api.GET("/catalog/categories", s.listCategories)
		api.POST("/catalog/categories", s.addCategory)
		api.POST("/catalog/products", s.addProduct)
		api.DELETE("/catalog/products/:id", s.deleteProduct)

		api.GET("/stats", s.stats)

		api.GET("/referral/settings", s.referralSettings)
		api.PUT("/referral/settings", s.updateReferralSettings)
	}
}

// adminID extracts the caller identity from the X-Admin-ID header.
func adminID(c *gin.Context) (int64, bool) {
	raw := c.GetHeader("X-Admin-ID")
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func requireAdminID(c *gin.Context) (int64, bool) {
	id, ok := adminID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed X-Admin-ID header"})
		return 0, false
	}
	return id, true
}

// writeError maps fault codes to HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch fault.CodeOf(err) {
	case fault.CodeNotFound:
		status = http.StatusNotFound
	case fault.CodeForbidden:
		status = http.StatusForbidden
	case fault.CodeInvalidInput, fault.CodeStockExceeded, fault.CodeMissingIdentity, fault.CodeNoActiveSession:
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
		"code":  string(fault.CodeOf(err)),
	})
}

// healthCheck endpoint for monitoring
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "lavka",
	})
}

func (s *Server) listOrders(c *gin.Context) {
	id, ok := requireAdminID(c)
	if !ok {
		return
	}
	orders, err := s.eng.PendingOrders(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) resolveOrder(c *gin.Context, outcome ledger.Outcome) {
	id, ok := requireAdminID(c)
	if !ok {
		return
	}
	orderID := c.Param("id")
	if err := s.eng.Resolve(id, orderID, outcome); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_id": orderID,
		"outcome":  string(outcome),
	})
}

func (s *Server) confirmOrder(c *gin.Context) {
	s.resolveOrder(c, ledger.OutcomeConfirmed)
}

func (s *Server) rejectOrder(c *gin.Context) {
	s.resolveOrder(c, ledger.OutcomeRejected)
}

func (s *Server) listCategories(c *gin.Context) {
	id, ok := requireAdminID(c)
	if !ok {
		return
	}
	cats, err := s.eng.AdminCategories(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

type addCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) addCategory(c *gin.Context) {
	id, ok := requireAdminID(c)
	if !ok {
		return
	}
	var req addCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	catID, err := s.eng.AddCategory(id, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": catID})
}

type addProductRequest struct {
	CategoryID  int64  `json:"category_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Price       string `json:"price" binding:"required"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

func (s *Server) addProduct(c *gin.Context) {
	id, ok := requireAdminID(c)
	if !ok {
		return
	}
	var req addProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed price"})
		return
	}
	prodID, err := s.eng.AddProduct(id, req.CategoryID, req.Name, price, req.Description, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": prodID})
}

func (s *Server) deleteProduct(c *gin.Context) {
	id, ok := requireAdminID(c)
	if !ok {
		return
	}
	prodID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed product id"})
		return
	}
	if err := s.eng.DeleteProduct(id, prodID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": prodID})
}

func (s *Server) stats(c *gin.Context) {
	id, ok := requireAdminID(c)
	if !ok {
		return
	}
	stats, err := s.eng.Stats(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) referralSettings(c *gin.Context) {
	id, ok := requireAdminID(c)
	if !ok {
		return
	}
	settings, err := s.eng.ReferralSettings(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

type referralSettingsRequest struct {
	Enabled           *bool   `json:"enabled"`
	MinPurchaseAmount *string `json:"min_purchase_amount"`
}

func (s *Server) updateReferralSettings(c *gin.Context) {
	id, ok := requireAdminID(c)
	if !ok {
		return
	}
	var req referralSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Enabled != nil {
		if err := s.eng.SetReferralEnabled(id, *req.Enabled); err != nil {
			writeError(c, err)
			return
		}
	}
	if req.MinPurchaseAmount != nil {
		amount, err := decimal.NewFromString(*req.MinPurchaseAmount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed min_purchase_amount"})
			return
		}
		if err := s.eng.SetReferralMinPurchase(id, amount); err != nil {
			writeError(c, err)
			return
		}
	}
	settings, err := s.eng.ReferralSettings(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	return s.router.Run(addr)
}
