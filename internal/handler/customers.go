package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

type CustomerStore interface {
	ListCustomers(ctx context.Context, tier types.Tier, search string, page types.Page) (types.PageResult[types.Customer], error)
	GetCustomer(ctx context.Context, id string) (*types.Customer, error)
	CreateCustomer(ctx context.Context, c *types.Customer) error
	UpdateCustomer(ctx context.Context, c *types.Customer) error
	DeleteCustomer(ctx context.Context, id string) error
	FeedbackByCustomer(ctx context.Context, customerID string, limit int) ([]types.FeedbackItem, error)
}

// CustomersHandler serves /api/customers
type CustomersHandler struct {
	store CustomerStore
	log   *logrus.Entry
}

func NewCustomersHandler(st CustomerStore, log *logrus.Logger) *CustomersHandler {
	return &CustomersHandler{store: st, log: log.WithField("component", "customers-api")}
}

func (h *CustomersHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/customers")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/feedback", h.Feedback)
}

// List pages customers by ARR, largest first
func (h *CustomersHandler) List(c *gin.Context) {
	p, err := page(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var tier types.Tier
	if raw := c.Query("tier"); raw != "" {
		tier = types.ParseTier(raw)
	}

	result, err := h.store.ListCustomers(c.Request.Context(), tier, strings.TrimSpace(c.Query("search")), p)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CustomersHandler) Get(c *gin.Context) {
	customer, err := h.store.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

type customerRequest struct {
	Name     string   `json:"name"`
	Tier     string   `json:"tier"`
	ARR      int64    `json:"arr"`
	Domain   string   `json:"domain"`
	Products []string `json:"products"`
}

func (r customerRequest) toCustomer() (*types.Customer, error) {
	if strings.TrimSpace(r.Name) == "" {
		return nil, badRequest("name is required")
	}
	if r.ARR < 0 {
		return nil, badRequest("arr must not be negative")
	}
	tier := types.TierFree
	if r.Tier != "" {
		tier = types.ParseTier(r.Tier)
		if tier == types.TierUnknown {
			return nil, badRequest("unknown tier %q", r.Tier)
		}
	}
	products := r.Products
	if products == nil {
		products = []string{}
	}
	return &types.Customer{
		Name:     strings.TrimSpace(r.Name),
		Tier:     tier,
		ARR:      r.ARR,
		Domain:   strings.TrimSpace(r.Domain),
		Products: products,
	}, nil
}

func (h *CustomersHandler) Create(c *gin.Context) {
	var req customerRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	customer, err := req.toCustomer()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.store.CreateCustomer(c.Request.Context(), customer); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *CustomersHandler) Update(c *gin.Context) {
	var req customerRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	customer, err := req.toCustomer()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	customer.ID = c.Param("id")
	if err := h.store.UpdateCustomer(c.Request.Context(), customer); err != nil {
		respondError(c, h.log, err)
		return
	}

	updated, err := h.store.GetCustomer(c.Request.Context(), customer.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *CustomersHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.DeleteCustomer(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// Feedback lists the customer's most recent feedback
func (h *CustomersHandler) Feedback(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.store.GetCustomer(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	limit, err := intQuery(c, "limit", 50)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	items, err := h.store.FeedbackByCustomer(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}
