package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/nafs-essence-api/models"
)

// Storefront messages
const (
	MessageOrderPlaced  = "Order placed successfully! We will contact you soon."
	MessageOrderFailed  = "Error placing order. Please try again."
	AssistantGreeting   = "Welcome to the inner sanctum of Nafs. I am your Scent Alchemist. How may I guide your senses today?"
	MessageNoProduct    = "The selected product is not available"
	MessageNoAssistance = "Please describe what you are looking for"
)

// CheckoutRequest represents the request body for placing an order
type CheckoutRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Mobile    string `json:"mobile" binding:"required"`
	Address   string `json:"address" binding:"required"`
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity" binding:"omitempty,gte=1"`
}

// AssistantRequest represents a message sent to the scent assistant
type AssistantRequest struct {
	Message string `json:"message" binding:"required"`
}

// Home handles GET /api/v1/store/home - settings and featured products
func (h *Handlers) Home(c *gin.Context) {
	view, ok := h.currentView(c)
	if !ok {
		return
	}
	respondView(c, BuildHomeView(view))
}

// Catalog handles GET /api/v1/store/catalog?category= - the filtered product list
func (h *Handlers) Catalog(c *gin.Context) {
	view, ok := h.currentView(c)
	if !ok {
		return
	}
	respondView(c, BuildCatalogView(view, c.Query("category")))
}

// Checkout handles POST /api/v1/store/checkout - places a single-item order
func (h *Handlers) Checkout(c *gin.Context) {
	// Parse request body
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	view, ok := h.currentView(c)
	if !ok {
		return
	}

	// The product and its price come from the live catalog
	selection, found := ResolveCheckout(view.Products, req.ProductID, req.Size, req.Quantity)
	if !found {
		respondError(c, http.StatusUnprocessableEntity, "PRODUCT_NOT_FOUND", MessageNoProduct)
		return
	}

	order, err := models.NewOrder(
		models.Customer{Name: req.Name, Email: req.Email, Mobile: req.Mobile, Address: req.Address},
		[]models.LineItem{{
			ProductID:   selection.Product.ID,
			ProductName: selection.Product.Name,
			Quantity:    selection.Quantity,
			Price:       selection.Product.Price,
			Size:        selection.Size,
		}},
		h.now(),
	)
	if err != nil {
		respondValidationError(c, err)
		return
	}

	ack, err := h.store.CreateOrder(c.Request.Context(), order)
	if err != nil {
		h.respondStoreError(c, err, MessageOrderFailed)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": MessageOrderPlaced,
		"data": gin.H{
			"ack":   ack,
			"total": order.Total,
		},
	})
}

// AssistantGreetingView handles GET /api/v1/store/assistant - the assistant's opening line
func (h *Handlers) AssistantGreetingView(c *gin.Context) {
	respondView(c, gin.H{"role": "ai", "text": AssistantGreeting})
}

// Assistant handles POST /api/v1/store/assistant - recommends products from the live catalog
func (h *Handlers) Assistant(c *gin.Context) {
	var req AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", MessageNoAssistance)
		return
	}

	view, ok := h.currentView(c)
	if !ok {
		return
	}

	reply := h.assistant.Recommend(c.Request.Context(), req.Message, view.Products)
	respondView(c, gin.H{"role": "ai", "text": reply})
}
