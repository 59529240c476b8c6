package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/nafs-essence-api/appstate"
	"github.com/kendall-kelly/nafs-essence-api/middleware"
	"github.com/kendall-kelly/nafs-essence-api/models"
	"github.com/kendall-kelly/nafs-essence-api/remotestore"
	"github.com/kendall-kelly/nafs-essence-api/services"
)

// Admin messages
const (
	MessageStatusFailed      = "Failed to update order status."
	MessageDeleteOrderFailed = "Error deleting order."
	MessageSaveProductFailed = "Failed to save product."
	MessageDeleteProduct     = "Failed to delete product."
	MessageSettingsMissing   = "Settings document not found. Please create it first."
	MessageSettingsFailed    = "Failed to save settings to the cloud."
	MessageSettingsPublished = "Settings published."
)

// DashboardPath is where a login without a "from" location lands
const DashboardPath = "/api/v1/admin/dashboard"

// isoLayout matches the timestamps the inventory view has always written
const isoLayout = "2006-01-02T15:04:05.000Z"

// LoginRequest represents the admin credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	From     string `json:"from"`
}

// UpdateOrderStatusRequest represents the request body for changing an order status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ProductRequest represents the inventory form
type ProductRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       *float64 `json:"price" binding:"required,gte=0"`
	Category    string   `json:"category"`
	Image       string   `json:"image"`
	Stock       *int     `json:"stock" binding:"omitempty,gte=0"`
	Sizes       []string `json:"sizes"`
}

// DescribeRequest asks the assistant for product copy
type DescribeRequest struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category"`
}

// SettingsPatch is a partial edit of the site settings
type SettingsPatch struct {
	WebsiteName    *string `json:"websiteName"`
	PrimaryColor   *string `json:"primaryColor"`
	SecondaryColor *string `json:"secondaryColor"`
	FontFamily     *string `json:"fontFamily"`
	IsDarkMode     *bool   `json:"isDarkMode"`
	HeroTitle      *string `json:"heroTitle"`
	HeroSubtitle   *string `json:"heroSubtitle"`
	FooterText     *string `json:"footerText"`
}

// Apply copies the set fields onto s
func (p SettingsPatch) Apply(s *models.SiteSettings) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setString(&s.WebsiteName, p.WebsiteName)
	setString(&s.PrimaryColor, p.PrimaryColor)
	setString(&s.SecondaryColor, p.SecondaryColor)
	setString(&s.FontFamily, p.FontFamily)
	setString(&s.HeroTitle, p.HeroTitle)
	setString(&s.HeroSubtitle, p.HeroSubtitle)
	setString(&s.FooterText, p.FooterText)
	if p.IsDarkMode != nil {
		s.IsDarkMode = *p.IsDarkMode
	}
}

// LoginView handles GET /api/v1/admin/login - where the guard sends signed out visitors
func (h *Handlers) LoginView(c *gin.Context) {
	respondView(c, gin.H{
		"auth": h.auth.State(),
		"from": c.Query("from"),
	})
}

// Login handles POST /api/v1/admin/login - signs the admin in
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	session, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warn("admin sign-in failed", "error", err)
		status := http.StatusServiceUnavailable
		if services.IsInvalidCredentials(err) {
			status = http.StatusUnauthorized
		}
		respondError(c, status, "AUTH_FAILED", services.LoginErrorMessage(err))
		return
	}

	redirect := req.From
	if redirect == "" {
		redirect = DashboardPath
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"session":  session,
			"redirect": redirect,
		},
	})
}

// Logout handles POST /api/v1/admin/logout - ends the admin session
func (h *Handlers) Logout(c *gin.Context) {
	h.auth.SignOut()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Signed out",
	})
}

// Dashboard handles GET /api/v1/admin/dashboard
func (h *Handlers) Dashboard(c *gin.Context) {
	view, ok := h.currentView(c)
	if !ok {
		return
	}
	respondView(c, BuildDashboardView(view))
}

// Orders handles GET /api/v1/admin/orders
func (h *Handlers) Orders(c *gin.Context) {
	view, ok := h.currentView(c)
	if !ok {
		return
	}
	respondView(c, BuildOrdersView(view))
}

// Inventory handles GET /api/v1/admin/inventory
func (h *Handlers) Inventory(c *gin.Context) {
	view, ok := h.currentView(c)
	if !ok {
		return
	}
	respondView(c, BuildInventoryView(view))
}

// Customizer handles GET /api/v1/admin/customizer
func (h *Handlers) Customizer(c *gin.Context) {
	view, ok := h.currentView(c)
	if !ok {
		return
	}
	respondView(c, BuildCustomizerView(view, adminID(c)))
}

// UpdateOrderStatus handles PUT /api/v1/admin/orders/:id/status
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_STATUS", err.Error())
		return
	}

	ack, err := h.store.UpdateOrderStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		h.respondStoreError(c, err, MessageStatusFailed)
		return
	}
	h.logger.Info("order status updated", "order", ack.ID, "status", status, "admin", adminID(c))
	respondAccepted(c, ack)
}

// DeleteOrder handles DELETE /api/v1/admin/orders/:id
func (h *Handlers) DeleteOrder(c *gin.Context) {
	ack, err := h.store.DeleteOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondStoreError(c, err, MessageDeleteOrderFailed)
		return
	}
	h.logger.Info("order deleted", "order", ack.ID, "admin", adminID(c))
	respondAccepted(c, ack)
}

// CreateProduct handles POST /api/v1/admin/products
func (h *Handlers) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	now := h.now().UTC().Format(isoLayout)
	product := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Category:    req.Category,
		Image:       req.Image,
		Sizes:       req.Sizes,
		DateAdded:   now,
		LastUpdated: now,
	}
	if product.Category == "" {
		product.Category = models.DefaultCategory
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}

	ack, err := h.store.CreateProduct(c.Request.Context(), product)
	if err != nil {
		h.respondStoreError(c, err, MessageSaveProductFailed)
		return
	}
	respondAccepted(c, ack)
}

// UpdateProduct handles PUT /api/v1/admin/products/:id - merges the form into the product
func (h *Handlers) UpdateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	category := req.Category
	if category == "" {
		category = models.DefaultCategory
	}

	fields := remotestore.Record{
		"name":        req.Name,
		"description": req.Description,
		"price":       *req.Price,
		"category":    category,
		"image":       req.Image,
		"lastUpdated": h.now().UTC().Format(isoLayout),
	}
	if req.Stock != nil {
		fields["stock"] = *req.Stock
	}
	if req.Sizes != nil {
		fields["sizes"] = req.Sizes
	}

	ack, err := h.store.UpdateProduct(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		h.respondStoreError(c, err, MessageSaveProductFailed)
		return
	}
	respondAccepted(c, ack)
}

// DeleteProduct handles DELETE /api/v1/admin/products/:id. An uploaded photo of the
// product is removed from image storage once the document is gone.
func (h *Handlers) DeleteProduct(c *gin.Context) {
	id := c.Param("id")

	var image string
	if view, err := h.state.View(); err == nil {
		if product, ok := models.FindProduct(view.Products, id); ok {
			image = product.Image
		}
	}

	ack, err := h.store.DeleteProduct(c.Request.Context(), id)
	if err != nil {
		h.respondStoreError(c, err, MessageDeleteProduct)
		return
	}
	h.logger.Info("product deleted", "product", ack.ID, "admin", adminID(c))

	if imageService := services.GetImageService(); imageService != nil && image != "" {
		if err := imageService.DeleteImage(c.Request.Context(), image); err != nil {
			h.logger.Warn("product image not deleted", "product", ack.ID, "image", image, "error", err)
		}
	}

	respondAccepted(c, ack)
}

// DescribeProduct handles POST /api/v1/admin/products/describe - drafts product copy
func (h *Handlers) DescribeProduct(c *gin.Context) {
	var req DescribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	category := req.Category
	if category == "" {
		category = models.DefaultCategory
	}

	respondView(c, gin.H{
		"description": h.assistant.Describe(c.Request.Context(), req.Name, category),
	})
}

// PreviewCustomizer handles PATCH /api/v1/admin/customizer - edits the settings locally
func (h *Handlers) PreviewCustomizer(c *gin.Context) {
	var patch SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondValidationError(c, err)
		return
	}

	settings, err := h.state.PreviewSettings(adminID(c), patch.Apply)
	if err != nil {
		if errors.Is(err, appstate.ErrNoOwner) {
			respondError(c, http.StatusUnauthorized, "MISSING_ADMIN_ID", "Admin ID not found in context")
			return
		}
		respondError(c, http.StatusServiceUnavailable, "CONTEXT_UNAVAILABLE", "Application state is not available")
		return
	}

	respondView(c, CustomizerView{Settings: settings, Source: appstate.SettingsPreview})
}

// PublishCustomizer handles POST /api/v1/admin/customizer/publish - saves the previewed settings
func (h *Handlers) PublishCustomizer(c *gin.Context) {
	ack, err := h.state.PublishSettings(c.Request.Context(), adminID(c))
	if err != nil {
		if errors.Is(err, appstate.ErrNoOwner) {
			respondError(c, http.StatusUnauthorized, "MISSING_ADMIN_ID", "Admin ID not found in context")
			return
		}
		if errors.Is(err, appstate.ErrSettingsNotFound) {
			respondError(c, http.StatusNotFound, "SETTINGS_NOT_FOUND", MessageSettingsMissing)
			return
		}
		h.respondStoreError(c, err, MessageSettingsFailed)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": MessageSettingsPublished,
		"data":    ack,
	})
}

// adminID returns the signed-in admin for logging
func adminID(c *gin.Context) string {
	id, err := middleware.GetAdminID(c)
	if err != nil {
		return ""
	}
	return id
}
