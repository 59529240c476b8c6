package controllers

import (
	"github.com/kendall-kelly/nafs-essence-api/appstate"
	"github.com/kendall-kelly/nafs-essence-api/feeds"
	"github.com/kendall-kelly/nafs-essence-api/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CategoryAll is the catalog filter that shows every product
const CategoryAll = "All"

// FeaturedCount is the number of products shown on the home page
const FeaturedCount = 3

// RecentOrdersCount is the number of orders listed on the dashboard
const RecentOrdersCount = 5

// CurrencySymbol prefixes every displayed amount
const CurrencySymbol = "৳"

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount formats an amount for display, e.g. ৳1,250.5
func FormatAmount(amount float64) string {
	return amountPrinter.Sprintf("%s%v", CurrencySymbol, number.Decimal(amount, number.MaxFractionDigits(2)))
}

// HomeView is the storefront landing page
type HomeView struct {
	Settings models.SiteSettings `json:"settings"`
	Featured []models.Product    `json:"featured"`
}

// BuildHomeView shows the settings and the first products of the catalog
func BuildHomeView(v appstate.View) HomeView {
	featured := v.Products
	if len(featured) > FeaturedCount {
		featured = featured[:FeaturedCount]
	}
	return HomeView{Settings: v.Settings, Featured: featured}
}

// CatalogView is the product list with its category filter
type CatalogView struct {
	Settings   models.SiteSettings `json:"settings"`
	Categories []string            `json:"categories"`
	Selected   string              `json:"selected"`
	Products   []models.Product    `json:"products"`
}

// BuildCatalogView lists "All" plus every distinct category in first-seen order,
// and the products of the selected category
func BuildCatalogView(v appstate.View, category string) CatalogView {
	if category == "" {
		category = CategoryAll
	}

	categories := []string{CategoryAll}
	seen := map[string]bool{}
	for _, p := range v.Products {
		if !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}

	products := []models.Product{}
	for _, p := range v.Products {
		if category == CategoryAll || p.Category == category {
			products = append(products, p)
		}
	}

	return CatalogView{
		Settings:   v.Settings,
		Categories: categories,
		Selected:   category,
		Products:   products,
	}
}

// DashboardStat is one tile of the admin dashboard
type DashboardStat struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// DashboardView is the admin overview
type DashboardView struct {
	Revenue       float64         `json:"revenue"`
	PendingOrders int             `json:"pendingOrders"`
	TotalProducts int             `json:"totalProducts"`
	Stats         []DashboardStat `json:"stats"`
	RecentOrders  []models.Order  `json:"recentOrders"`
}

// BuildDashboardView sums every order total regardless of status
func BuildDashboardView(v appstate.View) DashboardView {
	var revenue float64
	pending := 0
	for _, o := range v.Orders {
		revenue += o.Total
		if o.Status == models.OrderStatusPending {
			pending++
		}
	}

	recent := v.Orders
	if len(recent) > RecentOrdersCount {
		recent = recent[:RecentOrdersCount]
	}

	return DashboardView{
		Revenue:       revenue,
		PendingOrders: pending,
		TotalProducts: len(v.Products),
		Stats: []DashboardStat{
			{Label: "Total Revenue", Value: FormatAmount(revenue)},
			{Label: "Pending Orders", Value: amountPrinter.Sprintf("%d", pending)},
			{Label: "Total Products", Value: amountPrinter.Sprintf("%d", len(v.Products))},
		},
		RecentOrders: recent,
	}
}

// OrdersView is the admin order list, newest first
type OrdersView struct {
	Orders   []models.Order       `json:"orders"`
	Statuses []models.OrderStatus `json:"statuses"`
}

// BuildOrdersView lists every order with the statuses an admin can pick
func BuildOrdersView(v appstate.View) OrdersView {
	return OrdersView{Orders: v.Orders, Statuses: models.OrderStatuses}
}

// InventoryView is the admin product list
type InventoryView struct {
	Products        []models.Product `json:"products"`
	DefaultCategory string           `json:"defaultCategory"`
}

// BuildInventoryView lists every product
func BuildInventoryView(v appstate.View) InventoryView {
	return InventoryView{Products: v.Products, DefaultCategory: models.DefaultCategory}
}

// CustomizerView is the settings editor
type CustomizerView struct {
	Settings models.SiteSettings     `json:"settings"`
	Source   appstate.SettingsSource `json:"source"`
}

// BuildCustomizerView shows the settings as admin sees them, their preview included
func BuildCustomizerView(v appstate.View, admin string) CustomizerView {
	settings, source := v.SettingsFor(admin)
	return CustomizerView{Settings: settings, Source: source}
}

// StorefrontStreamView is the part of the composite view sent to shoppers
type StorefrontStreamView struct {
	Version        uint64                             `json:"version"`
	Settings       models.SiteSettings                `json:"settings"`
	SettingsSource appstate.SettingsSource            `json:"settingsSource"`
	Products       []models.Product                   `json:"products"`
	Feeds          map[feeds.Name]appstate.FeedStatus `json:"feeds"`
}

// BuildStorefrontStreamView leaves out orders and the sign-in state
func BuildStorefrontStreamView(v appstate.View) StorefrontStreamView {
	return StorefrontStreamView{
		Version:        v.Version,
		Settings:       v.Settings,
		SettingsSource: v.SettingsSource,
		Products:       v.Products,
		Feeds:          v.Feeds,
	}
}

// BuildAdminStreamView is the full composite view with admin's preview in place
// of the published settings
func BuildAdminStreamView(v appstate.View, admin string) appstate.View {
	v.Settings, v.SettingsSource = v.SettingsFor(admin)
	return v
}

// CheckoutSelection is the product, size and quantity an order is placed for
type CheckoutSelection struct {
	Product  models.Product
	Size     string
	Quantity int
}

// ResolveCheckout picks the product from the live catalog, defaulting to the first
// product, its first size (or "6ml") and a quantity of 1
func ResolveCheckout(products []models.Product, productID, size string, quantity int) (CheckoutSelection, bool) {
	var product models.Product
	if productID == "" {
		if len(products) == 0 {
			return CheckoutSelection{}, false
		}
		product = products[0]
	} else {
		p, ok := models.FindProduct(products, productID)
		if !ok {
			return CheckoutSelection{}, false
		}
		product = p
	}

	if size == "" {
		size = product.FirstSize()
	}
	if quantity == 0 {
		quantity = 1
	}
	return CheckoutSelection{Product: product, Size: size, Quantity: quantity}, true
}
