package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/nafs-essence-api/appstate"
	"github.com/kendall-kelly/nafs-essence-api/feeds"
	"github.com/kendall-kelly/nafs-essence-api/middleware"
	"github.com/kendall-kelly/nafs-essence-api/models"
	"github.com/kendall-kelly/nafs-essence-api/remotestore"
	"github.com/kendall-kelly/nafs-essence-api/services"
	"github.com/kendall-kelly/nafs-essence-api/tests/testutil"
	"github.com/stretchr/testify/require"
)

const (
	testAdminID       = "1"
	testAdminEmail    = "admin@nafsessence.com"
	testAdminPassword = "midnight-oud"
)

var fixedNow = time.Date(2026, 2, 14, 18, 30, 0, 0, time.UTC)

// testEnv is a router over a started application state whose document feeds are
// driven by hand, and a remote store on an in-memory database
type testEnv struct {
	router   *gin.Engine
	handlers *Handlers
	state    *appstate.Store
	client   *remotestore.Client
	auth     *services.AuthService
	products *feeds.FakeFeed[[]models.Product]
	orders   *feeds.FakeFeed[[]models.Order]
	settings *feeds.FakeFeed[[]models.SiteSettings]
}

func newTestEnv(t *testing.T, completer services.Completer) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	client := remotestore.NewClient(remotestore.New(db))

	auth := services.NewAuthService(db, services.AuthSettings{
		Secret:     testutil.TestJWTSecret,
		Issuer:     testutil.TestJWTIssuer,
		Audience:   testutil.TestJWTAudience,
		SessionTTL: time.Hour,
	}, nil)
	t.Cleanup(auth.Close)
	_, err := auth.EnsureAdmin(context.Background(), testAdminEmail, testAdminPassword)
	require.NoError(t, err)

	env := &testEnv{
		client:   client,
		auth:     auth,
		products: feeds.NewFakeFeed[[]models.Product](),
		orders:   feeds.NewFakeFeed[[]models.Order](),
		settings: feeds.NewFakeFeed[[]models.SiteSettings](),
	}

	manager := feeds.NewManager(feeds.Set{
		Auth:     auth,
		Products: env.products,
		Orders:   env.orders,
		Settings: env.settings,
	})
	env.state = appstate.New(manager, client)
	env.state.Start()
	t.Cleanup(env.state.Close)

	assistant := services.NewAssistantService(completer, services.AssistantModels{
		Describe:  "describe-model",
		Recommend: "recommend-model",
	}, nil)

	env.handlers = NewHandlers(env.state, client, auth, assistant, nil)
	env.handlers.now = func() time.Time { return fixedNow }
	env.router = env.setupRouter()
	return env
}

// asAdmin stands in for the session middleware
func asAdmin(c *gin.Context) {
	testutil.SetMockAuthContext(c, testAdminID, testutil.TestJWTIssuer, &middleware.SessionClaims{Email: testAdminEmail})
	ctx := remotestore.WithPrincipal(c.Request.Context(), remotestore.Principal{Subject: testAdminID, Email: testAdminEmail})
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

func (e *testEnv) setupRouter() *gin.Engine {
	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.GET("/stream", e.handlers.Stream)

	store := v1.Group("/store")
	store.GET("/home", e.handlers.Home)
	store.GET("/catalog", e.handlers.Catalog)
	store.POST("/checkout", e.handlers.Checkout)
	store.GET("/assistant", e.handlers.AssistantGreetingView)
	store.POST("/assistant", e.handlers.Assistant)

	admin := v1.Group("/admin")
	admin.GET("/login", e.handlers.LoginView)
	admin.POST("/login", e.handlers.Login)
	admin.POST("/logout", e.handlers.Logout)

	// Anonymous requests reach the handlers without a principal
	v1.PUT("/anonymous/orders/:id/status", e.handlers.UpdateOrderStatus)
	v1.PATCH("/anonymous/customizer", e.handlers.PreviewCustomizer)
	v1.POST("/anonymous/customizer/publish", e.handlers.PublishCustomizer)

	signedIn := admin.Group("", asAdmin)
	signedIn.GET("/dashboard", e.handlers.Dashboard)
	signedIn.GET("/orders", e.handlers.Orders)
	signedIn.GET("/inventory", e.handlers.Inventory)
	signedIn.GET("/customizer", e.handlers.Customizer)
	signedIn.GET("/stream", e.handlers.AdminStream)
	signedIn.PUT("/orders/:id/status", e.handlers.UpdateOrderStatus)
	signedIn.DELETE("/orders/:id", e.handlers.DeleteOrder)
	signedIn.POST("/products", e.handlers.CreateProduct)
	signedIn.PUT("/products/:id", e.handlers.UpdateProduct)
	signedIn.DELETE("/products/:id", e.handlers.DeleteProduct)
	signedIn.POST("/products/describe", e.handlers.DescribeProduct)
	signedIn.PATCH("/customizer", e.handlers.PreviewCustomizer)
	signedIn.POST("/customizer/publish", e.handlers.PublishCustomizer)
	signedIn.POST("/uploads", UploadProductImage)
	return router
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// adminContext carries the admin principal for direct store calls
func adminContext() context.Context {
	return remotestore.WithPrincipal(context.Background(), remotestore.Principal{Subject: testAdminID, Email: testAdminEmail})
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func sampleProducts() []models.Product {
	return []models.Product{
		{ID: "p1", Name: "Midnight Oud", Price: 500, Category: "Oud", Stock: 12, Sizes: []string{"3ml", "6ml"}},
		{ID: "p2", Name: "Rose Attar", Price: 350, Category: "Floral", Stock: 4},
		{ID: "p3", Name: "Amber Dusk", Price: 420.25, Category: "Oud", Stock: 0, Sizes: []string{"12ml"}},
		{ID: "p4", Name: "Musk Tahara", Price: 150, Category: "Musk", Stock: 30},
	}
}

func sampleOrders() []models.Order {
	return []models.Order{
		{ID: "o3", CustomerName: "Karim", Total: 700.5, Status: models.OrderStatusPending},
		{ID: "o2", CustomerName: "Amina", Total: 500, Status: models.OrderStatusShipped},
		{ID: "o1", CustomerName: "Laila", Total: 50, Status: models.OrderStatusPending},
	}
}
