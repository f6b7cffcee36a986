// Package httpapi exposes the cart to browser surfaces over HTTP. Every
// websocket on /cart/stream is an independent surface that receives cart
// updates, open signals and notifications as they happen.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/dwikikusuma/storefront-cart/internal/broadcast"
	cartapp "github.com/dwikikusuma/storefront-cart/internal/cart/app"
	"github.com/dwikikusuma/storefront-cart/internal/cart/domain"
	catalogapp "github.com/dwikikusuma/storefront-cart/internal/catalog/app"
	checkoutapp "github.com/dwikikusuma/storefront-cart/internal/checkout/app"
	"github.com/dwikikusuma/storefront-cart/internal/notify"
	orderapp "github.com/dwikikusuma/storefront-cart/internal/order/app"
	user "github.com/dwikikusuma/storefront-cart/internal/user/domain"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// Session is the identity collaborator behind the login endpoints.
type Session interface {
	User(ctx context.Context) (user.User, bool)
	SaveUser(ctx context.Context, u user.User) error
	ClearUser(ctx context.Context) error
}

type Deps struct {
	Actions       *cartapp.Actions
	Cart          *cartapp.Manager
	Catalog       *catalogapp.Service
	Checkout      *checkoutapp.Service
	Orders        *orderapp.Service
	Session       Session
	Notifications broadcast.Broadcaster[notify.Notification]
	Log           *slog.Logger
}

type Server struct {
	actions       *cartapp.Actions
	cart          *cartapp.Manager
	catalog       *catalogapp.Service
	checkout      *checkoutapp.Service
	orders        *orderapp.Service
	session       Session
	notifications broadcast.Broadcaster[notify.Notification]
	log           *slog.Logger
	upgrader      websocket.Upgrader
}

func NewServer(d Deps) *Server {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Notifications == nil {
		d.Notifications = broadcast.Discard[notify.Notification]()
	}
	return &Server{
		actions:       d.Actions,
		cart:          d.Cart,
		catalog:       d.Catalog,
		checkout:      d.Checkout,
		orders:        d.Orders,
		session:       d.Session,
		notifications: d.Notifications,
		log:           d.Log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// NewRouter builds a gin engine with recovery, access logging and CORS, and
// registers s on it. An origin of "*" allows every origin.
func NewRouter(s *Server, allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowOrigins) == 0 || slices.Contains(allowOrigins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	s.Register(r)
	return r
}

func (s *Server) Register(r gin.IRouter) {
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.GET("/products", s.listProducts)
	r.GET("/products/:id", s.getProduct)

	r.GET("/session", s.getSession)
	r.POST("/session", s.login)
	r.DELETE("/session", s.logout)

	cart := r.Group("/cart")
	cart.GET("", s.getCart)
	cart.DELETE("", s.clearCart)
	cart.POST("/items", s.addItem)
	cart.PATCH("/items/:id", s.updateQuantity)
	cart.DELETE("/items/:id", s.removeItem)
	cart.POST("/open", s.openCart)
	cart.GET("/stream", s.stream)

	r.GET("/checkout/quote", s.quote)
	r.POST("/checkout", s.placeOrder)

	r.GET("/orders", s.listOrders)
}

type cartResponse struct {
	Items domain.Cart     `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

func newCartResponse(items domain.Cart) *cartResponse {
	if items == nil {
		items = domain.Cart{}
	}
	return &cartResponse{Items: items, Count: items.Count(), Total: items.Total()}
}

type addItemRequest struct {
	ProductID   int64  `json:"product_id" binding:"required"`
	Silent      bool   `json:"silent"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type loginRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

func (s *Server) listProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	products, err := s.catalog.ListProducts(c.Request.Context(), c.Query("category"), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (s *Server) getProduct(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	product, err := s.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) getSession(c *gin.Context) {
	u, ok := s.session.User(c.Request.Context())
	if !ok {
		c.JSON(http.StatusOK, gin.H{"logged_in": false, "user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logged_in": true, "user": u})
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: %v", catalogapp.ErrInvalidInput, err))
		return
	}
	u := user.User{ID: uuid.NewString(), Name: req.Name, Email: req.Email}
	if err := s.session.SaveUser(c.Request.Context(), u); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"logged_in": true, "user": u})
}

func (s *Server) logout(c *gin.Context) {
	if err := s.session.ClearUser(c.Request.Context()); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, newCartResponse(s.cart.Items(c.Request.Context())))
}

func (s *Server) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: %v", catalogapp.ErrInvalidInput, err))
		return
	}
	ctx := c.Request.Context()

	product, err := s.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	items, added, err := s.actions.AddToCart(ctx, product, cartapp.AddOptions{
		Silent:      req.Silent,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !added {
		s.writeError(c, errNotLoggedIn)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(items))
}

func (s *Server) updateQuantity(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: %v", catalogapp.ErrInvalidInput, err))
		return
	}
	items, err := s.actions.UpdateQuantity(c.Request.Context(), id, *req.Quantity)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(items))
}

func (s *Server) removeItem(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	items, err := s.actions.RemoveFromCart(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(items))
}

func (s *Server) clearCart(c *gin.Context) {
	if err := s.actions.ClearCart(c.Request.Context()); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(domain.Cart{}))
}

func (s *Server) openCart(c *gin.Context) {
	s.actions.OpenCart()
	c.Status(http.StatusNoContent)
}

func (s *Server) quote(c *gin.Context) {
	q, err := s.checkout.Quote(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quote": q, "price_changed": q.PriceChanged()})
}

func (s *Server) placeOrder(c *gin.Context) {
	ctx := c.Request.Context()
	u, ok := s.session.User(ctx)
	if !ok {
		s.writeError(c, errNotLoggedIn)
		return
	}
	placed, err := s.checkout.Place(ctx, u.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, placed)
}

func (s *Server) listOrders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"orders": s.orders.History(c.Request.Context())})
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, code := httpStatusFromError(err)
	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(c.Request.Context(), "request failed",
			slog.String("path", c.FullPath()), slog.Any("err", err))
	}
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": err.Error()}})
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad id %q", catalogapp.ErrInvalidInput, c.Param("id"))
	}
	return id, nil
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.InfoContext(c.Request.Context(), "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}
