package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dwikikusuma/storefront-cart/internal/broadcast"
	cartapp "github.com/dwikikusuma/storefront-cart/internal/cart/app"
	"github.com/dwikikusuma/storefront-cart/internal/cart/domain"
	catalogapp "github.com/dwikikusuma/storefront-cart/internal/catalog/app"
	"github.com/dwikikusuma/storefront-cart/internal/catalog/infra/memory"
	checkoutapp "github.com/dwikikusuma/storefront-cart/internal/checkout/app"
	"github.com/dwikikusuma/storefront-cart/internal/notify"
	orderapp "github.com/dwikikusuma/storefront-cart/internal/order/app"
	"github.com/dwikikusuma/storefront-cart/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router  *gin.Engine
	store   *storage.Store
	manager *cartapp.Manager
	orders  *orderapp.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.DiscardHandler)
	store := storage.New(storage.NewMemoryBackend(), log)
	manager := cartapp.NewManager(store, cartapp.NewEvents(), log)
	notifications := broadcast.NewChannel[notify.Notification]("notifications")
	actions := cartapp.NewActions(manager, store, notify.Broadcast(notifications))

	repo, err := memory.Open("")
	require.NoError(t, err)
	orders := orderapp.NewService(store)
	catalog := catalogapp.NewService(repo)

	s := NewServer(Deps{
		Actions:       actions,
		Cart:          manager,
		Catalog:       catalog,
		Checkout:      checkoutapp.NewService(manager, catalog, orders, 4),
		Orders:        orders,
		Session:       store,
		Notifications: notifications,
		Log:           log,
	})
	return &fixture{router: NewRouter(s, []string{"*"}), store: store, manager: manager, orders: orders}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/session", map[string]string{"name": "Ada", "email": "ada@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

type cartBody struct {
	Items []struct {
		ID       int64  `json:"id"`
		Title    string `json:"title"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartBody {
	t.Helper()
	var body cartBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", nil).Code)
}

func TestProducts(t *testing.T) {
	f := newFixture(t)

	t.Run("list by category", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/products?category=Jewelery", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Products []struct {
				Category string `json:"category"`
			} `json:"products"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotEmpty(t, body.Products)
		for _, p := range body.Products {
			assert.Equal(t, "jewelery", p.Category)
		}
	})

	t.Run("get", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/products/1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Fjallraven")
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/products/9999", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Error.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/products/abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"logged_in":false`)

	rec = f.do(t, http.MethodPost, "/session", map[string]string{"name": "Ada", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.login(t)
	u, ok := f.store.User(context.Background())
	require.True(t, ok)
	assert.Equal(t, "Ada", u.Name)
	assert.NotEmpty(t, u.ID)

	rec = f.do(t, http.MethodDelete, "/session", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, ok = f.store.User(context.Background())
	assert.False(t, ok)
}

func TestAddItemRequiresLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": 1})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", decodeError(t, rec).Error.Code)
	assert.Empty(t, f.manager.Items(context.Background()))
}

func TestCartMutations(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	rec := f.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": 2, "silent": true})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeCart(t, rec)
	require.Len(t, body.Items, 2)
	assert.Equal(t, int64(1), body.Items[0].ID)
	assert.Equal(t, 2, body.Items[0].Quantity)
	assert.Equal(t, 3, body.Count)
	assert.True(t, decimal.RequireFromString("242.2").Equal(body.Total), body.Total.String())

	rec = f.do(t, http.MethodPatch, "/cart/items/1", map[string]any{"quantity": -5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeCart(t, rec).Items[0].Quantity)

	rec = f.do(t, http.MethodPatch, "/cart/items/1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/cart/items/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeCart(t, rec).Items, 1)

	rec = f.do(t, http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeCart(t, rec).Count)

	rec = f.do(t, http.MethodDelete, "/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Items)
	assert.Empty(t, f.manager.Items(context.Background()))
}

func TestMutationResponsesReflectOwnWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t)

	// A second writer over the same store lands right after each of our
	// writes and before the handler responds.
	other := cartapp.NewManager(f.store, cartapp.NewEvents(), slog.New(slog.DiscardHandler))
	repo, err := memory.Open("")
	require.NoError(t, err)
	intruder, err := repo.Get(ctx, 9)
	require.NoError(t, err)
	fired := false
	f.manager.OnCartUpdated(ctx, func(items domain.Cart) {
		if fired || len(items) == 0 {
			return
		}
		fired = true
		_, err := other.AddItem(ctx, intruder)
		require.NoError(t, err)
	})

	rec := f.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeCart(t, rec)
	require.Len(t, body.Items, 1)
	assert.Equal(t, int64(1), body.Items[0].ID)
	assert.Len(t, f.manager.Items(ctx), 2)

	rec = f.do(t, http.MethodPatch, "/cart/items/1", map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decodeCart(t, rec).Count)
}

func TestAddUnknownProduct(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	rec := f.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": 4242})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrdersHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t)
	f.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": 1})

	_, err := f.orders.Record(ctx, "u1", f.manager.Items(ctx))
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Orders []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Orders, 1)
	assert.Equal(t, "PENDING", body.Orders[0].Status)
}

func TestCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.do(t, http.MethodPost, "/checkout", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	f.login(t)
	rec = f.do(t, http.MethodGet, "/checkout/quote", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": 5})
	f.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": 5})

	rec = f.do(t, http.MethodGet, "/checkout/quote", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var quote struct {
		Quote struct {
			Total decimal.Decimal `json:"total"`
		} `json:"quote"`
		PriceChanged bool `json:"price_changed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.True(t, decimal.NewFromInt(1390).Equal(quote.Quote.Total), quote.Quote.Total.String())
	assert.False(t, quote.PriceChanged)

	rec = f.do(t, http.MethodPost, "/checkout", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Empty(t, f.manager.Items(ctx))
	assert.Len(t, f.orders.History(ctx), 1)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/cart", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestStreamDeliversCatchUpUpdatesAndNotifications(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/cart/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readFrame(t, conn)
	require.Equal(t, frameCart, first.Type)
	require.NotNil(t, first.Cart)
	assert.Empty(t, first.Cart.Items)

	rec := f.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	update := readFrame(t, conn)
	require.Equal(t, frameCart, update.Type)
	require.Len(t, update.Cart.Items, 1)
	assert.Equal(t, 1, update.Cart.Count)

	toast := readFrame(t, conn)
	require.Equal(t, frameNotification, toast.Type)
	assert.Equal(t, "Added to cart", toast.Notification.Title)

	rec = f.do(t, http.MethodPost, "/cart/open", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, frameOpen, readFrame(t, conn).Type)
}
