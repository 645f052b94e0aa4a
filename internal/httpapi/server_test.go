package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maksline/lavka/internal/cart"
	"github.com/maksline/lavka/internal/catalog"
	"github.com/maksline/lavka/internal/checkout"
	"github.com/maksline/lavka/internal/engine"
	"github.com/maksline/lavka/internal/ledger"
	"github.com/maksline/lavka/internal/model"
	"github.com/maksline/lavka/internal/notify"
	"github.com/maksline/lavka/internal/referral"
	"github.com/maksline/lavka/internal/render"
	"github.com/maksline/lavka/internal/testutil"
	"github.com/maksline/lavka/internal/users"
)

const testAdminID = int64(900)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	eng    *engine.Engine
	server *Server
	disp   *notify.Dispatcher
	done   chan struct{}
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	cat := catalog.New(nil)
	cat.Init(
		[]model.Category{{ID: 1, Name: "Design"}},
		[]model.Product{{ID: 1, CategoryID: 1, Name: "Logo draft", Price: decimal.NewFromInt(500), Quantity: 10}},
	)
	carts := cart.New(cat, nil)
	orders := ledger.New(nil)

	ul := users.New(nil, users.WithCodeGen(testutil.NewSequentialCodes().Next))
	refs := referral.New(ul, referral.Settings{Enabled: true, MinPurchaseAmount: decimal.NewFromInt(100)}, nil)

	clock := testutil.NewFixedClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	ck := checkout.New(cat, carts, orders, "SBP", checkout.WithNow(clock.Now))

	transport := notify.NewMemoryTransport()
	disp := notify.NewDispatcher(transport)

	eng := engine.New(engine.Config{
		Admins:         map[int64]string{testAdminID: "root"},
		ChannelID:      -100,
		Payment:        render.PaymentDetails{Name: "SBP"},
		SupportContact: "@support",
	}, engine.Deps{
		Catalog:    cat,
		Carts:      carts,
		Checkout:   ck,
		Orders:     orders,
		Users:      ul,
		Referrals:  refs,
		Dispatcher: disp,
		Transport:  transport,
	})

	env := &testEnv{
		eng:    eng,
		server: NewServer(eng),
		disp:   disp,
		done:   make(chan struct{}),
	}
	go func() {
		disp.Run(context.Background())
		close(env.done)
	}()
	t.Cleanup(func() {
		disp.Close()
		<-env.done
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("X-Admin-ID", fmt.Sprintf("%d", testAdminID))
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) placeOrder(t *testing.T, userID int64) model.PendingOrder {
	t.Helper()
	_, _, err := e.eng.BuySingle(userID, "buyer", 1)
	require.NoError(t, err)
	order, err := e.eng.SubmitEvidence(userID, "photo_abc")
	require.NoError(t, err)
	return order
}

func TestHealth(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodGet, "/api/health", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestOrdersRequireAdminHeader(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodGet, "/api/orders", "", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("X-Admin-ID", "not-a-number")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrdersForbiddenForNonAdmin(t *testing.T) {
	env := newEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("X-Admin-ID", "123")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}

func TestListAndConfirmOrder(t *testing.T) {
	env := newEnv(t)
	order := env.placeOrder(t, 7)

	w := env.do(t, http.MethodGet, "/api/orders", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), order.OrderID)

	w = env.do(t, http.MethodPost, "/api/orders/"+order.OrderID+"/confirm", "", true)
	require.Equal(t, http.StatusOK, w.Code)

	// Second resolution loses: the order is gone.
	w = env.do(t, http.MethodPost, "/api/orders/"+order.OrderID+"/reject", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	u, err := env.eng.UserStats(7)
	require.NoError(t, err)
	assert.Equal(t, 1, u.TotalOrders)
}

func TestRejectOrder(t *testing.T) {
	env := newEnv(t)
	order := env.placeOrder(t, 7)

	w := env.do(t, http.MethodPost, "/api/orders/"+order.OrderID+"/reject", "", true)
	require.Equal(t, http.StatusOK, w.Code)

	u, err := env.eng.UserStats(7)
	require.NoError(t, err)
	assert.Zero(t, u.TotalOrders)
}

func TestCatalogCRUD(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodPost, "/api/catalog/categories", `{"name":"Prints"}`, true)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	body := fmt.Sprintf(`{"category_id":%d,"name":"Poster A2","price":"700","quantity":3}`, created.ID)
	w = env.do(t, http.MethodPost, "/api/catalog/products", body, true)
	require.Equal(t, http.StatusCreated, w.Code)
	var prod struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prod))

	w = env.do(t, http.MethodGet, "/api/catalog/categories", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Prints")

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/catalog/products/%d", prod.ID), "", true)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/catalog/products/%d", prod.ID), "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogValidation(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodPost, "/api/catalog/categories", `{}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/catalog/products", `{"category_id":1,"name":"X","price":"abc"}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/catalog/products", `{"category_id":99,"name":"X","price":"10"}`, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	env := newEnv(t)
	order := env.placeOrder(t, 7)
	w := env.do(t, http.MethodPost, "/api/orders/"+order.OrderID+"/confirm", "", true)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/stats", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Users":1`)
	assert.Contains(t, w.Body.String(), `"PendingOrders":0`)
}

func TestReferralSettingsEndpoint(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodGet, "/api/referral/settings", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"enabled":true`)

	w = env.do(t, http.MethodPut, "/api/referral/settings", `{"enabled":false,"min_purchase_amount":"750"}`, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"enabled":false`)

	w = env.do(t, http.MethodPut, "/api/referral/settings", `{"min_purchase_amount":"-5"}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
