package httpx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	"github.com/ariefcatur/go-storefront/internal/images"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/memstore"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/summary"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

var secret = []byte("test-secret")

type fakeImages struct{ uploaded []string }

func (f *fakeImages) Upload(_ context.Context, filename string, r io.Reader, size int64) (images.Info, error) {
	if _, _, err := images.Validate(filename, size); err != nil {
		return images.Info{}, err
	}
	f.uploaded = append(f.uploaded, filename)
	return images.Info{Filename: "stored.png", URL: "http://cdn/stored.png", Size: size}, nil
}

func (f *fakeImages) Delete(context.Context, string) error { return nil }

func (f *fakeImages) List(context.Context) ([]images.Info, error) { return nil, nil }

type env struct {
	srv    *httptest.Server
	tee    catalog.Product
	images *fakeImages
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memstore.New()
	log := logger.Nop()
	products := catalog.NewService(st.Products())

	var tee catalog.Product
	for i, d := range catalog.DemoDrafts() {
		p, err := products.Create(context.Background(), d)
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		if i == 0 {
			tee = p
		}
	}

	broker := memstore.NewBroker()
	carts := cart.NewService(st.Carts(), products, broker, log, 5)
	ord := orders.NewService(orders.Deps{
		Store:       st.Orders(),
		Carts:       st.Carts(),
		Catalog:     products,
		Idempotency: memstore.NewIdempotency(),
		CartEvents:  broker,
		Log:         log,
		ServiceName: "storefront-test",
		MaxAttempts: 5,
	})
	imgs := &fakeImages{}
	api := httpx.API{
		Log:       log,
		JWTSecret: secret,
		Products:  products,
		Cart:      carts,
		CartFeed:  broker,
		Orders:    ord,
		Images:    imgs,
	}
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &env{srv: srv, tee: tee, images: imgs}
}

func token(t *testing.T, sub, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": sub + "@example.com",
		"role":  role,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (e *env) do(t *testing.T, method, path, tok string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, e.srv.URL+path, rd)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return res.StatusCode
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	if code := e.do(t, http.MethodGet, "/healthz", "", nil, nil); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
}

func TestProductsPublic(t *testing.T) {
	e := newEnv(t)

	var page catalog.Page
	if code := e.do(t, http.MethodGet, "/products?category=Kids&sort=price:asc", "", nil, &page); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if page.Total != 2 || len(page.Products) != 2 {
		t.Fatalf("kids page = %+v", page)
	}
	if page.Products[0].Name != "Kids T-Shirt" {
		t.Fatalf("first = %s, want cheapest kids item", page.Products[0].Name)
	}

	var bad apiError
	if code := e.do(t, http.MethodGet, "/products?priceMin=abc", "", nil, &bad); code != http.StatusBadRequest {
		t.Fatalf("bad price status = %d", code)
	}
	if bad.Error.Code != "VALIDATION" {
		t.Fatalf("code = %q", bad.Error.Code)
	}

	var missing apiError
	if code := e.do(t, http.MethodGet, "/products/nope", "", nil, &missing); code != http.StatusNotFound {
		t.Fatalf("missing status = %d", code)
	}
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name string
		tok  string
	}{
		{"no token", ""},
		{"garbage", "not-a-jwt"},
		{"wrong secret", func() string {
			s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("other"))
			return s
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body apiError
			if code := e.do(t, http.MethodGet, "/cart", tt.tok, nil, &body); code != http.StatusUnauthorized {
				t.Fatalf("status = %d", code)
			}
			if body.Error.Code != "UNAUTHORIZED" {
				t.Fatalf("code = %q", body.Error.Code)
			}
		})
	}
}

func TestCartToOrderFlow(t *testing.T) {
	e := newEnv(t)
	tok := token(t, "acct-1", "")

	var sum summary.Summary
	code := e.do(t, http.MethodPost, "/cart", tok, map[string]any{"catalogId": e.tee.ID, "size": "M", "quantity": 2}, &sum)
	if code != http.StatusOK {
		t.Fatalf("add status = %d", code)
	}
	if sum.ItemCount != 2 || len(sum.Items) != 1 {
		t.Fatalf("after add = %+v", sum)
	}
	lineID := sum.Items[0].ID

	code = e.do(t, http.MethodPut, "/cart/"+lineID, tok, map[string]any{"quantity": 3}, &sum)
	if code != http.StatusOK || sum.ItemCount != 3 {
		t.Fatalf("update status = %d sum = %+v", code, sum)
	}
	if got := sum.Subtotal.StringFixed(2); got != "89.97" {
		t.Fatalf("subtotal = %s", got)
	}

	var rec orders.Receipt
	if code := e.do(t, http.MethodPost, "/orders", tok, nil, &rec); code != http.StatusCreated {
		t.Fatalf("place status = %d", code)
	}
	if rec.Order.TotalPrice.StringFixed(2) != "89.97" || rec.Order.ItemCount != 3 {
		t.Fatalf("order = %+v", rec.Order)
	}

	if code := e.do(t, http.MethodGet, "/cart", tok, nil, &sum); code != http.StatusOK || len(sum.Items) != 0 {
		t.Fatalf("cart after order: status %d items %d", code, len(sum.Items))
	}

	var empty apiError
	if code := e.do(t, http.MethodPost, "/orders", tok, nil, &empty); code != http.StatusBadRequest {
		t.Fatalf("second place status = %d", code)
	}
	if empty.Error.Code != "EMPTY_CART" {
		t.Fatalf("code = %q", empty.Error.Code)
	}

	var page orders.Page
	if code := e.do(t, http.MethodGet, "/orders", tok, nil, &page); code != http.StatusOK || page.Total != 1 {
		t.Fatalf("list status = %d page = %+v", code, page)
	}

	var v orders.View
	if code := e.do(t, http.MethodGet, "/orders/"+rec.Order.ID, tok, nil, &v); code != http.StatusOK || v.ID != rec.Order.ID {
		t.Fatalf("get status = %d", code)
	}
	other := token(t, "acct-2", "")
	if code := e.do(t, http.MethodGet, "/orders/"+rec.Order.ID, other, nil, nil); code != http.StatusNotFound {
		t.Fatalf("foreign order status = %d", code)
	}
}

func TestCartValidation(t *testing.T) {
	e := newEnv(t)
	tok := token(t, "acct-1", "")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"zero quantity", http.MethodPost, "/cart", map[string]any{"productId": e.tee.ID, "size": "M", "quantity": 0}, http.StatusBadRequest},
		{"bad size", http.MethodPost, "/cart", map[string]any{"productId": e.tee.ID, "size": "XXL", "quantity": 1}, http.StatusBadRequest},
		{"unknown product", http.MethodPost, "/cart", map[string]any{"productId": "ghost", "size": "M", "quantity": 1}, http.StatusNotFound},
		{"missing line", http.MethodDelete, "/cart/ghost", nil, http.StatusNotFound},
		{"empty patch", http.MethodPut, "/cart/ghost", map[string]any{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := e.do(t, tt.method, tt.path, tok, tt.body, nil); code != tt.want {
				t.Fatalf("status = %d, want %d", code, tt.want)
			}
		})
	}

	req, _ := http.NewRequest(http.MethodPost, e.srv.URL+"/cart", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+tok)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid json status = %d", res.StatusCode)
	}
}

func TestAdminRoutes(t *testing.T) {
	e := newEnv(t)
	draft := map[string]any{
		"name":     "Rain Coat",
		"price":    "45.50",
		"imageUrl": "https://img/coat.png",
		"category": "Kids",
	}

	if code := e.do(t, http.MethodPost, "/products", token(t, "acct-1", ""), draft, nil); code != http.StatusForbidden {
		t.Fatalf("non-admin status = %d", code)
	}

	admin := token(t, "root", "admin")
	var p catalog.Product
	if code := e.do(t, http.MethodPost, "/products", admin, draft, &p); code != http.StatusCreated {
		t.Fatalf("admin create status = %d", code)
	}
	if p.Name != "Rain Coat" || len(p.Sizes) != 4 {
		t.Fatalf("created = %+v", p)
	}

	if code := e.do(t, http.MethodPut, "/products/"+p.ID, admin, map[string]any{"price": "40"}, &p); code != http.StatusOK {
		t.Fatalf("update status = %d", code)
	}
	if p.Price.StringFixed(2) != "40.00" {
		t.Fatalf("price = %s", p.Price)
	}

	if code := e.do(t, http.MethodDelete, "/products/"+p.ID, admin, nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete status = %d", code)
	}
	if code := e.do(t, http.MethodGet, "/products/"+p.ID, "", nil, nil); code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", code)
	}
}

func TestUploadImage(t *testing.T) {
	e := newEnv(t)
	admin := token(t, "root", "admin")

	upload := func(filename string) int {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, _ := mw.CreateFormFile("image", filename)
		_, _ = fw.Write([]byte("\x89PNG fake bytes"))
		_ = mw.Close()
		req, _ := http.NewRequest(http.MethodPost, e.srv.URL+"/upload/image", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+admin)
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		res.Body.Close()
		return res.StatusCode
	}

	if code := upload("photo.png"); code != http.StatusCreated {
		t.Fatalf("png status = %d", code)
	}
	if code := upload("script.exe"); code != http.StatusBadRequest {
		t.Fatalf("exe status = %d", code)
	}
	if len(e.images.uploaded) != 1 {
		t.Fatalf("uploaded = %v", e.images.uploaded)
	}
	if code := e.do(t, http.MethodDelete, "/upload/image/..%2Fsecret.png", admin, nil, nil); code == http.StatusNoContent {
		t.Fatal("path traversal name was accepted")
	}
}

func TestCartLiveFeed(t *testing.T) {
	e := newEnv(t)
	tok := token(t, "acct-ws", "")

	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/cart/ws?access_token=" + tok
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg struct {
		Type   string           `json:"type"`
		Change string           `json:"change"`
		Cart   *summary.Summary `json:"cart"`
	}
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "connected" {
		t.Fatalf("first message = %+v, err %v", msg, err)
	}

	if code := e.do(t, http.MethodPost, "/cart", tok, map[string]any{"productId": e.tee.ID, "size": "L", "quantity": 1}, nil); code != http.StatusOK {
		t.Fatalf("add status = %d", code)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if msg.Type != "cart_updated" || msg.Change != cart.ChangeUpdated || msg.Cart == nil || msg.Cart.ItemCount != 1 {
		t.Fatalf("update message = %+v", msg)
	}
}

func TestHugePageIsEmpty(t *testing.T) {
	e := newEnv(t)
	tok := token(t, "acct-1", "")
	if code := e.do(t, http.MethodPost, "/cart", tok, map[string]any{"productId": e.tee.ID, "size": "M", "quantity": 1}, nil); code != http.StatusOK {
		t.Fatalf("add status = %d", code)
	}
	if code := e.do(t, http.MethodPost, "/orders", tok, nil, nil); code != http.StatusCreated {
		t.Fatalf("place status = %d", code)
	}

	var products catalog.Page
	if code := e.do(t, http.MethodGet, "/products?page=922337203685477582", "", nil, &products); code != http.StatusOK {
		t.Fatalf("products status = %d", code)
	}
	if len(products.Products) != 0 || products.HasNext || products.Total != len(catalog.DemoDrafts()) {
		t.Fatalf("products page = %+v", products)
	}

	var list orders.Page
	if code := e.do(t, http.MethodGet, "/orders?page=922337203685477582&limit=50", tok, nil, &list); code != http.StatusOK {
		t.Fatalf("orders status = %d", code)
	}
	if len(list.Orders) != 0 || list.HasNext || list.Total != 1 {
		t.Fatalf("orders page = %+v", list)
	}
}

func TestProductPricePrecision(t *testing.T) {
	e := newEnv(t)
	admin := token(t, "root", "admin")
	draft := func(price string) map[string]any {
		return map[string]any{"name": "Scarf", "price": price, "imageUrl": "https://img/scarf.png", "category": "Women"}
	}
	for _, price := range []string{"29.999", "10000000000"} {
		var body apiError
		if code := e.do(t, http.MethodPost, "/products", admin, draft(price), &body); code != http.StatusBadRequest {
			t.Fatalf("price %s: status = %d", price, code)
		}
		if body.Error.Code != "VALIDATION" {
			t.Fatalf("price %s: code = %q", price, body.Error.Code)
		}
	}
	if code := e.do(t, http.MethodPost, "/products", admin, draft("29.99"), nil); code != http.StatusCreated {
		t.Fatalf("valid price status = %d", code)
	}
}
