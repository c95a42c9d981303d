package woocommerce

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{
		BaseURL:        server.URL,
		ConsumerKey:    "ck_test",
		ConsumerSecret: "cs_test",
		AuthKey:        "plugin-key",
		RequestTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return client, server
}

func TestConfig_Validate(t *testing.T) {
	t.Run("accepts a complete config", func(t *testing.T) {
		cfg := &Config{
			BaseURL:        "https://store.example.com/",
			ConsumerKey:    "ck",
			ConsumerSecret: "cs",
			AuthKey:        "key",
		}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "https://store.example.com", cfg.BaseURL)
		assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	})

	t.Run("rejects missing credentials", func(t *testing.T) {
		cfg := &Config{BaseURL: "https://store.example.com"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects a base URL without scheme", func(t *testing.T) {
		cfg := &Config{BaseURL: "store.example.com", ConsumerKey: "ck", ConsumerSecret: "cs", AuthKey: "key"}
		assert.Error(t, cfg.Validate())
	})
}

func TestClient_GetProducts(t *testing.T) {
	ctx := context.Background()

	t.Run("groups products by category", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/wp-json/wc/store/v1/products", r.URL.Path)
			assert.Equal(t, "100", r.URL.Query().Get("per_page"))
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "ck_test", user)
			assert.Equal(t, "cs_test", pass)

			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `[
				{"id": 1, "name": "Green Tea", "price": "12.50", "regular_price": "15.00", "sale_price": "",
				 "categories": [{"id": 10, "name": "Drinks"}], "images": [{"src": "https://cdn/img1.jpg"}]},
				{"id": 2, "name": "Black Tea", "price": "9.00",
				 "categories": [{"id": 10, "name": "Drinks"}, {"id": 11, "name": "Classics"}]},
				{"id": 3, "name": "Mystery Box", "price": "", "categories": []}
			]`)
		}))

		groups, err := client.GetProducts(ctx, "", 2)
		require.NoError(t, err)
		require.Len(t, groups, 3)

		drinks := groups[0]
		assert.Equal(t, "Drinks", drinks.CategoryName)
		require.Len(t, drinks.Items, 2)
		assert.Equal(t, 12.5, drinks.Items[0].Price)
		// Empty sale price falls back to the current price
		assert.Equal(t, 12.5, drinks.Items[0].SalePrice)
		assert.Equal(t, 15.0, drinks.Items[0].RegularPrice)
		assert.Equal(t, []string{"https://cdn/img1.jpg"}, drinks.Items[0].Images)

		assert.Equal(t, "Classics", groups[1].CategoryName)

		uncategorized := groups[2]
		assert.Equal(t, "Без категории", uncategorized.CategoryName)
		require.Len(t, uncategorized.Items, 1)
		assert.Equal(t, float64(0), uncategorized.Items[0].Price)
	})

	t.Run("passes the category filter", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "42", r.URL.Query().Get("category"))
			io.WriteString(w, `[]`)
		}))

		groups, err := client.GetProducts(ctx, "42", 1)
		require.NoError(t, err)
		assert.Empty(t, groups)
	})

	t.Run("decodes percent-encoded names", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `[{"id": 1, "name": "%D0%A7%D0%B0%D0%B9", "price": "5",
				"categories": [{"id": 7, "name": "%D0%9D%D0%B0%D0%BF%D0%B8%D1%82%D0%BA%D0%B8"}]}]`)
		}))

		groups, err := client.GetProducts(ctx, "", 1)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "Напитки", groups[0].CategoryName)
		assert.Equal(t, "Чай", groups[0].Items[0].Name)
	})

	t.Run("propagates upstream errors", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))

		_, err := client.GetProducts(ctx, "", 1)
		require.Error(t, err)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusInternalServerError, statusErr.Status)
	})
}

func TestClient_SearchProducts(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tea", r.URL.Query().Get("search"))
		io.WriteString(w, `[{"id": 5, "name": "Herbal Tea", "price": 7.5}]`)
	}))

	products, err := client.SearchProducts(context.Background(), "tea", 1)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Herbal Tea", products[0].Name)
	// Numeric price literals are tolerated alongside strings
	assert.Equal(t, 7.5, products[0].Price)
}

func TestClient_GetCategories(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wc/v3/products/categories", r.URL.Path)
		if r.URL.Query().Get("page") == "1" {
			io.WriteString(w, `[{"id": 10, "name": "Drinks"}, {"id": 11, "name": "Snacks"}]`)
			return
		}
		io.WriteString(w, `[]`)
	}))

	categories, err := client.GetCategories(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []Category{
		{CategoryID: 10, CategoryName: "Drinks"},
		{CategoryID: 11, CategoryName: "Snacks"},
	}, categories)

	ids, err := client.GetCategoryIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{10, 11}, ids)
}

func TestClient_Accounts(t *testing.T) {
	ctx := context.Background()

	t.Run("register sends the plugin auth key", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/simple-jwt-login/v1/users", r.URL.Query().Get("rest_route"))
			assert.Equal(t, "user@example.com", r.URL.Query().Get("email"))
			assert.Equal(t, "plugin-key", r.URL.Query().Get("AUTH_KEY"))
			io.WriteString(w, `{"success": true, "jwt": "new-token"}`)
		}))

		token, err := client.RegisterUser(ctx, "user@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "new-token", token)
	})

	t.Run("login posts form credentials", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/simple-jwt-login/v1/auth", r.URL.Query().Get("rest_route"))
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "user@example.com", r.PostForm.Get("email"))
			assert.Equal(t, "secret", r.PostForm.Get("password"))
			io.WriteString(w, `{"success": true, "data": {"jwt": "login-token"}}`)
		}))

		token, err := client.LoginUser(ctx, "user@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "login-token", token)
	})

	t.Run("login without a token in the answer fails", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"success": true, "data": {}}`)
		}))

		_, err := client.LoginUser(ctx, "user@example.com", "secret")
		assert.Error(t, err)
	})

	t.Run("refresh wraps a bare token in the Bearer scheme", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/simple-jwt-login/v1/token/refresh", r.URL.Query().Get("rest_route"))
			assert.Equal(t, "Bearer old-token", r.Header.Get("Authorization"))
			io.WriteString(w, `{"success": true, "data": {"jwt": "fresh-token"}}`)
		}))

		token, err := client.RefreshToken(ctx, "old-token")
		require.NoError(t, err)
		assert.Equal(t, "fresh-token", token)
	})

	t.Run("refresh does not double-wrap a prefixed token", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer old-token", r.Header.Get("Authorization"))
			io.WriteString(w, `{"success": true, "data": {"jwt": "fresh-token"}}`)
		}))

		_, err := client.RefreshToken(ctx, "Bearer old-token")
		require.NoError(t, err)
	})

	t.Run("reset password matches the confirmation message", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/simple-jwt-login/v1/user/reset_password", r.URL.Query().Get("rest_route"))
			assert.Equal(t, "hunter2", r.URL.Query().Get("new_password"))
			assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
			io.WriteString(w, `{"success": true, "message": "User Password has been changed."}`)
		}))

		ok, err := client.ResetPassword(ctx, "token", "user@example.com", "hunter2")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("reset password with a different message reports failure", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"success": true, "message": "Something else happened."}`)
		}))

		ok, err := client.ResetPassword(ctx, "token", "user@example.com", "hunter2")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestClient_GetUserCart(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wc/store/v1/cart", r.URL.Path)
		assert.Equal(t, "Bearer jwt", r.Header.Get("Authorization"))
		w.Header().Set("Cart-Token", "cart-session-token")
		io.WriteString(w, `{
			"items": [{
				"key": "abc123", "id": 7, "name": "Green Tea", "quantity": 2,
				"images": [{"src": "https://cdn/tea.jpg"}],
				"prices": {"price": "1250", "regular_price": "1500", "sale_price": "1250"},
				"totals": {"line_total": "2500"}
			}],
			"totals": {"total_items": "2500", "total_price": "2500", "currency_code": "RUB", "currency_symbol": "₽"},
			"items_count": 2,
			"needs_payment": true,
			"needs_shipping": true,
			"payment_methods": ["tbank"]
		}`)
	}))

	cart, cartToken, err := client.GetUserCart(context.Background(), "jwt")
	require.NoError(t, err)
	assert.Equal(t, "cart-session-token", cartToken)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "abc123", cart.Items[0].Key)
	assert.Equal(t, "https://cdn/tea.jpg", cart.Items[0].Image)
	assert.Equal(t, "2500", cart.Items[0].LineTotal)
	assert.Equal(t, "RUB", cart.Totals.CurrencyCode)
	assert.Equal(t, 2, cart.ItemsCount)
	assert.True(t, cart.NeedsPayment)
	assert.Equal(t, []string{"tbank"}, cart.PaymentMethods)
}

func TestClient_CartMutations(t *testing.T) {
	ctx := context.Background()

	t.Run("add item posts the product payload", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/wp-json/wc/store/v1/cart/add-item", r.URL.Path)
			assert.Equal(t, "cart-token", r.Header.Get("Cart-Token"))

			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, float64(7), payload["id"])
			assert.Equal(t, float64(2), payload["quantity"])

			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"items": [{"key": "k1", "id": 7}], "items_count": 2}`)
		}))

		result, err := client.AddItemToCart(ctx, "cart-token", 7, 2)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, result.Status)
		assert.True(t, result.Applied())
		require.NotNil(t, result.Cart)
		assert.Equal(t, 2, result.Cart.ItemsCount)
	})

	t.Run("conflict counts as applied", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			io.WriteString(w, `{"code": "woocommerce_rest_cart_item_exists"}`)
		}))

		result, err := client.AddItemToCart(ctx, "cart-token", 7, 1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, result.Status)
		assert.True(t, result.Applied())
	})

	t.Run("server errors surface in the status", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		result, err := client.AddItemToCart(ctx, "cart-token", 7, 1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, result.Status)
		assert.False(t, result.Applied())
	})

	t.Run("update item sends key and quantity", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/wp-json/wc/store/v1/cart/update-item", r.URL.Path)
			assert.Equal(t, "k1", r.URL.Query().Get("key"))
			assert.Equal(t, "5", r.URL.Query().Get("quantity"))
			io.WriteString(w, `{"items_count": 5}`)
		}))

		result, err := client.UpdateItemInCart(ctx, "cart-token", "k1", 5)
		require.NoError(t, err)
		assert.True(t, result.Applied())
	})

	t.Run("remove item sends the key", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/wp-json/wc/store/v1/cart/remove-item", r.URL.Path)
			assert.Equal(t, "k1", r.URL.Query().Get("key"))
			io.WriteString(w, `{"items_count": 0}`)
		}))

		result, err := client.RemoveItemFromCart(ctx, "cart-token", "k1")
		require.NoError(t, err)
		assert.True(t, result.Applied())
	})
}

func TestClient_GetUserData(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wc/v3/customers/42", r.URL.Path)
		io.WriteString(w, `{
			"email": "user@example.com",
			"first_name": "Ivan",
			"last_name": "Petrov",
			"billing": {"address_1": "Tverskaya 1"}
		}`)
	}))

	profile, err := client.GetUserData(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", profile.Email)
	assert.Equal(t, "Ivan", profile.FirstName)
	assert.Equal(t, "Tverskaya 1", profile.Address)
}

func TestClient_GetUserMembership(t *testing.T) {
	t.Run("returns the first membership", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/wp-json/wc/v3/memberships/members", r.URL.Path)
			assert.Equal(t, "42", r.URL.Query().Get("customer"))
			io.WriteString(w, `[{"plan_name": "Gold", "status": "active", "end_date_gmt": "2026-12-31T00:00:00"}]`)
		}))

		membership, err := client.GetUserMembership(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, "Gold", membership.PlanName)
		assert.Equal(t, "active", membership.Status)
		assert.Equal(t, "2026-12-31T00:00:00", membership.EndDate)
	})

	t.Run("no membership yields an empty record", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `[]`)
		}))

		membership, err := client.GetUserMembership(context.Background(), 42)
		require.NoError(t, err)
		assert.Empty(t, membership.PlanName)
	})
}

func TestClient_GetUserMembershipQR(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/mqrv/v1/qr-code", r.URL.Path)
		assert.Equal(t, "Bearer jwt", r.Header.Get("Authorization"))
		io.WriteString(w, `{"qr_code": "data:image/png;base64,abc", "timestamp": 1756000000, "lifetime": 60}`)
	}))

	qr, err := client.GetUserMembershipQR(context.Background(), "jwt")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,abc", qr.QRCode)
	assert.Equal(t, int64(60), qr.Lifetime)
}

func TestClient_Orders(t *testing.T) {
	ctx := context.Background()

	t.Run("lists customer orders with filters", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/wp-json/wc/v3/orders", r.URL.Path)
			assert.Equal(t, "42", r.URL.Query().Get("customer"))
			assert.Equal(t, "completed", r.URL.Query().Get("status"))
			assert.Equal(t, "10", r.URL.Query().Get("per_page"))
			io.WriteString(w, `[{"id": 100, "status": "completed", "customer_id": 42, "total": "2500",
				"line_items": [{"id": 1, "name": "Green Tea", "product_id": 7, "quantity": 2, "total": "2500"}]}]`)
		}))

		orders, err := client.GetUserOrders(ctx, 42, "completed", 1, 10)
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, int64(100), orders[0].ID)
		assert.Equal(t, "Green Tea", orders[0].LineItems[0].Name)
	})

	t.Run("creates a pending order from cart lines", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/wp-json/wc/v3/orders", r.URL.Path)
			_, _, ok := r.BasicAuth()
			require.True(t, ok)

			var payload struct {
				CustomerID int64  `json:"customer_id"`
				Status     string `json:"status"`
				LineItems  []struct {
					ProductID int64 `json:"product_id"`
					Quantity  int   `json:"quantity"`
				} `json:"line_items"`
				ShippingLines []struct {
					MethodID    string `json:"method_id"`
					MethodTitle string `json:"method_title"`
				} `json:"shipping_lines"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, int64(42), payload.CustomerID)
			assert.Equal(t, "pending", payload.Status)
			require.Len(t, payload.LineItems, 2)
			assert.Equal(t, int64(7), payload.LineItems[0].ProductID)
			assert.Equal(t, 2, payload.LineItems[0].Quantity)
			require.Len(t, payload.ShippingLines, 1)
			assert.Equal(t, ShippingLocalPickup, payload.ShippingLines[0].MethodID)

			io.WriteString(w, `{"id": 777, "status": "pending", "customer_id": 42, "total": "2500"}`)
		}))

		order, err := client.CreateOrder(ctx, 42, []CartItem{
			{ID: 7, Quantity: 2},
			{ID: 9, Quantity: 1},
		}, ShippingLocalPickup)
		require.NoError(t, err)
		assert.Equal(t, int64(777), order.ID)
		assert.Equal(t, "pending", order.Status)
	})

	t.Run("fetches a single order", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/wp-json/wc/v3/orders/100", r.URL.Path)
			io.WriteString(w, `{"id": 100, "status": "pending", "customer_id": 42, "total": "990"}`)
		}))

		order, err := client.GetOrder(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(42), order.CustomerID)
		assert.Equal(t, "pending", order.Status)
	})

	t.Run("updates the order status", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/wp-json/wc/v3/orders/100", r.URL.Path)

			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "completed", payload["status"])
			io.WriteString(w, `{"id": 100, "status": "completed"}`)
		}))

		err := client.UpdateOrderStatus(ctx, 100, "completed")
		require.NoError(t, err)
	})
}
