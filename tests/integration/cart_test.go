//go:build integration

package integration

import (
	"net/http"
	"testing"
)

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func TestCart_RequiresAuth(t *testing.T) {
	resp := doGet(t, "/api/cart")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCart_AddAndView(t *testing.T) {
	clearCart(t)

	resp := doPostWithAuth(t, "/api/cart/add", cartItemRequest{
		ProductID: "premium-dried-mango",
		Quantity:  2,
	}, customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	view := decodeData[cartResponse](t, resp)
	if view.ItemCount != 2 {
		t.Errorf("itemCount: got %d, want 2", view.ItemCount)
	}
	// 2 x 100 = 200, below the 250 free-shipping threshold.
	if view.Subtotal != 200 {
		t.Errorf("subtotal: got %v, want 200", view.Subtotal)
	}
	if view.Shipping != 49 {
		t.Errorf("shipping: got %v, want 49", view.Shipping)
	}
	if view.AmountForFreeShipping != 50 {
		t.Errorf("amountForFreeShipping: got %v, want 50", view.AmountForFreeShipping)
	}
	if view.Message == "" {
		t.Error("expected free shipping nudge message")
	}
}

func TestCart_FreeShippingThreshold(t *testing.T) {
	clearCart(t)

	resp := doPostWithAuth(t, "/api/cart/add", cartItemRequest{
		ProductID: "medjool-dates", // 220
		Quantity:  2,
	}, customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	view := decodeData[cartResponse](t, resp)
	if view.Subtotal != 440 {
		t.Errorf("subtotal: got %v, want 440", view.Subtotal)
	}
	if view.Shipping != 0 {
		t.Errorf("shipping: got %v, want 0", view.Shipping)
	}
	if view.Message != "" {
		t.Errorf("expected no nudge message, got %q", view.Message)
	}
}

func TestCart_AddUnknownProduct(t *testing.T) {
	resp := doPostWithAuth(t, "/api/cart/add", cartItemRequest{
		ProductID: "no-such-product",
		Quantity:  1,
	}, customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCart_RemoveItem(t *testing.T) {
	clearCart(t)

	resp := doPostWithAuth(t, "/api/cart/add", cartItemRequest{
		ProductID: "golden-raisins",
		Quantity:  1,
	}, customerKey)
	resp.Body.Close()

	resp = doReq(t, http.MethodDelete, "/api/cart/item/golden-raisins", nil, customerKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	view := decodeData[cartResponse](t, resp)
	if view.ItemCount != 0 {
		t.Errorf("itemCount: got %d, want 0", view.ItemCount)
	}
}

func clearCart(t *testing.T) {
	t.Helper()

	resp := doReq(t, http.MethodDelete, "/api/cart/clear", nil, customerKey)
	defer resp.Body.Close()

	// 200 when a cart existed, 404 when it was already empty.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		t.Fatalf("clear cart: unexpected status %d", resp.StatusCode)
	}
}
