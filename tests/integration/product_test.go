//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeData[[]productResponse](t, resp)
	if len(products) != 6 {
		t.Fatalf("expected 6 products, got %d", len(products))
	}

	for _, p := range products {
		if p.ID == "" {
			t.Error("product with empty ID")
		}
		if p.Name == "" {
			t.Errorf("product %s has empty name", p.ID)
		}
		if p.Price <= 0 {
			t.Errorf("product %s has price %v, want > 0", p.ID, p.Price)
		}
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/premium-dried-mango")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := decodeData[productResponse](t, resp)
	if p.ID != "premium-dried-mango" {
		t.Errorf("id: got %q, want %q", p.ID, "premium-dried-mango")
	}
	if p.Name != "Premium Dried Mango" {
		t.Errorf("name: got %q, want %q", p.Name, "Premium Dried Mango")
	}
	if p.Price != 100 {
		t.Errorf("price: got %v, want 100", p.Price)
	}
	if len(p.Nutrition) == 0 {
		t.Fatal("nutrition is empty")
	}
	if p.Nutrition[0].Nutrient == "" || p.Nutrition[0].Per100g == "" {
		t.Errorf("nutrition fact incomplete: %+v", p.Nutrition[0])
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/no-such-product")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	env := decodeEnvelope(t, resp)
	if env.Success {
		t.Error("expected success=false")
	}
}
