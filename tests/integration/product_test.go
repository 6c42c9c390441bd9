//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/stores/"+seedStoreID+"/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 3 {
		t.Fatalf("expected 3 top-level products, got %d", len(products))
	}
	for _, p := range products {
		if p.ParentID != "" {
			t.Errorf("product %s: variations must not appear in the store listing", p.ID)
		}
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/tee-classic")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := decodeJSON[productResponse](t, resp)
	if p.Name != "Classic Tee" {
		t.Errorf("name: got %q, want Classic Tee", p.Name)
	}
	if !p.OnSale {
		t.Error("expected tee-classic to be on sale")
	}
	if p.SalePrice.Amount != "199.00" {
		t.Errorf("sale price: got %s, want 199.00", p.SalePrice.Amount)
	}
	// The effective price tracks the sale while it is running.
	if p.Price.Amount != "199.00" {
		t.Errorf("price: got %s, want 199.00", p.Price.Amount)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/no-such-product")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListVariations(t *testing.T) {
	resp := doGet(t, "/api/products/tee-classic/variations")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	variations := decodeJSON[[]productResponse](t, resp)
	if len(variations) != 1 {
		t.Fatalf("expected 1 variation, got %d", len(variations))
	}
	if variations[0].ID != "tee-classic-xl" {
		t.Errorf("variation: got %s, want tee-classic-xl", variations[0].ID)
	}
	if variations[0].ParentID != "tee-classic" {
		t.Errorf("parent: got %s, want tee-classic", variations[0].ParentID)
	}
}
