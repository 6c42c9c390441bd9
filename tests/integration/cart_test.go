//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func createCart(t *testing.T, customerID string) cartResponse {
	t.Helper()

	resp := doPost(t, "/api/carts", map[string]string{
		"store_id":    seedStoreID,
		"customer_id": customerID,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create cart: expected 201, got %d", resp.StatusCode)
	}
	return decodeJSON[cartResponse](t, resp)
}

func addProduct(t *testing.T, cartID, productID string, qty int) cartResponse {
	t.Helper()

	resp := doPost(t, "/api/carts/"+cartID+"/products", map[string]any{
		"product_id": productID,
		"quantity":   qty,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add product %s: expected 200, got %d", productID, resp.StatusCode)
	}
	return decodeJSON[cartResponse](t, resp)
}

func TestCartTotals(t *testing.T) {
	c := createCart(t, "cust-totals")
	if c.Totals.DeliveryFee.Amount != "25.00" {
		t.Errorf("delivery fee: got %s, want 25.00", c.Totals.DeliveryFee.Amount)
	}

	// Winter Hoodie 620.00 x 2, no sale.
	c = addProduct(t, c.ID, "hoodie-winter", 2)
	if c.Totals.SubTotal.Amount != "1240.00" {
		t.Errorf("sub total: got %s, want 1240.00", c.Totals.SubTotal.Amount)
	}
	if c.Totals.GrandTotal.Amount != "1265.00" {
		t.Errorf("grand total: got %s, want 1265.00", c.Totals.GrandTotal.Amount)
	}
	if c.Totals.SubTotal.Currency != "ZAR" {
		t.Errorf("currency: got %s, want ZAR", c.Totals.SubTotal.Currency)
	}
}

func TestCartSaleDiscount(t *testing.T) {
	c := createCart(t, "cust-sale")

	// Classic Tee: regular 250.00, sale 199.00.
	c = addProduct(t, c.ID, "tee-classic", 1)
	if c.ProductLines[0].UnitPrice.Amount != "199.00" {
		t.Errorf("unit price: got %s, want 199.00", c.ProductLines[0].UnitPrice.Amount)
	}
	if c.Totals.SaleDiscountTotal.Amount != "51.00" {
		t.Errorf("sale discount: got %s, want 51.00", c.Totals.SaleDiscountTotal.Amount)
	}
	// 250 - 51 + 25 delivery.
	if c.Totals.GrandTotal.Amount != "224.00" {
		t.Errorf("grand total: got %s, want 224.00", c.Totals.GrandTotal.Amount)
	}
}

func TestApplyCoupon(t *testing.T) {
	c := createCart(t, "cust-coupon")
	c = addProduct(t, c.ID, "hoodie-winter", 1)

	resp := doPost(t, "/api/carts/"+c.ID+"/coupons", map[string]any{
		"code": "WELCOME10",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply coupon: expected 200, got %d", resp.StatusCode)
	}

	c = decodeJSON[cartResponse](t, resp)
	if len(c.CouponLines) != 1 {
		t.Fatalf("expected 1 coupon line, got %d", len(c.CouponLines))
	}
	if c.CouponLines[0].IsCancelled {
		t.Fatalf("coupon should be eligible, cancelled with %v", c.CouponLines[0].CancellationReasons)
	}
	// 10% of 620.00.
	if c.Totals.CouponDiscountTotal.Amount != "62.00" {
		t.Errorf("coupon discount: got %s, want 62.00", c.Totals.CouponDiscountTotal.Amount)
	}
	if c.Totals.GrandTotal.Amount != "583.00" {
		t.Errorf("grand total: got %s, want 583.00", c.Totals.GrandTotal.Amount)
	}
}

func TestApplyCoupon_IneligibleAttachesCancelled(t *testing.T) {
	c := createCart(t, "cust-ineligible")
	// Branded Cap 150.00: below BIGSPEND's 500.00 minimum.
	c = addProduct(t, c.ID, "cap-branded", 1)

	resp := doPost(t, "/api/carts/"+c.ID+"/coupons", map[string]any{
		"code": "BIGSPEND",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply coupon: expected 200, got %d", resp.StatusCode)
	}

	c = decodeJSON[cartResponse](t, resp)
	if len(c.CouponLines) != 1 {
		t.Fatalf("expected 1 coupon line, got %d", len(c.CouponLines))
	}
	line := c.CouponLines[0]
	if !line.IsCancelled {
		t.Fatal("ineligible coupon must attach as a cancelled line")
	}
	if len(line.Instructions) == 0 {
		t.Error("cancelled coupon line should carry unlock instructions")
	}
	if c.Totals.CouponDiscountTotal.Amount != "0.00" {
		t.Errorf("cancelled coupon must not discount, got %s", c.Totals.CouponDiscountTotal.Amount)
	}
}

func TestApplyCoupon_UnknownCode(t *testing.T) {
	c := createCart(t, "cust-unknown-code")

	resp := doPost(t, "/api/carts/"+c.ID+"/coupons", map[string]any{
		"code": "NOPE-CODE",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	body := decodeJSON[errorResponse](t, resp)
	if body.Code != http.StatusNotFound {
		t.Errorf("error code: got %d, want 404", body.Code)
	}
}

func TestCancelProductLine(t *testing.T) {
	c := createCart(t, "cust-cancel")
	c = addProduct(t, c.ID, "hoodie-winter", 1)
	c = addProduct(t, c.ID, "cap-branded", 1)

	resp := doJSON(t, http.MethodDelete, "/api/carts/"+c.ID+"/products/"+c.ProductLines[0].ID, nil, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel line: expected 200, got %d", resp.StatusCode)
	}

	c = decodeJSON[cartResponse](t, resp)
	if len(c.ProductLines) != 2 {
		t.Fatalf("cancelled lines must stay visible, got %d lines", len(c.ProductLines))
	}
	if !c.ProductLines[0].IsCancelled {
		t.Error("first line should be cancelled")
	}
	// Only the cap remains: 150 + 25 delivery.
	if c.Totals.GrandTotal.Amount != "175.00" {
		t.Errorf("grand total: got %s, want 175.00", c.Totals.GrandTotal.Amount)
	}
	if c.Totals.TotalProducts != 1 {
		t.Errorf("total products: got %d, want 1", c.Totals.TotalProducts)
	}
}

func TestAddProduct_ExceedsMaxPerOrder(t *testing.T) {
	c := createCart(t, "cust-max")

	// hoodie-winter allows at most 3 per order.
	resp := doPost(t, "/api/carts/"+c.ID+"/products", map[string]any{
		"product_id": "hoodie-winter",
		"quantity":   4,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}
