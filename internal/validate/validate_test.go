package validate

import (
	"strings"
	"testing"

	"storefront/internal/domain"
)

func TestCustomerFields(t *testing.T) {
	if got, ok := CustomerName("  Juan Pérez "); !ok || got != "Juan Pérez" {
		t.Fatalf("want trimmed name, got %q %v", got, ok)
	}
	if _, ok := CustomerName("   "); ok {
		t.Fatal("blank name must be rejected")
	}
	if _, ok := CustomerName(strings.Repeat("ñ", 101)); ok {
		t.Fatal("overlong name must be rejected")
	}
	if got, ok := CustomerID(" 1234567-1B "); !ok || got != "1234567-1B" {
		t.Fatalf("want CI accepted, got %q %v", got, ok)
	}
	for _, ci := range []string{"123/45", "E-1234567 LP", "1234567 (Cbba)", "Nº 88,1"} {
		if got, ok := CustomerID(ci); !ok || got != ci {
			t.Fatalf("want CI %q accepted, got %q %v", ci, got, ok)
		}
	}
	if _, ok := CustomerID("12\x00"); ok {
		t.Fatal("control characters in CI must be rejected")
	}
	if _, ok := CustomerID("12<script>"); ok {
		t.Fatal("markup in CI must be rejected")
	}
	if _, ok := CustomerID(""); ok {
		t.Fatal("empty CI must be rejected")
	}
}

func TestQ(t *testing.T) {
	if got, ok := Q("  olla de acero "); !ok || got != "olla de acero" {
		t.Fatalf("got %q %v", got, ok)
	}
	if got, ok := Q(""); !ok || got != "" {
		t.Fatalf("empty search should be allowed, got %q %v", got, ok)
	}
	if got, _ := Q(strings.Repeat("a", 80)); len(got) != 50 {
		t.Fatalf("want clamp to 50, got %d", len(got))
	}
	if _, ok := Q("<b>"); ok {
		t.Fatal("markup must be rejected")
	}
}

func TestQuantityPageIDKind(t *testing.T) {
	if n, ok := Quantity("0"); !ok || n != 0 {
		t.Fatalf("zero passes through, got %d %v", n, ok)
	}
	if n, _ := Quantity("500"); n != 99 {
		t.Fatalf("want clamp 99, got %d", n)
	}
	if _, ok := Quantity("dos"); ok {
		t.Fatal("non-numeric quantity must fail")
	}
	if Page("") != 1 || Page("-4") != 1 || Page("3") != 3 {
		t.Fatal("bad page parsing")
	}
	if id, ok := ID("42"); !ok || id != 42 {
		t.Fatalf("got %d %v", id, ok)
	}
	if _, ok := ID("0"); ok {
		t.Fatal("zero id must fail")
	}
	if k, ok := Kind("Reservation"); !ok || k != domain.ReservationCart {
		t.Fatalf("got %q %v", k, ok)
	}
	if _, ok := Kind("wishlist"); ok {
		t.Fatal("unknown kind must fail")
	}
}
