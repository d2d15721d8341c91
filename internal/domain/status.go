package domain

type StockStatus string

const (
	InStock    StockStatus = "IN_STOCK"
	LowStock   StockStatus = "LOW_STOCK"
	OutOfStock StockStatus = "OUT_OF_STOCK"
)

// LowStockThreshold is the first stock level considered IN_STOCK.
const LowStockThreshold = 5

func ClassifyStock(qty int) StockStatus {
	switch {
	case qty >= LowStockThreshold:
		return InStock
	case qty > 0:
		return LowStock
	default:
		return OutOfStock
	}
}

type CheckoutState string

const (
	CheckoutIdle       CheckoutState = "IDLE"
	CheckoutValidating CheckoutState = "VALIDATING"
	CheckoutSubmitting CheckoutState = "SUBMITTING"
	CheckoutConfirmed  CheckoutState = "CONFIRMED"
	CheckoutFailed     CheckoutState = "FAILED"
)

func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutConfirmed || s == CheckoutFailed
}

func (s CheckoutState) String() string {
	return string(s)
}

// CartKind selects one of the independent carts a session holds.
type CartKind string

const (
	GeneralCart     CartKind = "general"
	ReservationCart CartKind = "reservation"
)

// Namespace is the storage namespace of the cart kind.
func (k CartKind) Namespace() string {
	switch k {
	case ReservationCart:
		return "preimon_cart_v1"
	default:
		return "cart_v1"
	}
}

func (k CartKind) Valid() bool {
	return k == GeneralCart || k == ReservationCart
}
