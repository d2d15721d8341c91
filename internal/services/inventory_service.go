package services

import (
	"storefront/internal/domain"
)

type InventoryService struct{}

func NewInventoryService() *InventoryService {
	return &InventoryService{}
}

// Classify converts a stock level into IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
// Negative stock is reported as zero.
func (s *InventoryService) Classify(stock int) domain.Availability {
	if stock < 0 {
		stock = 0
	}
	return domain.Availability{Status: domain.ClassifyStock(stock), Qty: stock}
}

// Decorate attaches the display price and availability to each product.
// Products whose price cannot be parsed are listed with an empty display price.
func (s *InventoryService) Decorate(items []domain.CatalogProduct) []domain.ListedProduct {
	out := make([]domain.ListedProduct, 0, len(items))
	for _, p := range items {
		lp := domain.ListedProduct{CatalogProduct: p, Availability: s.Classify(p.Stock)}
		if price, err := p.DisplayPrice(); err == nil {
			lp.DisplayPrice = price.StringFixed(2)
		}
		out = append(out, lp)
	}
	return out
}
