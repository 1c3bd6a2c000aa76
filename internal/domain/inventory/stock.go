package inventory

import (
	"time"

	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReleasePolicy controls how Release treats a quantity larger than the
// currently reserved quantity.
type ReleasePolicy string

const (
	// ReleaseClamp silently floors the reserved quantity at zero. This is
	// the permissive behavior; it can mask double-release bugs.
	ReleaseClamp ReleasePolicy = "CLAMP"
	// ReleaseStrict rejects a release larger than the reserved quantity.
	ReleaseStrict ReleasePolicy = "STRICT"
)

// IsValid returns true if the policy is a known ReleasePolicy
func (p ReleasePolicy) IsValid() bool {
	return p == ReleaseClamp || p == ReleaseStrict
}

// Stock is the per-shop, per-product(/variant) stock record and the
// aggregate root for all ledger operations. Reserve, Release, Sell, Restock
// and Adjust are the only sanctioned mutators of its quantities; every
// mutation either succeeds atomically or leaves the record unchanged.
//
// Invariants maintained after every mutation:
//   - 0 <= Reserved <= OnHand
//   - Available = max(0, OnHand - Reserved)
//   - StockValue = OnHand * AverageCost
type Stock struct {
	shared.TenantAggregateRoot
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_tenant_product_variant,priority:2"`
	VariantID         *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_stock_tenant_product_variant,priority:3"` // nil for simple products
	OnHand            int64           `gorm:"not null;default:0"`
	Reserved          int64           `gorm:"not null;default:0"`
	Available         int64           `gorm:"not null;default:0"` // Derived, never set directly
	LowStockThreshold int64           `gorm:"not null;default:0"`
	ReorderPoint      int64           `gorm:"not null;default:0"`
	ReorderQuantity   int64           `gorm:"not null;default:0"`
	AverageCost       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Weighted average unit cost
	StockValue        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Derived: OnHand * AverageCost
	LastRestockedAt   *time.Time
	LastSoldAt        *time.Time
}

// TableName returns the table name for GORM
func (Stock) TableName() string {
	return "stocks"
}

// NewStock creates an empty stock record for a product or product variant.
// Stock records are created lazily on the first stock-affecting operation.
func NewStock(tenantID, productID uuid.UUID, variantID *uuid.UUID) (*Stock, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if variantID != nil && *variantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VARIANT", "Variant ID cannot be empty")
	}

	return &Stock{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           productID,
		VariantID:           variantID,
		AverageCost:         decimal.Zero,
		StockValue:          decimal.Zero,
	}, nil
}

// Reserve places a hold on quantity for a pending order. The hold reduces
// Available without reducing OnHand. Fails with INSUFFICIENT_STOCK if the
// available quantity cannot cover the request; no partial reservation.
func (s *Stock) Reserve(qty int64) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}
	if s.Available < qty {
		return shared.NewDomainError("INSUFFICIENT_STOCK", "Insufficient available stock to reserve")
	}

	s.Reserved += qty
	s.recompute()
	s.touch()

	s.AddDomainEvent(NewStockReservedEvent(s, qty))

	return nil
}

// Release returns a previously reserved quantity to available. Under
// ReleaseClamp a release larger than the reserved quantity floors reserved
// at zero; under ReleaseStrict it is rejected with OVER_RELEASE.
func (s *Stock) Release(qty int64, policy ReleasePolicy) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}
	if policy == ReleaseStrict && qty > s.Reserved {
		return shared.NewDomainError("OVER_RELEASE", "Release quantity exceeds reserved quantity")
	}

	released := qty
	if released > s.Reserved {
		released = s.Reserved
	}
	s.Reserved -= released
	s.recompute()
	s.touch()

	s.AddDomainEvent(NewStockReleasedEvent(s, released))

	return nil
}

// Sell decrements on-hand quantity for a sale. The check is against
// Available, so a sell never dips into reserved quantity.
func (s *Stock) Sell(qty int64, now time.Time) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Sell quantity must be positive")
	}
	if s.Available < qty {
		return shared.NewDomainError("INSUFFICIENT_STOCK", "Insufficient available stock to sell")
	}

	s.OnHand -= qty
	s.LastSoldAt = &now
	s.recompute()
	s.touch()

	s.AddDomainEvent(NewStockSoldEvent(s, qty))
	s.checkThresholds()

	return nil
}

// Restock increases on-hand quantity. If cost is provided the average cost
// is recomputed as a weighted average over the pre-restock on-hand quantity:
//
//	avg' = (onHandBefore*avg + qty*cost) / (onHandBefore + qty)
func (s *Stock) Restock(qty int64, cost *decimal.Decimal, now time.Time) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Restock quantity must be positive")
	}
	if cost != nil && cost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	onHandBefore := s.OnHand
	s.OnHand += qty
	s.LastRestockedAt = &now

	if cost != nil {
		s.AverageCost = weightedAverageCost(onHandBefore, s.AverageCost, qty, *cost)
	}

	s.recompute()
	s.touch()

	s.AddDomainEvent(NewStockRestockedEvent(s, qty, cost))

	return nil
}

// Adjust corrects on-hand quantity to match a physical count. Rejected while
// reservations are outstanding so the Reserved <= OnHand invariant cannot be
// broken by a count.
func (s *Stock) Adjust(actualQty int64, reason string, now time.Time) error {
	if actualQty < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Actual quantity cannot be negative")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Adjustment reason is required")
	}
	if s.Reserved > 0 {
		return shared.NewDomainError("HAS_RESERVED_STOCK", "Cannot adjust stock while reservations are outstanding")
	}

	oldQty := s.OnHand
	s.OnHand = actualQty
	s.recompute()
	s.touch()

	s.AddDomainEvent(NewStockAdjustedEvent(s, oldQty, actualQty, reason))
	s.checkThresholds()

	return nil
}

// SetThresholds sets the low-stock threshold and reorder signalling levels
func (s *Stock) SetThresholds(lowStock, reorderPoint, reorderQty int64) error {
	if lowStock < 0 || reorderPoint < 0 || reorderQty < 0 {
		return shared.NewDomainError("INVALID_THRESHOLD", "Thresholds cannot be negative")
	}

	s.LowStockThreshold = lowStock
	s.ReorderPoint = reorderPoint
	s.ReorderQuantity = reorderQty
	s.touch()

	return nil
}

// NeedsRestock returns true if on-hand quantity is at or below the reorder point
func (s *Stock) NeedsRestock() bool {
	return s.OnHand <= s.ReorderPoint
}

// IsLowStock returns true if on-hand quantity is at or below the low-stock threshold
func (s *Stock) IsLowStock() bool {
	return s.OnHand <= s.LowStockThreshold
}

// IsOutOfStock returns true if there is no on-hand quantity
func (s *Stock) IsOutOfStock() bool {
	return s.OnHand <= 0
}

// CanFulfill returns true if the available quantity covers the requested quantity
func (s *Stock) CanFulfill(qty int64) bool {
	return s.Available >= qty
}

// recompute refreshes the derived fields from OnHand and Reserved
func (s *Stock) recompute() {
	available := s.OnHand - s.Reserved
	if available < 0 {
		available = 0
	}
	s.Available = available
	s.StockValue = decimal.NewFromInt(s.OnHand).Mul(s.AverageCost)
}

// touch updates the modification timestamp. The repository bumps the
// optimistic version once per save.
func (s *Stock) touch() {
	s.UpdatedAt = time.Now()
}

// checkThresholds emits a below-threshold event after on-hand decreases
func (s *Stock) checkThresholds() {
	if s.LowStockThreshold > 0 && s.OnHand <= s.LowStockThreshold {
		s.AddDomainEvent(NewStockBelowThresholdEvent(s))
	}
}

// weightedAverageCost computes the moving weighted average cost after a
// restock of qty units at unitCost, given the pre-restock state.
func weightedAverageCost(onHandBefore int64, avgCost decimal.Decimal, qty int64, unitCost decimal.Decimal) decimal.Decimal {
	totalQty := onHandBefore + qty
	if totalQty <= 0 {
		return decimal.Zero
	}
	totalValue := decimal.NewFromInt(onHandBefore).Mul(avgCost).
		Add(decimal.NewFromInt(qty).Mul(unitCost))
	return totalValue.Div(decimal.NewFromInt(totalQty)).Round(4)
}
