// Package models defines the client-side data model of the offline-first
// catalog: products, categories, pending changes and sync status.
package models

import "time"

// ProductStatus is the lifecycle state of a product.
type ProductStatus string

const (
	StatusDraft        ProductStatus = "draft"
	StatusActive       ProductStatus = "active"
	StatusOutOfStock   ProductStatus = "out_of_stock"
	StatusDiscontinued ProductStatus = "discontinued"
)

// ProductImage is one image reference attached to a product.
type ProductImage struct {
	URL       string `json:"url"`
	IsPrimary bool   `json:"isPrimary"`
}

// Product is a catalog product as known locally.
//
// ID is immutable once assigned. SyncID is assigned once at creation and
// never changes; it is the correlation key used to reconcile a locally
// created product with the record the server eventually returns.
//
// LocalUpdatedAt is stamped on every local mutation; CreatedAt/UpdatedAt come
// from the server. PendingSync marks unacknowledged local changes.
type Product struct {
	ID         string `json:"id"`
	SyncID     string `json:"syncId"`
	BusinessID string `json:"-"`

	CategoryID  string            `json:"categoryId,omitempty"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Price       float64           `json:"price"`
	Currency    string            `json:"currency,omitempty"`
	SKU         string            `json:"sku,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Quantity    int               `json:"quantity"`
	TrackInv    bool              `json:"trackInventory"`
	Images      []ProductImage    `json:"images,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Status      ProductStatus     `json:"status"`
	IsFeatured  bool              `json:"isFeatured"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`

	LocalUpdatedAt time.Time `json:"_localUpdatedAt,omitempty"`
	PendingSync    bool      `json:"_pendingSync,omitempty"`
}

// ProductPatch is a partial product update. Nil fields are left untouched.
type ProductPatch struct {
	CategoryID  *string            `json:"categoryId,omitempty"`
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	Price       *float64           `json:"price,omitempty"`
	Currency    *string            `json:"currency,omitempty"`
	SKU         *string            `json:"sku,omitempty"`
	Tags        *[]string          `json:"tags,omitempty"`
	Quantity    *int               `json:"quantity,omitempty"`
	TrackInv    *bool              `json:"trackInventory,omitempty"`
	Images      *[]ProductImage    `json:"images,omitempty"`
	Attributes  *map[string]string `json:"attributes,omitempty"`
	Status      *ProductStatus     `json:"status,omitempty"`
	IsFeatured  *bool              `json:"isFeatured,omitempty"`
}

// Apply copies the patch's non-nil fields onto p.
func (p *Product) Apply(patch ProductPatch) {
	if patch.CategoryID != nil {
		p.CategoryID = *patch.CategoryID
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Currency != nil {
		p.Currency = *patch.Currency
	}
	if patch.SKU != nil {
		p.SKU = *patch.SKU
	}
	if patch.Tags != nil {
		p.Tags = *patch.Tags
	}
	if patch.Quantity != nil {
		p.Quantity = *patch.Quantity
	}
	if patch.TrackInv != nil {
		p.TrackInv = *patch.TrackInv
	}
	if patch.Images != nil {
		p.Images = *patch.Images
	}
	if patch.Attributes != nil {
		p.Attributes = *patch.Attributes
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.IsFeatured != nil {
		p.IsFeatured = *patch.IsFeatured
	}
}

// Merge overlays b onto a and returns the result; b's fields win on overlap.
func (a ProductPatch) Merge(b ProductPatch) ProductPatch {
	out := a
	if b.CategoryID != nil {
		out.CategoryID = b.CategoryID
	}
	if b.Name != nil {
		out.Name = b.Name
	}
	if b.Description != nil {
		out.Description = b.Description
	}
	if b.Price != nil {
		out.Price = b.Price
	}
	if b.Currency != nil {
		out.Currency = b.Currency
	}
	if b.SKU != nil {
		out.SKU = b.SKU
	}
	if b.Tags != nil {
		out.Tags = b.Tags
	}
	if b.Quantity != nil {
		out.Quantity = b.Quantity
	}
	if b.TrackInv != nil {
		out.TrackInv = b.TrackInv
	}
	if b.Images != nil {
		out.Images = b.Images
	}
	if b.Attributes != nil {
		out.Attributes = b.Attributes
	}
	if b.Status != nil {
		out.Status = b.Status
	}
	if b.IsFeatured != nil {
		out.IsFeatured = b.IsFeatured
	}
	return out
}

// SyncStatus is the engine's observable state for one business.
type SyncStatus struct {
	LastSyncAt         time.Time `json:"lastSyncAt"`
	PendingChangeCount int       `json:"pendingChangeCount"`
	ConflictCount      int       `json:"conflictCount"`
	IsOnline           bool      `json:"isOnline"`
}
