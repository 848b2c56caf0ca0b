package models

import "time"

// Category is a catalog category. Categories form a tree via ParentID; an
// empty ParentID means a root category. Acyclicity is enforced at write time
// by the repository, not by the model.
type Category struct {
	ID         string `json:"id"`
	SyncID     string `json:"syncId"`
	BusinessID string `json:"-"`

	Name      string `json:"name"`
	ParentID  string `json:"parentId,omitempty"`
	SortOrder int    `json:"sortOrder"`
	IsActive  bool   `json:"isActive"`

	// ProductCount is denormalized from the products table.
	ProductCount int `json:"productCount"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`

	LocalUpdatedAt time.Time `json:"_localUpdatedAt,omitempty"`
	PendingSync    bool      `json:"_pendingSync,omitempty"`
}

// CategoryPatch is a partial category update. Nil fields are left untouched.
type CategoryPatch struct {
	Name      *string `json:"name,omitempty"`
	ParentID  *string `json:"parentId,omitempty"`
	SortOrder *int    `json:"sortOrder,omitempty"`
	IsActive  *bool   `json:"isActive,omitempty"`
}

// Apply copies the patch's non-nil fields onto c.
func (c *Category) Apply(patch CategoryPatch) {
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.ParentID != nil {
		c.ParentID = *patch.ParentID
	}
	if patch.SortOrder != nil {
		c.SortOrder = *patch.SortOrder
	}
	if patch.IsActive != nil {
		c.IsActive = *patch.IsActive
	}
}

// Merge overlays b onto a and returns the result; b's fields win on overlap.
func (a CategoryPatch) Merge(b CategoryPatch) CategoryPatch {
	out := a
	if b.Name != nil {
		out.Name = b.Name
	}
	if b.ParentID != nil {
		out.ParentID = b.ParentID
	}
	if b.SortOrder != nil {
		out.SortOrder = b.SortOrder
	}
	if b.IsActive != nil {
		out.IsActive = b.IsActive
	}
	return out
}
