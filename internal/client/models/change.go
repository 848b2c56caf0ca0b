package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntityType identifies the kind of entity a pending change refers to.
type EntityType string

const (
	EntityProduct      EntityType = "product"
	EntityCategory     EntityType = "category"
	EntityProductImage EntityType = "product_image"
)

// Operation is the kind of mutation a pending change carries.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ChangePayload is a sealed union over the operation-specific payloads a
// pending change can carry, so merge logic is checked exhaustively at compile
// time instead of relying on runtime field presence.
type ChangePayload interface {
	isChangePayload()
}

type ProductCreate struct {
	Product Product `json:"product"`
}

type ProductUpdate struct {
	Patch ProductPatch `json:"patch"`
}

type ProductDelete struct{}

// ProductImageSet replaces the full image list of a product.
type ProductImageSet struct {
	Images []ProductImage `json:"images"`
}

type CategoryCreate struct {
	Category Category `json:"category"`
}

type CategoryUpdate struct {
	Patch CategoryPatch `json:"patch"`
}

type CategoryDelete struct{}

func (ProductCreate) isChangePayload()   {}
func (ProductUpdate) isChangePayload()   {}
func (ProductDelete) isChangePayload()   {}
func (ProductImageSet) isChangePayload() {}
func (CategoryCreate) isChangePayload()  {}
func (CategoryUpdate) isChangePayload()  {}
func (CategoryDelete) isChangePayload()  {}

// PendingChange is one durably queued local mutation awaiting server
// acknowledgement. At most one PendingChange exists per
// (EntityType, EntityID); new mutations are merged into the existing entry.
type PendingChange struct {
	ID              string
	BusinessID      string
	EntityType      EntityType
	EntityID        string
	SyncID          string
	Operation       Operation
	Payload         ChangePayload
	ClientTimestamp time.Time
	RetryCount      int
	Conflicted      bool
}

type payloadEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

const (
	kindProductCreate   = "product_create"
	kindProductUpdate   = "product_update"
	kindProductDelete   = "product_delete"
	kindProductImageSet = "product_image_set"
	kindCategoryCreate  = "category_create"
	kindCategoryUpdate  = "category_update"
	kindCategoryDelete  = "category_delete"
)

// EncodePayload serializes a payload into its storage envelope.
func EncodePayload(p ChangePayload) ([]byte, error) {
	var kind string
	switch p.(type) {
	case ProductCreate:
		kind = kindProductCreate
	case ProductUpdate:
		kind = kindProductUpdate
	case ProductDelete:
		kind = kindProductDelete
	case ProductImageSet:
		kind = kindProductImageSet
	case CategoryCreate:
		kind = kindCategoryCreate
	case CategoryUpdate:
		kind = kindCategoryUpdate
	case CategoryDelete:
		kind = kindCategoryDelete
	default:
		return nil, fmt.Errorf("unknown payload type %T", p)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return json.Marshal(payloadEnvelope{Kind: kind, Data: data})
}

// DecodePayload deserializes a payload from its storage envelope.
func DecodePayload(b []byte) (ChangePayload, error) {
	var env payloadEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload envelope: %w", err)
	}

	switch env.Kind {
	case kindProductCreate:
		var p ProductCreate
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case kindProductUpdate:
		var p ProductUpdate
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case kindProductDelete:
		return ProductDelete{}, nil
	case kindProductImageSet:
		var p ProductImageSet
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case kindCategoryCreate:
		var p CategoryCreate
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case kindCategoryUpdate:
		var p CategoryUpdate
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case kindCategoryDelete:
		return CategoryDelete{}, nil
	default:
		return nil, fmt.Errorf("unknown payload kind %q", env.Kind)
	}
}

// WirePayload renders the payload the way the push API expects it: the full
// entity for creates, the partial fields for updates, nothing for deletes.
func (c PendingChange) WirePayload() (json.RawMessage, error) {
	switch p := c.Payload.(type) {
	case ProductCreate:
		return json.Marshal(p.Product)
	case ProductUpdate:
		return json.Marshal(p.Patch)
	case ProductImageSet:
		return json.Marshal(struct {
			Images []ProductImage `json:"images"`
		}{Images: p.Images})
	case CategoryCreate:
		return json.Marshal(p.Category)
	case CategoryUpdate:
		return json.Marshal(p.Patch)
	case ProductDelete, CategoryDelete:
		return nil, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown payload type %T", p)
	}
}

// MergeChanges folds an incoming mutation into the existing queue entry for
// the same (EntityType, EntityID) and returns the entry to store:
//
//   - an incoming delete supersedes whatever is pending;
//   - an update after a not-yet-pushed create is folded into the create;
//   - an update after an update merges the patches, later fields winning;
//   - anything else replaces the entry with the incoming change.
//
// The existing entry's identity and queue position are preserved.
func MergeChanges(existing, incoming PendingChange) (PendingChange, error) {
	if existing.EntityType != incoming.EntityType || existing.EntityID != incoming.EntityID {
		return PendingChange{}, fmt.Errorf("cannot merge changes for different entities")
	}

	out := existing
	out.ClientTimestamp = incoming.ClientTimestamp

	if incoming.Operation == OpDelete {
		out.Operation = OpDelete
		out.Payload = incoming.Payload
		return out, nil
	}

	switch prior := existing.Payload.(type) {
	case ProductCreate:
		if upd, ok := incoming.Payload.(ProductUpdate); ok && existing.Operation == OpCreate {
			merged := prior
			merged.Product.Apply(upd.Patch)
			out.Payload = merged
			return out, nil
		}
	case ProductUpdate:
		if upd, ok := incoming.Payload.(ProductUpdate); ok {
			out.Payload = ProductUpdate{Patch: prior.Patch.Merge(upd.Patch)}
			return out, nil
		}
	case CategoryCreate:
		if upd, ok := incoming.Payload.(CategoryUpdate); ok && existing.Operation == OpCreate {
			merged := prior
			merged.Category.Apply(upd.Patch)
			out.Payload = merged
			return out, nil
		}
	case CategoryUpdate:
		if upd, ok := incoming.Payload.(CategoryUpdate); ok {
			out.Payload = CategoryUpdate{Patch: prior.Patch.Merge(upd.Patch)}
			return out, nil
		}
	}

	out.Operation = incoming.Operation
	out.Payload = incoming.Payload
	return out, nil
}
