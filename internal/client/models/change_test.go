package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestEncodeDecodePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload ChangePayload
	}{
		{name: "product create", payload: ProductCreate{Product: Product{ID: "p1", SyncID: "s1", Name: "Widget", Price: 100}}},
		{name: "product update", payload: ProductUpdate{Patch: ProductPatch{Price: floatPtr(90)}}},
		{name: "product delete", payload: ProductDelete{}},
		{name: "image set", payload: ProductImageSet{Images: []ProductImage{{URL: "http://x/1.jpg", IsPrimary: true}}}},
		{name: "category create", payload: CategoryCreate{Category: Category{ID: "c1", SyncID: "cs1", Name: "Tools"}}},
		{name: "category update", payload: CategoryUpdate{Patch: CategoryPatch{Name: strPtr("Hardware")}}},
		{name: "category delete", payload: CategoryDelete{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := EncodePayload(tt.payload)
			require.NoError(t, err)

			got, err := DecodePayload(b)
			require.NoError(t, err)
			assert.Equal(t, tt.payload, got)
		})
	}
}

func TestDecodePayload_UnknownKind(t *testing.T) {
	_, err := DecodePayload([]byte(`{"kind":"bogus","data":{}}`))
	require.Error(t, err)
}

func TestProductPatch_Merge_LaterWins(t *testing.T) {
	a := ProductPatch{Price: floatPtr(90), Name: strPtr("Widget")}
	b := ProductPatch{Price: floatPtr(80), Quantity: intPtr(5)}

	got := a.Merge(b)

	require.NotNil(t, got.Price)
	assert.Equal(t, 80.0, *got.Price)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Widget", *got.Name)
	require.NotNil(t, got.Quantity)
	assert.Equal(t, 5, *got.Quantity)
}

func TestProduct_Apply(t *testing.T) {
	p := Product{ID: "p1", Name: "Widget", Price: 100, Quantity: 3}
	p.Apply(ProductPatch{Price: floatPtr(90), Quantity: intPtr(5)})

	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, 90.0, p.Price)
	assert.Equal(t, 5, p.Quantity)
}

func TestMergeChanges_UpdateAfterUpdate(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	existing := PendingChange{
		ID: "ch1", EntityType: EntityProduct, EntityID: "p1", SyncID: "s1",
		Operation: OpUpdate, Payload: ProductUpdate{Patch: ProductPatch{Price: floatPtr(90)}},
		ClientTimestamp: t1,
	}
	incoming := PendingChange{
		EntityType: EntityProduct, EntityID: "p1", SyncID: "s1",
		Operation: OpUpdate, Payload: ProductUpdate{Patch: ProductPatch{Quantity: intPtr(5)}},
		ClientTimestamp: t2,
	}

	got, err := MergeChanges(existing, incoming)
	require.NoError(t, err)

	assert.Equal(t, "ch1", got.ID, "existing entry identity preserved")
	assert.Equal(t, OpUpdate, got.Operation)
	assert.Equal(t, t2, got.ClientTimestamp)

	patch := got.Payload.(ProductUpdate).Patch
	require.NotNil(t, patch.Price)
	assert.Equal(t, 90.0, *patch.Price)
	require.NotNil(t, patch.Quantity)
	assert.Equal(t, 5, *patch.Quantity)
}

func TestMergeChanges_UpdateAfterCreate_FoldsIntoCreate(t *testing.T) {
	existing := PendingChange{
		ID: "ch1", EntityType: EntityProduct, EntityID: "p1", SyncID: "s1",
		Operation: OpCreate,
		Payload:   ProductCreate{Product: Product{ID: "p1", SyncID: "s1", Name: "Widget", Price: 100}},
	}
	incoming := PendingChange{
		EntityType: EntityProduct, EntityID: "p1", SyncID: "s1",
		Operation: OpUpdate, Payload: ProductUpdate{Patch: ProductPatch{Price: floatPtr(90)}},
	}

	got, err := MergeChanges(existing, incoming)
	require.NoError(t, err)

	assert.Equal(t, OpCreate, got.Operation, "stays a create")
	created := got.Payload.(ProductCreate).Product
	assert.Equal(t, "Widget", created.Name)
	assert.Equal(t, 90.0, created.Price)
}

func TestMergeChanges_DeleteSupersedes(t *testing.T) {
	existing := PendingChange{
		ID: "ch1", EntityType: EntityProduct, EntityID: "p1", SyncID: "s1",
		Operation: OpCreate,
		Payload:   ProductCreate{Product: Product{ID: "p1", SyncID: "s1", Name: "Widget"}},
	}
	incoming := PendingChange{
		EntityType: EntityProduct, EntityID: "p1", SyncID: "s1",
		Operation: OpDelete, Payload: ProductDelete{},
	}

	got, err := MergeChanges(existing, incoming)
	require.NoError(t, err)

	assert.Equal(t, OpDelete, got.Operation)
	assert.Equal(t, ProductDelete{}, got.Payload)
}

func TestMergeChanges_DifferentEntities(t *testing.T) {
	_, err := MergeChanges(
		PendingChange{EntityType: EntityProduct, EntityID: "p1"},
		PendingChange{EntityType: EntityProduct, EntityID: "p2"},
	)
	require.Error(t, err)
}

func TestWirePayload(t *testing.T) {
	ch := PendingChange{
		EntityType: EntityProduct, EntityID: "p1", SyncID: "s1", Operation: OpCreate,
		Payload: ProductCreate{Product: Product{ID: "p1", SyncID: "s1", Name: "Widget"}},
	}
	b, err := ch.WirePayload()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"name":"Widget"`)
	assert.NotContains(t, string(b), `"product"`, "wire payload is the bare entity, not the envelope")

	del := PendingChange{EntityType: EntityProduct, EntityID: "p1", Operation: OpDelete, Payload: ProductDelete{}}
	b, err = del.WirePayload()
	require.NoError(t, err)
	assert.Nil(t, b)
}
