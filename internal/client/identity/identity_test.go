package identity

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dvasilkov/catalogsync/internal/client/client"
	"github.com/dvasilkov/catalogsync/internal/client/repositories/metadata"
)

func TestProvider_Ensure(t *testing.T) {
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	p := NewProvider(metadata.NewSQLiteRepository(db, metadata.GlobalScope))
	ctx := context.Background()

	id, err := p.Ensure(ctx)
	require.NoError(t, err)
	require.NoError(t, uuid.Validate(id))

	// Stable across calls and across provider instances.
	again, err := p.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	p2 := NewProvider(metadata.NewSQLiteRepository(db, metadata.GlobalScope))
	again, err = p2.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}
