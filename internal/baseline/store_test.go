package baseline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataquerypro/dataquery/internal/errs"
	"github.com/dataquerypro/dataquery/internal/filestore"
	"github.com/dataquerypro/dataquery/internal/filestore/memory"
	"github.com/dataquerypro/dataquery/internal/schema"
)

func newStore(t *testing.T) (*Store, *memory.Store) {
	t.Helper()
	files := memory.New()
	s := New(files, "baselines")
	require.NoError(t, s.Init(context.Background()))
	return s, files
}

func sample() schema.Schema {
	return schema.Schema{
		ConnectionID: "warehouse",
		Tables: []schema.Table{{
			Name:        "users",
			IsNew:       true,
			Description: "people",
			Columns: []schema.Column{
				{Name: "id", Type: "integer", PrimaryKey: true},
				{Name: "email", Type: "text", IsNew: true, Description: "login"},
				{Name: "age", Type: "int", IsModified: true, Hidden: true},
			},
		}},
	}
}

func TestStore_LoadMissing(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.Load(context.Background(), "warehouse")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestStore_SaveClearsFlags(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample()))

	got, err := s.Load(ctx, "warehouse")
	require.NoError(t, err)
	assert.Equal(t, sample().Accepted(), *got)
	assert.False(t, schema.HasChanges(*got))
	assert.Equal(t, "login", got.Tables[0].Columns[1].Description)
	assert.True(t, got.Tables[0].Columns[2].Hidden)
}

func TestStore_SaveOverwrites(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample()))

	next := sample()
	next.Tables[0].Columns = next.Tables[0].Columns[:1]
	require.NoError(t, s.Save(ctx, next))

	got, err := s.Load(ctx, "warehouse")
	require.NoError(t, err)
	assert.Len(t, got.Tables[0].Columns, 1)
}

func TestStore_ObjectLayout(t *testing.T) {
	s, files := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample()))

	obj, err := files.GetObject(ctx, "baselines", "schemas/warehouse.json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", obj.Info().ContentType)
	require.NoError(t, obj.Close())

	data, err := filestore.ReadAll(ctx, files, "baselines", "schemas/warehouse.json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `{"connectionId":"warehouse"`))
	assert.NotContains(t, string(data), "isNew")
	assert.NotContains(t, string(data), "isModified")
}

func TestStore_CorruptBaseline(t *testing.T) {
	s, files := newStore(t)
	ctx := context.Background()

	_, err := files.PutObject(ctx, "baselines", Key("broken"), strings.NewReader("{not json"), -1, "application/json")
	require.NoError(t, err)

	_, err = s.Load(ctx, "broken")
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))
}

func TestStore_DeleteAndList(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	a := sample()
	b := sample()
	b.ConnectionID = "crm"
	require.NoError(t, s.Save(ctx, a))
	require.NoError(t, s.Save(ctx, b))

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"crm", "warehouse"}, ids)

	require.NoError(t, s.Delete(ctx, "crm"))
	require.NoError(t, s.Delete(ctx, "crm"))

	ids, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"warehouse"}, ids)
}

func TestStore_RejectsBadIDs(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	for _, id := range []string{"", "../etc", "a/b", ".."} {
		_, err := s.Load(ctx, id)
		assert.True(t, errs.IsInvalidInput(err), "id %q", id)
	}

	bad := sample()
	bad.ConnectionID = ""
	assert.True(t, errs.IsInvalidInput(s.Save(ctx, bad)))
}
