package visitor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreate_StableAcrossCalls(t *testing.T) {
	store := &MemoryStore{}
	id := New(store)

	first, err := id.GetOrCreate()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, TokenPrefix))

	second, err := id.GetOrCreate()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.Saves())
}

func TestGetOrCreate_Concurrent(t *testing.T) {
	store := &MemoryStore{}
	id := New(store)

	const n = 20
	tokens := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := id.GetOrCreate()
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	for _, tok := range tokens {
		assert.Equal(t, tokens[0], tok)
	}
	assert.Equal(t, 1, store.Saves())
}

func TestNewToken_Unique(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestFileStore_RoundTripAndPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "visitor.json")
	store := FileStore{Path: path}

	tok, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)

	first, err := New(store).GetOrCreate()
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"visitor_token"`)

	// A new process reading the same file is the same visitor.
	again, err := New(FileStore{Path: path}).GetOrCreate()
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visitor.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := New(FileStore{Path: path}).GetOrCreate()
	assert.Error(t, err)
}

type failingStore struct{}

func (failingStore) Load() (string, error) { return "", nil }
func (failingStore) Save(string) error     { return errors.New("disk full") }

func TestGetOrCreate_SaveFailure(t *testing.T) {
	_, err := New(failingStore{}).GetOrCreate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
