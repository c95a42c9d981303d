package address

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eatcost/storefront/internal/infrastructure/cache"
)

func writeDirectory(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "addresses.txt")
	content := ""
	for _, line := range lines {
		content += line + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func setupService(t *testing.T, filePath string) *Service {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c := cache.New(client, zap.NewNop(), cache.WithCompression())
	return NewService(filePath, c, time.Hour, zap.NewNop())
}

func TestService_Suggest(t *testing.T) {
	ctx := context.Background()
	path := writeDirectory(t,
		"Тверская улица, 1",
		"Тверская улица, 12",
		"Арбат, 10",
		"",
		"  Ленинский проспект, 5  ",
	)
	svc := setupService(t, path)

	t.Run("matches substrings case-insensitively and sorts", func(t *testing.T) {
		matches, err := svc.Suggest(ctx, "тверская")
		require.NoError(t, err)
		assert.Equal(t, []string{"Тверская улица, 1", "Тверская улица, 12"}, matches)
	})

	t.Run("matches in the middle of the address", func(t *testing.T) {
		matches, err := svc.Suggest(ctx, "проспект")
		require.NoError(t, err)
		assert.Equal(t, []string{"Ленинский проспект, 5"}, matches)
	})

	t.Run("blank queries return nothing", func(t *testing.T) {
		matches, err := svc.Suggest(ctx, "   ")
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("caps suggestions at ten", func(t *testing.T) {
		lines := make([]string, 0, 15)
		for i := 0; i < 15; i++ {
			lines = append(lines, "Садовая улица, "+string(rune('A'+i)))
		}
		svc := setupService(t, writeDirectory(t, lines...))

		matches, err := svc.Suggest(ctx, "садовая")
		require.NoError(t, err)
		assert.Len(t, matches, 10)
	})

	t.Run("serves from cache after the file is gone", func(t *testing.T) {
		path := writeDirectory(t, "Арбат, 10")
		svc := setupService(t, path)

		_, err := svc.Suggest(ctx, "арбат")
		require.NoError(t, err)

		require.NoError(t, os.Remove(path))
		matches, err := svc.Suggest(ctx, "арбат")
		require.NoError(t, err)
		assert.Equal(t, []string{"Арбат, 10"}, matches)
	})

	t.Run("missing directory file surfaces an error", func(t *testing.T) {
		svc := setupService(t, filepath.Join(t.TempDir(), "missing.txt"))

		_, err := svc.Suggest(ctx, "арбат")
		assert.Error(t, err)
	})
}

func TestService_CheckDelivery(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t, writeDirectory(t, "Тверская улица, 1"))

	t.Run("known address unlocks free delivery", func(t *testing.T) {
		types, err := svc.CheckDelivery(ctx, "Тверская улица, 1")
		require.NoError(t, err)
		require.Len(t, types, 2)
		assert.Equal(t, DeliveryFree, types[0].Slug)
		assert.True(t, types[0].Available)
		assert.Equal(t, DeliveryPickup, types[1].Slug)
		assert.True(t, types[1].Available)
	})

	t.Run("unknown address still allows pickup", func(t *testing.T) {
		types, err := svc.CheckDelivery(ctx, "Неизвестная улица, 99")
		require.NoError(t, err)
		assert.False(t, types[0].Available)
		assert.True(t, types[1].Available)
	})

	t.Run("exact match only", func(t *testing.T) {
		exists, err := svc.Exists(ctx, "Тверская улица")
		require.NoError(t, err)
		assert.False(t, exists)

		exists, err = svc.Exists(ctx, "  Тверская улица, 1  ")
		require.NoError(t, err)
		assert.True(t, exists)
	})
}
