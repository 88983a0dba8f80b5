package usecase

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadimbarashkov/shortlink/internal/adapter/enrich"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/memory"
	"github.com/vadimbarashkov/shortlink/internal/analytics"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// hangingLocator never answers before its context is done.
type hangingLocator struct{}

func (hangingLocator) Locate(ctx context.Context, _ net.IP) (entity.Geo, error) {
	<-ctx.Done()
	return entity.Geo{}, ctx.Err()
}

func newStoreBackedUseCase(t *testing.T, opts ...Option) (*LinkUseCase, *memory.Store, *analytics.Recorder) {
	t.Helper()

	store := memory.New()
	enricher := enrich.New(enrich.NewUAClassifier(),
		enrich.WithGeoLocator(hangingLocator{}),
		enrich.WithGeoTimeout(20*time.Millisecond),
	)
	recorder := analytics.New(enricher, store, analytics.WithEnrichTimeout(100*time.Millisecond))

	opts = append([]Option{WithBaseURL("https://sho.rt")}, opts...)

	return New(store, store, recorder, opts...), store, recorder
}

func closeRecorder(t *testing.T, r *analytics.Recorder) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, r.Close(ctx))
}

func TestCreateResolveRoundTrip(t *testing.T) {
	uc, store, recorder := newStoreBackedUseCase(t)
	ctx := context.Background()

	short, err := uc.ShortenURL(ctx, "https://example.com/a/long/path?q=1", nil)
	require.NoError(t, err)
	assert.Len(t, short.Code, 6)
	assert.Equal(t, "https://sho.rt/"+short.Code, short.ShortURL)
	assert.Zero(t, short.ClickCount)

	link, err := uc.ResolveShortCode(ctx, short.Code, entity.AccessContext{
		IP:        "8.8.8.8",
		UserAgent: "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a/long/path?q=1", link.TargetURL)
	assert.Equal(t, int64(1), link.ClickCount)

	closeRecorder(t, recorder)

	stats, err := uc.GetLinkStats(ctx, short.Code, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ClickCount)
	require.NotNil(t, stats.LastAccessedAt)

	require.Len(t, stats.Accesses, 1)
	rec := stats.Accesses[0]
	assert.Equal(t, "8.8.8.8", rec.IPAddress)
	assert.Equal(t, entity.Geo{}, rec.Geo)
	assert.Equal(t, "Firefox", rec.BrowserFamily.String)

	recs, err := store.ListByLink(ctx, link.ID, 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestResolveUnknownCodeHasNoSideEffects(t *testing.T) {
	uc, store, recorder := newStoreBackedUseCase(t)
	ctx := context.Background()

	short, err := uc.ShortenURL(ctx, "https://example.com", nil)
	require.NoError(t, err)

	_, err = uc.ResolveShortCode(ctx, "zzzzzzz", entity.AccessContext{IP: "8.8.8.8"})
	assert.ErrorIs(t, err, entity.ErrNotFound)

	closeRecorder(t, recorder)

	link, err := store.Lookup(ctx, short.Code)
	require.NoError(t, err)
	assert.Zero(t, link.ClickCount)
	assert.Nil(t, link.LastAccessedAt)

	recs, err := store.ListByLink(ctx, link.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestConcurrentCreationYieldsUniqueCodes(t *testing.T) {
	// Single-symbol codes force collisions between writers.
	uc, _, recorder := newStoreBackedUseCase(t, WithShortCodeLength(1))
	defer closeRecorder(t, recorder)

	const writers = 50

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = make(map[string]int)
	)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			short, err := uc.ShortenURL(context.Background(), "https://example.com", nil)
			if !assert.NoError(t, err) {
				return
			}

			mu.Lock()
			codes[short.Code]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, codes, writers)
	for code, n := range codes {
		assert.Equal(t, 1, n, code)
	}
}

func TestConcurrentResolutionsCountEveryClick(t *testing.T) {
	uc, store, recorder := newStoreBackedUseCase(t)
	ctx := context.Background()

	short, err := uc.ShortenURL(ctx, "https://example.com", nil)
	require.NoError(t, err)

	const k = 40

	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := uc.ResolveShortCode(ctx, short.Code, entity.AccessContext{IP: "8.8.8.8"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	closeRecorder(t, recorder)

	link, err := store.Lookup(ctx, short.Code)
	require.NoError(t, err)
	assert.Equal(t, int64(k), link.ClickCount)

	recs, err := store.ListByLink(ctx, link.ID, 100)
	require.NoError(t, err)
	assert.Len(t, recs, k)
}

func TestWritersDrawingSameCode(t *testing.T) {
	store := memory.New()
	recorder := analytics.New(enrich.New(nil), store)
	defer closeRecorder(t, recorder)

	first := New(store, store, recorder, WithCodeGenerator(&scriptedGenerator{codes: []string{"aaaaaa", "bbbbbb"}}))
	second := New(store, store, recorder, WithCodeGenerator(&scriptedGenerator{codes: []string{"aaaaaa", "cccccc"}}))

	var (
		wg      sync.WaitGroup
		results [2]*entity.ShortLink
	)

	for i, uc := range []*LinkUseCase{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()

			short, err := uc.ShortenURL(context.Background(), "https://example.com", nil)
			if assert.NoError(t, err) {
				results[i] = short
			}
		}()
	}
	wg.Wait()

	require.NotNil(t, results[0])
	require.NotNil(t, results[1])

	got := []string{results[0].Code, results[1].Code}
	assert.Contains(t, got, "aaaaaa")
	assert.NotEqual(t, got[0], got[1])
	assert.Subset(t, []string{"aaaaaa", "bbbbbb", "cccccc"}, got)
}
