package inbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu      sync.Mutex
	calls   []string
	payload []byte
	mime    string
	err     error
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if f.err != nil {
		return nil, "", f.err
	}
	return f.payload, f.mime, nil
}

func testHarvester(f Fetcher) *Harvester {
	h := NewHarvester(f)
	h.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return h
}

func TestHarvestDataURI(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	body := fmt.Sprintf(`<p>hi</p><img src="data:image/png;base64,%s">`, payload)

	h := testHarvester(&stubFetcher{})
	rewritten, attachments, err := h.Harvest(context.Background(), body)
	require.NoError(t, err)

	require.Len(t, attachments, 1)
	a := attachments[0]
	assert.Equal(t, "inline1700000000000-0@local", a.ContentID)
	assert.Equal(t, "inline-1700000000000-0.png", a.Name)
	assert.Equal(t, "image/png", a.MimeType)
	assert.True(t, a.Inline)
	assert.Equal(t, payload, a.Base64Content)

	assert.Contains(t, rewritten, `data-cid="inline1700000000000-0@local"`)
}

func TestHarvestFetchesBlobAndHostedConcurrently(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte("img"), mime: "image/jpeg"}
	body := `<img src="blob:https://app/123"><img src="/attachments/42/photo">`

	h := testHarvester(fetcher)
	rewritten, attachments, err := h.Harvest(context.Background(), body)
	require.NoError(t, err)

	require.Len(t, attachments, 2)
	assert.ElementsMatch(t, []string{"blob:https://app/123", "/attachments/42/photo"}, fetcher.calls)
	for _, a := range attachments {
		assert.Equal(t, "image/jpeg", a.MimeType)
		assert.True(t, strings.HasSuffix(a.Name, ".jpeg"))
	}
	assert.Contains(t, rewritten, "data:image/jpeg;base64,")
}

func TestHarvestFailedFetchLeavesReference(t *testing.T) {
	fetcher := &stubFetcher{err: fmt.Errorf("gone")}
	body := `<img src="blob:https://app/dead">`

	h := testHarvester(fetcher)
	rewritten, attachments, err := h.Harvest(context.Background(), body)
	require.NoError(t, err, "a failed image fetch must not fail the harvest")

	assert.Empty(t, attachments)
	assert.Contains(t, rewritten, "blob:https://app/dead")
}

func TestHarvestIdempotent(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	body := fmt.Sprintf(`<img src="data:image/png;base64,%s">`, payload)

	h := testHarvester(&stubFetcher{})
	once, first, err := h.Harvest(context.Background(), body)
	require.NoError(t, err)
	require.Len(t, first, 1)

	twice, second, err := h.Harvest(context.Background(), once)
	require.NoError(t, err)

	assert.Empty(t, second, "re-harvesting processed output must add nothing")
	assert.Equal(t, once, twice)
}

func TestHarvestSkipsForeignSources(t *testing.T) {
	body := `<img src="https://cdn.example.com/logo.png">`

	h := testHarvester(&stubFetcher{})
	rewritten, attachments, err := h.Harvest(context.Background(), body)
	require.NoError(t, err)

	assert.Empty(t, attachments, "absolute external urls stay external")
	assert.Equal(t, body, rewritten)
}

func TestApplyContentIDReferences(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	body := fmt.Sprintf(`<img src="data:image/png;base64,%s">`, payload)

	h := testHarvester(&stubFetcher{})
	marked, attachments, err := h.Harvest(context.Background(), body)
	require.NoError(t, err)
	require.Len(t, attachments, 1)

	applied := ApplyContentIDReferences(marked)
	assert.Contains(t, applied, `src="cid:inline1700000000000-0@local"`)
	assert.NotContains(t, applied, "data:image/png")
}

func TestApplyContentIDReferencesNoMarkers(t *testing.T) {
	body := `<p>plain</p>`
	assert.Equal(t, body, ApplyContentIDReferences(body))
}

func TestHarvestEmptyBody(t *testing.T) {
	h := testHarvester(&stubFetcher{})
	out, attachments, err := h.Harvest(context.Background(), "  ")
	require.NoError(t, err)
	assert.Equal(t, "  ", out)
	assert.Empty(t, attachments)
}
