package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/jiftechnify/upix-backend/internal/cfg"
	"github.com/jiftechnify/upix-backend/internal/domain"
	"github.com/jiftechnify/upix-backend/internal/imaging"
	minioInfra "github.com/jiftechnify/upix-backend/internal/infrastructure/minio"
	"github.com/jiftechnify/upix-backend/internal/usecase"
	"github.com/jiftechnify/upix-backend/pkg/e"
	"github.com/jiftechnify/upix-backend/pkg/logger"
)

// FAKES

type fakeStore struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	failPuts     bool
	failGets     bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (s *fakeStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPuts {
		return fmt.Errorf("store is down")
	}
	s.objects[key] = append([]byte(nil), data...)
	s.contentTypes[key] = contentType
	return nil
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGets {
		return nil, fmt.Errorf("store is down")
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, nil
	}
	return data, nil
}

func (s *fakeStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	failGet bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) GetResponse(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, fmt.Errorf("cache is down")
	}
	return c.entries[key], nil
}

func (c *fakeCache) SetResponse(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

// fakeWriter records cache-population requests synchronously.
type fakeWriter struct {
	mu       sync.Mutex
	enqueued map[string][]byte
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{enqueued: make(map[string][]byte)}
}

func (w *fakeWriter) Enqueue(key string, data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enqueued[key] = data
}

type fakeEvents struct {
	mu     sync.Mutex
	events []*usecase.ImageIngestedEvent
	fail   bool
}

func (f *fakeEvents) PublishIngested(_ context.Context, event *usecase.ImageIngestedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("broker unreachable")
	}
	f.events = append(f.events, event)
	return nil
}

// HELPERS

func testImageCfg() *cfg.ImageCfg {
	return &cfg.ImageCfg{
		MaxBodyBytes:   512 * 1024,
		MaxPixels:      65536,
		MaxLongSide:    1024,
		MaxAspectRatio: 16.0,
	}
}

type testDeps struct {
	uc     *usecase.ImageUseCase
	store  *fakeStore
	cache  *fakeCache
	writer *fakeWriter
	events *fakeEvents
}

func newTestUC(t *testing.T) *testDeps {
	t.Helper()

	store := newFakeStore()
	cache := newFakeCache()
	writer := newFakeWriter()
	events := &fakeEvents{}
	imageCfg := testImageCfg()
	log := logger.NewNopLogger()

	infra := minioInfra.NewMinioInfrastructure(store, &cfg.MinIOCfg{UploadLimit: 5}, log)
	uc := usecase.NewImageUC(store, cache, writer, infra, events, imaging.NewValidator(imageCfg), imageCfg, log)

	return &testDeps{uc: uc, store: store, cache: cache, writer: writer, events: events}
}

func newTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 31), G: uint8(y * 13), B: uint8(x ^ y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

// INGEST

func TestIngest(t *testing.T) {
	deps := newTestUC(t)
	data := newTestPNG(t, 100, 50)

	images, err := deps.uc.Ingest(context.Background(), usecase.NewIngestImageReq(data, "image/png"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// long side 100 → scales 1, 2, 4, 8 (100*16 > 1024)
	if len(images) != 4 {
		t.Fatalf("got %d derivatives, want 4: %+v", len(images), images)
	}

	hash := domain.Fingerprint(data)
	wantScales := []int{1, 2, 4, 8}
	for i, img := range images {
		scale := wantScales[i]
		if img.Scale != scale {
			t.Errorf("result %d: scale = %d, want %d (ascending order)", i, img.Scale, scale)
		}
		wantName := domain.DerivativeKey(hash, scale, "png")
		if img.Name != wantName {
			t.Errorf("result %d: name = %s, want %s", i, img.Name, wantName)
		}
		if img.Width != 100*scale || img.Height != 50*scale {
			t.Errorf("result %d: %dx%d, want %dx%d", i, img.Width, img.Height, 100*scale, 50*scale)
		}

		stored, err := deps.store.Get(context.Background(), wantName)
		if err != nil || stored == nil {
			t.Fatalf("derivative %s missing from the store", wantName)
		}
		if deps.store.contentTypes[wantName] != "image/png" {
			t.Errorf("derivative %s stored with content type %s", wantName, deps.store.contentTypes[wantName])
		}
	}
}

func TestIngest_MaxLongSideGetsOnlyBase(t *testing.T) {
	// 1024x64 sits exactly at every limit: 65536 pixels, long side 1024,
	// aspect ratio 16:1.
	deps := newTestUC(t)
	data := newTestPNG(t, 1024, 64)

	images, err := deps.uc.Ingest(context.Background(), usecase.NewIngestImageReq(data, "image/png"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(images) != 1 || images[0].Scale != 1 {
		t.Fatalf("1024-wide image should produce only the base derivative, got %+v", images)
	}
}

func TestIngest_Idempotent(t *testing.T) {
	deps := newTestUC(t)
	data := newTestPNG(t, 64, 64)

	first, err := deps.uc.Ingest(context.Background(), usecase.NewIngestImageReq(data, "image/png"))
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := deps.uc.Ingest(context.Background(), usecase.NewIngestImageReq(data, "image/png"))
	if err != nil {
		t.Fatalf("second ingest of identical bytes must not error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("derivative sets differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("derivative %d differs between uploads: %+v vs %+v", i, first[i], second[i])
		}
	}
	if got := len(deps.store.keys()); got != len(first) {
		t.Errorf("re-upload duplicated storage: %d keys for %d derivatives", got, len(first))
	}
}

func TestIngest_Rejections(t *testing.T) {
	deps := newTestUC(t)

	cases := []struct {
		name        string
		data        []byte
		contentType string
	}{
		{name: "unsupported format", data: newTestPNG(t, 10, 10), contentType: "image/jpeg"},
		{name: "not an image", data: []byte("hello"), contentType: "text/plain"},
		{name: "missing content type", data: newTestPNG(t, 10, 10), contentType: ""},
		{name: "payload format mismatch", data: []byte("not a png"), contentType: "image/png"},
		{name: "bad aspect ratio", data: newTestPNG(t, 300, 4), contentType: "image/png"},
		{name: "too many pixels", data: newTestPNG(t, 257, 256), contentType: "image/png"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := deps.uc.Ingest(context.Background(), usecase.NewIngestImageReq(tc.data, tc.contentType))
			var ve *e.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("got %v, want a ValidationError", err)
			}
		})
	}

	if got := len(deps.store.keys()); got != 0 {
		t.Errorf("rejected uploads reached the store: %d keys", got)
	}
}

func TestIngest_OversizedPayload(t *testing.T) {
	deps := newTestUC(t)

	// Size is checked before decoding, so the payload doesn't need to be a
	// real image.
	data := make([]byte, 512*1024+1)
	_, err := deps.uc.Ingest(context.Background(), usecase.NewIngestImageReq(data, "image/png"))
	if !errors.Is(err, e.ErrTooLargeImage) {
		t.Fatalf("got %v, want ErrTooLargeImage", err)
	}
}

func TestIngest_StoreFailureFailsWhole(t *testing.T) {
	deps := newTestUC(t)
	deps.store.failPuts = true

	_, err := deps.uc.Ingest(context.Background(), usecase.NewIngestImageReq(newTestPNG(t, 32, 32), "image/png"))
	if err == nil {
		t.Fatal("expected the whole ingest to fail when a write fails")
	}
	var ve *e.ValidationError
	if errors.As(err, &ve) {
		t.Fatalf("store failure must not be a client error: %v", err)
	}
}

func TestIngest_PublishesEvent(t *testing.T) {
	deps := newTestUC(t)
	data := newTestPNG(t, 40, 20)

	if _, err := deps.uc.Ingest(context.Background(), usecase.NewIngestImageReq(data, "image/png")); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if len(deps.events.events) != 1 {
		t.Fatalf("got %d events, want 1", len(deps.events.events))
	}
	ev := deps.events.events[0]
	if ev.Hash != domain.Fingerprint(data) {
		t.Errorf("event hash = %s", ev.Hash)
	}
	if ev.Width != 40 || ev.Height != 20 {
		t.Errorf("event dimensions = %dx%d", ev.Width, ev.Height)
	}
}

func TestIngest_EventFailureDoesNotFailIngest(t *testing.T) {
	deps := newTestUC(t)
	deps.events.fail = true

	if _, err := deps.uc.Ingest(context.Background(), usecase.NewIngestImageReq(newTestPNG(t, 16, 16), "image/png")); err != nil {
		t.Fatalf("ingest must not fail on event publish failure: %v", err)
	}
}

// RESOLVE

func ingestOne(t *testing.T, deps *testDeps, w, h int) string {
	t.Helper()
	data := newTestPNG(t, w, h)
	if _, err := deps.uc.Ingest(context.Background(), usecase.NewIngestImageReq(data, "image/png")); err != nil {
		t.Fatalf("ingest fixture: %v", err)
	}
	return domain.Fingerprint(data)
}

func TestResolve_Base(t *testing.T) {
	deps := newTestUC(t)
	hash := ingestOne(t, deps, 30, 20)
	path := "/" + hash + ".png"

	res, err := deps.uc.Resolve(context.Background(), usecase.NewResolveImageReq(path))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Cached {
		t.Error("first resolve reported a cache hit")
	}

	img, err := png.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("response is not a png: %v", err)
	}
	if img.Bounds().Dx() != 30 || img.Bounds().Dy() != 20 {
		t.Errorf("base resolve changed dimensions: %v", img.Bounds())
	}

	if _, ok := deps.writer.enqueued[path]; !ok {
		t.Error("resolved response was not scheduled for cache population")
	}
}

func TestResolve_UpscalesOnDemand(t *testing.T) {
	deps := newTestUC(t)
	hash := ingestOne(t, deps, 30, 20)

	res, err := deps.uc.Resolve(context.Background(), usecase.NewResolveImageReq("/"+hash+"_4x.png"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("response is not a png: %v", err)
	}
	if img.Bounds().Dx() != 120 || img.Bounds().Dy() != 80 {
		t.Errorf("4x resolve: got %v, want 120x80", img.Bounds())
	}
}

func TestResolve_AlwaysUpscalesFromCanonicalBase(t *testing.T) {
	deps := newTestUC(t)
	hash := ingestOne(t, deps, 30, 20)

	// Remove the pre-generated 2x derivative: the on-demand path must not
	// depend on it, it always recomputes from the scale-1 base.
	deps.store.mu.Lock()
	delete(deps.store.objects, domain.DerivativeKey(hash, 2, "png"))
	deps.store.mu.Unlock()

	res, err := deps.uc.Resolve(context.Background(), usecase.NewResolveImageReq("/"+hash+"_2x.png"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	img, _ := png.Decode(bytes.NewReader(res.Data))
	if img.Bounds().Dx() != 60 || img.Bounds().Dy() != 40 {
		t.Errorf("got %v, want 60x40", img.Bounds())
	}
}

func TestResolve_ScaleBeyondPyramid(t *testing.T) {
	deps := newTestUC(t)
	hash := ingestOne(t, deps, 30, 20)

	// No upper bound is applied to the requested scale; 32x was never
	// pre-generated but resolves anyway.
	res, err := deps.uc.Resolve(context.Background(), usecase.NewResolveImageReq("/"+hash+"_32x.png"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	img, _ := png.Decode(bytes.NewReader(res.Data))
	if img.Bounds().Dx() != 960 || img.Bounds().Dy() != 640 {
		t.Errorf("got %v, want 960x640", img.Bounds())
	}
}

func TestResolve_NotFound(t *testing.T) {
	deps := newTestUC(t)
	hash := ingestOne(t, deps, 10, 10)
	missing := "0000000000000000000000000000000000000000000000000000000000000000"

	cases := map[string]string{
		"unmatched path":           "/not-a-derivative",
		"wrong extension":          "/" + hash + ".gif",
		"unknown hash":             "/" + missing + ".png",
		"unknown hash with scale":  "/" + missing + "_8x.png",
		"uppercase hash":           "/ABC" + hash[3:] + ".png",
		"scale suffix without 'x'": "/" + hash + "_2.png",
	}

	for name, path := range cases {
		if _, err := deps.uc.Resolve(context.Background(), usecase.NewResolveImageReq(path)); !errors.Is(err, e.ErrNotFound) {
			t.Errorf("%s: got %v, want ErrNotFound", name, err)
		}
	}
}

func TestResolve_CacheHit(t *testing.T) {
	deps := newTestUC(t)
	path := "/cachedpath.png"
	cachedBody := []byte("cached response bytes")
	deps.cache.entries[path] = cachedBody

	res, err := deps.uc.Resolve(context.Background(), usecase.NewResolveImageReq(path))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !res.Cached {
		t.Error("expected a cache hit")
	}
	if !bytes.Equal(res.Data, cachedBody) {
		t.Error("cache hit returned different bytes")
	}
}

func TestResolve_CacheLookupFailureIsMiss(t *testing.T) {
	deps := newTestUC(t)
	hash := ingestOne(t, deps, 10, 10)
	deps.cache.failGet = true

	res, err := deps.uc.Resolve(context.Background(), usecase.NewResolveImageReq("/"+hash+".png"))
	if err != nil {
		t.Fatalf("cache failure must not fail the request: %v", err)
	}
	if res.Cached {
		t.Error("failing cache reported a hit")
	}
}

func TestResolve_StoreFailureIsServerError(t *testing.T) {
	deps := newTestUC(t)
	hash := ingestOne(t, deps, 10, 10)
	deps.store.failGets = true

	_, err := deps.uc.Resolve(context.Background(), usecase.NewResolveImageReq("/"+hash+".png"))
	if err == nil || errors.Is(err, e.ErrNotFound) {
		t.Fatalf("store failure must not masquerade as NotFound: %v", err)
	}
}
