package pwa

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource hands out a worker for whatever version is currently "deployed".
type stubSource struct {
	mu      sync.Mutex
	version int
	caches  *CacheStorage
	fetcher Fetcher
}

func (s *stubSource) Latest() *Worker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version == 0 {
		return nil
	}
	return newTestWorker(s.version, s.fetcher, s.caches)
}

func (s *stubSource) deploy(version int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = version
}

type reloadCounter struct {
	mu    sync.Mutex
	count int
}

func (c *reloadCounter) reload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

func (c *reloadCounter) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func newTestRegistration(t *testing.T) (*Registration, *stubSource, *reloadCounter) {
	t.Helper()
	source := &stubSource{caches: NewCacheStorage(), fetcher: newStubFetcher()}
	reloads := &reloadCounter{}
	reg := NewRegistration(source, reloads.reload, 0, testLogger())
	return reg, source, reloads
}

func TestRegistration_Register_FirstWorkerTakesControlWithoutReload(t *testing.T) {
	reg, source, reloads := newTestRegistration(t)
	source.deploy(1)

	require.NoError(t, reg.Register(context.Background()))

	controller := reg.Controller()
	require.NotNil(t, controller)
	assert.Equal(t, 1, controller.Version())
	assert.Equal(t, StateActivated, controller.State())
	// The very first controller claims a page that had none; no reload.
	assert.Equal(t, 0, reloads.total())
}

func TestRegistration_Register_NoWorkerAvailable(t *testing.T) {
	reg, _, reloads := newTestRegistration(t)

	require.NoError(t, reg.Register(context.Background()))

	assert.Nil(t, reg.Controller())
	assert.Equal(t, 0, reloads.total())
}

func TestRegistration_Update_NewVersionReloadsExactlyOnce(t *testing.T) {
	reg, source, reloads := newTestRegistration(t)
	ctx := context.Background()
	source.deploy(1)
	require.NoError(t, reg.Register(ctx))
	previous := reg.Controller()

	source.deploy(2)
	require.NoError(t, reg.Update(ctx))

	controller := reg.Controller()
	require.NotNil(t, controller)
	assert.Equal(t, 2, controller.Version())
	assert.Equal(t, 1, reloads.total())
	assert.Equal(t, StateRedundant, previous.State())
}

func TestRegistration_Update_ReloadLatchHoldsAcrossUpgrades(t *testing.T) {
	reg, source, reloads := newTestRegistration(t)
	ctx := context.Background()
	source.deploy(1)
	require.NoError(t, reg.Register(ctx))

	source.deploy(2)
	require.NoError(t, reg.Update(ctx))
	source.deploy(3)
	require.NoError(t, reg.Update(ctx))

	// One reload per registration lifetime; after the first the page is
	// already refreshing.
	assert.Equal(t, 1, reloads.total())
	assert.Equal(t, 3, reg.Controller().Version())
}

func TestRegistration_Update_SameVersionSkipped(t *testing.T) {
	reg, source, reloads := newTestRegistration(t)
	ctx := context.Background()
	source.deploy(2)
	require.NoError(t, reg.Register(ctx))
	controller := reg.Controller()

	require.NoError(t, reg.Update(ctx))

	// The same deployment must not be reinstalled.
	assert.Same(t, controller, reg.Controller())
	assert.Equal(t, 0, reloads.total())
}

func TestRegistration_Update_OlderVersionSkipped(t *testing.T) {
	reg, source, reloads := newTestRegistration(t)
	ctx := context.Background()
	source.deploy(3)
	require.NoError(t, reg.Register(ctx))

	source.deploy(2)
	require.NoError(t, reg.Update(ctx))

	assert.Equal(t, 3, reg.Controller().Version())
	assert.Equal(t, 0, reloads.total())
}

func TestRegistration_Update_MigrationLeavesSingleBucket(t *testing.T) {
	reg, source, _ := newTestRegistration(t)
	ctx := context.Background()
	source.deploy(1)
	require.NoError(t, reg.Register(ctx))

	source.deploy(2)
	require.NoError(t, reg.Update(ctx))

	assert.Equal(t, []string{BucketName(2)}, source.caches.Keys())
}

func TestRegistration_ControllerVersion(t *testing.T) {
	reg, source, _ := newTestRegistration(t)
	ctx := context.Background()
	source.deploy(5)
	require.NoError(t, reg.Register(ctx))

	version, err := reg.ControllerVersion(ctx)

	require.NoError(t, err)
	assert.Equal(t, 5, version)
}

func TestRegistration_ControllerVersion_NoController(t *testing.T) {
	reg, _, _ := newTestRegistration(t)

	_, err := reg.ControllerVersion(context.Background())

	assert.ErrorIs(t, err, ErrNoController)
}
