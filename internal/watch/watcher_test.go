package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockRev struct {
	mu  sync.Mutex
	rev int64
	err error
}

func (m *mockRev) Revision() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rev, m.err
}

func (m *mockRev) bump() {
	m.mu.Lock()
	m.rev++
	m.mu.Unlock()
}

type mockReloader struct {
	calls atomic.Int32
	err   error
}

func (m *mockReloader) Reload() (bool, error) {
	m.calls.Add(1)
	return m.err == nil, m.err
}

func TestCheckOnce_ReloadsOnlyOnChange(t *testing.T) {
	rev := &mockRev{rev: 7}
	target := &mockReloader{}
	w := New(rev, target)

	changed, err := w.CheckOnce()
	require.NoError(t, err)
	assert.False(t, changed, "first check primes the revision")

	changed, err = w.CheckOnce()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, int32(0), target.calls.Load())

	rev.bump()
	changed, err = w.CheckOnce()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, int32(1), target.calls.Load())
}

func TestCheckOnce_Errors(t *testing.T) {
	rev := &mockRev{err: errors.New("db closed")}
	w := New(rev, &mockReloader{})
	_, err := w.CheckOnce()
	assert.ErrorContains(t, err, "db closed")

	rev = &mockRev{}
	target := &mockReloader{err: errors.New("decode")}
	w = New(rev, target)
	_, err = w.CheckOnce()
	require.NoError(t, err)
	rev.bump()
	_, err = w.CheckOnce()
	assert.ErrorContains(t, err, "decode")
}

func TestRun_PollsAndStops(t *testing.T) {
	rev := &mockRev{}
	target := &mockReloader{}
	w := New(rev, target, WithPollInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.primed
	}, time.Second, 5*time.Millisecond)

	rev.bump()
	assert.Eventually(t, func() bool { return target.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_FileEvents(t *testing.T) {
	dir := t.TempDir()
	rev := &mockRev{}
	target := &mockReloader{}
	// Long poll so only the file event can trigger the reload.
	w := New(rev, target, WithDir(dir, "nextstep.db"), WithPollInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.primed
	}, time.Second, 5*time.Millisecond)

	rev.bump()
	// Unrelated files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), target.calls.Load())

	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "nextstep.db-wal"), []byte("x"), 0o600)
		return target.calls.Load() == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRun_MissingDirFallsBackToPolling(t *testing.T) {
	rev := &mockRev{}
	target := &mockReloader{}
	w := New(rev, target,
		WithDir(filepath.Join(t.TempDir(), "missing"), ""),
		WithPollInterval(10*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.primed
	}, time.Second, 5*time.Millisecond)
	rev.bump()
	assert.Eventually(t, func() bool { return target.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
