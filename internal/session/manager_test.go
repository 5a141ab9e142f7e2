package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileshell/util"
)

func newManager(idle time.Duration) *Manager {
	return NewManager(idle, util.NewLogger(0), nil)
}

func TestGetOrCreate(t *testing.T) {
	m := newManager(time.Minute)

	s1, created := m.GetOrCreate("10.0.0.1:5000")
	assert.True(t, created)
	assert.NotEmpty(t, s1.ID)
	assert.Equal(t, "", s1.CWD)

	s2, created := m.GetOrCreate("10.0.0.1:5000")
	assert.False(t, created)
	assert.Same(t, s1, s2)

	s3, created := m.GetOrCreate("10.0.0.2:5000")
	assert.True(t, created)
	assert.NotSame(t, s1, s3)
	assert.Equal(t, 2, m.Len())
}

func TestRemoveClosesTransfer(t *testing.T) {
	m := newManager(time.Minute)
	s, _ := m.GetOrCreate("c1")

	f, err := os.Create(filepath.Join(t.TempDir(), "up.bin"))
	require.NoError(t, err)

	s.Lock()
	s.Transfer = NewUpload(f, "up.bin", 100)
	s.Unlock()

	m.Remove("c1")
	assert.Equal(t, 0, m.Len())

	// The handle is released: a second Close errors.
	assert.Error(t, f.Close())
}

func TestExpireIdle(t *testing.T) {
	m := newManager(50 * time.Millisecond)

	stale, _ := m.GetOrCreate("stale")
	f, err := os.Create(filepath.Join(t.TempDir(), "partial.bin"))
	require.NoError(t, err)
	stale.Lock()
	stale.Transfer = NewUpload(f, "partial.bin", 1000)
	stale.Unlock()

	fresh, _ := m.GetOrCreate("fresh")

	later := time.Now().Add(100 * time.Millisecond)
	fresh.Lock()
	fresh.Touch(later)
	fresh.Unlock()

	n := m.ExpireIdle(later)
	assert.Equal(t, 1, n)

	_, ok := m.Get("stale")
	assert.False(t, ok, "stale session must be gone")
	_, ok = m.Get("fresh")
	assert.True(t, ok, "fresh session must survive")

	// The stale session's transfer handle was released.
	assert.Error(t, f.Close())
}

func TestExpireIdleWaitsForInFlightRequest(t *testing.T) {
	m := newManager(time.Nanosecond)
	s, _ := m.GetOrCreate("busy")

	// Simulate an in-flight request holding the session.
	s.Lock()
	done := make(chan int)
	go func() {
		done <- m.ExpireIdle(time.Now().Add(time.Hour))
	}()

	// The sweeper is blocked on the session lock; refresh activity and
	// release.
	time.Sleep(20 * time.Millisecond)
	s.Touch(time.Now().Add(2 * time.Hour))
	s.Unlock()

	if n := <-done; n != 0 {
		t.Errorf("sweeper evicted a session that was active while locked (n=%d)", n)
	}
}

func TestTransferCloseIsIdempotent(t *testing.T) {
	var tr *Transfer
	assert.NoError(t, tr.Close(), "nil transfer close must be a no-op")

	f, err := os.Create(filepath.Join(t.TempDir(), "x"))
	require.NoError(t, err)
	tr = NewDownload(f, "x", 0)
	assert.NoError(t, tr.Close())
	assert.NoError(t, tr.Close(), "second close must be a no-op")
}
