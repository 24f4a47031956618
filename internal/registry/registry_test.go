// internal/registry/registry_test.go
package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func three(t *testing.T) *Registry {
	t.Helper()

	r, err := New([]Intersection{
		{ID: "esp1", Address: "10.0.0.1"},
		{ID: "esp2", Address: "10.0.0.2"},
		{ID: "esp3", Address: "10.0.0.3"},
	})
	require.NoError(t, err)
	return r
}

func TestNew_InitialState(t *testing.T) {
	r := three(t)

	require.Equal(t, 3, r.Len())
	for _, in := range r.Snapshot() {
		assert.Equal(t, StatusUnknown, in.Status)
		assert.Nil(t, in.LastCapture)
	}
}

func TestNew_Rejects(t *testing.T) {
	_, err := New([]Intersection{{ID: "a"}})
	require.ErrorIs(t, err, ErrTooSmall)

	_, err = New([]Intersection{{ID: "a"}, {ID: "a"}})
	require.Error(t, err)

	_, err = New([]Intersection{{ID: "a"}, {ID: ""}})
	require.Error(t, err)
}

func TestAt_Wraps(t *testing.T) {
	r := three(t)

	assert.Equal(t, "esp1", r.At(3).ID)
	assert.Equal(t, "esp3", r.At(-1).ID)
	assert.Equal(t, 1, r.IndexOf("esp2"))
	assert.Equal(t, -1, r.IndexOf("nope"))
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	r := three(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r.MarkCaptured(0, at)

	snap := r.Snapshot()
	*snap[0].LastCapture = at.Add(time.Hour)
	snap[0].Status = "tampered"

	fresh := r.At(0)
	require.NotNil(t, fresh.LastCapture)
	assert.True(t, fresh.LastCapture.Equal(at))
	assert.Equal(t, StatusUnknown, fresh.Status)
}

func TestConcurrentReadWrite(t *testing.T) {
	r := three(t)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			r.SetStatus(i, "GREEN (5s)")
			r.MarkCaptured(i, time.Now())
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = r.Snapshot()
		}
	}()

	wg.Wait()
	assert.Equal(t, "GREEN (5s)", r.At(0).Status)
}
