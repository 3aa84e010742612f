package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBindTakesCallerDeadline(t *testing.T) {
	s := &chromeSession{ctx: context.Background()}

	deadline := time.Now().Add(time.Hour)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	runCtx, done := s.bind(ctx)
	defer done()

	got, ok := runCtx.Deadline()
	require.True(t, ok)
	require.True(t, got.Equal(deadline))
	require.NoError(t, runCtx.Err())
}

func TestBindWithoutDeadline(t *testing.T) {
	s := &chromeSession{ctx: context.Background()}

	runCtx, done := s.bind(context.Background())
	defer done()

	_, ok := runCtx.Deadline()
	require.False(t, ok)
	require.NoError(t, runCtx.Err())
}

func TestBindEndsWithCaller(t *testing.T) {
	s := &chromeSession{ctx: context.Background()}

	ctx, cancel := context.WithCancel(context.Background())
	runCtx, done := s.bind(ctx)
	defer done()

	cancel()
	select {
	case <-runCtx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("bound context outlived its caller")
	}
}

func TestBindEndsWithTab(t *testing.T) {
	tabCtx, closeTab := context.WithCancel(context.Background())
	s := &chromeSession{ctx: tabCtx}

	runCtx, done := s.bind(context.Background())
	defer done()

	closeTab()
	select {
	case <-runCtx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("bound context outlived the tab")
	}
}

func TestBindDoneReleasesContext(t *testing.T) {
	s := &chromeSession{ctx: context.Background()}

	runCtx, done := s.bind(context.Background())
	done()

	require.ErrorIs(t, runCtx.Err(), context.Canceled)
}

func TestBindCallerDeadlineExpires(t *testing.T) {
	s := &chromeSession{ctx: context.Background()}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	runCtx, done := s.bind(ctx)
	defer done()

	select {
	case <-runCtx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("bound context outlived the caller's deadline")
	}
	require.Error(t, runCtx.Err())
}
