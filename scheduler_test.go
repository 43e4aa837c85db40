package conductor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultScheduler_RunOnce tests the scheduler in run-once mode
func TestDefaultScheduler_RunOnce(t *testing.T) {
	logger := log.New()
	callCount := 0

	scheduler := NewDefaultScheduler(100*time.Millisecond, true, logger)
	scheduler.RegisterCallback(func() error {
		callCount++
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := scheduler.Start(ctx)
	require.NoError(t, err)

	// In run-once mode, the callback should be called exactly once immediately
	assert.Equal(t, 1, callCount, "Expected callback to be called exactly once")

	// Wait a bit to make sure no more calls happen
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, callCount, "Expected callback to be called exactly once")
}

// TestDefaultScheduler_Periodic tests the scheduler in periodic mode
func TestDefaultScheduler_Periodic(t *testing.T) {
	logger := log.New()

	callChan := make(chan struct{}, 10)
	expectedCalls := 3

	scheduler := NewDefaultScheduler(10*time.Millisecond, false, logger)
	scheduler.RegisterCallback(func() error {
		callChan <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := scheduler.Start(ctx)
	require.NoError(t, err)

	// Wait for the expected number of calls (one immediate, rest periodic)
	timeout := time.After(2 * time.Second)
	for i := 0; i < expectedCalls; i++ {
		select {
		case <-callChan:
		case <-timeout:
			t.Fatalf("timed out waiting for callback call %d", i+1)
		}
	}

	require.NoError(t, scheduler.Stop())
	require.NoError(t, scheduler.WaitForShutdown(context.Background()))
	assert.True(t, scheduler.Stopped())
}

// TestDefaultScheduler_CallbackRequired verifies Start fails without a callback
func TestDefaultScheduler_CallbackRequired(t *testing.T) {
	scheduler := NewDefaultScheduler(time.Second, true, log.New())
	assert.Error(t, scheduler.Start(context.Background()))
}

// TestDefaultScheduler_StartError verifies a failing first run is surfaced
func TestDefaultScheduler_StartError(t *testing.T) {
	scheduler := NewDefaultScheduler(time.Second, true, log.New())
	wantErr := errors.New("suite broke")
	scheduler.RegisterCallback(func() error { return wantErr })

	assert.ErrorIs(t, scheduler.Start(context.Background()), wantErr)
}

// TestDefaultScheduler_StopIdempotent verifies Stop can be called repeatedly
func TestDefaultScheduler_StopIdempotent(t *testing.T) {
	scheduler := NewDefaultScheduler(time.Hour, false, log.New())
	scheduler.RegisterCallback(func() error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, scheduler.Start(ctx))
	require.NoError(t, scheduler.Stop())
	require.NoError(t, scheduler.Stop())
	assert.True(t, scheduler.Stopped())
}
