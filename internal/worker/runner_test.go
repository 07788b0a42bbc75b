package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenewLeaseRenewsUntilCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	renewed := make(chan struct{}, 16)
	done := make(chan struct{})
	go func() {
		renewLease(ctx, time.Millisecond, func(context.Context) (bool, error) {
			calls.Add(1)
			select {
			case renewed <- struct{}{}:
			default:
			}
			return true, nil
		})
		close(done)
	}()

	// 至少续期两次后取消
	for i := 0; i < 2; i++ {
		select {
		case <-renewed:
		case <-time.After(time.Second):
			t.Fatal("renew not called in time")
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("renewLease did not stop after cancel")
	}

	n := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, calls.Load())
}

func TestRenewLeaseStopsWhenLockLost(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		renewLease(context.Background(), time.Millisecond, func(context.Context) (bool, error) {
			calls.Add(1)
			return false, nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("renewLease did not stop after losing the lock")
	}
	require.EqualValues(t, 1, calls.Load())
}

func TestRenewLeaseStopsOnError(t *testing.T) {
	done := make(chan struct{})
	go func() {
		renewLease(context.Background(), time.Millisecond, func(context.Context) (bool, error) {
			return false, errors.New("connection refused")
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("renewLease did not stop after renew error")
	}
}
