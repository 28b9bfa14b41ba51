package main

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStopOnSignal(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	stopped := make(chan struct{})
	returned := make(chan struct{})
	go func() {
		stopOnSignal(sigCh, done, func() { close(stopped) })
		close(returned)
	}()

	sigCh <- syscall.SIGINT
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop was not called")
	}
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not return")
	}
}

func TestStopOnSignalReturnsWhenDone(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	returned := make(chan struct{})
	calls := 0
	go func() {
		stopOnSignal(sigCh, done, func() { calls++ })
		close(returned)
	}()

	close(done)
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("goroutine leaked after run returned")
	}
	assert.Zero(t, calls)
}
