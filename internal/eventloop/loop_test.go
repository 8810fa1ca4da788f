//go:build linux

package eventloop

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func socketPair(t *testing.T) (a, b int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			t.Fatalf("SetNonblock: %v", err)
		}
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestRegisterFiresOnReadable(t *testing.T) {
	a, b := socketPair(t)

	loop, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer loop.Close()

	got := make(chan EventMask, 1)
	if err := loop.Register(a, Readable, func(fd int, ready EventMask) {
		got <- ready
		loop.Stop()
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	if _, err := unix.Write(b, []byte("hi")); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case ready := <-got:
		if ready&Readable == 0 {
			t.Fatalf("expected Readable, got %v", ready)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for readable callback")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestStopWakesIdleLoop(t *testing.T) {
	loop, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer loop.Close()

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	time.Sleep(20 * time.Millisecond)
	loop.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not wake an idle Run")
	}
}

func TestUnregisterStopsCallbacks(t *testing.T) {
	a, b := socketPair(t)

	loop, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer loop.Close()

	calls := 0
	if err := loop.Register(a, Readable, func(fd int, ready EventMask) {
		calls++
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := loop.Unregister(a); err != nil {
		t.Fatalf("Unregister: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	unix.Write(b, []byte("hi"))
	time.Sleep(50 * time.Millisecond)
	loop.Stop()
	<-done

	if calls != 0 {
		t.Fatalf("callback fired %d times after Unregister", calls)
	}
}

func TestResetAllowsAnotherRunPass(t *testing.T) {
	loop, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer loop.Close()

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()
	time.Sleep(20 * time.Millisecond)
	loop.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first Run never stopped")
	}

	loop.Reset()

	done2 := make(chan error, 1)
	go func() { done2 <- loop.Run() }()
	time.Sleep(20 * time.Millisecond)
	loop.Stop()

	select {
	case err := <-done2:
		if err != nil {
			t.Fatalf("second Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second Run after Reset never stopped (stale wake byte or stopped latch not cleared)")
	}
}
