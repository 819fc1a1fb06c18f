package db

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]ActionEvent
}

func (s *recordingSink) BatchRecordActions(_ context.Context, events []ActionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]ActionEvent(nil), events...))
	return nil
}

func (s *recordingSink) total() (batches, events int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.batches {
		events += len(b)
	}
	return len(s.batches), events
}

func TestRunActionWriter_FlushesFullBatch(t *testing.T) {
	sink := &recordingSink{}
	buffer := make(chan ActionEvent, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go RunActionWriter(ctx, sink, buffer)

	for i := range batchSize {
		buffer <- ActionEvent{SessionID: "s", ActionIndex: i}
	}

	deadline := time.Now().Add(time.Second)
	for {
		if _, n := sink.total(); n == batchSize {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("full batch never flushed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunActionWriter_FlushesOnTicker(t *testing.T) {
	sink := &recordingSink{}
	buffer := make(chan ActionEvent, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go RunActionWriter(ctx, sink, buffer)

	buffer <- ActionEvent{SessionID: "s"}
	buffer <- ActionEvent{SessionID: "s", ActionIndex: 1}

	deadline := time.Now().Add(3 * flushInterval)
	for {
		if _, n := sink.total(); n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("partial batch never flushed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRunActionWriter_FlushesOnShutdown(t *testing.T) {
	sink := &recordingSink{}
	buffer := make(chan ActionEvent, 10)
	for i := range 3 {
		buffer <- ActionEvent{SessionID: "s", ActionIndex: i}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		RunActionWriter(ctx, sink, buffer)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("writer did not stop")
	}
	if _, n := sink.total(); n != 3 {
		t.Errorf("flushed %d events on shutdown, want 3", n)
	}
}
