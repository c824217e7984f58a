package loopaudio

import (
	"testing"
	"time"
)

func block(v float32) Block {
	return Block{[]float32{v}}
}

func TestBlockQueueOrder(t *testing.T) {
	q := newBlockQueue(3)
	for _, v := range []float32{1, 2, 3} {
		if !q.Push(block(v)) {
			t.Fatalf("Push refused a block on an open queue")
		}
	}
	if got := q.Len(); got != 3 {
		t.Fatalf("Len() got %v, want 3", got)
	}
	for _, want := range []float32{1, 2, 3} {
		b, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop failed on a non-empty queue")
		}
		if got := b[0][0]; got != want {
			t.Errorf("TryPop got block %v, want %v", got, want)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Errorf("TryPop succeeded on an empty queue")
	}
}

func TestBlockQueueFlush(t *testing.T) {
	q := newBlockQueue(4)
	q.Push(block(1))
	q.Push(block(2))
	sentinel := Block{nil}
	q.Flush(sentinel)
	if got := q.Len(); got != 1 {
		t.Fatalf("Len() after Flush got %v, want 1", got)
	}
	b, ok := q.TryPop()
	if !ok {
		t.Fatalf("TryPop failed after Flush")
	}
	if len(b[0]) != 0 {
		t.Errorf("Flush did not replace the queue contents with the sentinel")
	}
}

func TestBlockQueueBackpressure(t *testing.T) {
	q := newBlockQueue(1)
	q.Push(block(1))
	pushed := make(chan bool)
	go func() {
		pushed <- q.Push(block(2))
	}()
	select {
	case <-pushed:
		t.Fatalf("Push did not block on a full queue")
	case <-time.After(10 * time.Millisecond):
	}
	if b, ok := q.TryPop(); !ok || b[0][0] != 1 {
		t.Fatalf("TryPop got (%v, %v), want block 1", b, ok)
	}
	if !<-pushed {
		t.Fatalf("the blocked Push was refused after room opened up")
	}
	if b, ok := q.TryPop(); !ok || b[0][0] != 2 {
		t.Fatalf("TryPop got (%v, %v), want block 2", b, ok)
	}
}

func TestBlockQueueCloseFreesProducer(t *testing.T) {
	q := newBlockQueue(1)
	q.Push(block(1))
	pushed := make(chan bool)
	go func() {
		pushed <- q.Push(block(2))
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	if <-pushed {
		t.Fatalf("Push succeeded on a closed queue")
	}
	if q.Push(block(3)) {
		t.Fatalf("Push succeeded on a closed queue")
	}
}
