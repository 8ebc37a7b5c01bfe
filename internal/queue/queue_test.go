package queue

import "testing"

func TestPushTryPopFIFOOrder(t *testing.T) {
	q := NewUnbounded[int]()
	q.Push(1)
	q.Push(2)
	q.Push(3)

	for _, want := range []int{1, 2, 3} {
		got, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop reported empty, wanted %d", want)
		}
		if got != want {
			t.Errorf("TryPop = %d, want %d", got, want)
		}
	}

	if _, ok := q.TryPop(); ok {
		t.Error("TryPop on empty queue should report false")
	}
}

func TestPushSignalsWait(t *testing.T) {
	q := NewUnbounded[string]()
	q.Push("hello")

	select {
	case <-q.Wait():
	default:
		t.Fatal("Push did not signal the doorbell channel")
	}

	v, ok := q.TryPop()
	if !ok || v != "hello" {
		t.Fatalf("TryPop = %q, %v, want \"hello\", true", v, ok)
	}
}

func TestPushNeverBlocksWhenDoorbellAlreadyFull(t *testing.T) {
	q := NewUnbounded[int]()
	q.Push(1) // fills the 1-buffered doorbell
	q.Push(2) // must not block even though the doorbell has no room left

	if got := q.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
}
