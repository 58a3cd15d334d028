package frontier

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/endabyss/endabyss/internal/model"
)

func TestPushDedupesByMethodAndURL(t *testing.T) {
	f := New()
	require.True(t, f.Push(model.Task{URL: "http://h/a", Method: "GET"}, "http://h/a"))
	require.False(t, f.Push(model.Task{URL: "http://h/a", Method: "GET"}, "http://h/a"))
	require.True(t, f.Push(model.Task{URL: "http://h/a", Method: "POST"}, "http://h/a"))
	require.Equal(t, 2, f.Len())
}

func TestPopReturnsFalseWhenDrainedAndIdle(t *testing.T) {
	f := New()
	_, ok := f.Pop()
	require.False(t, ok)
}

func TestPopBlocksUntilPushThenDrains(t *testing.T) {
	f := New()
	f.Push(model.Task{URL: "http://h/seed", Method: "GET"}, "http://h/seed")

	task, ok := f.Pop()
	require.True(t, ok)
	require.Equal(t, "http://h/seed", task.URL)

	// Simulate the worker discovering one child before marking Done.
	var wg sync.WaitGroup
	wg.Add(1)
	popped := make(chan bool, 1)
	go func() {
		defer wg.Done()
		_, ok := f.Pop()
		popped <- ok
	}()

	time.Sleep(10 * time.Millisecond) // let the goroutine block in Pop
	f.Push(model.Task{URL: "http://h/child", Method: "GET"}, "http://h/child")
	f.Done()

	wg.Wait()
	require.True(t, <-popped)
}

func TestPopUnblocksToFalseWhenLastInFlightFinishesEmpty(t *testing.T) {
	f := New()
	f.Push(model.Task{URL: "http://h/seed", Method: "GET"}, "http://h/seed")
	_, ok := f.Pop()
	require.True(t, ok)

	done := make(chan bool, 1)
	go func() {
		_, ok := f.Pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	f.Done() // no new pushes, queue empty, inFlight drops to 0

	require.False(t, <-done)
}

func TestCloseUnblocksPop(t *testing.T) {
	f := New()
	f.Push(model.Task{URL: "http://h/seed", Method: "GET"}, "http://h/seed")
	f.Pop()

	done := make(chan bool, 1)
	go func() {
		_, ok := f.Pop()
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	f.Close()
	require.False(t, <-done)
}
