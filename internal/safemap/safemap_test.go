package safemap

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestLoadOrStoreCreatesOnce(t *testing.T) {
	m := NewSafeMap[string, *int]()
	var calls atomic.Int32

	var wg sync.WaitGroup
	results := make([]*int, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.LoadOrStore("k", func() *int {
				calls.Add(1)
				v := 42
				return &v
			})
		}(i)
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("create called %d times", calls.Load())
	}
	for _, r := range results {
		if r != results[0] {
			t.Fatal("callers got different values")
		}
	}
}

func TestLoad(t *testing.T) {
	m := NewSafeMap[string, int]()
	if _, ok := m.Load("a"); ok {
		t.Fatal("empty map returned a value")
	}
	m.LoadOrStore("a", func() int { return 1 })
	if v := m.LoadOrStore("a", func() int { return 2 }); v != 1 {
		t.Fatalf("LoadOrStore replaced the value: %d", v)
	}
	if v, ok := m.Load("a"); !ok || v != 1 {
		t.Fatalf("Load(a) = %d, %v", v, ok)
	}
}
