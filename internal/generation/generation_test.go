package generation

import (
	"sync"
	"testing"
)

func TestNextInvalidatesOlderTokens(t *testing.T) {
	var c Counter
	first := c.Next()
	if !c.Current(first) {
		t.Fatal("fresh token should be current")
	}
	second := c.Next()
	if c.Current(first) {
		t.Error("first token should be stale after Next")
	}
	if !c.Current(second) {
		t.Error("second token should be current")
	}
	if c.Peek() != second {
		t.Errorf("Peek = %d, want %d", c.Peek(), second)
	}
}

func TestZeroTokenStaleAfterNext(t *testing.T) {
	var c Counter
	var zero Token
	if !c.Current(zero) {
		t.Error("zero token is current before any Next")
	}
	c.Next()
	if c.Current(zero) {
		t.Error("zero token should be stale after Next")
	}
}

func TestConcurrentNextIsMonotonic(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Next()
		}()
	}
	wg.Wait()
	if c.Peek() != 50 {
		t.Errorf("Peek = %d, want 50", c.Peek())
	}
}
