// Package generation implements "newest request wins" cancellation with a
// monotonically increasing counter.
//
// A caller takes a Token with Next before starting asynchronous work and
// checks Current at the single point where the finished work is about to
// mutate shared state. Any later Next invalidates every earlier token.
package generation

import "sync/atomic"

// Token identifies one generation. The zero Token is never current once
// Next has been called.
type Token uint64

// Counter hands out tokens. The zero value is ready to use and safe for
// concurrent use.
type Counter struct {
	n atomic.Uint64
}

// Next invalidates all outstanding tokens and returns a fresh one.
func (c *Counter) Next() Token {
	return Token(c.n.Add(1))
}

// Current reports whether t is still the newest token.
func (c *Counter) Current(t Token) bool {
	return Token(c.n.Load()) == t
}

// Peek returns the newest token without invalidating it.
func (c *Counter) Peek() Token {
	return Token(c.n.Load())
}
