package llm

import (
	"context"
	"sync"
)

// Fake replays canned replies and records requests.
type Fake struct {
	// Reply is returned when Replies is exhausted.
	Reply string
	Err   error
	// Replies are consumed in order.
	Replies []string
	// Hook, if set, runs before every call and may panic or block.
	Hook func(ctx context.Context, r Request)

	mu       sync.Mutex
	requests []Request
}

func (f *Fake) Chat(ctx context.Context, r Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, r)
	var reply string
	if len(f.Replies) > 0 {
		reply, f.Replies = f.Replies[0], f.Replies[1:]
	} else {
		reply = f.Reply
	}
	f.mu.Unlock()

	if f.Hook != nil {
		f.Hook(ctx, r)
	}
	if f.Err != nil {
		return "", f.Err
	}
	if reply == "" {
		return "", ErrEmptyResponse
	}
	return reply, nil
}

func (f *Fake) Model() string {
	return "fake"
}

func (f *Fake) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}
