package prefetch

import "fmt"

// RequestQueue is a bounded FIFO of prefetch requests. When the queue is
// full, a new request pushes out the oldest one.
type RequestQueue struct {
	capacity int
	filter   bool
	requests []*Request
}

// NewRequestQueue creates a queue that holds at most capacity requests. If
// filter is set, requests whose address is already queued are dropped.
func NewRequestQueue(capacity int, filter bool) *RequestQueue {
	if capacity <= 0 {
		panic(fmt.Sprintf("invalid request queue capacity %d", capacity))
	}

	return &RequestQueue{
		capacity: capacity,
		filter:   filter,
		requests: make([]*Request, 0, capacity),
	}
}

// Len returns the number of queued requests.
func (q *RequestQueue) Len() int {
	return len(q.requests)
}

// Capacity returns the maximum number of queued requests.
func (q *RequestQueue) Capacity() int {
	return q.capacity
}

// Contains returns true if a request for the address is queued.
func (q *RequestQueue) Contains(address uint64) bool {
	for _, req := range q.requests {
		if req.Address == address {
			return true
		}
	}

	return false
}

// IsDuplicate returns true if filtering is enabled and a request for the
// address is already queued.
func (q *RequestQueue) IsDuplicate(address uint64) bool {
	return q.filter && q.Contains(address)
}

// Offer appends a request at the tail. Duplicates are dropped when
// filtering is enabled, in which case accepted is false. If the queue was
// full, the oldest request is removed and returned as evicted.
func (q *RequestQueue) Offer(req *Request) (accepted bool, evicted *Request) {
	if q.IsDuplicate(req.Address) {
		return false, nil
	}

	if len(q.requests) == q.capacity {
		evicted = q.Pop()
	}

	q.requests = append(q.requests, req)

	return true, evicted
}

// Peek returns the oldest request, or nil if the queue is empty.
func (q *RequestQueue) Peek() *Request {
	if len(q.requests) == 0 {
		return nil
	}

	return q.requests[0]
}

// Pop removes and returns the oldest request. It panics if the queue is
// empty.
func (q *RequestQueue) Pop() *Request {
	if len(q.requests) == 0 {
		panic("pop from an empty prefetch queue")
	}

	req := q.requests[0]
	q.requests[0] = nil
	q.requests = q.requests[1:]

	return req
}

// Addresses returns the queued addresses from oldest to newest.
func (q *RequestQueue) Addresses() []uint64 {
	addrs := make([]uint64, len(q.requests))
	for i, req := range q.requests {
		addrs[i] = req.Address
	}

	return addrs
}

// Reset drops all queued requests.
func (q *RequestQueue) Reset() {
	q.requests = make([]*Request, 0, q.capacity)
}
