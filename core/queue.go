package core

import "sync"

// queueItem is one raw message, or the end-of-stream marker.
type queueItem struct {
	raw string
	eof bool
}

// messageQueue is the FIFO between segmentation and delivery. It is the
// only lock-guarded state of a Reader; handlers never run under its lock.
type messageQueue struct {
	mu    sync.Mutex
	items []queueItem
	head  int
}

func (q *messageQueue) push(items ...queueItem) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()
}

func (q *messageQueue) pushMessages(msgs []string) {
	if len(msgs) == 0 {
		return
	}
	q.mu.Lock()
	for _, msg := range msgs {
		q.items = append(q.items, queueItem{raw: msg})
	}
	q.mu.Unlock()
}

func (q *messageQueue) pop() (queueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head >= len(q.items) {
		return queueItem{}, false
	}
	item := q.items[q.head]
	q.items[q.head] = queueItem{}
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return item, true
}

func (q *messageQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

func (q *messageQueue) clear() {
	q.mu.Lock()
	q.items = nil
	q.head = 0
	q.mu.Unlock()
}
