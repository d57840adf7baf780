package scheduler

import "container/heap"

// windowHeap is a min-heap of pending run windows keyed on TriggerAt,
// so the next window to open is always at the root.
type windowHeap []WindowEvent

func (h windowHeap) Len() int           { return len(h) }
func (h windowHeap) Less(i, j int) bool { return h[i].TriggerAt.Before(h[j].TriggerAt) }
func (h windowHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *windowHeap) Push(x any) {
	*h = append(*h, x.(WindowEvent))
}

func (h *windowHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// heapPush queues a run window.
func heapPush(h *windowHeap, e WindowEvent) {
	heap.Push(h, e)
}

// heapPop takes the window due soonest. The caller checks Len first;
// popping an empty heap panics.
func heapPop(h *windowHeap) WindowEvent {
	return heap.Pop(h).(WindowEvent)
}

// heapRemoveByID drops a pending window by id, reporting whether it was
// queued at all.
func heapRemoveByID(h *windowHeap, windowID string) bool {
	for i, e := range *h {
		if e.WindowID == windowID {
			heap.Remove(h, i)
			return true
		}
	}
	return false
}
