package container

import "container/heap"

// entry 队列元素，seq为加入序号
type entry[T any] struct {
	value    T
	priority float64
	seq      int
}

// entries 按(priority, seq)排列的最小堆
type entries[T any] []entry[T]

func (h entries[T]) Len() int { return len(h) }

func (h entries[T]) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h entries[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entries[T]) Push(x any) { *h = append(*h, x.(entry[T])) }

func (h *entries[T]) Pop() any {
	old := *h
	e := old[len(old)-1]
	*h = old[:len(old)-1]
	return e
}

// PriorityQueue 稳定的最小优先队列
// 功能：优先级数值小者先出，优先级相同时先加入者先出，出队顺序与稳定排序一致
// 说明：批量Push后第一次Pop时才建堆，建堆后的Push按堆插入
type PriorityQueue[T any] struct {
	heap  entries[T]
	seq   int
	ready bool // 是否已建堆
}

// NewPriorityQueue 创建空队列
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{}
}

// Len 队列长度
func (q *PriorityQueue[T]) Len() int {
	return len(q.heap)
}

// Push 加入元素
func (q *PriorityQueue[T]) Push(value T, priority float64) {
	e := entry[T]{value: value, priority: priority, seq: q.seq}
	q.seq++
	if q.ready {
		heap.Push(&q.heap, e)
		return
	}
	q.heap = append(q.heap, e)
}

// Pop 弹出优先级数值最小的元素，队列为空时panic
func (q *PriorityQueue[T]) Pop() (T, float64) {
	if !q.ready {
		heap.Init(&q.heap)
		q.ready = true
	}
	e := heap.Pop(&q.heap).(entry[T])
	return e.value, e.priority
}
