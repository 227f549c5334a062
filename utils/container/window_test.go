package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"git.fiblab.net/sim/lightctl/utils/container"
)

func TestWindowEmpty(t *testing.T) {
	w := container.NewWindow[int](3)
	assert.Equal(t, 0, w.Len())
	_, ok := w.Last()
	assert.False(t, ok)
}

func TestWindowPush(t *testing.T) {
	w := container.NewWindow[int](3)
	w.Push(1)
	w.Push(2)
	assert.Equal(t, 2, w.Len())
	last, ok := w.Last()
	assert.True(t, ok)
	assert.Equal(t, 2, last)
	assert.Equal(t, []int{1, 2}, w.Values())
}

func TestWindowOverwrite(t *testing.T) {
	w := container.NewWindow[int](3)
	for i := 1; i <= 5; i++ {
		w.Push(i)
	}
	// 超出容量后覆盖最旧的元素
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, []int{3, 4, 5}, w.Values())
	assert.Equal(t, 3, w.At(0))
	assert.Equal(t, 5, w.At(2))
}

func TestPriorityQueue(t *testing.T) {
	pq := container.NewPriorityQueue[string]()
	pq.Push("b", 2)
	pq.Push("a", 1)
	pq.Push("c", 3)
	pq.Heapify()

	// 最小堆：按优先级从低到高弹出
	v, p := pq.HeapPop()
	assert.Equal(t, "a", v)
	assert.Equal(t, 1.0, p)
	v, _ = pq.HeapPop()
	assert.Equal(t, "b", v)

	pq.HeapPush("d", 0.5)
	v, _ = pq.HeapPop()
	assert.Equal(t, "d", v)
	v, _ = pq.HeapPop()
	assert.Equal(t, "c", v)
	assert.Equal(t, 0, pq.Len())
}
