package container

// Window 固定容量的滚动采样窗口
// 功能：保留最近N个采样值，写满后自动淘汰最旧的采样
// 说明：用于排队趋势检测等只依赖短滚动历史的场景
type Window[T any] struct {
	data  []T // 环形存储
	head  int // 下一个写入位置
	size  int // 当前元素数量
	limit int // 容量上限
}

// NewWindow 创建滚动采样窗口
// 参数：limit-窗口容量（必须>0）
func NewWindow[T any](limit int) *Window[T] {
	if limit <= 0 {
		limit = 1
	}
	return &Window[T]{
		data:  make([]T, limit),
		limit: limit,
	}
}

// Len 获取当前采样数量
func (w *Window[T]) Len() int {
	return w.size
}

// Push 写入一个采样值
// 说明：窗口已满时覆盖最旧的采样
func (w *Window[T]) Push(value T) {
	w.data[w.head] = value
	w.head = (w.head + 1) % w.limit
	if w.size < w.limit {
		w.size++
	}
}

// Last 获取最近一次写入的采样值
// 返回：采样值与是否存在
func (w *Window[T]) Last() (T, bool) {
	var zero T
	if w.size == 0 {
		return zero, false
	}
	return w.data[(w.head-1+w.limit)%w.limit], true
}

// At 获取从最旧到最新顺序下第i个采样值
func (w *Window[T]) At(i int) T {
	if w.size < w.limit {
		return w.data[i]
	}
	return w.data[(w.head+i)%w.limit]
}

// Values 按从最旧到最新的顺序返回全部采样值
func (w *Window[T]) Values() []T {
	out := make([]T, 0, w.size)
	for i := 0; i < w.size; i++ {
		out = append(out, w.At(i))
	}
	return out
}
