package container

// Registry 有序注册表
// 功能：按键索引的集合，同时保持确定的遍历顺序
// 说明：Go的map遍历顺序随机，仿真中所有需要遍历的实体集合都通过Registry保存，
// 保证同一随机种子下结果可复现。删除时用最后一项填补空位，与增量数组的维护方式一致。
type Registry[K comparable, V any] struct {
	index  map[K]int // 键到下标的映射
	keys   []K       // 键数组
	values []V       // 值数组
}

// NewRegistry 创建有序注册表
func NewRegistry[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		index:  make(map[K]int),
		keys:   make([]K, 0),
		values: make([]V, 0),
	}
}

// Len 获取元素数量
func (r *Registry[K, V]) Len() int {
	return len(r.keys)
}

// Has 检查键是否存在
func (r *Registry[K, V]) Has(k K) bool {
	_, ok := r.index[k]
	return ok
}

// Get 按键获取元素
func (r *Registry[K, V]) Get(k K) (v V, ok bool) {
	i, ok := r.index[k]
	if !ok {
		return v, false
	}
	return r.values[i], true
}

// Put 加入或替换元素
// 说明：替换不改变元素在遍历中的位置
func (r *Registry[K, V]) Put(k K, v V) {
	if i, ok := r.index[k]; ok {
		r.values[i] = v
		return
	}
	r.index[k] = len(r.keys)
	r.keys = append(r.keys, k)
	r.values = append(r.values, v)
}

// Delete 删除元素，返回是否存在
// 算法说明：
// 1. 将最后一项移动到被删除项的位置
// 2. 更新被移动项的下标
// 3. 截断数组
func (r *Registry[K, V]) Delete(k K) bool {
	i, ok := r.index[k]
	if !ok {
		return false
	}
	last := len(r.keys) - 1
	if i != last {
		// 从后面拿一项填过来
		r.keys[i] = r.keys[last]
		r.values[i] = r.values[last]
		r.index[r.keys[i]] = i
	}
	var zero V
	r.values[last] = zero
	r.keys = r.keys[:last]
	r.values = r.values[:last]
	delete(r.index, k)
	return true
}

// Keys 按遍历顺序返回键（只读，不要修改）
func (r *Registry[K, V]) Keys() []K {
	return r.keys
}

// Values 按遍历顺序返回值（只读，不要修改）
func (r *Registry[K, V]) Values() []V {
	return r.values
}

// Snapshot 返回值的拷贝，遍历过程中需要增删元素时使用
func (r *Registry[K, V]) Snapshot() []V {
	res := make([]V, len(r.values))
	copy(res, r.values)
	return res
}
