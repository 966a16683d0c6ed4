// Package keylock 提供按键粒度的互斥锁
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker 按字符串键加锁，不同键互不阻塞，无人持有的键会被回收
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// New 创建 Locker
func New() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// Lock 获取 key 对应的锁，返回释放函数
func (l *Locker) Lock(key string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.locks, key)
			}
			l.mu.Unlock()
		})
	}
}

// Len 当前被持有或等待中的键数量
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
