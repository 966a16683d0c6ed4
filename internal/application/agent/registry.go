package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"golang.org/x/sync/singleflight"

	"plc-agent-api/pkg/logger"
	"plc-agent-api/pkg/metrics"
)

// DefaultIdleTimeout 会话空闲回收时间
const DefaultIdleTimeout = 30 * time.Minute

// HistoryStore 会话消息的持久化存储
type HistoryStore interface {
	Load(ctx context.Context, userID, conversationID string) ([]*schema.Message, error)
	// Append 追加消息，offset 为第一条消息在会话中的位置
	Append(ctx context.Context, userID, conversationID string, offset int, msgs []*schema.Message) error
}

type sessionKey struct {
	userID         string
	conversationID string
}

type handle struct {
	session    *Session
	refs       int
	lastAccess time.Time
	stale      bool
}

// Registry 按 (用户, 会话) 管理内存会话
type Registry struct {
	orch  *Orchestrator
	store HistoryStore
	idle  time.Duration
	now   func() time.Time

	mu       sync.Mutex
	sessions map[sessionKey]*handle
	loads    singleflight.Group
}

// NewRegistry 创建会话注册表
func NewRegistry(orch *Orchestrator, store HistoryStore, idle time.Duration) *Registry {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Registry{
		orch:     orch,
		store:    store,
		idle:     idle,
		now:      time.Now,
		sessions: make(map[sessionKey]*handle),
	}
}

// GetOrCreate 获取会话，不存在时从存储重建
// 使用完毕必须调用 release，被持有的会话不会被回收
func (r *Registry) GetOrCreate(ctx context.Context, userID, conversationID string) (*Session, func(), error) {
	key := sessionKey{userID: userID, conversationID: conversationID}

	if s, release, ok := r.acquire(key, nil); ok {
		return s, release, nil
	}

	v, err, _ := r.loads.Do(userID+"/"+conversationID, func() (any, error) {
		if r.store == nil {
			return []*schema.Message(nil), nil
		}
		return r.store.Load(context.WithoutCancel(ctx), userID, conversationID)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load conversation history: %w", err)
	}
	history := append([]*schema.Message(nil), v.([]*schema.Message)...)

	s, release, _ := r.acquire(key, NewSession(r.orch, r.store, userID, conversationID, history))
	logger.Debug(ctx, "session ready", "user_id", userID, "conversation_id", conversationID, "history", len(history))
	return s, release, nil
}

// acquire 命中已有会话时增加引用；未命中且 created 非空时注册 created
func (r *Registry) acquire(key sessionKey, created *Session) (*Session, func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.sessions[key]
	if !ok {
		if created == nil {
			return nil, nil, false
		}
		h = &handle{session: created}
		r.sessions[key] = h
		metrics.SessionsActive.Set(float64(len(r.sessions)))
	}
	h.refs++
	h.lastAccess = r.now()

	var once sync.Once
	return h.session, func() { once.Do(func() { r.release(key, h) }) }, true
}

func (r *Registry) release(key sessionKey, h *handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h.refs--
	h.lastAccess = r.now()
	if h.refs == 0 && h.stale && r.sessions[key] == h {
		delete(r.sessions, key)
		metrics.SessionsActive.Set(float64(len(r.sessions)))
	}
}

// Submit 获取会话并提交一次消息
func (r *Registry) Submit(ctx context.Context, userID, conversationID string, in SubmitInput) (*SubmitResult, error) {
	s, release, err := r.GetOrCreate(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.Submit(ctx, in)
}

// EvictIdle 回收空闲超时且未被持有的会话，返回回收数量
func (r *Registry) EvictIdle(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for key, h := range r.sessions {
		if h.refs > 0 || now.Sub(h.lastAccess) < r.idle {
			continue
		}
		delete(r.sessions, key)
		evicted++
	}
	if evicted > 0 {
		metrics.SessionEvictions.WithLabelValues("idle").Add(float64(evicted))
		metrics.SessionsActive.Set(float64(len(r.sessions)))
	}
	return evicted
}

// Reset 丢弃用户的全部会话，不影响已持久化的历史
// 使用中的会话在释放后移除
func (r *Registry) Reset(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for key, h := range r.sessions {
		if key.userID != userID {
			continue
		}
		dropped++
		if h.refs > 0 {
			h.stale = true
			continue
		}
		delete(r.sessions, key)
	}
	if dropped > 0 {
		metrics.SessionEvictions.WithLabelValues("reset").Add(float64(dropped))
		metrics.SessionsActive.Set(float64(len(r.sessions)))
	}
	return dropped
}

// Len 当前会话数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// RunJanitor 周期回收空闲会话，直到 ctx 结束
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.EvictIdle(r.now()); n > 0 {
				logger.Info(ctx, "idle sessions evicted", "count", n)
			}
		}
	}
}
