// Package session 管理匿名编辑会话：每个会话拥有一份文档存储与仅保存在内存中的 AI 凭据。
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"smartresume/internal/enhance"
	"smartresume/internal/store"
)

// StorageKeyPrefix 是服务端快照键的前缀，后接会话 ID。
const StorageKeyPrefix = "resume-storage:"

var ErrSessionNotFound = errors.New("session not found")

// Session 是一个编辑会话。
type Session struct {
	ID       string
	Store    *store.DocumentStore
	Enhancer *enhance.Service

	mu         sync.RWMutex
	credential string

	// lastSeen 由 Manager.mu 保护。
	lastSeen time.Time
}

// SetCredential 保存本会话的 AI 凭据，不会被持久化。
func (s *Session) SetCredential(key string) {
	s.mu.Lock()
	s.credential = strings.TrimSpace(key)
	s.mu.Unlock()
}

func (s *Session) ClearCredential() {
	s.mu.Lock()
	s.credential = ""
	s.mu.Unlock()
}

func (s *Session) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

func (s *Session) HasCredential() bool {
	return s.Credential() != ""
}

// Manager 按会话 ID 创建和查找会话。会话首次被访问时从 persister 加载文档。
type Manager struct {
	persister store.Persister
	factory   enhance.Factory
	logger    *slog.Logger
	storeOpts []store.Option
	onChange  func(sessionID string, change store.Change)
	idleTTL   time.Duration
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

type Option func(*Manager)

// WithStoreOptions 透传给每个会话的 DocumentStore。
func WithStoreOptions(opts ...store.Option) Option {
	return func(m *Manager) { m.storeOpts = append(m.storeOpts, opts...) }
}

// WithChangeHook 在会话文档每次变更后调用 fn，用于推送通知。
func WithChangeHook(fn func(sessionID string, change store.Change)) Option {
	return func(m *Manager) { m.onChange = fn }
}

// WithIdleTTL 设置会话空闲多久后从内存移除，0 表示不移除。
// 取值不应小于令牌有效期，否则持有有效令牌的会话会丢失 AI 凭据。
func WithIdleTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.idleTTL = ttl }
}

// WithClock 替换时间来源，测试中使用。
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(persister store.Persister, factory enhance.Factory, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		persister: persister,
		factory:   factory,
		logger:    logger,
		now:       time.Now,
		sessions:  map[string]*Session{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create 新建一个会话。
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	return m.Get(ctx, uuid.NewString())
}

// Get 返回已存在的会话，或从持久化快照恢复该会话。
// 快照在锁外加载；并发加载同一会话时只保留先写入的那一份。
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrSessionNotFound
	}
	if sess, ok := m.lookup(id); ok {
		return sess, nil
	}

	logger := m.logger.With(slog.String("session_id", id))
	opts := append([]store.Option{store.WithLogger(logger)}, m.storeOpts...)
	docs, err := store.New(ctx, m.persister, StorageKeyPrefix+id, opts...)
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", id, err)
	}
	sess := &Session{ID: id, Store: docs}
	sess.Enhancer = enhance.NewService(docs, sess, m.factory, logger)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		existing.lastSeen = m.now()
		return existing, nil
	}
	if m.onChange != nil {
		docs.Subscribe(func(change store.Change) { m.onChange(id, change) })
	}
	sess.lastSeen = m.now()
	m.sessions[id] = sess
	return sess, nil
}

func (m *Manager) lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if ok {
		sess.lastSeen = m.now()
	}
	return sess, ok
}

// EvictIdle 移除空闲超过 idleTTL 且没有进行中 AI 调用的会话，返回移除数量。
// 文档已持久化，再次访问时会重新加载；AI 凭据随会话一起丢弃。
func (m *Manager) EvictIdle() int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, sess := range m.sessions {
		if sess.lastSeen.After(cutoff) || busy(sess) {
			continue
		}
		delete(m.sessions, id)
		evicted++
	}
	return evicted
}

// RunEviction 每隔 interval 执行一次 EvictIdle，直到 ctx 结束。
func (m *Manager) RunEviction(ctx context.Context, interval time.Duration) {
	if m.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.EvictIdle(); n > 0 {
				m.logger.Info("evicted idle sessions", slog.Int("count", n), slog.Int("remaining", m.Len()))
			}
		}
	}
}

func busy(sess *Session) bool {
	for _, b := range sess.Enhancer.Status() {
		if b {
			return true
		}
	}
	return false
}

// Len 返回内存中的会话数量。
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
