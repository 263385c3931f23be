package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"smartresume/internal/resume"
)

// Op 标识一次变更的类型，随 Change 通知给订阅者。
type Op string

const (
	OpUpdateBasics     Op = "update_basics"
	OpAdd              Op = "add"
	OpUpdate           Op = "update"
	OpRemove           Op = "remove"
	OpSetActiveSection Op = "set_active_section"
	OpUpdateMetadata   Op = "update_metadata"
	OpReset            Op = "reset"
)

// Change 描述一次已成功持久化的变更。
type Change struct {
	Op           Op             `json:"op"`
	Section      resume.Section `json:"section,omitempty"`
	EntryID      string         `json:"entry_id,omitempty"`
	LastModified string         `json:"last_modified"`
}

// Option 配置 DocumentStore。
type Option func(*DocumentStore)

// WithClock 注入时钟，测试中用于控制 lastModified。
func WithClock(now func() time.Time) Option {
	return func(s *DocumentStore) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *DocumentStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator 替换条目 ID 生成函数，默认使用 UUID v4。
func WithIDGenerator(newID func() string) Option {
	return func(s *DocumentStore) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// DocumentStore 持有一份简历文档与编辑器当前分区，是唯一允许修改文档的组件。
// 每次变更都会完整写入 Persister，写入失败时内存状态回滚。
type DocumentStore struct {
	mu        sync.Mutex
	persister Persister
	key       string
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger

	doc    resume.Document
	active string

	observers  map[int]func(Change)
	nextHandle int
}

// New 从 persister 加载 key 对应的快照；不存在或无法通过校验时使用默认文档。
func New(ctx context.Context, persister Persister, key string, opts ...Option) (*DocumentStore, error) {
	if persister == nil {
		persister = NewMemoryPersister()
	}
	s := &DocumentStore{
		persister: persister,
		key:       key,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    slog.Default(),
		observers: map[int]func(Change){},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.doc = resume.New(s.now())
	s.active = resume.DefaultActiveSection

	data, err := persister.Load(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("load resume: %w", err)
	}

	snap, err := resume.Decode(data)
	if err != nil {
		s.logger.Warn("discarding persisted resume", "key", key, "error", err)
		return s, nil
	}
	s.doc = snap.Document
	s.active = snap.ActiveSection
	return s, nil
}

// Key 返回持久化使用的存储键。
func (s *DocumentStore) Key() string {
	return s.key
}

// Document 返回当前文档的深拷贝。
func (s *DocumentStore) Document() resume.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

func (s *DocumentStore) ActiveSection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Subscribe 注册变更回调，回调在变更成功后同步调用。返回值用于取消订阅。
func (s *DocumentStore) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle := s.nextHandle
	s.nextHandle++
	s.observers[handle] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, handle)
			s.mu.Unlock()
		})
	}
}

// UpdateBasics 合并个人信息，location 按字段合并。
func (s *DocumentStore) UpdateBasics(ctx context.Context, patch resume.BasicsPatch) error {
	return s.mutate(ctx, Change{Op: OpUpdateBasics}, true, func(doc *resume.Document) {
		patch.Apply(&doc.Basics)
	})
}

// UpdateMetadata 合并元数据，lastModified 始终由 store 重写。
func (s *DocumentStore) UpdateMetadata(ctx context.Context, patch resume.MetadataPatch) error {
	return s.mutate(ctx, Change{Op: OpUpdateMetadata}, true, func(doc *resume.Document) {
		patch.Apply(&doc.Metadata)
	})
}

// SetActiveSection 只记录编辑器导航状态，不改动文档与时间戳。
func (s *DocumentStore) SetActiveSection(ctx context.Context, key string) error {
	s.mu.Lock()
	prev := s.active
	s.active = key
	if err := s.persistLocked(ctx); err != nil {
		s.active = prev
		s.mu.Unlock()
		return err
	}
	change := Change{Op: OpSetActiveSection, LastModified: s.doc.Metadata.LastModified}
	observers := s.observersLocked()
	s.mu.Unlock()

	notify(observers, change)
	return nil
}

// ResetResume 用新的默认文档替换全部内容。
func (s *DocumentStore) ResetResume(ctx context.Context) error {
	return s.mutate(ctx, Change{Op: OpReset}, true, func(doc *resume.Document) {
		*doc = resume.New(s.now())
	})
}

// mutate 在锁内应用 fn、刷新时间戳并持久化；持久化失败时恢复调用前的文档。
func (s *DocumentStore) mutate(ctx context.Context, change Change, stamp bool, fn func(doc *resume.Document)) error {
	s.mu.Lock()
	prev := s.doc.Clone()
	fn(&s.doc)
	if stamp {
		s.doc.Metadata.LastModified = s.stampLocked(prev.Metadata.LastModified)
	}
	if err := s.persistLocked(ctx); err != nil {
		s.doc = prev
		s.mu.Unlock()
		return err
	}
	change.LastModified = s.doc.Metadata.LastModified
	observers := s.observersLocked()
	s.mu.Unlock()

	notify(observers, change)
	return nil
}

// stampLocked 返回当前时间，但不早于上一次的 lastModified。
func (s *DocumentStore) stampLocked(previous string) string {
	now := s.now().UTC().Truncate(time.Millisecond)
	if prev, ok := resume.ParseTimestamp(previous); ok && now.Before(prev) {
		now = prev
	}
	return resume.FormatTimestamp(now)
}

func (s *DocumentStore) persistLocked(ctx context.Context) error {
	data, err := resume.Encode(resume.Snapshot{Document: s.doc, ActiveSection: s.active})
	if err != nil {
		return fmt.Errorf("persist resume: %w", err)
	}
	if err := s.persister.Save(ctx, s.key, data); err != nil {
		s.logger.Error("persist resume failed", "key", s.key, "error", err)
		return fmt.Errorf("persist resume: %w", err)
	}
	return nil
}

func (s *DocumentStore) observersLocked() []func(Change) {
	out := make([]func(Change), 0, len(s.observers))
	for i := 0; i < s.nextHandle; i++ {
		if fn, ok := s.observers[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func notify(observers []func(Change), change Change) {
	for _, fn := range observers {
		fn(change)
	}
}
