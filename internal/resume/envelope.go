package resume

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

// CurrentVersion 是持久化信封的当前结构版本。
// 版本 0 对应浏览器端早期无版本号的存储格式。
const CurrentVersion = 1

var (
	ErrUnsupportedVersion = errors.New("unsupported resume schema version")
	ErrInvalidDocument    = errors.New("invalid resume document")
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

// Snapshot 是持久化的完整状态：文档与编辑器当前分区。
type Snapshot struct {
	Document      Document
	ActiveSection string
}

type envelope struct {
	State   envelopeState `json:"state"`
	Version int           `json:"version"`
}

type envelopeState struct {
	ResumeData    Document `json:"resumeData"`
	ActiveSection string   `json:"activeSection"`
}

// Encode 将快照编码为带版本号的 JSON 信封。
func Encode(s Snapshot) ([]byte, error) {
	doc := s.Document.Clone()
	doc.Normalize()
	data, err := json.Marshal(envelope{
		State: envelopeState{
			ResumeData:    doc,
			ActiveSection: s.ActiveSection,
		},
		Version: CurrentVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal resume envelope: %w", err)
	}
	return data, nil
}

// Decode 解析信封，按版本依次执行迁移，并在解码前用 JSON Schema 校验文档。
func Decode(data []byte) (Snapshot, error) {
	var raw struct {
		State   map[string]any `json:"state"`
		Version int            `json:"version"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("%w: decode envelope: %v", ErrInvalidDocument, err)
	}
	if raw.Version > CurrentVersion || raw.Version < 0 {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, raw.Version)
	}
	if raw.State == nil {
		return Snapshot{}, fmt.Errorf("%w: missing state", ErrInvalidDocument)
	}

	for v := raw.Version; v < CurrentVersion; v++ {
		migrate, ok := migrations[v]
		if !ok {
			return Snapshot{}, fmt.Errorf("%w: no migration from %d", ErrUnsupportedVersion, v)
		}
		if err := migrate(raw.State); err != nil {
			return Snapshot{}, fmt.Errorf("migrate resume from v%d: %w", v, err)
		}
	}

	docRaw, ok := raw.State["resumeData"].(map[string]any)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: missing resumeData", ErrInvalidDocument)
	}
	ensureUniqueIDs(docRaw)
	if err := Validate(docRaw); err != nil {
		return Snapshot{}, err
	}

	normalized, err := json.Marshal(docRaw)
	if err != nil {
		return Snapshot{}, fmt.Errorf("re-encode resume: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	doc.Normalize()

	active, _ := raw.State["activeSection"].(string)
	if active == "" {
		active = DefaultActiveSection
	}
	return Snapshot{Document: doc, ActiveSection: active}, nil
}

// Validate 使用内嵌的 JSON Schema 校验通用结构的文档。
func Validate(doc map[string]any) error {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	if schemaErr != nil {
		return fmt.Errorf("load resume schema: %w", schemaErr)
	}

	res, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
}

// ensureUniqueIDs 为每个分区中缺失或重复的条目 ID 重新分配 uuid，先出现的条目保留原 ID。
func ensureUniqueIDs(doc map[string]any) {
	for _, section := range Sections {
		entries, _ := doc[string(section)].([]any)
		seen := make(map[string]bool, len(entries))
		for _, e := range entries {
			entry, ok := e.(map[string]any)
			if !ok {
				continue
			}
			id, _ := entry["id"].(string)
			if id == "" || seen[id] {
				id = uuid.NewString()
				entry["id"] = id
			}
			seen[id] = true
		}
	}
}

// migrations[v] 把 v 版本的 state 原地升级到 v+1。
var migrations = map[int]func(state map[string]any) error{
	0: migrateV0,
}

// migrateV0 补齐早期存储中可能缺失的分区、元数据与条目 ID。
func migrateV0(state map[string]any) error {
	doc, ok := state["resumeData"].(map[string]any)
	if !ok {
		return fmt.Errorf("%w: missing resumeData", ErrInvalidDocument)
	}

	basics, ok := doc["basics"].(map[string]any)
	if !ok {
		basics = map[string]any{}
		doc["basics"] = basics
	}
	for _, field := range []string{"name", "email", "phone", "summary"} {
		if _, ok := basics[field].(string); !ok {
			basics[field] = ""
		}
	}
	location, ok := basics["location"].(map[string]any)
	if !ok {
		location = map[string]any{}
		basics["location"] = location
	}
	if _, ok := location["city"].(string); !ok {
		location["city"] = ""
	}
	if _, ok := basics["profiles"].([]any); !ok {
		basics["profiles"] = []any{}
	}

	for _, section := range Sections {
		entries, ok := doc[string(section)].([]any)
		if !ok {
			doc[string(section)] = []any{}
			continue
		}
		for _, e := range entries {
			entry, ok := e.(map[string]any)
			if !ok {
				continue
			}
			if id, _ := entry["id"].(string); id == "" {
				entry["id"] = uuid.NewString()
			}
			for key, value := range entry {
				if value == nil {
					delete(entry, key)
				}
			}
		}
	}

	meta, ok := doc["metadata"].(map[string]any)
	if !ok {
		meta = map[string]any{}
		doc["metadata"] = meta
	}
	if _, ok := meta["lastModified"].(string); !ok {
		meta["lastModified"] = ""
	}
	if t, _ := meta["template"].(string); t == "" {
		meta["template"] = TemplateModern
	}
	if f, _ := meta["fontFamily"].(string); f == "" {
		meta["fontFamily"] = DefaultFontFamily
	}

	if _, ok := state["activeSection"].(string); !ok {
		state["activeSection"] = DefaultActiveSection
	}
	return nil
}
