package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"smartresume/internal/resume"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeExportPDF = "export:pdf"
)

// ExportPDFPayload 携带请求时刻的文档快照，之后的编辑不影响正在进行的导出。
type ExportPDFPayload struct {
	ExportID      string          `json:"export_id"`
	SessionID     string          `json:"session_id"`
	Template      string          `json:"template"`
	Document      resume.Document `json:"document"`
	CorrelationID string          `json:"correlation_id"`
}

// NewExportPDFTask 构造一个 PDF 导出任务，以 export_id 作为任务 ID 防止重复入队。
func NewExportPDFTask(p ExportPDFPayload, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal export payload: %w", err)
	}
	opts = append([]asynq.Option{asynq.TaskID(p.ExportID), asynq.MaxRetry(3)}, opts...)
	return asynq.NewTask(TypeExportPDF, payload, opts...), nil
}

// ParseExportPDFPayload 解码任务负载。
func ParseExportPDFPayload(data []byte) (ExportPDFPayload, error) {
	var p ExportPDFPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return ExportPDFPayload{}, fmt.Errorf("unmarshal export payload: %w", err)
	}
	if p.ExportID == "" || p.SessionID == "" {
		return ExportPDFPayload{}, fmt.Errorf("export payload missing ids")
	}
	return p, nil
}
