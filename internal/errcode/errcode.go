// Package errcode 定义导出状态通知里的 error_code。
package errcode

// 4xxx 表示导出依赖的数据已不存在，5xxx 表示导出中止。
const (
	OK              = 0
	ResourceMissing = 4004
	SystemError     = 5000
	RenderFailed    = 5001
	UploadFailed    = 5002
)
