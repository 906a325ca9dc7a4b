package queue

import "time"

// EventScanCompleted 扫描结束事件类型
const EventScanCompleted = "scan.completed"

// ScanCompletedEvent 扫描结束后发布的事件
type ScanCompletedEvent struct {
	Event       string    `json:"event"`
	ScanID      string    `json:"scan_id"`
	Status      string    `json:"status"`
	FileName    string    `json:"file_name"`
	SHA256      string    `json:"sha256,omitempty"`
	PackageName string    `json:"package_name,omitempty"`
	Frameworks  []string  `json:"frameworks"`
	Error       string    `json:"error,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

// ScanRequestMessage 外部系统投递的扫描请求。
// Path 指向共享磁盘上的 APK，ObjectKey 指向对象存储中的 APK，二选一。
type ScanRequestMessage struct {
	Path      string `json:"path,omitempty"`
	ObjectKey string `json:"object_key,omitempty"`
	FileName  string `json:"file_name,omitempty"`
}
