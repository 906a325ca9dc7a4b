package domain

import "time"

// ScanStatus 扫描状态
type ScanStatus string

const (
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// ScanSource 扫描来源
type ScanSource string

const (
	SourceCLI     ScanSource = "cli"
	SourceUpload  ScanSource = "upload"
	SourceWatcher ScanSource = "watcher"
	SourceQueue   ScanSource = "queue"
)

// ScanRecord 扫描记录表
type ScanRecord struct {
	ID       string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FileName string     `gorm:"type:varchar(255);not null" json:"file_name"`
	Source   ScanSource `gorm:"type:varchar(20);default:'upload'" json:"source"`
	Status   ScanStatus `gorm:"type:varchar(20);not null;index:idx_status" json:"status"`

	// 文件信息
	FileSize  int64  `json:"file_size"`
	MD5       string `gorm:"type:varchar(32)" json:"md5,omitempty"`
	SHA256    string `gorm:"type:varchar(64);index:idx_sha256" json:"sha256,omitempty"`
	ObjectKey string `gorm:"type:varchar(255)" json:"object_key,omitempty"` // 对象存储中的 APK

	// 清单摘要（冗余存储，方便查询）
	PackageName     string `gorm:"type:varchar(255);index:idx_package_name" json:"package_name,omitempty"`
	APILevel        int    `gorm:"default:0" json:"api_level"`
	PermissionCount int    `gorm:"default:0" json:"permission_count"`
	ActivityCount   int    `gorm:"default:0" json:"activity_count"`
	ServiceCount    int    `gorm:"default:0" json:"service_count"`
	ReceiverCount   int    `gorm:"default:0" json:"receiver_count"`
	ProviderCount   int    `gorm:"default:0" json:"provider_count"`

	// 完整报告 JSON（apk_info + results）
	ReportJSON   string `gorm:"type:mediumtext" json:"-"`
	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`

	DurationMs int       `gorm:"type:int" json:"duration_ms"`
	CreatedAt  time.Time `gorm:"not null;index:idx_created_at" json:"created_at"`

	Detections []ScanDetection `gorm:"foreignKey:ScanID;references:ID;constraint:OnDelete:CASCADE" json:"detections"`
}

func (ScanRecord) TableName() string {
	return "apk_scans"
}

// Frameworks 命中的框架名
func (r *ScanRecord) Frameworks() []string {
	names := make([]string, 0, len(r.Detections))
	for _, d := range r.Detections {
		names = append(names, d.Framework)
	}
	return names
}

// ScanDetection 单条指纹命中
type ScanDetection struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	ScanID     string `gorm:"type:varchar(36);index:idx_scan_id;not null" json:"-"`
	Framework  string `gorm:"type:varchar(100);index:idx_framework;not null" json:"framework"`
	Position   int    `gorm:"default:0" json:"-"` // 规则声明顺序
	MatchCount int    `gorm:"default:0" json:"match_count"`
}

func (ScanDetection) TableName() string {
	return "apk_scan_detections"
}

// FrameworkStat 框架检测统计
type FrameworkStat struct {
	Framework string `json:"framework"`
	Count     int64  `json:"count"`
}
