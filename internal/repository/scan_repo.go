package repository

import (
	"context"
	"fmt"

	"github.com/apk-analysis/apk-fingerprint-go/internal/domain"
	"gorm.io/gorm"
)

// ScanFilter 列表查询条件
type ScanFilter struct {
	Page        int
	Limit       int
	Framework   string
	PackageName string
	Status      domain.ScanStatus
}

// ScanRepository 扫描记录 Repository
type ScanRepository interface {
	Create(ctx context.Context, record *domain.ScanRecord) error
	FindByID(ctx context.Context, id string) (*domain.ScanRecord, error)
	FindLatestBySHA256(ctx context.Context, sha256 string) (*domain.ScanRecord, error)
	List(ctx context.Context, filter ScanFilter) ([]domain.ScanRecord, int64, error)
	FrameworkStatistics(ctx context.Context) ([]domain.FrameworkStat, error)
	Delete(ctx context.Context, id string) error
}

// scanRepo 扫描记录 Repository 实现
type scanRepo struct {
	db *gorm.DB
}

// NewScanRepository 创建扫描记录 Repository
func NewScanRepository(db *gorm.DB) ScanRepository {
	return &scanRepo{db: db}
}

func preloadDetections(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create 创建扫描记录（连同检测结果）
func (r *scanRepo) Create(ctx context.Context, record *domain.ScanRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByID 根据 ID 查询
func (r *scanRepo) FindByID(ctx context.Context, id string) (*domain.ScanRecord, error) {
	var record domain.ScanRecord
	err := r.db.WithContext(ctx).
		Preload("Detections", preloadDetections).
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindLatestBySHA256 查询同一文件最近一次成功的扫描
func (r *scanRepo) FindLatestBySHA256(ctx context.Context, sha256 string) (*domain.ScanRecord, error) {
	var record domain.ScanRecord
	err := r.db.WithContext(ctx).
		Preload("Detections", preloadDetections).
		Where("sha256 = ? AND status = ?", sha256, domain.ScanStatusCompleted).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List 分页查询，支持按框架、包名、状态过滤
func (r *scanRepo) List(ctx context.Context, filter ScanFilter) ([]domain.ScanRecord, int64, error) {
	var records []domain.ScanRecord
	var total int64

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	query := r.db.WithContext(ctx).Model(&domain.ScanRecord{})

	// 应用过滤条件
	if filter.Framework != "" {
		sub := r.db.Model(&domain.ScanDetection{}).Select("scan_id").Where("framework = ?", filter.Framework)
		query = query.Where("id IN (?)", sub)
	}
	if filter.PackageName != "" {
		query = query.Where("package_name LIKE ?", "%"+filter.PackageName+"%")
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	// 获取总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count scans: %w", err)
	}

	// 分页查询
	offset := (filter.Page - 1) * filter.Limit
	if err := query.Preload("Detections", preloadDetections).
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query scans: %w", err)
	}

	return records, total, nil
}

// FrameworkStatistics 各框架被检测到的次数
func (r *scanRepo) FrameworkStatistics(ctx context.Context) ([]domain.FrameworkStat, error) {
	var stats []domain.FrameworkStat
	err := r.db.WithContext(ctx).
		Model(&domain.ScanDetection{}).
		Select("framework, COUNT(*) AS count").
		Group("framework").
		Order("count DESC, framework ASC").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query framework statistics: %w", err)
	}
	return stats, nil
}

// Delete 删除扫描记录及其检测结果
func (r *scanRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scan_id = ?", id).Delete(&domain.ScanDetection{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&domain.ScanRecord{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
