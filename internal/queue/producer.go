package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Publisher 发布原始消息体
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// Producer 事件生产者
type Producer struct {
	pub    Publisher
	logger *logrus.Logger
}

// NewProducer 创建生产者
func NewProducer(pub Publisher, logger *logrus.Logger) *Producer {
	return &Producer{
		pub:    pub,
		logger: logger,
	}
}

// PublishScanCompleted 发布扫描结束事件
func (p *Producer) PublishScanCompleted(ctx context.Context, event *ScanCompletedEvent) error {
	if event.Event == "" {
		event.Event = EventScanCompleted
	}
	if event.Frameworks == nil {
		event.Frameworks = []string{}
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.pub.Publish(ctx, body); err != nil {
		p.logger.WithError(err).WithField("scan_id", event.ScanID).Error("Failed to publish scan event")
		return fmt.Errorf("failed to publish: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"scan_id": event.ScanID,
		"status":  event.Status,
	}).Debug("Scan event published")

	return nil
}
