package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// RequestHandler 扫描请求处理函数
type RequestHandler func(ctx context.Context, msg *ScanRequestMessage) error

// Consumer 扫描请求消费者
type Consumer struct {
	mq            *RabbitMQ
	logger        *logrus.Logger
	handler       RequestHandler
	workers       int
	workerWg      sync.WaitGroup
	activeWorkers int32

	mu         sync.Mutex
	running    bool
	cancelFunc context.CancelFunc
}

// NewConsumer 创建消费者
func NewConsumer(mq *RabbitMQ, handler RequestHandler, workers int, logger *logrus.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}

	return &Consumer{
		mq:      mq,
		logger:  logger,
		handler: handler,
		workers: workers,
	}
}

// Start 启动消费者，连接恢复后自动重新订阅
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.subscribe(ctx); err != nil {
		return err
	}

	c.mq.StartConnectionWatcher()
	go c.handleReconnect(ctx)

	return nil
}

func (c *Consumer) subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.logger.Warn("Consumer already running, skipping start")
		return nil
	}

	msgs, err := c.mq.Consume()
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel
	c.running = true

	for i := 0; i < c.workers; i++ {
		c.workerWg.Add(1)
		go c.worker(workerCtx, i, msgs)
	}

	c.logger.Infof("Consumer started with %d workers", c.workers)
	return nil
}

// worker 工作协程
func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.workerWg.Done()
	atomic.AddInt32(&c.activeWorkers, 1)
	defer atomic.AddInt32(&c.activeWorkers, -1)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Debugf("Worker %d: message channel closed", id)
				return
			}
			c.processMessage(ctx, id, msg)
		}
	}
}

// processMessage 处理单条消息。失败的消息不重新入队，避免毒消息循环。
func (c *Consumer) processMessage(ctx context.Context, workerID int, delivery amqp.Delivery) {
	startTime := time.Now()

	var msg ScanRequestMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		c.logger.WithError(err).Error("Failed to unmarshal scan request")
		delivery.Nack(false, false)
		return
	}
	if msg.Path == "" && msg.ObjectKey == "" {
		c.logger.Error("Scan request has neither path nor object_key")
		delivery.Nack(false, false)
		return
	}

	logger := c.logger.WithFields(logrus.Fields{
		"worker_id":  workerID,
		"path":       msg.Path,
		"object_key": msg.ObjectKey,
	})
	logger.Info("Processing scan request")

	if err := c.handler(ctx, &msg); err != nil {
		logger.WithError(err).Error("Scan request failed")
		delivery.Nack(false, false)
		return
	}

	if err := delivery.Ack(false); err != nil {
		logger.WithError(err).Error("Failed to acknowledge message")
	}

	logger.WithField("duration_ms", time.Since(startTime).Milliseconds()).Info("Scan request completed")
}

// handleReconnect 连接恢复后重启 worker
func (c *Consumer) handleReconnect(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.mq.Reconnected():
			c.logger.Warn("RabbitMQ reconnected, restarting consumer")
			c.stopWorkers()
			if err := c.subscribe(ctx); err != nil {
				c.logger.WithError(err).Error("Failed to restart consumer")
			}
		}
	}
}

// stopWorkers 停止所有 worker（等待当前消息处理完成）
func (c *Consumer) stopWorkers() {
	c.mu.Lock()
	if c.cancelFunc != nil {
		c.cancelFunc()
		c.cancelFunc = nil
	}
	c.running = false
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.workerWg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		c.logger.Warn("Timeout waiting for workers to stop")
	}
}

// Stop 停止消费者
func (c *Consumer) Stop() {
	c.stopWorkers()
	c.logger.Info("Consumer stopped")
}

// ActiveWorkers 活跃 worker 数量
func (c *Consumer) ActiveWorkers() int {
	return int(atomic.LoadInt32(&c.activeWorkers))
}

// IsRunning 检查消费者是否正在运行
func (c *Consumer) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
