package queue

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/apk-analysis/apk-fingerprint-go/internal/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// defaultHeartbeat 心跳间隔
const defaultHeartbeat = 10 * time.Second

// RabbitMQ 单队列客户端，支持断线重连
type RabbitMQ struct {
	cfg           *config.RabbitMQConfig
	queueName     string
	prefetchCount int // 预取数量，应与 worker 数量匹配
	maxRetries    int
	logger        *logrus.Logger

	mu            sync.RWMutex
	conn          *amqp.Connection
	channel       *amqp.Channel
	closed        bool
	connNotify    chan *amqp.Error
	channelNotify chan *amqp.Error
	reconnect     chan struct{}
}

// NewRabbitMQ 连接 RabbitMQ 并声明持久化队列
func NewRabbitMQ(cfg *config.RabbitMQConfig, queueName string, prefetchCount int, logger *logrus.Logger) (*RabbitMQ, error) {
	if prefetchCount <= 0 {
		prefetchCount = 1
	}

	mq := &RabbitMQ{
		cfg:           cfg,
		queueName:     queueName,
		prefetchCount: prefetchCount,
		maxRetries:    10,
		logger:        logger,
		reconnect:     make(chan struct{}, 1),
	}

	if err := mq.connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	return mq, nil
}

// amqpURL 构建连接 URL，vhost "/" 需要转义
func amqpURL(cfg *config.RabbitMQConfig) string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + url.PathEscape(cfg.VHost),
	}
	if cfg.VHost == "" || cfg.VHost == "/" {
		u.Path = "/"
	}
	return u.String()
}

// connect 建立连接
func (mq *RabbitMQ) connect() error {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	conn, err := amqp.DialConfig(amqpURL(mq.cfg), amqp.Config{
		Heartbeat: defaultHeartbeat,
		Locale:    "en_US",
	})
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Qos(mq.prefetchCount, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	_, err = ch.QueueDeclare(
		mq.queueName, // name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	mq.conn = conn
	mq.channel = ch

	// 设置 Connection 和 Channel 关闭通知
	mq.connNotify = conn.NotifyClose(make(chan *amqp.Error, 1))
	mq.channelNotify = ch.NotifyClose(make(chan *amqp.Error, 1))

	mq.logger.WithFields(logrus.Fields{
		"host":           mq.cfg.Host,
		"port":           mq.cfg.Port,
		"queue":          mq.queueName,
		"prefetch_count": mq.prefetchCount,
	}).Info("Connected to RabbitMQ")

	return nil
}

// StartConnectionWatcher 监听连接和通道关闭事件，直到主动关闭
func (mq *RabbitMQ) StartConnectionWatcher() {
	go func() {
		for {
			mq.mu.RLock()
			if mq.closed {
				mq.mu.RUnlock()
				return
			}
			connNotify := mq.connNotify
			channelNotify := mq.channelNotify
			mq.mu.RUnlock()

			var err *amqp.Error
			select {
			case err = <-connNotify:
			case err = <-channelNotify:
			}

			if mq.isClosed() {
				return
			}
			if err != nil {
				mq.logger.WithError(err).Error("RabbitMQ connection closed unexpectedly")
			} else {
				mq.logger.Warn("RabbitMQ connection closed")
			}

			if rerr := mq.Reconnect(); rerr != nil {
				mq.logger.WithError(rerr).Error("Giving up on RabbitMQ")
				return
			}

			// 通知消费者重新订阅（非阻塞）
			select {
			case mq.reconnect <- struct{}{}:
			default:
			}
		}
	}()
}

// Reconnect 重新连接，线性退避
func (mq *RabbitMQ) Reconnect() error {
	mq.closeConnections()

	for attempt := 1; attempt <= mq.maxRetries; attempt++ {
		if mq.isClosed() {
			return fmt.Errorf("client closed")
		}

		mq.logger.Infof("Attempting to reconnect to RabbitMQ (attempt %d/%d)", attempt, mq.maxRetries)
		if err := mq.connect(); err != nil {
			mq.logger.WithError(err).Error("Failed to reconnect")
			time.Sleep(time.Duration(attempt) * time.Second)
			continue
		}

		mq.logger.Info("Successfully reconnected to RabbitMQ")
		return nil
	}

	return fmt.Errorf("failed to reconnect after %d attempts", mq.maxRetries)
}

func (mq *RabbitMQ) closeConnections() {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.channel != nil {
		mq.channel.Close()
		mq.channel = nil
	}
	if mq.conn != nil {
		mq.conn.Close()
		mq.conn = nil
	}
}

func (mq *RabbitMQ) isClosed() bool {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	return mq.closed
}

// Publish 发布持久化 JSON 消息
func (mq *RabbitMQ) Publish(ctx context.Context, body []byte) error {
	mq.mu.RLock()
	ch := mq.channel
	mq.mu.RUnlock()

	if ch == nil {
		return fmt.Errorf("channel is nil")
	}

	return ch.PublishWithContext(
		ctx,
		"",           // exchange
		mq.queueName, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}

// Consume 手动确认模式消费
func (mq *RabbitMQ) Consume() (<-chan amqp.Delivery, error) {
	mq.mu.RLock()
	ch := mq.channel
	mq.mu.RUnlock()

	if ch == nil {
		return nil, fmt.Errorf("channel is nil")
	}

	msgs, err := ch.Consume(
		mq.queueName, // queue
		"",           // consumer
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume: %w", err)
	}

	return msgs, nil
}

// QueueDepth 队列中待处理的消息数
func (mq *RabbitMQ) QueueDepth() (int, error) {
	mq.mu.RLock()
	ch := mq.channel
	mq.mu.RUnlock()

	if ch == nil {
		return 0, fmt.Errorf("channel is nil")
	}

	q, err := ch.QueueInspect(mq.queueName)
	if err != nil {
		return 0, err
	}
	return q.Messages, nil
}

// Reconnected 重连成功信号
func (mq *RabbitMQ) Reconnected() <-chan struct{} {
	return mq.reconnect
}

// IsConnected 检查连接状态
func (mq *RabbitMQ) IsConnected() bool {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	return mq.conn != nil && !mq.conn.IsClosed()
}

// Close 关闭连接
func (mq *RabbitMQ) Close() error {
	mq.mu.Lock()
	mq.closed = true
	mq.mu.Unlock()

	mq.closeConnections()

	mq.logger.WithField("queue", mq.queueName).Info("RabbitMQ connection closed")
	return nil
}
