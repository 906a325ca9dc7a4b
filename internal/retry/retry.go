// Package retry 外部依赖（对象存储、消息队列）的有限次指数退避重试
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Config 重试配置
type Config struct {
	Attempts int           // 总尝试次数，小于 1 按 1 处理
	Delay    time.Duration // 首次等待，之后每次翻倍
	MaxDelay time.Duration // 单次等待上限，0 表示不限
	Timeout  time.Duration // 整体超时，0 表示不限
	Logger   *logrus.Logger
}

// Backoff 扫描结果已经产生，副作用不能拖太久
func Backoff(logger *logrus.Logger) *Config {
	return &Config{
		Attempts: 3,
		Delay:    200 * time.Millisecond,
		MaxDelay: 2 * time.Second,
		Timeout:  30 * time.Second,
		Logger:   logger,
	}
}

// Once 只尝试一次
func Once(logger *logrus.Logger) *Config {
	cfg := Backoff(logger)
	cfg.Attempts = 1
	return cfg
}

// permanentError 不再重试的错误
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent 标记错误为不可重试，Do 立即返回
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// shouldRetry 上下文错误和 Permanent 错误不重试
func shouldRetry(err error) bool {
	var perm *permanentError
	switch {
	case errors.As(err, &perm):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// delay 第 n 次失败后的等待时间（n 从 1 开始）
func (c *Config) delay(n int) time.Duration {
	d := c.Delay
	for i := 1; i < n; i++ {
		if c.MaxDelay > 0 && d >= c.MaxDelay {
			break
		}
		d *= 2
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Do 执行 fn，失败时按配置重试
func Do(ctx context.Context, cfg *Config, fn func(ctx context.Context) error) error {
	if cfg == nil {
		cfg = Backoff(nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	attempts := max(cfg.Attempts, 1)

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var err error
	for n := 1; ; n++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("retry canceled: %w", ctxErr)
		}

		if err = fn(ctx); err == nil {
			if n > 1 {
				logger.WithField("attempt", n).Info("Operation succeeded after retry")
			}
			return nil
		}

		entry := logger.WithFields(logrus.Fields{"attempt": n, "max": attempts}).WithError(err)
		if !shouldRetry(err) {
			entry.Warn("Operation failed, not retrying")
			return err
		}
		if n >= attempts {
			entry.Warn("Operation failed, giving up")
			return fmt.Errorf("gave up after %d attempts: %w", attempts, err)
		}

		wait := cfg.delay(n)
		entry.WithField("wait", wait).Debug("Operation failed, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// DoWithResult Do 的带返回值版本，失败时返回零值
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
