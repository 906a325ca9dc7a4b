package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrQueueFull 任务队列已满
var ErrQueueFull = errors.New("task queue is full")

// ErrPoolStopped Worker 池已停止
var ErrPoolStopped = errors.New("worker pool is stopped")

// Processor 处理单个任务
type Processor interface {
	Process(ctx context.Context, task *Task) error
}

// ProcessorFunc 函数适配 Processor
type ProcessorFunc func(ctx context.Context, task *Task) error

func (f ProcessorFunc) Process(ctx context.Context, task *Task) error {
	return f(ctx, task)
}

// StatsRecorder Worker 池状态上报（Prometheus）
type StatsRecorder interface {
	UpdateWorkerPoolStats(size, active, queueSize int)
}

// Pool Worker 池
type Pool struct {
	workers   int
	taskChan  chan *Task
	processor Processor
	stats     StatsRecorder
	logger    *logrus.Logger
	wg        sync.WaitGroup
	active    atomic.Int32

	mu      sync.RWMutex
	stopped bool
}

// Task 任务
type Task struct {
	ID       string
	APKPath  string
	resultCh chan error // 用于同步等待任务完成
}

// NewTask 创建任务
func NewTask(apkPath string) *Task {
	return &Task{ID: uuid.New().String(), APKPath: apkPath}
}

// NewPool 创建 Worker 池
func NewPool(workers, queueSize int, processor Processor, logger *logrus.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}
	return &Pool{
		workers:   workers,
		taskChan:  make(chan *Task, queueSize),
		processor: processor,
		logger:    logger,
	}
}

// SetStatsRecorder 设置状态上报
func (p *Pool) SetStatsRecorder(stats StatsRecorder) {
	p.stats = stats
}

// Start 启动 Worker 池
func (p *Pool) Start(ctx context.Context) {
	p.logger.WithField("workers", p.workers).Info("Starting worker pool")

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.reportStats()
}

// worker Worker 协程
func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	p.logger.WithField("worker_id", id).Debug("Worker started")

	for {
		select {
		case <-ctx.Done():
			p.logger.WithField("worker_id", id).Debug("Worker shutting down")
			return

		case task, ok := <-p.taskChan:
			if !ok {
				p.logger.WithField("worker_id", id).Debug("Task channel closed, worker exiting")
				return
			}
			p.run(ctx, id, task)
		}
	}
}

func (p *Pool) run(ctx context.Context, workerID int, task *Task) {
	p.active.Add(1)
	p.reportStats()
	defer func() {
		p.active.Add(-1)
		p.reportStats()
	}()

	p.logger.WithFields(logrus.Fields{
		"worker_id": workerID,
		"task_id":   task.ID,
		"apk_path":  task.APKPath,
	}).Info("Processing task")

	err := p.processor.Process(ctx, task)
	if err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"worker_id": workerID,
			"task_id":   task.ID,
		}).Error("Task execution failed")
	} else {
		p.logger.WithFields(logrus.Fields{
			"worker_id": workerID,
			"task_id":   task.ID,
		}).Debug("Task completed successfully")
	}

	// 如果有结果通道，发送结果
	if task.resultCh != nil {
		task.resultCh <- err
		close(task.resultCh)
	}
}

// Submit 提交任务（异步，不等待结果）
func (p *Pool) Submit(task *Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.taskChan <- task:
		p.logger.WithField("task_id", task.ID).Debug("Task submitted to pool")
		p.reportStats()
		return nil
	default:
		return ErrQueueFull
	}
}

// SubmitAndWait 提交任务并等待完成
func (p *Pool) SubmitAndWait(ctx context.Context, task *Task) error {
	task.resultCh = make(chan error, 1)

	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return ErrPoolStopped
	}
	select {
	case p.taskChan <- task:
		p.mu.RUnlock()
		p.logger.WithField("task_id", task.ID).Debug("Task submitted to pool (sync)")
	case <-ctx.Done():
		p.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case err := <-task.resultCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop 停止 Worker 池，等待已入队任务处理完
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.taskChan)
	p.mu.Unlock()

	p.logger.Info("Stopping worker pool")
	p.wg.Wait()
	p.reportStats()
	p.logger.Info("Worker pool stopped")
}

// QueueSize 获取队列中任务数
func (p *Pool) QueueSize() int {
	return len(p.taskChan)
}

// ActiveWorkers 正在处理任务的 Worker 数
func (p *Pool) ActiveWorkers() int {
	return int(p.active.Load())
}

func (p *Pool) reportStats() {
	if p.stats != nil {
		p.stats.UpdateWorkerPoolStats(p.workers, p.ActiveWorkers(), p.QueueSize())
	}
}
