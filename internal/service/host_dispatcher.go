package service

import (
	"context"
	"fmt"
	"sync"
)

// hostDispatcher 按主机串行执行任务：同一主机的任务按提交顺序逐个执行，
// 不同主机之间互不阻塞。队列清空后回收，空闲主机不占用 goroutine。
type hostDispatcher struct {
	mu     sync.Mutex
	queues map[string]*hostQueue
}

type hostQueue struct {
	jobs    []*dispatchJob
	running bool
}

type dispatchJob struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error // 容量 1，执行方写入后不阻塞

	// 以下字段受 hostDispatcher.mu 保护
	started   bool
	abandoned bool
}

func newHostDispatcher() *hostDispatcher {
	return &hostDispatcher{queues: make(map[string]*hostQueue)}
}

// Do 将 fn 排入 key 对应的队列并等待其完成。
// ctx 在排队期间结束时任务被放弃并返回 ctx.Err()；
// 已开始执行的任务总会等到结束，调用方拿到的一定是真实结果。
func (d *hostDispatcher) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	job := &dispatchJob{ctx: ctx, fn: fn, done: make(chan error, 1)}

	d.mu.Lock()
	q, ok := d.queues[key]
	if !ok {
		q = &hostQueue{}
		d.queues[key] = q
	}
	q.jobs = append(q.jobs, job)
	if !q.running {
		q.running = true
		go d.drain(key, q)
	}
	d.mu.Unlock()

	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		d.mu.Lock()
		if !job.started {
			job.abandoned = true
			d.mu.Unlock()
			return ctx.Err()
		}
		d.mu.Unlock()
		return <-job.done
	}
}

func (d *hostDispatcher) drain(key string, q *hostQueue) {
	for {
		d.mu.Lock()
		if len(q.jobs) == 0 {
			q.running = false
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs[0] = nil
		q.jobs = q.jobs[1:]
		if job.abandoned {
			d.mu.Unlock()
			continue
		}
		job.started = true
		d.mu.Unlock()

		job.done <- runJob(job)
	}
}

func runJob(job *dispatchJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("主机任务 panic: %v", r)
		}
	}()
	return job.fn(job.ctx)
}

// pending 当前排队与执行中的主机数
func (d *hostDispatcher) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}
