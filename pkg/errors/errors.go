// Package errors 定义跨模块共享的错误分类。
//
// 各业务模块的哨兵错误通过 Input/NotFound/Conflict 构造，
// 调用方使用 errors.Is(err, ErrConflict) 等方式按类别判断。
package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ── 错误类别 ──

var (
	// ErrInput 输入不合法（格式、取值范围、时区名等）
	ErrInput = errors.New("输入不合法")
	// ErrNotFound 引用的实体不存在
	ErrNotFound = errors.New("资源不存在")
	// ErrConflict 时段已被占用或状态不允许
	ErrConflict = errors.New("资源冲突")
	// ErrUpstreamUnavailable 外部忙碌来源不可用（降级处理，不中断流程）
	ErrUpstreamUnavailable = errors.New("外部服务不可用")
	// ErrPersistence 存储层失败
	ErrPersistence = errors.New("存储失败")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// Input 构造 ErrInput 类别的错误
func Input(msg string) error { return &kindError{kind: ErrInput, msg: msg} }

// NotFound 构造 ErrNotFound 类别的错误
func NotFound(msg string) error { return &kindError{kind: ErrNotFound, msg: msg} }

// Conflict 构造 ErrConflict 类别的错误
func Conflict(msg string) error { return &kindError{kind: ErrConflict, msg: msg} }

// Upstream 包装外部来源的失败
func Upstream(source string, err error) error {
	return fmt.Errorf("%s: %w: %w", source, ErrUpstreamUnavailable, err)
}

// Persistence 包装存储层的失败；nil 原样返回
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
