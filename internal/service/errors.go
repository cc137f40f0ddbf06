package service

import "errors"

// 引擎层错误分类，调用方通过 errors.Is 区分
var (
	// ErrInvalidDestination 目标 URL 不是合法的绝对地址
	ErrInvalidDestination = errors.New("目标 URL 无效")
	// ErrAliasTaken 自定义别名已被占用，不重试，由用户另选别名
	ErrAliasTaken = errors.New("自定义别名已被占用")
	// ErrGenerationExhausted 随机短码重试次数耗尽，属于容量问题而非用户问题
	ErrGenerationExhausted = errors.New("短码生成重试次数已耗尽")
	// ErrNotFound 短码不存在
	ErrNotFound = errors.New("链接不存在")
	// ErrExpired 链接已过期，记录保留不删除
	ErrExpired = errors.New("链接已过期")
	// ErrCodeTaken 存储层唯一索引冲突，随机路径下可重试
	ErrCodeTaken = errors.New("短码已存在")
	// ErrRepositoryUnavailable 存储层故障，原样向上传递，本层不做重试
	ErrRepositoryUnavailable = errors.New("存储服务不可用")
)
