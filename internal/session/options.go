package session

import (
	"log/slog"
	"time"

	"ProjectSubmission-Chain/internal/journal"
)

// Option 定义可选的 Session 配置。
type Option func(*Session)

// defaultPollInterval 是等待交易回执时的默认轮询间隔。
const defaultPollInterval = 200 * time.Millisecond

// WithRecorder 为每次状态变更调用记录一条交易日志。
func WithRecorder(recorder journal.Recorder) Option {
	return func(s *Session) {
		s.recorder = recorder
	}
}

// WithLogger 替换默认的组件日志器。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGasLimit 固定交易的 gas 上限，跳过节点的 gas 估算。
func WithGasLimit(limit uint64) Option {
	return func(s *Session) {
		s.gasLimit = limit
	}
}

// WithPollInterval 设置等待交易回执时的轮询间隔。
func WithPollInterval(interval time.Duration) Option {
	return func(s *Session) {
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}
