package messaging

import (
	"bravolearn_backend/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher 领域事件发布
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close()
}

type Config struct {
	URL           string
	Timeout       time.Duration
	SubjectPrefix string // 例如 "bravolearn"，事件主题为 bravolearn.<subject>
}

type NatsPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNatsPublisher(cfg Config) (*NatsPublisher, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("bravolearn-backend"),
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(onDisconnect),
		nats.ReconnectHandler(onReconnect),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Log.Info("Connected to NATS", zap.String("url", cfg.URL))
	return &NatsPublisher{conn: nc, prefix: strings.TrimSuffix(cfg.SubjectPrefix, ".")}, nil
}

// 主动关闭时 err 为 nil，不记录
func onDisconnect(_ *nats.Conn, err error) {
	if err != nil {
		logger.Log.Warn("NATS disconnected", zap.Error(err))
	}
}

func onReconnect(nc *nats.Conn) {
	logger.Log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
}

func (p *NatsPublisher) Subject(name string) string {
	return qualify(p.prefix, name)
}

func (p *NatsPublisher) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(subject), data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

func (p *NatsPublisher) Close() {
	if p.conn != nil {
		p.conn.Drain()
	}
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// NoopPublisher NATS 未启用时使用
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, subject string, payload any) error { return nil }
func (NoopPublisher) Close()                                                         {}

// Message 记录在内存中的事件
type Message struct {
	Subject string
	Data    json.RawMessage
}

// MemoryPublisher 保存所有事件，供测试和命令行调试使用
type MemoryPublisher struct {
	mu       sync.Mutex
	prefix   string
	messages []Message
}

func NewMemoryPublisher(prefix string) *MemoryPublisher {
	return &MemoryPublisher{prefix: prefix}
}

func (p *MemoryPublisher) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Message{Subject: qualify(p.prefix, subject), Data: data})
	return nil
}

func (p *MemoryPublisher) Close() {}

func (p *MemoryPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}
