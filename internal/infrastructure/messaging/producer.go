// Package messaging 提供基于 Redis Stream 的事件发布
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"plc-agent-api/pkg/metrics"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
// client 为 nil 时所有发布操作为空操作
type Producer struct {
	client          *redis.Client
	maxLen          int64
	lifecycleStream Stream
	auditStream     Stream
}

// ProducerOptions 生产者配置
type ProducerOptions struct {
	MaxLen          int64
	LifecycleStream string
	AuditStream     string
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, opts ProducerOptions) *Producer {
	if opts.MaxLen <= 0 {
		opts.MaxLen = 10000
	}
	p := &Producer{
		client:          client,
		maxLen:          opts.MaxLen,
		lifecycleStream: StreamProjectLifecycle,
		auditStream:     StreamAuditLog,
	}
	if opts.LifecycleStream != "" {
		p.lifecycleStream = Stream(opts.LifecycleStream)
	}
	if opts.AuditStream != "" {
		p.auditStream = Stream(opts.AuditStream)
	}
	return p
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	if p == nil || p.client == nil {
		return "", nil
	}

	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"type": msg.Type,
			"data": string(data),
		},
	}).Result()
	if err != nil {
		span.RecordError(err)
		metrics.RedisStreamPublished.WithLabelValues(string(stream), "error").Inc()
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	metrics.RedisStreamPublished.WithLabelValues(string(stream), "success").Inc()
	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishLifecycleEvent 发布项目阶段推进或文档记录事件
func (p *Producer) PublishLifecycleEvent(ctx context.Context, ev *LifecycleEventMessage) (string, error) {
	msg, err := NewMessage(uuid.NewString(), ev.Event, ev.UserID, ev.ProjectID, ev)
	if err != nil {
		return "", err
	}
	if ev.DocType != "" {
		msg.SetMetadata("doc_type", ev.DocType)
	}
	return p.Publish(ctx, p.lifecycleStream, msg)
}

// PublishAuditLog 发布审计日志
func (p *Producer) PublishAuditLog(ctx context.Context, log *AuditLogMessage) (string, error) {
	id := log.RequestID
	if id == "" {
		id = uuid.NewString()
	}
	msg, err := NewMessage(id, TypeAudit, log.UserID, "", log)
	if err != nil {
		return "", err
	}
	return p.Publish(ctx, p.auditStream, msg)
}
