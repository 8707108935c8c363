package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const settlementTopic = "settlement-events"

type Producer struct {
	writer  *kafka.Writer
	brokers string
	logger  *zap.Logger
}

func NewProducer(brokers string, logger *zap.Logger) (*Producer, error) {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers),
		Topic:    settlementTopic,
		Balancer: &kafka.LeastBytes{},
	}

	return &Producer{
		writer:  writer,
		brokers: brokers,
		logger:  logger,
	}, nil
}

func (p *Producer) publish(key string, event any) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.Error(err))
		return err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: eventBytes,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("key", key),
			zap.Error(err))
		return err
	}
	return nil
}

func (p *Producer) PublishOrderCreated(event OrderCreatedEvent) error {
	return p.publish(fmt.Sprintf("ORDER#%s", event.OrderNumber), event)
}

func (p *Producer) PublishPaymentSettled(event PaymentSettledEvent) error {
	return p.publish(fmt.Sprintf("TXN#%s", event.TransactionID), event)
}

func (p *Producer) PublishPaymentRefunded(event PaymentRefundedEvent) error {
	return p.publish(fmt.Sprintf("TXN#%s", event.TransactionID), event)
}

func (p *Producer) PublishStockCompensated(event StockCompensatedEvent) error {
	return p.publish(fmt.Sprintf("ORDER#%s", event.OrderNumber), event)
}

func (p *Producer) HealthCheck() error {
	conn, err := kafka.Dial("tcp", p.brokers)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
