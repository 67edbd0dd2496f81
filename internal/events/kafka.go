package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fiftydrive/fifty-drive-backend/internal/models"
)

// OrderEvent is the analytics-stream record emitted on every lifecycle
// transition, keyed by order id so per-order events stay ordered within
// a partition.
type OrderEvent struct {
	OrderID     uint               `json:"orderId"`
	Status      models.OrderStatus `json:"status"`
	PassengerID uint               `json:"passengerId"`
	DriverID    *uint              `json:"driverId,omitempty"`
	RideClass   models.RideClass   `json:"rideClass"`
	Cost        float64            `json:"cost"`
	At          time.Time          `json:"at"`
}

type Producer struct {
	writer *kafka.Writer
}

// NewProducer returns nil when no brokers are configured; a nil
// Producer is a no-op publisher.
func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 {
		return nil
	}
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &Producer{writer: w}
}

func (p *Producer) PublishOrderEvent(o *models.Order) error {
	if p == nil || p.writer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev := OrderEvent{
		OrderID:     o.ID,
		Status:      o.Status,
		PassengerID: o.PassengerID,
		DriverID:    o.DriverID,
		RideClass:   o.RideClass,
		Cost:        o.FinalCost(),
		At:          time.Now(),
	}
	b, _ := json.Marshal(ev)
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(o.ID), 10)),
		Value: b,
	})
}

func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
