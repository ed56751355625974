package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AppointmentEvent is the JSON payload published for appointment changes.
type AppointmentEvent struct {
	EventID         string    `json:"eventId"`
	EventType       string    `json:"eventType"`
	OccurredAt      time.Time `json:"occurredAt"`
	AppointmentID   string    `json:"appointmentId"`
	UserID          string    `json:"userId"`
	DoctorID        string    `json:"doctorId"`
	TimeSlotID      string    `json:"timeSlotId"`
	Date            string    `json:"date"`
	StartTime       string    `json:"startTime"`
	EndTime         string    `json:"endTime"`
	AppointmentType string    `json:"appointmentType"`
	Status          string    `json:"status"`
	ConsultationFee int       `json:"consultationFee"`
	CancelledBy     string    `json:"cancelledBy,omitempty"`
	Reason          string    `json:"reason,omitempty"`
}

type KafkaPublisher struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" {
		return nil
	}
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: int(kafka.RequireOne),
	})
	return &KafkaPublisher{writer: writer, topic: topic, now: time.Now}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, b Booking) error {
	msg, err := buildEventMessage(eventType, b, p.now())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", eventType, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// buildEventMessage keys by appointment id so every change of one appointment
// lands on the same partition in order.
func buildEventMessage(eventType string, b Booking, now time.Time) (kafka.Message, error) {
	a := b.Appointment
	event := AppointmentEvent{
		EventID:         uuid.NewString(),
		EventType:       eventType,
		OccurredAt:      now.UTC(),
		AppointmentID:   a.ID,
		UserID:          a.UserID,
		DoctorID:        a.DoctorID,
		TimeSlotID:      a.TimeSlotID,
		Date:            b.Slot.Date,
		StartTime:       b.Slot.StartTime,
		EndTime:         b.Slot.EndTime,
		AppointmentType: a.AppointmentType,
		Status:          a.Status,
		ConsultationFee: a.ConsultationFee,
		CancelledBy:     a.CancelledBy,
		Reason:          a.CancellationReason,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return kafka.Message{
		Key:   []byte(a.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID)},
			{Key: "event_type", Value: []byte(eventType)},
		},
	}, nil
}

// SplitBrokers parses a comma separated broker list.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
