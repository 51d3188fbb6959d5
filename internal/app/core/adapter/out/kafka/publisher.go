package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/segmentio/kafka-go"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
)

// EventStatementCreated 帳目建立事件名稱
const EventStatementCreated = "statement.created"

// Config Kafka 發布配置
type Config struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	// 單筆訊息最多等待多久就送出，預設 10ms
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	// 發布的最長時間，與請求的 context 無關，預設 5s
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// StatementEvent 發布到 Kafka 的事件內容
type StatementEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`

	StatementID string    `json:"statement_id"`
	UserID      string    `json:"user_id"`
	SenderID    *string   `json:"sender_id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewStatementEvent 由帳目建立事件，金額以字串保留精度
func NewStatementEvent(statement domain.Statement) StatementEvent {
	event := StatementEvent{
		EventID:     ulid.Make().String(),
		EventType:   EventStatementCreated,
		OccurredAt:  time.Now().UTC(),
		StatementID: statement.ID().String(),
		UserID:      statement.UserID().String(),
		Type:        string(statement.Type()),
		Amount:      statement.Amount().String(),
		Description: statement.Description(),
		CreatedAt:   statement.CreatedAt(),
	}
	if sender, ok := statement.SenderID(); ok {
		s := sender.String()
		event.SenderID = &s
	}
	return event
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher 以 kafka-go 發布帳目事件
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
}

func NewPublisher(cfg Config) *Publisher {
	topic := cfg.Topic
	if topic == "" {
		topic = "statements"
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			MaxAttempts:            3,
			BatchTimeout:           batchTimeout,
			WriteTimeout:           timeout,
			AllowAutoTopicCreation: true,
		},
		timeout: timeout,
	}
}

// PublishStatementCreated 以收款帳戶為 key，同一帳戶的事件落在同一個 partition
// 帳目已寫入，請求被取消後仍要送出事件，因此不沿用請求的取消訊號
func (p *Publisher) PublishStatementCreated(ctx context.Context, statement domain.Statement) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	event := NewStatementEvent(statement)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.UserID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ usecase.EventPublisher = (*Publisher)(nil)
