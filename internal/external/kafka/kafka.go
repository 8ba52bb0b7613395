package affinity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	model "github.com/glkeru/affinity/internal/models"
	"github.com/segmentio/kafka-go"
)

const (
	InteractionsTopic = "interactions"
	LevelUpsTopic     = "levelups"
	consumerGroup     = "affinity"
)

func broker() (string, error) {
	kafkaurl := os.Getenv("KAFKA_URL")
	if kafkaurl == "" {
		return "", fmt.Errorf("env KAFKA_URL is not set")
	}
	kafkaport := os.Getenv("KAFKA_PORT")
	if kafkaport == "" {
		return "", fmt.Errorf("env KAFKA_PORT is not set")
	}
	return kafkaurl + ":" + kafkaport, nil
}

// Чтение действий пользователей
type KafkaReader struct {
	reader *kafka.Reader
}

func GetNewReader(topic string) (reader *KafkaReader, err error) {
	addr, err := broker()
	if err != nil {
		return nil, err
	}
	kafkaconfig := kafka.ReaderConfig{
		Brokers: []string{addr},
		Topic:   topic,
		GroupID: consumerGroup,
	}
	return &KafkaReader{kafka.NewReader(kafkaconfig)}, nil
}

func (k *KafkaReader) GetNewMessage(ctx context.Context) ([]byte, error) {
	msg, err := k.reader.ReadMessage(ctx)
	if err != nil {
		return nil, err
	}
	return msg.Value, nil
}

func (k *KafkaReader) CloseReader() {
	k.reader.Close()
}

// Публикация повышений уровня
type LevelUpWriter struct {
	writer *kafka.Writer
}

func NewLevelUpWriter() (*LevelUpWriter, error) {
	addr, err := broker()
	if err != nil {
		return nil, err
	}
	return &LevelUpWriter{&kafka.Writer{
		Addr:         kafka.TCP(addr),
		Topic:        LevelUpsTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}, nil
}

// ключ - владелец, события одного владельца в одной партиции
func (l *LevelUpWriter) PublishLevelUp(ctx context.Context, evt model.LevelUpEvent) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return l.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.OwnerID),
		Value: value,
	})
}

func (l *LevelUpWriter) Close() error {
	return l.writer.Close()
}
