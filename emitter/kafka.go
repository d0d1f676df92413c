package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/segmentio/kafka-go"

	"github.com/JokingLove/whale-alert-sync/database"
	"github.com/JokingLove/whale-alert-sync/metrics"
)

// WhaleEvent is the message value published for every newly stored transaction.
type WhaleEvent struct {
	Hash            string    `json:"hash"`
	Blockchain      string    `json:"blockchain"`
	Symbol          string    `json:"symbol"`
	Amount          string    `json:"amount"`
	AmountUsd       string    `json:"amount_usd"`
	FromAddress     string    `json:"from_address"`
	FromOwner       string    `json:"from_owner,omitempty"`
	ToAddress       string    `json:"to_address"`
	ToOwner         string    `json:"to_owner,omitempty"`
	TransactionType string    `json:"transaction_type"`
	Timestamp       time.Time `json:"timestamp"`
}

type KafkaEmitter struct {
	writer *kafka.Writer
	mu     sync.Mutex
}

func NewKafkaEmitter(brokers []string, topic string) *KafkaEmitter {
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Emit publishes one message per transaction keyed by hash, so a partition
// sees every event of a transaction in order.
func (k *KafkaEmitter) Emit(ctx context.Context, txs []database.WhaleTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	msgs, err := newMessages(txs)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.writer == nil {
		return fmt.Errorf("kafka emitter is closed")
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		metrics.EventsEmitted.WithLabelValues("error").Add(float64(len(msgs)))
		return fmt.Errorf("failed to write messages to kafka: %w", err)
	}
	metrics.EventsEmitted.WithLabelValues("ok").Add(float64(len(msgs)))
	log.Debug("emitted whale events", "topic", k.writer.Topic, "count", len(msgs))
	return nil
}

func (k *KafkaEmitter) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer != nil {
		err := k.writer.Close()
		k.writer = nil
		return err
	}
	return nil
}

func newMessages(txs []database.WhaleTransaction) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(txs))
	for _, tx := range txs {
		value, err := json.Marshal(WhaleEvent{
			Hash:            tx.Hash,
			Blockchain:      tx.Blockchain.String(),
			Symbol:          tx.Symbol,
			Amount:          tx.Amount.String(),
			AmountUsd:       tx.AmountUsd.String(),
			FromAddress:     tx.FromAddress,
			FromOwner:       tx.FromOwner,
			ToAddress:       tx.ToAddress,
			ToOwner:         tx.ToOwner,
			TransactionType: tx.TransactionType.String(),
			Timestamp:       tx.Timestamp.UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event %s: %w", tx.Hash, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(tx.Hash),
			Value: value,
		})
	}
	return msgs, nil
}
