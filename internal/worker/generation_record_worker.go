package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"portfolio-chatbot/internal/model"
	"portfolio-chatbot/internal/platform/rabbitmq"
)

type recordStore interface {
	Create(record *model.GenerationRecord) error
}

// GenerationRecordWorker drains the audit queue into the generation_records table.
type GenerationRecordWorker struct {
	conn      *amqp.Connection
	repo      recordStore
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewGenerationRecordWorker(conn *amqp.Connection, repo recordStore, queueName string) *GenerationRecordWorker {
	return &GenerationRecordWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
	}
}

func (w *GenerationRecordWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(d.Body); err != nil {
					slog.Error("generation record dropped", "queue", w.queueName, "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *GenerationRecordWorker) handle(body []byte) error {
	var record model.GenerationRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return fmt.Errorf("decode generation record failed: %w", err)
	}
	if record.ChatID == 0 || record.Trigger == "" {
		return fmt.Errorf("generation record is missing chat or trigger")
	}
	record.ID = 0
	if err := w.repo.Create(&record); err != nil {
		return fmt.Errorf("persist generation record failed: %w", err)
	}
	return nil
}

func (w *GenerationRecordWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
