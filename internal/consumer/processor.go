// Package consumer pulls sync requests from Kafka and runs the ingestion
// pipeline for each one.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/tessera/internal/domain"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded sync requests.
type Handler interface {
	Handle(context.Context, SyncRequest) error
}

// SyncRequest is the decoded representation of one Kafka record on the
// sync_requests topic.
type SyncRequest struct {
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	RequestID string
	UserID    string
	Vendor    domain.Source
	StartDate *time.Time
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler.
type Processor struct {
	reader  Reader
	handler Handler
	logger  *log.Logger
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  log.New(log.Writer(), "[consumer] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts a blocking loop that processes Kafka messages until the context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Printf("fetch error: %v", err)
			continue
		}

		request, decodeErr := decodeRequest(msg)
		if decodeErr != nil {
			p.logger.Printf("decode error (topic=%s, partition=%d, offset=%d): %v", msg.Topic, msg.Partition, msg.Offset, decodeErr)
			recordDecodeError(msg.Topic)
			// Commit malformed messages to avoid poison-pill loops.
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Printf("commit error after decode failure: %v", commitErr)
			}
			continue
		}

		if handleErr := p.handler.Handle(ctx, request); handleErr != nil {
			p.logger.Printf("handler error (vendor=%s, user=%s): %v", request.Vendor, request.UserID, handleErr)
			recordHandlerError(request)
			continue
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.logger.Printf("commit error: %v", commitErr)
		} else {
			recordProcessed(request)
		}
	}
}

type syncPayload struct {
	UserID    string `json:"user_id"`
	Vendor    string `json:"vendor"`
	StartDate string `json:"start_date"`
}

func decodeRequest(msg kafka.Message) (SyncRequest, error) {
	var payload syncPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return SyncRequest{}, fmt.Errorf("invalid payload: %w", err)
	}
	if payload.UserID == "" {
		return SyncRequest{}, errors.New("missing user_id")
	}

	vendor, err := domain.ParseSource(payload.Vendor)
	if err != nil {
		return SyncRequest{}, err
	}

	var start *time.Time
	if payload.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", payload.StartDate)
		if err != nil {
			return SyncRequest{}, fmt.Errorf("invalid start_date %q", payload.StartDate)
		}
		start = &parsed
	}

	requestID, _ := headerValue(msg, "request_id")

	return SyncRequest{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		RequestID: string(requestID),
		UserID:    payload.UserID,
		Vendor:    vendor,
		StartDate: start,
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
