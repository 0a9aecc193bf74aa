// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package dataloader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/catalogus/internal/config"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
)

// StreamName is the JetStream stream carrying dataloader jobs. Stream names
// cannot contain '.', so the topic is bound to it as a subject.
const StreamName = "DATALOADER"

const (
	queueGroup       = "dataloader"
	metadataPartner  = "partner"
	metadataService  = "service"
	metadataCorrelID = "correlation_id"
)

// PubSub is the job transport.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	// Transport is "gochannel" or "nats".
	Transport string
}

// Close closes the publisher and, when distinct, the subscriber.
func (p *PubSub) Close() error {
	err := p.Publisher.Close()
	if s, ok := p.Subscriber.(message.Publisher); !ok || s != p.Publisher {
		err = errors.Join(err, p.Subscriber.Close())
	}
	return err
}

// NewWatermillLogger adapts the global zerolog logger for Watermill.
func NewWatermillLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger())
}

// NewPubSub returns the in-process gochannel transport, or NATS JetStream
// when cfg.NATSURL is set.
func NewPubSub(ctx context.Context, cfg *config.MessagingConfig) (*PubSub, error) {
	logger := NewWatermillLogger()
	if cfg.NATSURL == "" {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
		return &PubSub{Publisher: ch, Subscriber: ch, Transport: "gochannel"}, nil
	}

	if err := ensureStream(ctx, cfg); err != nil {
		return nil, err
	}
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.NATSURL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.NATSURL,
		QueueGroupPrefix: queueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   10 * time.Minute,
		CloseTimeout:     30 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			DurablePrefix: queueGroup,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.BindStream(StreamName),
				natsgo.MaxDeliver(5),
				natsgo.DeliverNew(),
			},
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}
	return &PubSub{Publisher: pub, Subscriber: sub, Transport: "nats"}, nil
}

// ensureStream creates the jobs stream or updates its subjects.
func ensureStream(ctx context.Context, cfg *config.MessagingConfig) error {
	nc, err := natsgo.Connect(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("open jetstream: %w", err)
	}
	streamCfg := jetstream.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{cfg.Topic},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     7 * 24 * time.Hour,
		Duplicates: 2 * time.Minute,
		Storage:    jetstream.FileStorage,
	}

	_, err = js.Stream(ctx, StreamName)
	switch {
	case err == nil:
		_, err = js.UpdateStream(ctx, streamCfg)
	case errors.Is(err, jetstream.ErrStreamNotFound):
		_, err = js.CreateStream(ctx, streamCfg)
	}
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", StreamName, err)
	}
	return nil
}

// Queue publishes dataloader requests.
type Queue struct {
	publisher message.Publisher
	topic     string
}

// NewQueue returns a queue publishing to topic.
func NewQueue(publisher message.Publisher, topic string) *Queue {
	return &Queue{publisher: publisher, topic: topic}
}

// Enqueue publishes req. The message UUID doubles as the NATS dedup id.
func (q *Queue) Enqueue(ctx context.Context, req models.DataLoaderRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode dataloader request: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	msg.Metadata.Set(metadataPartner, req.Partner)
	msg.Metadata.Set(metadataService, req.Service)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(metadataCorrelID, id)
	}
	if err := q.publisher.Publish(q.topic, msg); err != nil {
		return fmt.Errorf("publish dataloader request: %w", err)
	}
	logging.Ctx(ctx).Info().Str("job", msg.UUID).Str("service", req.Service).Msg("Queued data loader job")
	return nil
}

// Runner executes one request.
type Runner interface {
	Run(ctx context.Context, req models.DataLoaderRequest) error
}

var _ Runner = (*Pipeline)(nil)

// Worker consumes queued requests and runs them one at a time. It
// implements suture.Service.
type Worker struct {
	subscriber message.Subscriber
	topic      string
	runner     Runner

	readyOnce sync.Once
	ready     chan struct{}
}

// NewWorker returns a worker reading topic.
func NewWorker(subscriber message.Subscriber, topic string, runner Runner) *Worker {
	return &Worker{subscriber: subscriber, topic: topic, runner: runner, ready: make(chan struct{})}
}

// Ready is closed once the worker has subscribed.
func (w *Worker) Ready() <-chan struct{} {
	return w.ready
}

// Serve implements suture.Service.
func (w *Worker) Serve(ctx context.Context) error {
	messages, err := w.subscriber.Subscribe(ctx, w.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", w.topic, err)
	}
	w.readyOnce.Do(func() { close(w.ready) })
	logging.Info().Str("topic", w.topic).Msg("Data loader worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("subscription to %s closed", w.topic)
			}
			w.handle(ctx, msg)
		}
	}
}

// handle acks every message: a request that cannot be decoded never will
// be, and loader failures are retried by the upstream client already.
func (w *Worker) handle(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	if id := msg.Metadata.Get(metadataCorrelID); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	} else {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	log := logging.Ctx(ctx)

	var req models.DataLoaderRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		log.Error().Err(err).Str("job", msg.UUID).Msg("Dropping undecodable data loader job")
		return
	}
	if err := w.runner.Run(ctx, req); err != nil {
		log.Error().Err(err).Str("job", msg.UUID).Str("service", req.Service).
			Str("course_id", req.CourseID).Msg("Data loader job failed")
		return
	}
	log.Info().Str("job", msg.UUID).Str("service", req.Service).Msg("Data loader job finished")
}

// String implements fmt.Stringer for suture logging.
func (w *Worker) String() string {
	return "dataloader-worker"
}
