package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyflow-api/internal/models"
	"github.com/noah-isme/studyflow-api/internal/observability"
)

// AssignmentQuery loads the collection a subscriber is interested in.
type AssignmentQuery func(ctx context.Context) ([]models.Assignment, error)

// AssignmentFeed pushes fresh query results to subscribers whenever the store changes.
type AssignmentFeed interface {
	// Observe emits the query result immediately and again after every change.
	// Slow consumers only ever see the latest result. The returned func ends the subscription.
	Observe(ctx context.Context, query AssignmentQuery) (<-chan []models.Assignment, func())
	// Notify signals a store change to local subscribers and other nodes.
	Notify(ctx context.Context, reason string)
	// OnChange registers a hook run on every change, local or remote.
	OnChange(hook func(ctx context.Context))
	Start(ctx context.Context)
}

type feedEvent struct {
	Source string    `json:"source"`
	Reason string    `json:"reason"`
	SentAt time.Time `json:"sent_at"`
}

type feedSubscriber struct {
	query  AssignmentQuery
	signal chan struct{}
	out    chan []models.Assignment
}

type assignmentFeed struct {
	redis       *redis.Client
	redisTopic  string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	nodeID      string

	mu          sync.RWMutex
	subscribers map[*feedSubscriber]struct{}
	hooks       []func(ctx context.Context)
}

// NewAssignmentFeed constructs the change feed. Redis and NATS are optional.
func NewAssignmentFeed(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) AssignmentFeed {
	topic := ""
	subject := ""
	if channelBase != "" {
		topic = channelBase + ":assignments"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".assignments"
	}

	return &assignmentFeed{
		redis:       redisClient,
		redisTopic:  topic,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "assignment_feed").Logger(),
		nodeID:      uuid.NewString(),
		subscribers: make(map[*feedSubscriber]struct{}),
	}
}

func (f *assignmentFeed) Start(ctx context.Context) {
	if f.redis != nil && f.redisTopic != "" {
		go f.consumeRedis(ctx)
	}
	if f.nats != nil && f.natsSubject != "" {
		go f.consumeNATS(ctx)
	}
}

func (f *assignmentFeed) Observe(ctx context.Context, query AssignmentQuery) (<-chan []models.Assignment, func()) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &feedSubscriber{
		query:  query,
		signal: make(chan struct{}, 1),
		out:    make(chan []models.Assignment, 1),
	}
	sub.signal <- struct{}{}

	f.mu.Lock()
	f.subscribers[sub] = struct{}{}
	f.mu.Unlock()
	observability.LiveSubscribers().Inc()

	go f.run(subCtx, sub)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subscribers, sub)
			f.mu.Unlock()
			observability.LiveSubscribers().Dec()
			cancel()
		})
	}

	return sub.out, stop
}

func (f *assignmentFeed) OnChange(hook func(ctx context.Context)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks = append(f.hooks, hook)
}

func (f *assignmentFeed) Notify(ctx context.Context, reason string) {
	observability.FeedEvents().WithLabelValues("local").Inc()
	f.changed(ctx)

	if err := f.publish(ctx, reason); err != nil {
		f.logger.Warn().Err(err).Str("reason", reason).Msg("failed to publish assignment change")
	}
}

func (f *assignmentFeed) changed(ctx context.Context) {
	f.mu.RLock()
	hooks := append([]func(context.Context){}, f.hooks...)
	f.mu.RUnlock()

	for _, hook := range hooks {
		hook(ctx)
	}

	f.broadcast()
}

func (f *assignmentFeed) broadcast() {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for sub := range f.subscribers {
		select {
		case sub.signal <- struct{}{}:
		default:
		}
	}
}

func (f *assignmentFeed) run(ctx context.Context, sub *feedSubscriber) {
	defer close(sub.out)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.signal:
		}

		assignments, err := sub.query(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Warn().Err(err).Msg("live query failed")
			continue
		}
		deliverLatest(sub.out, assignments)
	}
}

// deliverLatest replaces any undelivered value; out must have a single writer.
func deliverLatest(out chan []models.Assignment, value []models.Assignment) {
	select {
	case out <- value:
		return
	default:
	}

	select {
	case <-out:
	default:
	}

	select {
	case out <- value:
	default:
	}
}

func (f *assignmentFeed) publish(ctx context.Context, reason string) error {
	if (f.redis == nil || f.redisTopic == "") && (f.nats == nil || f.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(feedEvent{Source: f.nodeID, Reason: reason, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	if f.redis != nil && f.redisTopic != "" {
		if err := f.redis.Publish(ctx, f.redisTopic, payload).Err(); err != nil {
			return err
		}
	}

	if f.nats != nil && f.natsSubject != "" {
		if err := f.nats.Publish(f.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (f *assignmentFeed) consumeRedis(ctx context.Context) {
	pubsub := f.redis.Subscribe(ctx, f.redisTopic)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			f.logger.Error().Err(err).Msg("assignment redis subscription closed")
			return
		}
		f.handleEvent(ctx, "redis", []byte(msg.Payload))
	}
}

func (f *assignmentFeed) consumeNATS(ctx context.Context) {
	// No queue group: each node must see every event.
	sub, err := f.nats.Subscribe(f.natsSubject, func(msg *nats.Msg) {
		f.handleEvent(ctx, "nats", msg.Data)
	})
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to subscribe to nats assignment subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			f.logger.Warn().Err(err).Msg("failed to drain assignment nats subscription")
		}
	}()
}

func (f *assignmentFeed) handleEvent(ctx context.Context, origin string, payload []byte) {
	var event feedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		f.logger.Warn().Err(err).Msg("invalid assignment event payload")
		return
	}

	if event.Source == f.nodeID {
		return
	}

	observability.FeedEvents().WithLabelValues(origin).Inc()
	f.changed(ctx)
}
