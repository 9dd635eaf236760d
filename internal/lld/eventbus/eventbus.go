// Package eventbus implements the event bus collaborator spec.md §6
// describes: emitting internal state-transition events and flushing
// them downstream, backed by natsclient's JetStream client.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/c360/lld/errors"
	"github.com/c360/lld/natsclient"
)

// Event is the internal discovery-state event spec.md §6 calls
// `emit(source=internal, object=lld_rule, id=rule_id, ts, state=normal)`.
type Event struct {
	Source        string    `json:"source"`
	Object        string    `json:"object"`
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"ts"`
	State         string    `json:"state"`
	CorrelationID string    `json:"correlation_id"`
}

// Bus is the narrow event-bus collaborator of spec.md §6/§7.
type Bus interface {
	Emit(ctx context.Context, ev Event) error
	ProcessEvents(ctx context.Context) error
	CleanEvents(ctx context.Context) error
}

// NatsBus implements Bus over a natsclient.Client, publishing to
// JetStream subjects scoped by rule id and rate-limiting the two
// housekeeping calls so bursty state transitions cannot flood the
// control subjects (mirrors natsclient's own reconnect backoff idiom).
type NatsBus struct {
	client        *natsclient.Client
	subjectPrefix string
	limiter       *rate.Limiter
}

// NewNatsBus builds a NatsBus. subjectPrefix roots every subject this
// bus publishes to (e.g. "lld"). ratePerSecond/burst bound
// ProcessEvents/CleanEvents call frequency; zero ratePerSecond disables
// limiting.
func NewNatsBus(client *natsclient.Client, subjectPrefix string, ratePerSecond float64, burst int) *NatsBus {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}
	return &NatsBus{client: client, subjectPrefix: subjectPrefix, limiter: limiter}
}

func (b *NatsBus) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	return b.limiter.Wait(ctx)
}

// Emit publishes ev to "<prefix>.rule.<id>.state". A blank
// CorrelationID is filled in so every emitted event can be traced
// through downstream process_events/clean_events housekeeping,
// mirroring message.BaseMessage's uuid-per-message idiom.
func (b *NatsBus) Emit(ctx context.Context, ev Event) error {
	if ev.CorrelationID == "" {
		ev.CorrelationID = uuid.New().String()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.WrapInvalid(err, "NatsBus", "Emit", "marshal event")
	}
	subject := fmt.Sprintf("%s.rule.%d.state", b.subjectPrefix, ev.ID)
	if err := b.client.PublishToStream(ctx, subject, data); err != nil {
		return errors.WrapTransient(err, "NatsBus", "Emit", "publish")
	}
	return nil
}

// ProcessEvents flushes the emitted-events queue downstream, mirroring
// the original's process_events() housekeeping call. Implemented as a
// control-subject publish so a downstream housekeeping subscriber can
// trigger its own batch pass.
func (b *NatsBus) ProcessEvents(ctx context.Context) error {
	if err := b.wait(ctx); err != nil {
		return errors.WrapTransient(err, "NatsBus", "ProcessEvents", "rate limit")
	}
	subject := b.subjectPrefix + ".control.process_events"
	if err := b.client.Publish(ctx, subject, nil); err != nil {
		return errors.WrapTransient(err, "NatsBus", "ProcessEvents", "publish")
	}
	return nil
}

// CleanEvents prunes already-processed events, mirroring clean_events().
func (b *NatsBus) CleanEvents(ctx context.Context) error {
	if err := b.wait(ctx); err != nil {
		return errors.WrapTransient(err, "NatsBus", "CleanEvents", "rate limit")
	}
	subject := b.subjectPrefix + ".control.clean_events"
	if err := b.client.Publish(ctx, subject, nil); err != nil {
		return errors.WrapTransient(err, "NatsBus", "CleanEvents", "publish")
	}
	return nil
}
