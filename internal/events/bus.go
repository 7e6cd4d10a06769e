/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import (
	"sync"

	"github.com/friendsincode/huginn_dj/internal/telemetry"
)

// EventType enumerates event categories.
type EventType string

const (
	EventSessionStarted  EventType = "session.started"
	EventSessionEnded    EventType = "session.ended"
	EventTrackSelected   EventType = "track.selected"
	EventTrackSkipped    EventType = "track.skipped"
	EventPhaseChanged    EventType = "phase.changed"
	EventSettingsUpdated EventType = "settings.updated"
	EventTracksAdded     EventType = "tracks.added"
	EventSessionArchived EventType = "session.archived"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Envelope carries a payload together with its type for wildcard subscribers.
type Envelope struct {
	Type    EventType `json:"type"`
	Payload Payload   `json:"payload"`
}

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu      sync.RWMutex
	subs    map[EventType][]Subscriber
	allSubs []chan Envelope
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// SubscribeAll registers a subscriber that receives every event with its type.
func (b *Bus) SubscribeAll() chan Envelope {
	ch := make(chan Envelope, 32)
	b.mu.Lock()
	b.allSubs = append(b.allSubs, ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. Slow subscribers drop events rather
// than block the publisher.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	allSubs := append([]chan Envelope(nil), b.allSubs...)
	b.mu.RUnlock()

	telemetry.EventsPublishedTotal.WithLabelValues(string(eventType)).Inc()

	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
	for _, sub := range allSubs {
		select {
		case sub <- Envelope{Type: eventType, Payload: payload}:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}

// UnsubscribeAll removes a wildcard subscriber.
func (b *Bus) UnsubscribeAll(sub chan Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, candidate := range b.allSubs {
		if candidate == sub {
			b.allSubs = append(b.allSubs[:i], b.allSubs[i+1:]...)
			break
		}
	}
	close(sub)
}
