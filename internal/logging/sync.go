package logging

import (
	"github.com/confsync/confsync/internal/broker"
)

// LevelSettingKey is the setting that carries the logging level.
const LevelSettingKey = "loggingLevel"

// MessageLevelChanged is the cross-context message type announcing a
// new logging level.
const MessageLevelChanged = "LOGGING_LEVEL_CHANGED"

// Synchronizer keeps logger levels aligned across contexts.
//
// The owning context (the one with access to the live context list)
// reacts to loggingLevel changes by applying the level locally and
// broadcasting it to matching contexts. Receiving contexts install
// HandleMessage as their broker handler and apply announced levels to
// their own logger.
type Synchronizer struct {
	logger    *Logger
	broker    *broker.Broker
	contextID string
	patterns  []string
}

// NewSynchronizer creates a synchronizer for one context's logger.
// patterns restricts which context URLs receive level broadcasts.
func NewSynchronizer(logger *Logger, b *broker.Broker, contextID string, patterns []string) *Synchronizer {
	return &Synchronizer{
		logger:    logger,
		broker:    b,
		contextID: contextID,
		patterns:  patterns,
	}
}

// ApplyLevel coerces raw into a level and applies it to the local
// logger without announcing it to other contexts. Used when seeding
// the level from stored settings at startup.
func (s *Synchronizer) ApplyLevel(raw any) Level {
	level := CoerceLevel(raw)
	s.logger.SetLevel(level)
	return level
}

// HandleLocalChange reacts to a settings change event. When the event
// carries a logging level, the level is applied to the local logger
// and broadcast to other live contexts. Per-target delivery failures
// are swallowed: a context that no longer exists (or never loaded the
// handler) must not abort delivery to the rest. Each failure is still
// logged so the swallowing is visible.
func (s *Synchronizer) HandleLocalChange(changes map[string]any) {
	raw, ok := changes[LevelSettingKey]
	if !ok {
		return
	}

	level := s.ApplyLevel(raw)

	if s.broker == nil {
		return
	}

	results := s.broker.Broadcast(s.contextID, broker.Message{
		Type:    MessageLevelChanged,
		Payload: int(level),
	}, s.patterns)

	for _, r := range results {
		if r.Err != nil {
			s.logger.Debug("level broadcast to %s failed: %v", r.Target, r.Err)
		}
	}
}

// HandleMessage is the receiving context's broker handler. It applies
// announced levels to the local logger, falling back to INFO when the
// payload is not a recognized level, and responds synchronously.
// Messages of other types are ignored.
func (s *Synchronizer) HandleMessage(msg broker.Message) (any, error) {
	if msg.Type != MessageLevelChanged {
		return nil, nil
	}

	level := CoerceLevel(msg.Payload)
	s.logger.SetLevel(level)
	return map[string]any{"level": int(level)}, nil
}
