// Package session runs conversational turns against a runner and keeps the
// text transcript on disk.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/charmbracelet/log"
	"github.com/petasbytes/todo-agent/internal/runner"
	"github.com/petasbytes/todo-agent/internal/telemetry"
	"github.com/petasbytes/todo-agent/memory"
)

// DefaultMaxSteps bounds the model round trips in one turn.
const DefaultMaxSteps = 8

var (
	ErrEmptyInput   = errors.New("session: empty message")
	ErrTooManySteps = errors.New("session: turn did not finish within the step limit")
)

// Stepper advances a conversation by one model call. *runner.Runner satisfies it.
type Stepper interface {
	RunOneStep(ctx context.Context, conv []anthropic.MessageParam) (*anthropic.Message, []anthropic.ContentBlockParamUnion, error)
}

// Session holds one user's conversation. Turns are serialised.
type Session struct {
	mu         sync.Mutex
	stepper    Stepper
	path       string
	logger     *log.Logger
	maxSteps   int
	conv       []anthropic.MessageParam
	transcript []memory.Message
}

// Open loads the transcript at path and returns a session continuing it.
// An unreadable transcript is logged and replaced by an empty one.
func Open(path string, stepper Stepper, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	transcript, err := memory.LoadConversation(path)
	if err != nil {
		logger.Warn("failed to load persisted conversation; starting fresh", "path", path, "err", err)
		transcript = nil
	}
	return &Session{
		stepper:    stepper,
		path:       path,
		logger:     logger,
		maxSteps:   DefaultMaxSteps,
		conv:       memory.ToParams(transcript),
		transcript: transcript,
	}
}

// SetMaxSteps overrides DefaultMaxSteps; n <= 0 is ignored.
func (s *Session) SetMaxSteps(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.maxSteps = n
	s.mu.Unlock()
}

// Turn sends user to the model, runs every requested tool, and returns the
// assistant's visible reply. On error the in-memory conversation is left as it
// was before the turn.
func (s *Session) Turn(ctx context.Context, user string) (string, error) {
	if strings.TrimSpace(user) == "" {
		return "", ErrEmptyInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, turnID := telemetry.EnsureTurnID(ctx)
	mark := len(s.conv)
	s.conv = append(s.conv, anthropic.NewUserMessage(anthropic.NewTextBlock(user)))

	var texts []string
	done := false
	for step := 0; step < s.maxSteps; step++ {
		msg, toolResults, err := s.stepper.RunOneStep(ctx, s.conv)
		if err != nil {
			s.conv = s.conv[:mark]
			return "", err
		}
		if len(msg.Content) > 0 {
			s.conv = append(s.conv, msg.ToParam())
		}
		if t := runner.Text(msg); t != "" {
			texts = append(texts, t)
		}
		if len(toolResults) == 0 {
			done = true
			break
		}
		s.conv = append(s.conv, anthropic.NewUserMessage(toolResults...))
	}
	if !done {
		s.conv = s.conv[:mark]
		s.logger.Warn("turn abandoned", "turn_id", turnID, "max_steps", s.maxSteps)
		return "", fmt.Errorf("%w (%d)", ErrTooManySteps, s.maxSteps)
	}

	reply := strings.Join(texts, "\n")
	s.transcript = append(s.transcript, memory.Message{Role: memory.RoleUser, Text: user})
	if strings.TrimSpace(reply) != "" {
		s.transcript = append(s.transcript, memory.Message{Role: memory.RoleAssistant, Text: reply})
	}
	if err := memory.SaveConversation(s.path, s.transcript); err != nil {
		s.logger.Warn("failed to save conversation", "path", s.path, "err", err)
	}
	return reply, nil
}

// History returns a copy of the persisted transcript.
func (s *Session) History() []memory.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]memory.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}
