package main

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/petasbytes/todo-agent/internal/web"
)

type turner interface {
	Turn(ctx context.Context, user string) (string, error)
}

// isExit reports whether line asks to leave the chat.
func isExit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit":
		return true
	}
	return false
}

// runChat reads lines until exit, EOF, Ctrl-C or ctx cancellation, running one turn per line.
func runChat(ctx context.Context, chat turner, in lineInput, r *renderer) error {
	r.info("Chat with your to-do assistant (type 'exit' or 'quit' to leave)")
	for {
		if ctx.Err() != nil {
			r.info("Exiting...")
			return nil
		}
		line, err := in.ReadLine(r.prompt())
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				r.info("Goodbye!")
				return nil
			}
			return err
		}
		if isExit(line) {
			r.info("Goodbye!")
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		reply, err := chat.Turn(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				r.info("Exiting...")
				return nil
			}
			r.failure(web.ErrorPrefix + err.Error())
			continue
		}
		r.assistant(reply)
	}
}
