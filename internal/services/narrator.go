package services

import (
	"context"

	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/platform/textgen"
	"github.com/lumenlearn/insight-backend/internal/resilience"
)

// Narrator phrases qualitative text (alert summaries, burnout
// recommendations). Every call goes through the resilience layer; a nil
// Narrator or any failure means the caller falls back to canned text.
type Narrator interface {
	Narrate(ctx context.Context, system, user string) (string, error)
}

type narrator struct {
	log      *logger.Logger
	client   textgen.Client
	executor *resilience.Executor
	policy   resilience.Policy
}

// NewNarrator returns nil when no textgen client is configured.
func NewNarrator(log *logger.Logger, client textgen.Client, executor *resilience.Executor) Narrator {
	if client == nil {
		return nil
	}
	return &narrator{
		log:      log.With("service", "Narrator"),
		client:   client,
		executor: executor,
		policy:   resilience.DefaultPolicy(),
	}
}

func (n *narrator) Narrate(ctx context.Context, system, user string) (string, error) {
	var out string
	err := n.executor.Execute(ctx, "textgen.generate", n.policy, func(ctx context.Context) error {
		text, genErr := n.client.GenerateText(ctx, system, user)
		if genErr != nil {
			return genErr
		}
		out = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
