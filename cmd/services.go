package cmd

import (
	"context"
	"fmt"

	"github.com/bassamadnan/mailagent/drafts"
	"github.com/bassamadnan/mailagent/inbox"
	"github.com/bassamadnan/mailagent/llm"
	"github.com/bassamadnan/mailagent/pipeline"
	"github.com/bassamadnan/mailagent/prompts"
)

type services struct {
	inbox   *inbox.Store
	prompts *prompts.Store
	drafts  *drafts.Store
	gateway *llm.Gateway
	proc    *pipeline.Processor
}

// openServices loads the stores and builds the gateway and pipeline from cfg.
func openServices(ctx context.Context) (*services, error) {
	gw, err := llm.New(ctx, cfg.Gateway(), logger)
	if err != nil {
		return nil, fmt.Errorf("creating LLM gateway: %w", err)
	}
	s := &services{
		inbox:   inbox.NewStore(cfg.InboxPath(), logger),
		prompts: prompts.NewStore(cfg.PromptsPath(), logger),
		drafts:  drafts.NewStore(cfg.DraftsPath(), logger),
		gateway: gw,
	}
	s.proc = pipeline.NewProcessor(s.inbox, s.prompts, s.gateway, s.drafts, logger)
	return s, nil
}
