package workflow

import (
	"aisocial/internal/domain"
	"aisocial/internal/infra"
)

// ExecutorConfigFrom maps the environment configuration onto executor pacing
// and pricing.
func ExecutorConfigFrom(cfg *infra.Config) ExecutorConfig {
	out := DefaultExecutorConfig(domain.CostTable{Image: cfg.CreditCostImage, Video: cfg.CreditCostVideo})
	if cfg.ExecPrepareDwell >= 0 {
		out.PrepareDwell = cfg.ExecPrepareDwell
	}
	if cfg.ExecPollInterval > 0 {
		out.PollInterval = cfg.ExecPollInterval
	}
	if cfg.ExecPublishDwell >= 0 {
		out.PublishDwell = cfg.ExecPublishDwell
	}
	if cfg.ExecRunTimeout > 0 {
		out.RunTimeout = cfg.ExecRunTimeout
	}
	if cfg.ExecCreatedSkew >= 0 {
		out.CreatedSkew = cfg.ExecCreatedSkew
	}
	return out
}
