package migrate

import (
	"context"
	"log/slog"

	"github.com/promptvault/promptvault/pkg/client"
	"github.com/promptvault/promptvault/pkg/store"
)

// Report summarizes an import run.
type Report struct {
	Total     int
	Succeeded int
	Failed    int
	Errors    []error
}

// Import pushes every batch item through the client's write pipeline.
// Items fail independently; one rejected prompt never aborts the rest
// of the batch.
func Import(ctx context.Context, c *client.Client, b *Batch, actor string, logger *slog.Logger) *Report {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "migrate")

	reqs := make([]client.CreateRequest, 0, len(b.Prompts))
	for _, item := range b.Prompts {
		reqs = append(reqs, client.CreateRequest{
			Name:      item.Name,
			Content:   item.Content,
			Version:   item.Version,
			Category:  store.Category(item.Category),
			RiskLevel: store.RiskLevel(item.RiskLevel),
			Actor:     actor,
			Tags:      item.Tags,
		})
	}

	created, errs := c.BulkCreate(ctx, reqs)
	report := &Report{
		Total:     len(b.Prompts),
		Succeeded: len(created),
		Failed:    len(errs),
		Errors:    errs,
	}

	for _, err := range errs {
		logger.Warn("import item rejected", "error", err)
	}
	logger.Info("import finished",
		"source", b.Source, "total", report.Total,
		"succeeded", report.Succeeded, "failed", report.Failed)
	return report
}
