package handler

import (
	"context"

	"github.com/use-agent/cadastre/harvest"
	"github.com/use-agent/cadastre/models"
)

// Upstream is the part of the cadastral client the handlers use;
// *cadastral.Client satisfies it.
type Upstream interface {
	harvest.Fetcher
	Counties(ctx context.Context) ([]models.County, error)
	Fragment(ctx context.Context, category models.Category, geocode string, year int) (string, error)
}
