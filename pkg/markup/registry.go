package markup

import (
	"context"
	"log/slog"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/quasijson"
	"github.com/dtnitsch/drawing-sync/pkg/syncerr"
)

// Lister is the engine call the registry depends on.
type Lister interface {
	MarkupList(ctx context.Context, doc string, page models.PageNumber) (*quasijson.Object, error)
}

// Registry reads page markups from the engine. Nothing is cached: every
// query is a fresh round trip.
type Registry struct {
	engine Lister
	logger *slog.Logger
}

func NewRegistry(engine Lister, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{engine: engine, logger: logger}
}

// QueryPage returns the markups on one page of doc.
func (r *Registry) QueryPage(ctx context.Context, doc string, page models.PageNumber) (*Collection, error) {
	obj, err := r.engine.MarkupList(ctx, doc, page)
	if err != nil {
		return nil, err
	}
	c, err := FromObject(obj)
	if err != nil {
		e := syncerr.NewExternalEngine("invalid markup in reply", err, doc)
		e.Page = int(page)
		return nil, e
	}
	r.logger.Debug("Queried markups", "document", doc, "page", int(page), "markup_count", c.Len())
	return c, nil
}
