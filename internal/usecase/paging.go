package usecase

import (
	"context"

	"waste-marketplace/internal/dto/request"
	"waste-marketplace/internal/dto/response"
	"waste-marketplace/pkg/apperror"

	"golang.org/x/sync/errgroup"
)

// paginate runs the page query and the count concurrently.
func paginate[E any, R any](
	ctx context.Context,
	page request.PaginatedRequest,
	find func(ctx context.Context, limit, offset int) ([]E, error),
	count func(ctx context.Context) (int64, error),
	convert func(E) R,
) (*response.PaginatedResponse[R], error) {
	page = page.Normalize()

	var items []E
	var total int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = find(gctx, page.Limit(), page.Offset())
		return err
	})
	g.Go(func() error {
		var err error
		total, err = count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.Internal("failed to load page", err)
	}

	data := make([]R, 0, len(items))
	for _, item := range items {
		data = append(data, convert(item))
	}

	return response.NewPaginatedResponse(data, page.Page, page.PerPage, total), nil
}
