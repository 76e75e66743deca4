package request

import "waste-marketplace/pkg/utils"

type PaginatedRequest struct {
	Page    int `json:"page" validate:"min=1"`
	PerPage int `json:"per_page" validate:"min=1,max=100"`
}

// Normalize clamps page and per_page into the accepted range.
func (p PaginatedRequest) Normalize() PaginatedRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	p.PerPage = p.Limit()
	return p
}

func (p PaginatedRequest) Offset() int {
	return utils.CalculateOffset(p.Page, p.Limit())
}

func (p PaginatedRequest) Limit() int {
	return utils.ClampPerPage(p.PerPage)
}
