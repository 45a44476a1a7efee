package marketplace

import (
	"context"
	"net/http"

	"github.com/h2market/h2trade/internal/core/domain"
)

type ProfileService struct {
	d Doer
}

type profileResponse struct {
	User *domain.UserRecord `json:"user"`
}

// Get returns the authenticated user's record.
func (s *ProfileService) Get(ctx context.Context) (*domain.UserRecord, error) {
	var out profileResponse
	if err := s.d.Do(ctx, http.MethodGet, "/user/profile", nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, domain.NewError(domain.KindUnknown, "profile response carried no user", nil)
	}
	return out.User, nil
}
