package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"couponme/api/internal/apperr"
	"couponme/api/internal/models"
)

type StatsService struct {
	users   UserStore
	coupons CouponStore
	now     Clock
}

func NewStatsService(users UserStore, coupons CouponStore) *StatsService {
	return &StatsService{users: users, coupons: coupons, now: time.Now}
}

// Compute gathers the dashboard counters. Nothing is cached.
func (s *StatsService) Compute(ctx context.Context, actor *models.User) (models.Stats, error) {
	if err := Authorize(actor, models.UserRoleAdmin); err != nil {
		return models.Stats{}, err
	}

	var stats models.Stats
	pending := models.CouponStatusPending
	approved := models.CouponStatusApproved
	now := s.now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.coupons.Count(gctx, nil)
		if err != nil {
			return fmt.Errorf("count coupons: %w", err)
		}
		stats.TotalCoupons = n
		return nil
	})
	g.Go(func() error {
		n, err := s.coupons.Count(gctx, &pending)
		if err != nil {
			return fmt.Errorf("count pending coupons: %w", err)
		}
		stats.PendingCoupons = n
		return nil
	})
	g.Go(func() error {
		n, err := s.coupons.Count(gctx, &approved)
		if err != nil {
			return fmt.Errorf("count approved coupons: %w", err)
		}
		stats.ApprovedCoupons = n
		return nil
	})
	g.Go(func() error {
		byRole, err := s.users.CountByRole(gctx)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		stats.UsersByRole = make(map[models.UserRole]int, len(models.UserRoles))
		for _, role := range models.UserRoles {
			stats.UsersByRole[role] = byRole[role]
		}
		return nil
	})
	g.Go(func() error {
		n, err := s.users.CountActiveMembers(gctx, now)
		if err != nil {
			return fmt.Errorf("count members: %w", err)
		}
		stats.ActiveMembers = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return models.Stats{}, apperr.Internal(err)
	}
	return stats, nil
}
