package user

import (
	"context"

	"findonlu-backend/internal/domain"
	"findonlu-backend/internal/pkg/validation"

	"golang.org/x/sync/errgroup"
)

// Lister is the read side of a listings store.
type Lister[T domain.Listing] interface {
	ListMine(ctx context.Context, sess *domain.Session) ([]T, error)
	CountActive(ctx context.Context) (int64, error)
}

// Service builds the signed-in user's pages across both categories.
type Service struct {
	LostFound Lister[*domain.LostFoundItem]
	Thrift    Lister[*domain.ThriftItem]
}

// Counts summarises a user's posts.
type Counts struct {
	LostFound int `json:"lost_found"`
	Thrift    int `json:"thrift"`
	Active    int `json:"active"`
	Inactive  int `json:"inactive"`
}

type MyPosts struct {
	LostFound []*domain.LostFoundItem `json:"lost_found"`
	Thrift    []*domain.ThriftItem    `json:"thrift"`
	Counts    Counts                  `json:"counts"`
}

// Dashboard is the landing page: a greeting and what is currently listed.
type Dashboard struct {
	DisplayName     string `json:"display_name"`
	Email           string `json:"email"`
	ActiveLostFound int64  `json:"active_lost_found"`
	ActiveThrift    int64  `json:"active_thrift"`
}

// MyPosts loads both categories concurrently. The first failure cancels the other load.
func (s *Service) MyPosts(ctx context.Context, sess *domain.Session) (*MyPosts, error) {
	if sess == nil || sess.UserID == "" {
		return nil, domain.ErrAuthRequired
	}
	out := &MyPosts{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.LostFound.ListMine(gctx, sess)
		out.LostFound = items
		return err
	})
	g.Go(func() error {
		items, err := s.Thrift.ListMine(gctx, sess)
		out.Thrift = items
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.Counts.LostFound = len(out.LostFound)
	out.Counts.Thrift = len(out.Thrift)
	for _, l := range out.LostFound {
		out.Counts.tally(l.Status)
	}
	for _, l := range out.Thrift {
		out.Counts.tally(l.Status)
	}
	return out, nil
}

func (c *Counts) tally(st domain.Status) {
	if st == domain.StatusActive {
		c.Active++
	} else {
		c.Inactive++
	}
}

func (s *Service) Dashboard(ctx context.Context, sess *domain.Session) (*Dashboard, error) {
	if sess == nil || sess.UserID == "" {
		return nil, domain.ErrAuthRequired
	}
	d := &Dashboard{DisplayName: validation.LocalPart(sess.Email), Email: sess.Email}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.LostFound.CountActive(gctx)
		d.ActiveLostFound = n
		return err
	})
	g.Go(func() error {
		n, err := s.Thrift.CountActive(gctx)
		d.ActiveThrift = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
