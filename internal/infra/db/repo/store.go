package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application/consts"
	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
	"github.com/kuziva-m/mvp-sub001/internal/infra/db"
	dbs "github.com/kuziva-m/mvp-sub001/pkg/db"
	shared "github.com/kuziva-m/mvp-sub001/pkg/interfaces"
)

// Store adapts the transactional repos to the coordinator's DeliveryStore.
// Every call runs in its own short transaction, so a persisted step
// transition survives a crash of the rest of the run.
type Store struct {
	uowFactory *dbs.UOWFactory
}

var _ interfaces.DeliveryStore = (*Store)(nil)

func NewStore(uowFactory *dbs.UOWFactory) *Store {
	return &Store{uowFactory: uowFactory}
}

func (s *Store) GetCustomer(ctx context.Context, id uuid.UUID) (customer *db.Customer, err error) {
	uow := s.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return nil, err
	}
	defer uow.Finalize(&err)
	customer, err = NewCustomerRepo(tx).GetCustomerByID(ctx, id)
	return customer, err
}

func (s *Store) GetSite(ctx context.Context, id uuid.UUID) (site *db.Site, err error) {
	uow := s.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return nil, err
	}
	defer uow.Finalize(&err)
	site, err = NewCustomerRepo(tx).GetSiteByID(ctx, id)
	return site, err
}

func (s *Store) UpdateSiteStatus(ctx context.Context, id uuid.UUID, status consts.SiteStatus) (err error) {
	uow := s.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return err
	}
	defer uow.Finalize(&err)
	return NewCustomerRepo(tx).UpdateSiteStatus(ctx, id, status)
}

func (s *Store) GetAttempt(ctx context.Context, id uuid.UUID) (attempt *db.DeliveryAttempt, err error) {
	uow := s.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return nil, err
	}
	defer uow.Finalize(&err)
	attempt, err = NewDeliveryRepo(tx).GetAttemptByID(ctx, id)
	return attempt, err
}

func (s *Store) FindActiveAttempt(ctx context.Context, customerID, siteID uuid.UUID) (attempt *db.DeliveryAttempt, err error) {
	uow := s.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return nil, err
	}
	defer uow.Finalize(&err)
	attempt, err = NewDeliveryRepo(tx).FindActiveAttempt(ctx, customerID, siteID)
	return attempt, err
}

func (s *Store) FindLatestAttempt(ctx context.Context, customerID, siteID uuid.UUID) (attempt *db.DeliveryAttempt, err error) {
	uow := s.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return nil, err
	}
	defer uow.Finalize(&err)
	attempt, err = NewDeliveryRepo(tx).FindLatestAttempt(ctx, customerID, siteID)
	return attempt, err
}

func (s *Store) ListAttempts(ctx context.Context, filter interfaces.AttemptFilter) (attempts []db.DeliveryAttempt, err error) {
	uow := s.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return nil, err
	}
	defer uow.Finalize(&err)
	attempts, err = NewDeliveryRepo(tx).ListAttempts(ctx, filter)
	return attempts, err
}

func (s *Store) InsertAttempt(ctx context.Context, attempt *db.DeliveryAttempt) (err error) {
	uow := s.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return err
	}
	defer uow.Finalize(&err)
	return NewDeliveryRepo(tx).InsertAttempt(ctx, attempt)
}

func (s *Store) UpdateAttempt(ctx context.Context, attempt *db.DeliveryAttempt) (err error) {
	uow := s.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return err
	}
	defer uow.Finalize(&err)
	return NewDeliveryRepo(tx).UpdateAttempt(ctx, attempt)
}

func (s *Store) InsertEvent(ctx context.Context, event shared.Event) (err error) {
	uow := s.uowFactory.GetUoW()
	tx, err := uow.Begin()
	if err != nil {
		return err
	}
	defer uow.Finalize(&err)
	if err = NewEventRepo(tx).InsertEvent(ctx, event); err != nil {
		return fmt.Errorf("err inserting event, %v", err)
	}
	return nil
}
