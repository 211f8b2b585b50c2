//go:build integration

package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	donationmodels "pawhaven/internal/donation/models"
	donationstore "pawhaven/internal/donation/store"
	"pawhaven/internal/guardianship/models"
	"pawhaven/internal/payment/methods"
	id "pawhaven/pkg/domain"
	"pawhaven/pkg/platform/sentinel"
	"pawhaven/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx    context.Context
	db     *sql.DB
	store  *PostgresStore
	now    time.Time
	method id.PaymentMethodID
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.db = containers.Postgres(s.T())
	s.store = NewPostgres(s.db)
	s.now = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	s.method = id.PaymentMethodID(uuid.New())
	s.Require().NoError(methods.NewPostgres(s.db).Seed(s.ctx, map[string]id.PaymentMethodID{"liqpay": s.method}))
}

func (s *PostgresStoreSuite) newAnimal() id.AnimalID {
	animalID := id.AnimalID(uuid.New())
	_, err := s.db.ExecContext(s.ctx, `INSERT INTO animals (id, name) VALUES ($1, 'Murka')`, uuid.UUID(animalID))
	s.Require().NoError(err)
	return animalID
}

func (s *PostgresStoreSuite) newGuardianship(userID id.UserID, animalID id.AnimalID) *models.Guardianship {
	g, err := models.NewGuardianship(id.GuardianshipID(uuid.New()), userID, animalID, 72*time.Hour, s.now)
	s.Require().NoError(err)
	return g
}

func (s *PostgresStoreSuite) newDonation() id.DonationID {
	user := id.UserID(uuid.New())
	d, err := donationmodels.NewDonation(id.DonationID(uuid.New()), donationmodels.NewDonationParams{
		UserID:          &user,
		Amount:          100,
		Currency:        "UAH",
		Status:          donationmodels.StatusCompleted,
		Provider:        "liqpay",
		PaymentMethodID: s.method,
		TransactionID:   uuid.NewString(),
	}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(donationstore.NewPostgres(s.db).Create(s.ctx, d))
	return d.ID
}

func (s *PostgresStoreSuite) TestOneOpenGuardianshipPerPair() {
	user := id.UserID(uuid.New())
	animal := s.newAnimal()

	first := s.newGuardianship(user, animal)
	s.Require().NoError(s.store.CreateIfNoneActive(s.ctx, first))
	s.Equal(1, first.Version)

	err := s.store.CreateIfNoneActive(s.ctx, s.newGuardianship(user, animal))
	s.True(errors.Is(err, sentinel.ErrConflict))

	first.Complete(s.now.Add(time.Hour))
	s.Require().NoError(s.store.Save(s.ctx, first))
	s.Require().NoError(s.store.CreateIfNoneActive(s.ctx, s.newGuardianship(user, animal)),
		"a completed guardianship frees the pair")
}

func (s *PostgresStoreSuite) TestSaveChecksVersionAndPersistsLinks() {
	g := s.newGuardianship(id.UserID(uuid.New()), s.newAnimal())
	s.Require().NoError(s.store.CreateIfNoneActive(s.ctx, g))

	stale, err := s.store.FindByID(s.ctx, g.ID)
	s.Require().NoError(err)

	donationID := s.newDonation()
	s.Require().NoError(g.AddDonation(donationID, s.now))
	s.Require().NoError(g.Activate(s.now))
	s.Require().NoError(s.store.Save(s.ctx, g))
	s.Equal(2, g.Version)

	s.Require().NoError(stale.RequirePayment(time.Hour, s.now))
	err = s.store.Save(s.ctx, stale)
	s.True(errors.Is(err, sentinel.ErrConflict))

	got, err := s.store.FindByIDForUpdate(s.ctx, g.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, got.Status)
	s.Nil(got.GraceUntil)
	s.Require().Len(got.Donations, 1)
	s.Equal(donationID, got.Donations[0].DonationID)

	missing := s.newGuardianship(id.UserID(uuid.New()), s.newAnimal())
	missing.Version = 1
	s.True(errors.Is(s.store.Save(s.ctx, missing), sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestListGraceExpiredAndByUser() {
	user := id.UserID(uuid.New())
	expired := s.newGuardianship(user, s.newAnimal())
	s.Require().NoError(s.store.CreateIfNoneActive(s.ctx, expired))
	active := s.newGuardianship(user, s.newAnimal())
	s.Require().NoError(s.store.CreateIfNoneActive(s.ctx, active))
	s.Require().NoError(active.Activate(s.now))
	s.Require().NoError(s.store.Save(s.ctx, active))

	list, err := s.store.ListGraceExpired(s.ctx, s.now.Add(73*time.Hour))
	s.Require().NoError(err)
	ids := map[id.GuardianshipID]bool{}
	for _, g := range list {
		ids[g.ID] = true
	}
	s.True(ids[expired.ID])
	s.False(ids[active.ID])

	mine, err := s.store.ListByUser(s.ctx, user)
	s.Require().NoError(err)
	s.Len(mine, 2)
}
