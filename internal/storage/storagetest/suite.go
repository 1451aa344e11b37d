package storagetest

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

// Fixture — хранилище с репозиториями записи и одним или несколькими
// read-путями поверх одних и тех же данных.
type Fixture struct {
	Orders domain.OrderRepository
	Buyers domain.BuyerRepository
	Paths  map[string]domain.OrderQueries
}

// QueriesSuite прогоняет общий набор проверок read-путей. NewFixture
// вызывается перед каждым тестом и должен вернуть пустое хранилище.
type QueriesSuite struct {
	suite.Suite

	NewFixture func(t *testing.T) Fixture

	ctx      context.Context
	fixture  Fixture
	scenario Scenario
}

// Run запускает набор с указанной фабрикой хранилища.
func Run(t *testing.T, newFixture func(t *testing.T) Fixture) {
	suite.Run(t, &QueriesSuite{NewFixture: newFixture})
}

func (s *QueriesSuite) SetupTest() {
	s.ctx = context.Background()
	s.fixture = s.NewFixture(s.T())
	s.Require().NotEmpty(s.fixture.Paths, "fixture must expose at least one read path")
	s.scenario = SeedScenario(s.ctx, s.T(), s.fixture.Orders, s.fixture.Buyers)
}

func (s *QueriesSuite) paths() []string {
	names := make([]string, 0, len(s.fixture.Paths))
	for name := range s.fixture.Paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *QueriesSuite) TestGetOrderMatchesAggregate() {
	for _, path := range s.paths() {
		q := s.fixture.Paths[path]
		for _, order := range s.scenario.Orders {
			got, err := q.GetOrder(s.ctx, order.ID())
			s.Require().NoError(err, "%s: order %d", path, order.ID())
			s.Equal(domain.NewOrderDetail(order), got, "%s: order %d", path, order.ID())
		}
	}
}

func (s *QueriesSuite) TestGetOrderKeepsItemOrderAndTotal() {
	first := s.scenario.OrdersByIdentity[IdentityBob][0]
	for _, path := range s.paths() {
		got, err := s.fixture.Paths[path].GetOrder(s.ctx, first.ID())
		s.Require().NoError(err, path)

		s.Equal("shipped", got.Status, path)
		s.Equal("The order was shipped.", got.Description, path)
		s.Equal(domain.Money(850+0+5000-25), got.Total, path)
		s.Require().Len(got.OrderItems, 3, path)
		s.Equal("Roslyn Red Sheet", got.OrderItems[0].ProductName, path)
		s.Equal(".NET Bot Black Hoodie", got.OrderItems[1].ProductName, path)
		s.Equal("Cup<T> White Mug", got.OrderItems[2].ProductName, path)
		s.Equal(4, got.OrderItems[2].Units, path)
		s.Equal(domain.Money(1250), got.OrderItems[2].UnitPrice, path)
	}
}

func (s *QueriesSuite) TestGetOrderWithoutItems() {
	cancelled := s.scenario.OrdersByIdentity[IdentityAlice][2]
	for _, path := range s.paths() {
		got, err := s.fixture.Paths[path].GetOrder(s.ctx, cancelled.ID())
		s.Require().NoError(err, path)
		s.Equal("cancelled", got.Status, path)
		s.Equal(domain.Money(0), got.Total, path)
		s.NotNil(got.OrderItems, path)
		s.Empty(got.OrderItems, path)
	}
}

func (s *QueriesSuite) TestGetOrderUnknownID() {
	var maxID int64
	for _, order := range s.scenario.Orders {
		if order.ID() > maxID {
			maxID = order.ID()
		}
	}
	for _, path := range s.paths() {
		_, err := s.fixture.Paths[path].GetOrder(s.ctx, maxID+1000)
		s.Require().Error(err, path)
		s.True(errors.Is(err, domain.ErrOrderNotFound), "%s: %v", path, err)
		s.True(domain.IsNotFound(err), path)
	}
}

func (s *QueriesSuite) TestGetOrdersFromUser() {
	for _, path := range s.paths() {
		q := s.fixture.Paths[path]
		for _, identity := range []string{IdentityAlice, IdentityBob} {
			want := make([]domain.OrderSummary, 0)
			for _, order := range s.scenario.OrdersByIdentity[identity] {
				want = append(want, domain.NewOrderSummary(order))
			}
			got, err := q.GetOrdersFromUser(s.ctx, identity)
			s.Require().NoError(err, "%s: %s", path, identity)
			s.Equal(want, got, "%s: %s", path, identity)
			s.True(sort.SliceIsSorted(got, func(i, j int) bool {
				return got[i].OrderNumber < got[j].OrderNumber
			}), path)
		}
	}
}

func (s *QueriesSuite) TestGetOrdersFromUserSummaryTotalsIncludeDiscount() {
	for _, path := range s.paths() {
		got, err := s.fixture.Paths[path].GetOrdersFromUser(s.ctx, IdentityAlice)
		s.Require().NoError(err, path)
		s.Require().Len(got, 3, path)

		s.Equal(domain.Money(1950*2+850-100), got[0].Total, path)
		s.Equal("pending", got[0].Status, path)
		s.Equal(domain.Money(1200*3-30), got[1].Total, path)
		s.Equal("paid", got[1].Status, path)
		s.Equal(domain.Money(0), got[2].Total, path)
		s.Equal("cancelled", got[2].Status, path)
	}
}

func (s *QueriesSuite) TestGetOrdersFromUserEmpty() {
	for _, path := range s.paths() {
		q := s.fixture.Paths[path]
		for _, identity := range []string{IdentityCarol, IdentityUnknown, ""} {
			got, err := q.GetOrdersFromUser(s.ctx, identity)
			s.Require().NoError(err, "%s: %q", path, identity)
			s.NotNil(got, "%s: %q", path, identity)
			s.Empty(got, "%s: %q", path, identity)
		}
	}
}

func (s *QueriesSuite) TestGetCardTypes() {
	for _, path := range s.paths() {
		got, err := s.fixture.Paths[path].GetCardTypes(s.ctx)
		s.Require().NoError(err, path)
		s.Equal(domain.SupportedCardTypes(), got, path)
	}
}

// TestPathsAgree сравнивает все пути попарно на всех запросах сценария.
func (s *QueriesSuite) TestPathsAgree() {
	paths := s.paths()
	if len(paths) < 2 {
		s.T().Skip("single read path")
	}
	base := s.fixture.Paths[paths[0]]

	for _, other := range paths[1:] {
		q := s.fixture.Paths[other]
		for _, order := range s.scenario.Orders {
			want, err := base.GetOrder(s.ctx, order.ID())
			s.Require().NoError(err)
			got, err := q.GetOrder(s.ctx, order.ID())
			s.Require().NoError(err)
			s.Equal(want, got, "%s vs %s: order %d", paths[0], other, order.ID())
		}
		for _, identity := range []string{IdentityAlice, IdentityBob, IdentityCarol, IdentityUnknown} {
			want, err := base.GetOrdersFromUser(s.ctx, identity)
			s.Require().NoError(err)
			got, err := q.GetOrdersFromUser(s.ctx, identity)
			s.Require().NoError(err)
			s.Equal(want, got, "%s vs %s: %s", paths[0], other, identity)
		}
		want, err := base.GetCardTypes(s.ctx)
		s.Require().NoError(err)
		got, err := q.GetCardTypes(s.ctx)
		s.Require().NoError(err)
		s.Equal(want, got, "%s vs %s: card types", paths[0], other)
	}
}

func (s *QueriesSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	id := s.scenario.Orders[0].ID()
	for _, path := range s.paths() {
		_, err := s.fixture.Paths[path].GetOrder(ctx, id)
		s.Require().Error(err, path)
		s.True(errors.Is(err, domain.ErrStoreUnavailable), "%s: %v", path, err)
		s.True(errors.Is(err, context.Canceled), "%s: %v", path, err)
		s.False(domain.IsNotFound(err), path)
	}
}

func (s *QueriesSuite) TestRepositoryRoundTrip() {
	for _, order := range s.scenario.Orders {
		loaded, err := s.fixture.Orders.Get(s.ctx, order.ID())
		s.Require().NoError(err)
		s.Equal(order.Status(), loaded.Status())
		s.Equal(order.Total(), loaded.Total())
		s.Equal(order.BuyerID(), loaded.BuyerID())
		s.Equal(order.PaymentMethodID(), loaded.PaymentMethodID())
		s.Equal(domain.NewOrderDetail(order), domain.NewOrderDetail(loaded))
	}

	_, err := s.fixture.Orders.Get(s.ctx, 1<<40)
	s.True(errors.Is(err, domain.ErrOrderNotFound), "%v", err)
}

func (s *QueriesSuite) TestBuyerPaymentMethodsPersisted() {
	alice, err := s.fixture.Buyers.FindByIdentity(s.ctx, IdentityAlice)
	s.Require().NoError(err)

	methods := alice.PaymentMethods()
	s.Require().Len(methods, 2, "same card across orders must be reused")

	aliceOrders := s.scenario.OrdersByIdentity[IdentityAlice]
	s.ElementsMatch([]int64{aliceOrders[0].ID(), aliceOrders[1].ID()}, methods[0].OrderIDs())
	s.ElementsMatch([]int64{aliceOrders[2].ID()}, methods[1].OrderIDs())
	s.Equal(domain.CardTypeVisa, methods[0].CardTypeID())

	_, err = s.fixture.Buyers.FindByIdentity(s.ctx, IdentityUnknown)
	s.True(errors.Is(err, domain.ErrBuyerNotFound), "%v", err)
}

func (s *QueriesSuite) TestDuplicateBuyerRejected() {
	dup, err := domain.NewBuyer(IdentityBob, "Impostor")
	s.Require().NoError(err)
	err = s.fixture.Buyers.Add(s.ctx, dup)
	s.True(errors.Is(err, domain.ErrDuplicateBuyer), "%v", err)
}

func (s *QueriesSuite) TestReverifySameCardReusesMethod() {
	bob, err := s.fixture.Buyers.FindByIdentity(s.ctx, IdentityBob)
	s.Require().NoError(err)
	before := len(bob.PaymentMethods())
	existing := bob.PaymentMethods()[0]

	pm, err := bob.VerifyOrAddPaymentMethod(
		existing.CardTypeID(), "again", existing.CardNumber(), existing.SecurityNumber(),
		existing.CardHolderName(), existing.Expiration(), s.scenario.Orders[0].ID(),
	)
	s.Require().NoError(err)
	s.Equal(existing.ID(), pm.ID())
	s.Require().NoError(s.fixture.Buyers.Update(s.ctx, bob))

	reloaded, err := s.fixture.Buyers.FindByIdentity(s.ctx, IdentityBob)
	s.Require().NoError(err)
	s.Len(reloaded.PaymentMethods(), before)
}
