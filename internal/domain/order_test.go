package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

// helper для создания базового заказа без позиций.
func newOrder(t *testing.T) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(orderParams())
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	return order
}

func orderParams() domain.NewOrderParams {
	return domain.NewOrderParams{
		UserID:   "user-1",
		UserName: "Alice",
		Address: domain.Address{
			Street:  "1 Main St",
			City:    "Springfield",
			State:   "IL",
			Country: "US",
			ZipCode: "62701",
		},
		Card: domain.CardSnapshot{
			CardTypeID:     domain.CardTypeVisa,
			CardNumber:     "************1111",
			SecurityNumber: "123",
			HolderName:     "Alice",
			Expiration:     time.Now().AddDate(2, 0, 0),
		},
	}
}

func TestNewOrder_Defaults(t *testing.T) {
	before := time.Now().Add(-time.Second)
	order := newOrder(t)

	if order.Status() != domain.OrderStatusPending {
		t.Fatalf("expected pending status, got %s", order.Status())
	}
	if len(order.OrderItems()) != 0 {
		t.Fatal("new order must have no items")
	}
	if order.OrderDate().Before(before) {
		t.Fatalf("order date %s is too old", order.OrderDate())
	}
	if order.Total() != 0 {
		t.Fatalf("empty order total must be 0, got %s", order.Total())
	}
	if order.BuyerID() != nil || order.PaymentMethodID() != nil {
		t.Fatal("buyer and payment method must be unresolved")
	}

	events := order.DomainEvents()
	if len(events) != 1 || events[0].EventType() != domain.EventTypeOrderStarted {
		t.Fatalf("expected single order started event, got %+v", events)
	}
}

func TestNewOrder_RequiresUser(t *testing.T) {
	cases := []struct {
		name string
		mut  func(p *domain.NewOrderParams)
	}{
		{name: "no user id", mut: func(p *domain.NewOrderParams) { p.UserID = "" }},
		{name: "no user name", mut: func(p *domain.NewOrderParams) { p.UserName = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := orderParams()
			tc.mut(&params)
			if _, err := domain.NewOrder(params); !errors.Is(err, domain.ErrInvalidOrder) {
				t.Fatalf("expected ErrInvalidOrder, got %v", err)
			}
		})
	}
}

func TestOrderTotal(t *testing.T) {
	order := newOrder(t)
	if _, err := order.AddOrderItem(1, "A", 10, 0, "", 2); err != nil {
		t.Fatalf("add first item: %v", err)
	}
	if _, err := order.AddOrderItem(2, "B", 5, 1, "", 1); err != nil {
		t.Fatalf("add second item: %v", err)
	}

	if got := order.Total(); got != 24 {
		t.Fatalf("expected total 24, got %d", got)
	}
}

func TestOrderItemsKeepInsertionOrder(t *testing.T) {
	order := newOrder(t)
	names := []string{"Zeta", "Alpha", "Mid", "Alpha"}
	for i, name := range names {
		if _, err := order.AddOrderItem(int64(i+1), name, 100, 0, "", 1); err != nil {
			t.Fatalf("add item %s: %v", name, err)
		}
	}

	items := order.OrderItems()
	if len(items) != len(names) {
		t.Fatalf("expected %d items, got %d", len(names), len(items))
	}
	for i, item := range items {
		if item.ProductName() != names[i] {
			t.Fatalf("item %d: got %s want %s", i, item.ProductName(), names[i])
		}
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		name  string
		steps []func(o *domain.Order) error
		want  domain.OrderStatus
		err   error
	}{
		{
			name:  "pending to paid",
			steps: []func(o *domain.Order) error{(*domain.Order).SetPaidStatus},
			want:  domain.OrderStatusPaid,
		},
		{
			name:  "pending to cancelled",
			steps: []func(o *domain.Order) error{(*domain.Order).SetCancelledStatus},
			want:  domain.OrderStatusCancelled,
		},
		{
			name:  "paid to shipped",
			steps: []func(o *domain.Order) error{(*domain.Order).SetPaidStatus, (*domain.Order).SetShippedStatus},
			want:  domain.OrderStatusShipped,
		},
		{
			name:  "paid to cancelled",
			steps: []func(o *domain.Order) error{(*domain.Order).SetPaidStatus, (*domain.Order).SetCancelledStatus},
			want:  domain.OrderStatusCancelled,
		},
		{
			name:  "pending to shipped",
			steps: []func(o *domain.Order) error{(*domain.Order).SetShippedStatus},
			want:  domain.OrderStatusPending,
			err:   domain.ErrInvalidOrderTransition,
		},
		{
			name:  "paid twice",
			steps: []func(o *domain.Order) error{(*domain.Order).SetPaidStatus, (*domain.Order).SetPaidStatus},
			want:  domain.OrderStatusPaid,
			err:   domain.ErrInvalidOrderTransition,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := newOrder(t)
			var err error
			for _, step := range tc.steps {
				if err = step(order); err != nil {
					break
				}
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected error %v, got %v", tc.err, err)
			}
			if order.Status() != tc.want {
				t.Fatalf("expected status %s, got %s", tc.want, order.Status())
			}
		})
	}
}

func TestOrderTerminalStatusesRejectTransitions(t *testing.T) {
	terminal := map[string]func(o *domain.Order) error{
		"shipped": func(o *domain.Order) error {
			if err := o.SetPaidStatus(); err != nil {
				return err
			}
			return o.SetShippedStatus()
		},
		"cancelled": (*domain.Order).SetCancelledStatus,
	}
	transitions := map[string]func(o *domain.Order) error{
		"paid":      (*domain.Order).SetPaidStatus,
		"shipped":   (*domain.Order).SetShippedStatus,
		"cancelled": (*domain.Order).SetCancelledStatus,
	}

	for from, reach := range terminal {
		for to, transition := range transitions {
			t.Run(from+" to "+to, func(t *testing.T) {
				order := newOrder(t)
				if err := reach(order); err != nil {
					t.Fatalf("reach %s: %v", from, err)
				}
				status, description := order.Status(), order.Description()
				eventsBefore := len(order.DomainEvents())

				if err := transition(order); !errors.Is(err, domain.ErrInvalidOrderTransition) {
					t.Fatalf("expected ErrInvalidOrderTransition, got %v", err)
				}
				if order.Status() != status || order.Description() != description {
					t.Fatal("rejected transition must not mutate the order")
				}
				if len(order.DomainEvents()) != eventsBefore {
					t.Fatal("rejected transition must not raise events")
				}
			})
		}
	}
}

func TestOrderStatusChangeUpdatesDescriptionAndRaisesEvent(t *testing.T) {
	order := newOrder(t)
	order.ClearDomainEvents()

	if err := order.SetPaidStatus(); err != nil {
		t.Fatalf("set paid: %v", err)
	}
	if order.Description() != "The payment was performed." {
		t.Fatalf("unexpected description %q", order.Description())
	}

	events := order.DomainEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	changed, ok := events[0].(domain.OrderStatusChangedEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", events[0])
	}
	if changed.From != "pending" || changed.To != "paid" {
		t.Fatalf("unexpected transition in event: %+v", changed)
	}

	order.ClearDomainEvents()
	if len(order.DomainEvents()) != 0 {
		t.Fatal("events must be cleared after dispatch")
	}
}

func TestRestoreOrder_RoundTripsSnapshot(t *testing.T) {
	order := newOrder(t)
	if _, err := order.AddOrderItem(1, "A", 1000, 100, "a.png", 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
	order.SetBuyerID(5)
	order.SetPaymentMethodID(9)
	if err := order.AssignIDs(42, []int64{100}); err != nil {
		t.Fatalf("assign ids: %v", err)
	}

	restored := domain.RestoreOrder(order.Snapshot())

	if restored.ID() != 42 || restored.OrderItems()[0].ID() != 100 {
		t.Fatalf("ids lost on restore: %+v", restored.Snapshot())
	}
	if *restored.BuyerID() != 5 || *restored.PaymentMethodID() != 9 {
		t.Fatal("buyer links lost on restore")
	}
	if restored.Total() != order.Total() {
		t.Fatalf("total mismatch: %s vs %s", restored.Total(), order.Total())
	}
	if len(restored.DomainEvents()) != 0 {
		t.Fatal("restored aggregate must carry no events")
	}
}

func TestOrderAssignIDs_LengthMismatch(t *testing.T) {
	order := newOrder(t)
	if _, err := order.AddOrderItem(1, "A", 1000, 0, "", 1); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := order.AssignIDs(1, nil); err == nil {
		t.Fatal("expected error for missing item ids")
	}
	if order.ID() != 0 {
		t.Fatal("failed assignment must not change the order id")
	}
}

func TestNewOrderDetail(t *testing.T) {
	order := newOrder(t)
	if _, err := order.AddOrderItem(1, "A", 1000, 100, "a.png", 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := order.AssignIDs(3, []int64{30}); err != nil {
		t.Fatalf("assign ids: %v", err)
	}

	detail := domain.NewOrderDetail(order)

	if detail.OrderNumber != 3 || detail.Status != "pending" || detail.Total != 1900 {
		t.Fatalf("unexpected detail header: %+v", detail)
	}
	if detail.City != "Springfield" || detail.ZipCode != "62701" {
		t.Fatalf("address not projected: %+v", detail)
	}
	if len(detail.OrderItems) != 1 || detail.OrderItems[0].UnitPrice != 1000 || detail.OrderItems[0].Units != 2 {
		t.Fatalf("unexpected items: %+v", detail.OrderItems)
	}

	summary := domain.NewOrderSummary(order)
	if summary.Total != detail.Total || summary.Date != detail.Date || summary.Status != detail.Status {
		t.Fatalf("summary diverges from detail: %+v vs %+v", summary, detail)
	}
}
