// Package memory is an in-memory implementation of the store contracts.
// It mirrors the MySQL implementation's semantics and backs the test suites.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/craftprint/storefront-api/models"
	"github.com/craftprint/storefront-api/store"
)

// core holds all state behind one mutex. Good enough for tests and local
// development; not meant for production use.
type core struct {
	mu sync.Mutex

	carts       map[int64]*models.Cart
	addresses   map[int64][]models.Address
	orders      []*models.Order
	tracking    map[int64][]models.TrackingEvent
	outbox      []store.OutboxEntry
	nextAddrID  int64
	nextOrderID int64
	nextEventID int64
	nextItemID  int64
}

// Store bundles the per-concern repositories over shared in-memory state.
type Store struct {
	Carts     *Carts
	Addresses *Addresses
	Orders    *Orders
	Outbox    *Outbox
}

// New returns an empty in-memory store.
func New() *Store {
	c := &core{
		carts:       make(map[int64]*models.Cart),
		addresses:   make(map[int64][]models.Address),
		tracking:    make(map[int64][]models.TrackingEvent),
		nextAddrID:  1,
		nextOrderID: 1,
		nextEventID: 1,
		nextItemID:  1,
	}
	return &Store{
		Carts:     &Carts{c},
		Addresses: &Addresses{c},
		Orders:    &Orders{c},
		Outbox:    &Outbox{c},
	}
}

// Carts implements store.CartStore.
type Carts struct{ c *core }

func (s *Carts) Get(ctx context.Context, userID int64) (*models.Cart, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	return s.c.cartCopy(userID), nil
}

func (s *Carts) Add(ctx context.Context, userID int64, item models.CartItem) (*models.Cart, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	cart := s.c.cart(userID)
	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == item.ProductID {
			cart.Items[i].Merge(item)
			merged = true
			break
		}
	}
	if !merged {
		item.ID = uuid.NewString()
		item.CreatedAt = time.Now()
		cart.Items = append(cart.Items, item)
	}
	cart.Version++
	return s.c.cartCopy(userID), nil
}

func (s *Carts) UpdateQuantity(ctx context.Context, userID int64, productID string, quantity int) (*models.Cart, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	if quantity < 1 {
		return s.c.cartCopy(userID), nil
	}
	cart := s.c.cart(userID)
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity = quantity
			cart.Version++
			return s.c.cartCopy(userID), nil
		}
	}
	return nil, models.ErrMissingItem
}

func (s *Carts) Remove(ctx context.Context, userID int64, productID string) (*models.Cart, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	cart := s.c.cart(userID)
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			cart.Version++
			return s.c.cartCopy(userID), nil
		}
	}
	return nil, models.ErrMissingItem
}

func (s *Carts) Clear(ctx context.Context, userID int64) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.clearCartLocked(userID)
	return nil
}

func (s *Carts) Replace(ctx context.Context, userID int64, version int64, items []models.CartItem) (*models.Cart, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	cart := s.c.cart(userID)
	if cart.Version != version {
		return nil, models.ErrVersionConflict
	}
	cart.Items = nil
	for _, item := range items {
		item.ID = uuid.NewString()
		item.CreatedAt = time.Now()
		cart.Items = append(cart.Items, item)
	}
	cart.Version++
	return s.c.cartCopy(userID), nil
}

func (c *core) cart(userID int64) *models.Cart {
	cart, ok := c.carts[userID]
	if !ok {
		cart = &models.Cart{UserID: userID}
		c.carts[userID] = cart
	}
	return cart
}

func (c *core) cartCopy(userID int64) *models.Cart {
	cart := c.cart(userID)
	out := &models.Cart{UserID: cart.UserID, Version: cart.Version}
	out.Items = make([]models.CartItem, len(cart.Items))
	copy(out.Items, cart.Items)
	return out
}

func (c *core) clearCartLocked(userID int64) {
	cart := c.cart(userID)
	cart.Items = nil
	cart.Version++
}

// Addresses implements store.AddressBook.
type Addresses struct{ c *core }

func (s *Addresses) List(ctx context.Context, userID int64) ([]models.Address, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	out := make([]models.Address, len(s.c.addresses[userID]))
	copy(out, s.c.addresses[userID])
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Addresses) Get(ctx context.Context, userID, id int64) (*models.Address, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	for _, addr := range s.c.addresses[userID] {
		if addr.ID == id {
			a := addr
			return &a, nil
		}
	}
	return nil, models.ErrMissingAddress
}

func (s *Addresses) Add(ctx context.Context, userID int64, in models.AddressInput) (*models.Address, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	isDefault := in.IsDefault || len(s.c.addresses[userID]) == 0
	if isDefault {
		s.c.unsetDefaultsLocked(userID, 0)
	}

	addr := models.Address{
		ID:        s.c.nextAddrID,
		UserID:    userID,
		Name:      in.Name,
		Street:    in.Street,
		City:      in.City,
		State:     in.State,
		Zipcode:   in.Zipcode,
		Country:   in.Country,
		Phone:     in.Phone,
		IsDefault: isDefault,
		CreatedAt: time.Now(),
	}
	s.c.nextAddrID++
	s.c.addresses[userID] = append(s.c.addresses[userID], addr)
	out := addr
	return &out, nil
}

func (s *Addresses) Update(ctx context.Context, userID, id int64, in models.AddressInput) (*models.Address, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	addrs := s.c.addresses[userID]
	for i := range addrs {
		if addrs[i].ID == id {
			if in.IsDefault {
				s.c.unsetDefaultsLocked(userID, id)
			}
			addrs[i].Name = in.Name
			addrs[i].Street = in.Street
			addrs[i].City = in.City
			addrs[i].State = in.State
			addrs[i].Zipcode = in.Zipcode
			addrs[i].Country = in.Country
			addrs[i].Phone = in.Phone
			addrs[i].IsDefault = in.IsDefault
			out := addrs[i]
			return &out, nil
		}
	}
	return nil, models.ErrMissingAddress
}

func (s *Addresses) SetDefault(ctx context.Context, userID, id int64) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	addrs := s.c.addresses[userID]
	for i := range addrs {
		if addrs[i].ID == id {
			s.c.unsetDefaultsLocked(userID, 0)
			addrs[i].IsDefault = true
			return nil
		}
	}
	return models.ErrMissingAddress
}

func (s *Addresses) Remove(ctx context.Context, userID, id int64) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	addrs := s.c.addresses[userID]
	for i := range addrs {
		if addrs[i].ID == id {
			wasDefault := addrs[i].IsDefault
			s.c.addresses[userID] = append(addrs[:i], addrs[i+1:]...)
			if wasDefault {
				s.c.promoteLatestLocked(userID)
			}
			return nil
		}
	}
	return models.ErrMissingAddress
}

func (c *core) unsetDefaultsLocked(userID, except int64) {
	addrs := c.addresses[userID]
	for i := range addrs {
		if addrs[i].ID != except {
			addrs[i].IsDefault = false
		}
	}
}

// promoteLatestLocked makes the most recently created remaining address the
// default after the default was deleted.
func (c *core) promoteLatestLocked(userID int64) {
	addrs := c.addresses[userID]
	if len(addrs) == 0 {
		return
	}
	latest := 0
	for i := range addrs {
		if addrs[i].ID > addrs[latest].ID {
			latest = i
		}
	}
	addrs[latest].IsDefault = true
}

// Orders implements store.OrderStore.
type Orders struct{ c *core }

func (s *Orders) Create(ctx context.Context, order *models.Order) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	for _, existing := range s.c.orders {
		if existing.OrderNumber == order.OrderNumber {
			return store.ErrDuplicateOrderNumber
		}
	}

	stored := *order
	stored.ID = s.c.nextOrderID
	s.c.nextOrderID++
	stored.Status = models.StatusPending
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	stored.Items = make([]models.OrderItem, len(order.Items))
	copy(stored.Items, order.Items)
	for i := range stored.Items {
		stored.Items[i].ID = s.c.nextItemID
		s.c.nextItemID++
		stored.Items[i].OrderID = stored.ID
	}
	if order.ShippingAddress != nil {
		addr := *order.ShippingAddress
		stored.ShippingAddress = &addr
	}
	s.c.orders = append(s.c.orders, &stored)

	order.ID = stored.ID
	order.Status = stored.Status
	order.CreatedAt = stored.CreatedAt
	order.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *Orders) LatestPending(ctx context.Context, userID int64) (*models.Order, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	var latest *models.Order
	for _, o := range s.c.orders {
		if o.UserID == userID && o.Status == models.StatusPending {
			if latest == nil || o.ID > latest.ID {
				latest = o
			}
		}
	}
	if latest == nil {
		return nil, models.ErrMissingOrder
	}
	return orderCopy(latest), nil
}

func (s *Orders) ByID(ctx context.Context, id int64) (*models.Order, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	o := s.c.findLocked(id)
	if o == nil {
		return nil, models.ErrMissingOrder
	}
	return orderCopy(o), nil
}

func (s *Orders) ByNumber(ctx context.Context, number string) (*models.Order, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	for _, o := range s.c.orders {
		if o.OrderNumber == number {
			return orderCopy(o), nil
		}
	}
	return nil, models.ErrMissingOrder
}

func (s *Orders) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	var out []models.Order
	for i := len(s.c.orders) - 1; i >= 0; i-- {
		if s.c.orders[i].UserID == userID {
			out = append(out, *orderCopy(s.c.orders[i]))
		}
	}
	return out, nil
}

func (s *Orders) ListAll(ctx context.Context) ([]models.Order, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	var out []models.Order
	for i := len(s.c.orders) - 1; i >= 0; i-- {
		out = append(out, *orderCopy(s.c.orders[i]))
	}
	return out, nil
}

func (s *Orders) SetShippingAddress(ctx context.Context, orderID int64, addr models.Address) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	o := s.c.findLocked(orderID)
	if o == nil {
		return models.ErrMissingOrder
	}
	a := addr
	o.ShippingAddress = &a
	o.UpdatedAt = time.Now()
	return nil
}

func (s *Orders) SetTransaction(ctx context.Context, orderID int64, method, transactionID string) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	o := s.c.findLocked(orderID)
	if o == nil {
		return models.ErrMissingOrder
	}
	o.PaymentMethod = method
	o.TransactionID = transactionID
	o.UpdatedAt = time.Now()
	return nil
}

func (s *Orders) Finalize(ctx context.Context, orderID int64, method, details string) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	o := s.c.findLocked(orderID)
	if o == nil {
		return models.ErrMissingOrder
	}
	if o.Status != models.StatusPending {
		return models.ErrAlreadyFinalized
	}

	o.PaymentMethod = method
	o.PaymentDetails = details
	o.Status = models.StatusProcessing
	o.UpdatedAt = time.Now()
	s.c.appendTrackingLocked(orderID, models.StatusProcessing, "", "Payment confirmed, order is being prepared")
	s.c.clearCartLocked(o.UserID)
	return nil
}

func (s *Orders) Transition(ctx context.Context, orderID int64, status, reason, location, description string) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	o := s.c.findLocked(orderID)
	if o == nil {
		return models.ErrMissingOrder
	}
	if err := models.ValidateTransition(o.Status, status, reason); err != nil {
		return err
	}
	o.Status = status
	if status == models.StatusCancelled {
		o.CancellationReason = reason
	}
	o.UpdatedAt = time.Now()
	s.c.appendTrackingLocked(orderID, status, location, description)
	return nil
}

func (s *Orders) History(ctx context.Context, orderID int64) ([]models.TrackingEvent, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	out := make([]models.TrackingEvent, len(s.c.tracking[orderID]))
	copy(out, s.c.tracking[orderID])
	return out, nil
}

func (c *core) findLocked(id int64) *models.Order {
	for _, o := range c.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (c *core) appendTrackingLocked(orderID int64, status, location, description string) {
	c.tracking[orderID] = append(c.tracking[orderID], models.TrackingEvent{
		ID:          c.nextEventID,
		OrderID:     orderID,
		Status:      status,
		Location:    location,
		Description: description,
		CreatedAt:   time.Now(),
	})
	c.nextEventID++
}

func orderCopy(o *models.Order) *models.Order {
	out := *o
	out.Items = make([]models.OrderItem, len(o.Items))
	copy(out.Items, o.Items)
	if o.ShippingAddress != nil {
		addr := *o.ShippingAddress
		out.ShippingAddress = &addr
	}
	return &out
}

// Outbox implements store.OutboxStore.
type Outbox struct{ c *core }

func (s *Outbox) Enqueue(ctx context.Context, kind, payload string) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	s.c.outbox = append(s.c.outbox, store.OutboxEntry{
		ID:            uuid.NewString(),
		Kind:          kind,
		Payload:       payload,
		NextAttemptAt: time.Now(),
		CreatedAt:     time.Now(),
	})
	return nil
}

func (s *Outbox) Due(ctx context.Context, now time.Time, limit int) ([]store.OutboxEntry, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	var out []store.OutboxEntry
	for _, e := range s.c.outbox {
		if !e.NextAttemptAt.After(now) {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Outbox) MarkDone(ctx context.Context, id string) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	for i := range s.c.outbox {
		if s.c.outbox[i].ID == id {
			s.c.outbox = append(s.c.outbox[:i], s.c.outbox[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Outbox) Reschedule(ctx context.Context, id string, attempts int, next time.Time) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	for i := range s.c.outbox {
		if s.c.outbox[i].ID == id {
			s.c.outbox[i].Attempts = attempts
			s.c.outbox[i].NextAttemptAt = next
			return nil
		}
	}
	return nil
}
