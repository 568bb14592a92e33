// Package memory is a process-local Store used by DB_DRIVER=memory and by
// service tests. Records are copied on the way in and out so callers never
// share state with the store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/feastly/feastly/app/models"
	repo "github.com/feastly/feastly/app/repositories"
	"github.com/feastly/feastly/pkg/orm"
)

// NewStore returns an empty in-memory Store.
func NewStore() repo.Store {
	return repo.Store{
		Orders:      &Orders{byID: map[string]*models.Order{}},
		Foods:       &Foods{byID: map[string]*models.Food{}},
		Users:       &Users{byID: map[string]*models.User{}},
		Restaurants: &Restaurants{byID: map[string]*models.Restaurant{}},
	}
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	if o.IdempotencyKey != nil {
		k := *o.IdempotencyKey
		c.IdempotencyKey = &k
	}
	if o.PaymentResult.SettledAt != nil {
		t := *o.PaymentResult.SettledAt
		c.PaymentResult.SettledAt = &t
	}
	return &c
}

type Orders struct {
	mu   sync.RWMutex
	byID map[string]*models.Order
}

func (r *Orders) Create(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o.IdempotencyKey != nil {
		for _, existing := range r.byID {
			if existing.UserID == o.UserID && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *o.IdempotencyKey {
				return repo.ErrDuplicate
			}
		}
	}
	o.Touch(time.Now())
	for i := range o.Items {
		if o.Items[i].ID == "" {
			o.Items[i].ID = models.NewID()
		}
		o.Items[i].OrderID = o.ID
	}
	r.byID[o.ID] = copyOrder(o)
	return nil
}

func (r *Orders) FindByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return copyOrder(o), nil
}

func (r *Orders) FindOne(_ context.Context, f repo.OrderFilter) (*models.Order, error) {
	if f.IsEmpty() {
		return nil, repo.ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *models.Order
	for _, o := range r.byID {
		if f.GatewayOrderID != "" && o.GatewayOrderID != f.GatewayOrderID {
			continue
		}
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.IdempotencyKey != "" && (o.IdempotencyKey == nil || *o.IdempotencyKey != f.IdempotencyKey) {
			continue
		}
		if best == nil || o.CreatedAt.After(best.CreatedAt) {
			best = o
		}
	}
	if best == nil {
		return nil, repo.ErrNotFound
	}
	return copyOrder(best), nil
}

func (r *Orders) FindByUser(_ context.Context, userID string, page, limit int) ([]models.Order, orm.Pagination, error) {
	r.mu.RLock()
	var mine []models.Order
	for _, o := range r.byID {
		if o.UserID == userID {
			mine = append(mine, *copyOrder(o))
		}
	}
	r.mu.RUnlock()

	sort.Slice(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })

	p := orm.NewPagination(page, limit, int64(len(mine)))
	start := p.Offset()
	if start > len(mine) {
		start = len(mine)
	}
	end := start + p.Limit
	if end > len(mine) {
		end = len(mine)
	}
	return mine[start:end], p, nil
}

func (r *Orders) UpdateByID(_ context.Context, id string, p repo.OrderPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	p.Apply(o, time.Now())
	return nil
}

func (r *Orders) CompareAndSet(_ context.Context, id string, expected []models.OrderStatus, p repo.OrderPatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	for _, s := range expected {
		if o.Status == s {
			p.Apply(o, time.Now())
			return true, nil
		}
	}
	return false, nil
}

func (r *Orders) ExistsWithFood(_ context.Context, foodID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.byID {
		for _, it := range o.Items {
			if it.FoodID == foodID {
				return true, nil
			}
		}
	}
	return false, nil
}

type Foods struct {
	mu   sync.RWMutex
	byID map[string]*models.Food
}

func copyFood(f *models.Food) *models.Food {
	c := *f
	if f.Rating != nil {
		r := *f.Rating
		c.Rating = &r
	}
	return &c
}

func (r *Foods) FindByID(_ context.Context, id string) (*models.Food, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return copyFood(f), nil
}

func (r *Foods) List(_ context.Context, filter repo.FoodFilter) ([]models.Food, error) {
	r.mu.RLock()
	out := make([]models.Food, 0, len(r.byID))
	for _, f := range r.byID {
		if filter.Category != "" && f.Category != filter.Category {
			continue
		}
		if filter.Available != nil && f.IsAvailable != *filter.Available {
			continue
		}
		if filter.RestaurantID != "" && f.RestaurantID != filter.RestaurantID {
			continue
		}
		out = append(out, *copyFood(f))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Foods) Create(_ context.Context, f *models.Food) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.Touch(time.Now())
	r.byID[f.ID] = copyFood(f)
	return nil
}

func (r *Foods) UpdateByID(_ context.Context, id string, f *models.Food) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	next := copyFood(f)
	next.Base = cur.Base
	next.RestaurantID = cur.RestaurantID
	next.UpdatedAt = time.Now()
	r.byID[id] = next
	return nil
}

func (r *Foods) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

type Users struct {
	mu   sync.RWMutex
	byID map[string]*models.User
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.OrderHistory = append([]models.OrderHistoryEntry(nil), u.OrderHistory...)
	return &c
}

func (r *Users) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *Users) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return repo.ErrDuplicate
		}
	}
	u.Touch(time.Now())
	r.byID[u.ID] = copyUser(u)
	return nil
}

func (r *Users) UpdateRole(_ context.Context, id, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	return nil
}

func (r *Users) AppendOrder(_ context.Context, userID, orderID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return repo.ErrNotFound
	}
	u.OrderHistory = append(u.OrderHistory, models.OrderHistoryEntry{UserID: userID, OrderID: orderID, CreatedAt: at})
	return nil
}

type Restaurants struct {
	mu   sync.RWMutex
	byID map[string]*models.Restaurant
}

func (r *Restaurants) Create(_ context.Context, rest *models.Restaurant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.OwnerID == rest.OwnerID || existing.GSTNumber == rest.GSTNumber {
			return repo.ErrDuplicate
		}
	}
	rest.Touch(time.Now())
	c := *rest
	r.byID[rest.ID] = &c
	return nil
}

func (r *Restaurants) FindByID(_ context.Context, id string) (*models.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rest, ok := r.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *rest
	return &c, nil
}

func (r *Restaurants) FindByOwner(_ context.Context, ownerID string) (*models.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rest := range r.byID {
		if rest.OwnerID == ownerID {
			c := *rest
			return &c, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *Restaurants) List(_ context.Context, status models.RestaurantStatus) ([]models.Restaurant, error) {
	r.mu.RLock()
	out := make([]models.Restaurant, 0, len(r.byID))
	for _, rest := range r.byID {
		if status == "" || rest.Status == status {
			out = append(out, *rest)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Restaurants) UpdateStatus(_ context.Context, id string, status models.RestaurantStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rest, ok := r.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	rest.Status = status
	rest.UpdatedAt = time.Now()
	return nil
}
