package service

import (
	"context"
	"errors"
	"sync"

	"app/internal/model"
)

var errBoom = errors.New("boom")

type fakeSubRepo struct {
	mu        sync.Mutex
	subs      map[string]*model.Subscription
	getErr    error
	upsertErr error
	upserts   int
}

func newFakeSubRepo() *fakeSubRepo {
	return &fakeSubRepo{subs: make(map[string]*model.Subscription)}
}

func (f *fakeSubRepo) GetByUserID(_ context.Context, userID string) (*model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	sub, ok := f.subs[userID]
	if !ok {
		return nil, nil
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeSubRepo) Upsert(_ context.Context, sub *model.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts++
	cp := *sub
	f.subs[sub.UserID] = &cp
	return nil
}

type fakeTrialRepo struct {
	trials    map[string]*model.TrialRecord
	getErr    error
	markErr   error
	markCalls int
}

func newFakeTrialRepo() *fakeTrialRepo {
	return &fakeTrialRepo{trials: make(map[string]*model.TrialRecord)}
}

func (f *fakeTrialRepo) GetByUserID(_ context.Context, userID string) (*model.TrialRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	tr, ok := f.trials[userID]
	if !ok {
		return nil, nil
	}
	cp := *tr
	return &cp, nil
}

func (f *fakeTrialRepo) MarkUsed(_ context.Context, userID string) error {
	f.markCalls++
	if f.markErr != nil {
		return f.markErr
	}
	if tr, ok := f.trials[userID]; ok {
		tr.TrialUsed = true
	}
	return nil
}

type fakeProvider struct {
	mu              sync.Mutex
	remote          map[string]*RemoteSubscription
	fetchErr        error
	cancelErr       error
	reactivateErr   error
	fetchCalls      int
	cancelCalls     int
	reactivateCalls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{remote: make(map[string]*RemoteSubscription)}
}

func (f *fakeProvider) FetchSubscription(_ context.Context, subscriptionID string) (*RemoteSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	remote, ok := f.remote[subscriptionID]
	if !ok {
		return nil, errors.New("no such subscription: " + subscriptionID)
	}
	cp := *remote
	return &cp, nil
}

func (f *fakeProvider) CancelAtPeriodEnd(_ context.Context, subscriptionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	if f.cancelErr != nil {
		return f.cancelErr
	}
	if remote, ok := f.remote[subscriptionID]; ok {
		remote.CancelAtPeriodEnd = true
	}
	return nil
}

func (f *fakeProvider) ReactivateSubscription(_ context.Context, subscriptionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactivateCalls++
	if f.reactivateErr != nil {
		return f.reactivateErr
	}
	if remote, ok := f.remote[subscriptionID]; ok {
		remote.CancelAtPeriodEnd = false
	}
	return nil
}

type fakeUserRepo struct {
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, u *model.User) error {
	f.users[u.UserID] = u
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (f *fakeUserRepo) GetUserByStripeCustomerID(_ context.Context, customerID string) (*model.User, error) {
	for _, u := range f.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) UpdateStripeCustomerID(_ context.Context, userID, customerID string) error {
	if u, ok := f.users[userID]; ok {
		u.StripeCustomerID = &customerID
	}
	return nil
}

type fakeEventCache struct {
	seen map[string]bool
	err  error
}

func newFakeEventCache() *fakeEventCache {
	return &fakeEventCache{seen: make(map[string]bool)}
}

func (f *fakeEventCache) Seen(_ context.Context, eventID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen[eventID] {
		return true, nil
	}
	f.seen[eventID] = true
	return false, nil
}
