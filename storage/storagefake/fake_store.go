package storagefake

import (
	"context"
	"sync"

	"github.com/jrsteele09/restaurant-portal/storage"
)

var _ storage.Store = (*FakeStore)(nil)

// FakeStore is an in-memory store whose operations can be made to fail
type FakeStore struct {
	lock   sync.Mutex
	values map[string]string

	GetErr    error
	SetErr    error
	RemoveErr error

	Removed []string
}

func NewFakeStore() *FakeStore {
	return &FakeStore{values: make(map[string]string)}
}

func (f *FakeStore) Get(_ context.Context, key string) (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.GetErr != nil {
		return "", f.GetErr
	}
	return f.values[key], nil
}

func (f *FakeStore) Set(_ context.Context, key, value string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.SetErr != nil {
		return f.SetErr
	}
	f.values[key] = value
	return nil
}

func (f *FakeStore) Remove(_ context.Context, key string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.Removed = append(f.Removed, key)
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	delete(f.values, key)
	return nil
}

// Has reports whether key is present, bypassing injected errors
func (f *FakeStore) Has(key string) bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	_, ok := f.values[key]
	return ok
}

// Value returns the stored value, bypassing injected errors
func (f *FakeStore) Value(key string) string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.values[key]
}

// Seed sets a value, bypassing injected errors
func (f *FakeStore) Seed(key, value string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.values[key] = value
}

// SetErrors replaces the injected errors
func (f *FakeStore) SetErrors(getErr, setErr, removeErr error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.GetErr, f.SetErr, f.RemoveErr = getErr, setErr, removeErr
}
