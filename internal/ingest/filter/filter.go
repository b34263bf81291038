// Package filter provides a fast in-memory pre-check over every watched
// address across all subscriptions. It only short-circuits transactions that
// cannot possibly match; authoritative matching stays in storage.
package filter

import "sync"

// AddressFilter is a concurrency-safe set of watched addresses.
// Solana addresses are case-sensitive, so no normalization is applied.
type AddressFilter struct {
	addresses map[string]struct{}
	mu        sync.RWMutex
}

// NewAddressFilter creates an empty filter.
func NewAddressFilter() *AddressFilter {
	return &AddressFilter{
		addresses: make(map[string]struct{}),
	}
}

// Contains checks if an address is watched by any subscription.
func (f *AddressFilter) Contains(address string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, exists := f.addresses[address]
	return exists
}

// ContainsAny checks if any of the given addresses is watched.
func (f *AddressFilter) ContainsAny(addresses []string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, addr := range addresses {
		if _, exists := f.addresses[addr]; exists {
			return true
		}
	}
	return false
}

// Add adds an address to the filter.
func (f *AddressFilter) Add(address string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addresses[address] = struct{}{}
}

// AddBatch adds multiple addresses.
func (f *AddressFilter) AddBatch(addresses []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, addr := range addresses {
		f.addresses[addr] = struct{}{}
	}
}

// Remove removes an address. The filter may over-approximate (an address
// still watched by another subscription must not be removed by the caller),
// never under-approximate.
func (f *AddressFilter) Remove(address string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.addresses, address)
}

// Reset replaces the whole set with the given addresses.
func (f *AddressFilter) Reset(addresses []string) {
	next := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		next[addr] = struct{}{}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addresses = next
}

// Size returns the number of watched addresses.
func (f *AddressFilter) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.addresses)
}
