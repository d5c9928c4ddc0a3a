// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"pii-anonymizer/internal/export"
)

// storedResult is a redacted document waiting to be downloaded
type storedResult struct {
	doc      *export.Document
	baseName string
	expires  time.Time
}

// DownloadStore keeps redacted results in memory for a limited time, keyed by
// random ids
type DownloadStore struct {
	mu    sync.Mutex
	items map[string]storedResult
	ttl   time.Duration
	now   func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

// NewDownloadStore creates a store and starts its janitor
func NewDownloadStore(ttl time.Duration) *DownloadStore {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	s := &DownloadStore{
		items: make(map[string]storedResult),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go s.janitor(max(ttl/2, time.Second))
	return s
}

// Put stores doc and returns its download id
func (s *DownloadStore) Put(doc *export.Document, baseName string) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = storedResult{doc: doc, baseName: baseName, expires: s.now().Add(s.ttl)}
	return id
}

// Get returns a stored document and its base file name
func (s *DownloadStore) Get(id string) (*export.Document, string, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, "", false
	}
	if s.now().After(item.expires) {
		delete(s.items, id)
		return nil, "", false
	}
	return item.doc, item.baseName, true
}

// Len returns the number of stored results, expired ones included until swept
func (s *DownloadStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Close stops the janitor
func (s *DownloadStore) Close() {
	s.closeOnce.Do(func() { close(s.stop) })
}

func (s *DownloadStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

// sweep removes expired results
func (s *DownloadStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, item := range s.items {
		if now.After(item.expires) {
			delete(s.items, id)
		}
	}
}
