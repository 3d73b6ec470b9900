// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package diagnostics provides mock implementations for testing.

Mocks follow the Func-field pattern: each interface method delegates to a
corresponding Func field when set, and otherwise returns a sensible default.
All calls are recorded for assertion.
*/
package diagnostics

import (
	"context"
	"sync"
)

// -----------------------------------------------------------------------------
// MockDiagnosticsStorage
// -----------------------------------------------------------------------------

// StoreCall records a single Store invocation.
type StoreCall struct {
	Data     []byte
	Metadata StorageMetadata
}

// MockDiagnosticsStorage is a configurable test double for DiagnosticsStorage.
//
// # Examples
//
//	storage := NewMockDiagnosticsStorage()
//	storage.StoreFunc = func(ctx context.Context, data []byte, meta StorageMetadata) (string, error) {
//	    return "/tmp/test.json", nil
//	}
//	collector.SetStorage(storage)
//
// # Thread Safety
//
// MockDiagnosticsStorage is safe for concurrent use.
type MockDiagnosticsStorage struct {
	StoreFunc func(ctx context.Context, data []byte, metadata StorageMetadata) (string, error)
	LoadFunc  func(ctx context.Context, location string) ([]byte, error)
	ListFunc  func(ctx context.Context, limit int) ([]string, error)
	PruneFunc func(ctx context.Context) (int, error)

	// StoreCalls records every Store invocation.
	StoreCalls []StoreCall

	mu sync.Mutex
}

// NewMockDiagnosticsStorage creates a mock with default successful behavior.
func NewMockDiagnosticsStorage() *MockDiagnosticsStorage {
	return &MockDiagnosticsStorage{}
}

// Store records the call and delegates to StoreFunc.
// Default: returns "/mock/diag.json" with no error.
func (m *MockDiagnosticsStorage) Store(ctx context.Context, data []byte, metadata StorageMetadata) (string, error) {
	m.mu.Lock()
	m.StoreCalls = append(m.StoreCalls, StoreCall{Data: data, Metadata: metadata})
	m.mu.Unlock()

	if m.StoreFunc != nil {
		return m.StoreFunc(ctx, data, metadata)
	}
	return "/mock/diag.json", nil
}

// Load delegates to LoadFunc. Default: returns empty data.
func (m *MockDiagnosticsStorage) Load(ctx context.Context, location string) ([]byte, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, location)
	}
	return []byte{}, nil
}

// List delegates to ListFunc. Default: returns no locations.
func (m *MockDiagnosticsStorage) List(ctx context.Context, limit int) ([]string, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit)
	}
	return nil, nil
}

// Prune delegates to PruneFunc. Default: nothing pruned.
func (m *MockDiagnosticsStorage) Prune(ctx context.Context) (int, error) {
	if m.PruneFunc != nil {
		return m.PruneFunc(ctx)
	}
	return 0, nil
}

// Type returns "mock".
func (m *MockDiagnosticsStorage) Type() string {
	return "mock"
}

// StoreCallCount returns how many times Store was invoked.
func (m *MockDiagnosticsStorage) StoreCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.StoreCalls)
}

// Compile-time interface compliance check.
var _ DiagnosticsStorage = (*MockDiagnosticsStorage)(nil)
