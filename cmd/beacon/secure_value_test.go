// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewSecretHolder_EmptyValue(t *testing.T) {
	_, err := NewSecretHolder(nil)
	if err == nil {
		t.Error("expected error for nil value")
	}

	_, err = NewSecretHolder([]byte{})
	if err == nil {
		t.Error("expected error for empty value")
	}
}

func TestNewSecretHolder_WipesCallerCopy(t *testing.T) {
	t.Setenv(EnvInsecureMemory, "true")

	original := []byte("super-secret-password")
	holder, err := NewSecretHolder(original)
	if err != nil {
		t.Fatalf("NewSecretHolder failed: %v", err)
	}
	defer holder.Destroy()

	if bytes.Contains(original, []byte("super")) {
		t.Error("caller's copy should be wiped after construction")
	}
}

func TestSecretHolder_Reveal(t *testing.T) {
	t.Setenv(EnvInsecureMemory, "true")

	secret := "glsa_test1234567890123456789"
	holder, err := NewSecretHolder([]byte(secret))
	if err != nil {
		t.Fatalf("NewSecretHolder failed: %v", err)
	}
	defer holder.Destroy()

	if holder.Len() != len(secret) {
		t.Errorf("expected length %d, got %d", len(secret), holder.Len())
	}

	var revealed string
	err = holder.Reveal(func(value []byte) error {
		revealed = string(value)
		return nil
	})
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if revealed != secret {
		t.Error("revealed value should match original secret")
	}
}

func TestSecretHolder_RevealAfterDestroy(t *testing.T) {
	t.Setenv(EnvInsecureMemory, "true")

	holder, err := NewSecretHolder([]byte("secret"))
	if err != nil {
		t.Fatalf("NewSecretHolder failed: %v", err)
	}

	holder.Destroy()

	err = holder.Reveal(func(value []byte) error { return nil })
	if err == nil {
		t.Fatal("Reveal should fail after Destroy")
	}
	if !strings.Contains(err.Error(), "destroyed") {
		t.Errorf("expected destroyed error, got: %v", err)
	}
	if holder.Len() != 0 {
		t.Errorf("Len should be 0 after Destroy, got %d", holder.Len())
	}
}

func TestSecretHolder_DestroyIdempotent(t *testing.T) {
	t.Setenv(EnvInsecureMemory, "true")

	holder, err := NewSecretHolder([]byte("secret"))
	if err != nil {
		t.Fatalf("NewSecretHolder failed: %v", err)
	}

	holder.Destroy()
	holder.Destroy()
}

func TestSecretHolder_UniqueIDs(t *testing.T) {
	t.Setenv(EnvInsecureMemory, "true")

	a, err := NewSecretHolder([]byte("one"))
	if err != nil {
		t.Fatalf("NewSecretHolder failed: %v", err)
	}
	defer a.Destroy()

	b, err := NewSecretHolder([]byte("two"))
	if err != nil {
		t.Fatalf("NewSecretHolder failed: %v", err)
	}
	defer b.Destroy()

	if a.ID() == "" || b.ID() == "" {
		t.Error("holder IDs should be non-empty")
	}
	if a.ID() == b.ID() {
		t.Error("holder IDs should be unique")
	}
}
