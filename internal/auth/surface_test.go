package auth

import (
	"context"
	"errors"
	"testing"
)

func TestBrowserSurface(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers navigations to the live subscription", func(t *testing.T) {
		var opened []string
		b := NewBrowserSurface(func(u string) error { opened = append(opened, u); return nil }, nil)

		if b.Navigate("obsidian://x") {
			t.Error("expected no listener before Open")
		}

		sub, err := b.Open(ctx, "https://auth")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if len(opened) != 1 || opened[0] != "https://auth" {
			t.Errorf("opened = %v", opened)
		}
		if !b.Navigate("obsidian://x?code=1") {
			t.Fatal("Navigate() = false")
		}
		if got := <-sub.Navigations(); got != "obsidian://x?code=1" {
			t.Errorf("navigation = %q", got)
		}
	})

	t.Run("open cancels previous subscription", func(t *testing.T) {
		b := NewBrowserSurface(func(string) error { return nil }, nil)
		first, _ := b.Open(ctx, "a")
		second, _ := b.Open(ctx, "b")

		if _, ok := <-first.Navigations(); ok {
			t.Error("expected first subscription closed")
		}
		b.Navigate("nav")
		if got := <-second.Navigations(); got != "nav" {
			t.Errorf("navigation = %q", got)
		}
	})

	t.Run("close and cancel are idempotent", func(t *testing.T) {
		b := NewBrowserSurface(func(string) error { return nil }, nil)
		sub, _ := b.Open(ctx, "a")
		_ = b.Close()
		sub.Cancel()
		_ = b.Close()
		if b.Listening() {
			t.Error("expected no listener")
		}
	})

	t.Run("opener failure", func(t *testing.T) {
		b := NewBrowserSurface(func(string) error { return errors.New("no browser") }, nil)
		if _, err := b.Open(ctx, "a"); err == nil {
			t.Error("expected error")
		}
		if b.Listening() {
			t.Error("expected no listener")
		}
	})
}
