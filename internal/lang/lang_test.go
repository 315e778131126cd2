package lang

import (
	"context"
	"testing"
)

func TestForExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{".py", "python"},
		{".pyw", "python"},
		{".go", ""},
		{".rb", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			got := ForExtension(tt.ext)
			if got != tt.want {
				t.Errorf("ForExtension(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestForShebang(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want string
	}{
		{"#!/usr/bin/env python", "python"},
		{"#!/usr/bin/env python3", "python"},
		{"#!/usr/bin/python2.7", "python"},
		{"#!/usr/local/bin/pypy3 -u", "python"},
		{"#!/bin/sh", ""},
		{"#!/usr/bin/env pythonista", ""},
		{"#!", ""},
		{"import os", ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()
			if got := ForShebang(tt.line); got != tt.want {
				t.Errorf("ForShebang(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestLanguagesRegistered(t *testing.T) {
	t.Parallel()

	py, ok := Languages[Python]
	if !ok {
		t.Fatal("python language not registered")
	}
	if py.lang == nil {
		t.Error("python language is nil")
	}
}

func TestNewParser(t *testing.T) {
	t.Parallel()

	py := Languages[Python]
	p := py.NewParser()
	if p == nil {
		t.Fatal("NewParser returned nil")
	}
	defer p.Close()

	tree, err := p.ParseCtx(context.Background(), nil, []byte("def f():\n    pass\n"))
	if err != nil {
		t.Fatalf("ParseCtx: %v", err)
	}
	defer tree.Close()
	if got := tree.RootNode().Type(); got != "module" {
		t.Errorf("root type = %q, want module", got)
	}
}
