// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package registry_test

import (
	"slices"
	"testing"

	"github.com/alan-mat/scholar/internal/registry"
)

func TestRegistryRegister(t *testing.T) {
	r := registry.New[string, int]()
	for i, k := range []string{"mock", "openai", "gemini"} {
		r.Register(k, i)
	}

	for _, k := range []string{"mock", "openai", "gemini"} {
		if !r.Exists(k) {
			t.Errorf("key '%s' not found in registry", k)
		}
	}
	if r.Exists("cohere") {
		t.Errorf("unexpected key '%s' in registry", "cohere")
	}
}

func TestRegistryOverwrite(t *testing.T) {
	r := registry.New[string, string]()
	r.Register("mock", "original")
	r.Register("mock", "replacement")

	got, ok := r.Get("mock")
	if !ok {
		t.Fatal("registered entry not found")
	}
	if got != "replacement" {
		t.Errorf("got '%s', expected '%s'", got, "replacement")
	}

	if _, ok := r.Get("ollama"); ok {
		t.Error("got unregistered key")
	}
}

func TestRegistryList(t *testing.T) {
	r := registry.New[string, bool]()
	if len(r.List()) != 0 {
		t.Errorf("length of keys got '%d', expected 0", len(r.List()))
	}

	r.Register("b", true)
	r.Register("a", false)

	keys := r.List()
	slices.Sort(keys)
	if !slices.Equal(keys, []string{"a", "b"}) {
		t.Errorf("expected keys [a b], got %v", keys)
	}
}
