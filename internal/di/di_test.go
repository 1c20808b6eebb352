package di

import (
	"strings"
	"testing"
)

type greeter struct{ name string }

func TestContainer_LazySingleton(t *testing.T) {
	c := NewContainer()
	tok := NewToken[*greeter]("test.greeter")

	calls := 0
	RegisterToken(c, tok, func(sr ServiceRegistry) *greeter {
		calls++
		return &greeter{name: sr.Get("name").(string)}
	})
	c.Register("name", "paybridge")

	if calls != 0 {
		t.Fatalf("factory ran before first Get")
	}

	a := GetToken(c, tok)
	b := GetToken(c, tok)
	if a != b {
		t.Errorf("expected the same instance")
	}
	if calls != 1 {
		t.Errorf("factory calls = %d, want 1", calls)
	}
	if a.name != "paybridge" {
		t.Errorf("name = %q", a.name)
	}
}

func TestContainer_Panics(t *testing.T) {
	t.Run("unknown service", func(t *testing.T) {
		c := NewContainer()
		defer expectPanic(t, "not registered")
		c.Get("missing")
	})

	t.Run("cycle", func(t *testing.T) {
		c := NewContainer()
		c.RegisterFactory("a", func(sr ServiceRegistry) any { return sr.Get("b") })
		c.RegisterFactory("b", func(sr ServiceRegistry) any { return sr.Get("a") })
		defer expectPanic(t, "cycle")
		c.Get("a")
	})

	t.Run("wrong type", func(t *testing.T) {
		c := NewContainer()
		c.Register("n", 42)
		defer expectPanic(t, "has type")
		GetToken(c, NewToken[string]("n"))
	})
}

func TestContainer_Has(t *testing.T) {
	c := NewContainer()
	c.Register("x", 1)
	c.RegisterFactory("y", func(ServiceRegistry) any { return 2 })

	if !c.Has("x") || !c.Has("y") {
		t.Error("expected registered names to be reported")
	}
	if c.Has("z") {
		t.Error("unexpected name reported")
	}
}

func expectPanic(t *testing.T, contains string) {
	t.Helper()
	r := recover()
	if r == nil {
		t.Fatalf("expected panic containing %q", contains)
	}
	if msg, _ := r.(string); !strings.Contains(msg, contains) {
		t.Errorf("panic = %v, want substring %q", r, contains)
	}
}
