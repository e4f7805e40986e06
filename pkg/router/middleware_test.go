package router

import (
	"errors"
	"testing"
)

func TestMiddlewareFuncHandle(t *testing.T) {
	called := false
	mw := MiddlewareFunc(func(nav *Nav, params Params, next func() (Result, error)) (Result, error) {
		called = true
		return next()
	})

	res, err := mw.Handle(&Nav{}, nil, func() (Result, error) { return PageResult("p"), nil })
	if err != nil {
		t.Errorf("Handle() error = %v", err)
	}
	if !called {
		t.Error("middleware was not called")
	}
	if res.Page != "p" {
		t.Errorf("Page = %v, want p", res.Page)
	}
}

func TestComposeMiddlewareEmpty(t *testing.T) {
	called := false
	handler := func() (Result, error) {
		called = true
		return PageResult(nil), nil
	}

	if _, err := ComposeMiddleware(&Nav{}, nil, nil, handler); err != nil {
		t.Errorf("ComposeMiddleware() error = %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
}

func TestComposeMiddlewareOrder(t *testing.T) {
	var order []string
	record := func(name string) Middleware {
		return MiddlewareFunc(func(nav *Nav, params Params, next func() (Result, error)) (Result, error) {
			order = append(order, name+":before")
			res, err := next()
			order = append(order, name+":after")
			return res, err
		})
	}

	handler := func() (Result, error) {
		order = append(order, "handler")
		return PageResult(nil), nil
	}

	_, err := ComposeMiddleware(&Nav{}, nil, []Middleware{record("a"), record("b")}, handler)
	if err != nil {
		t.Fatalf("ComposeMiddleware() error = %v", err)
	}

	want := []string{"a:before", "b:before", "handler", "b:after", "a:after"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestComposeMiddlewareShortCircuit(t *testing.T) {
	stop := MiddlewareFunc(func(nav *Nav, params Params, next func() (Result, error)) (Result, error) {
		return Redirect("/login"), nil
	})

	called := false
	handler := func() (Result, error) {
		called = true
		return PageResult(nil), nil
	}

	res, err := ComposeMiddleware(&Nav{}, nil, []Middleware{stop}, handler)
	if err != nil {
		t.Fatalf("ComposeMiddleware() error = %v", err)
	}
	if called {
		t.Error("handler should not be called")
	}
	if res.Kind != ResultRedirect || res.Location != "/login" {
		t.Errorf("result = %+v, want redirect to /login", res)
	}
}

func TestComposeMiddlewareError(t *testing.T) {
	boom := errors.New("boom")
	fail := MiddlewareFunc(func(nav *Nav, params Params, next func() (Result, error)) (Result, error) {
		return Result{}, boom
	})

	_, err := ComposeMiddleware(&Nav{}, nil, []Middleware{fail}, func() (Result, error) {
		return PageResult(nil), nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestChain(t *testing.T) {
	count := 0
	inc := MiddlewareFunc(func(nav *Nav, params Params, next func() (Result, error)) (Result, error) {
		count++
		return next()
	})

	mw := Chain(inc, inc, inc)
	if _, err := mw.Handle(&Nav{}, nil, func() (Result, error) { return PageResult(nil), nil }); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestSkipAndOnly(t *testing.T) {
	ran := false
	mark := MiddlewareFunc(func(nav *Nav, params Params, next func() (Result, error)) (Result, error) {
		ran = true
		return next()
	})
	isAdmin := func(nav *Nav) bool { return nav.Path == "/admin" }
	next := func() (Result, error) { return PageResult(nil), nil }

	tests := []struct {
		name string
		mw   Middleware
		path string
		want bool
	}{
		{"skip matching", Skip(isAdmin, mark), "/admin", false},
		{"skip other", Skip(isAdmin, mark), "/home", true},
		{"only matching", Only(isAdmin, mark), "/admin", true},
		{"only other", Only(isAdmin, mark), "/home", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ran = false
			if _, err := tt.mw.Handle(&Nav{Path: tt.path}, nil, next); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if ran != tt.want {
				t.Errorf("ran = %v, want %v", ran, tt.want)
			}
		})
	}
}

func TestRedirectUnless(t *testing.T) {
	loggedIn := false
	guard := RedirectUnless(
		func(nav *Nav) bool { return loggedIn },
		func(nav *Nav) string { return "/login?from=" + nav.Path },
	)
	next := func() (Result, error) { return PageResult("secret"), nil }

	res, err := guard.Handle(&Nav{Path: "/family"}, nil, next)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if res.Kind != ResultRedirect || res.Location != "/login?from=/family" {
		t.Errorf("result = %+v, want redirect to /login?from=/family", res)
	}

	loggedIn = true
	res, err = guard.Handle(&Nav{Path: "/family"}, nil, next)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if res.Kind != ResultPage || res.Page != "secret" {
		t.Errorf("result = %+v, want page", res)
	}
}
