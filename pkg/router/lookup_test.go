package router

import (
	"context"
	"errors"
	"testing"
)

func TestLocationFor(t *testing.T) {
	tree := MustCompile(familyRoutes())

	tests := []struct {
		name   string
		route  string
		params map[string]string
		want   string
	}{
		{"root", "home", nil, "/"},
		{"literal", "login", nil, "/login"},
		{"param", "family", map[string]string{"fid": "f1"}, "/family/f1"},
		{"case insensitive", "FAMILY", map[string]string{"fid": "f1"}, "/family/f1"},
		{"nested", "person", map[string]string{"fid": "f1", "pid": "7"}, "/family/f1/person/7"},
		{"escaped", "family", map[string]string{"fid": "a b?"}, "/family/a%20b%3F"},
		{"extra params", "login", map[string]string{"from": "/family/f1", "a": "1"}, "/login?a=1&from=%2Ffamily%2Ff1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tree.LocationFor(tt.route, tt.params)
			if err != nil {
				t.Fatalf("LocationFor() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("LocationFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocationForErrors(t *testing.T) {
	tree := MustCompile(familyRoutes())

	tests := []struct {
		name   string
		route  string
		params map[string]string
	}{
		{"unknown name", "nope", nil},
		{"empty name", "", nil},
		{"missing param", "family", nil},
		{"missing ancestor param", "person", map[string]string{"pid": "7"}},
		{"empty value", "family", map[string]string{"fid": ""}},
		{"dot value", "family", map[string]string{"fid": "."}},
		{"dotdot value", "family", map[string]string{"fid": ".."}},
		{"slash value", "family", map[string]string{"fid": "a/b"}},
		{"expression mismatch", "person", map[string]string{"fid": "f1", "pid": "abc"}},
		{"empty query name", "family", map[string]string{"fid": "f1", "": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tree.LocationFor(tt.route, tt.params)
			if err == nil {
				t.Fatal("LocationFor() expected error")
			}
			if !errors.Is(err, ErrNameLookup) {
				t.Errorf("errors.Is(err, ErrNameLookup) = false for %v", err)
			}
			var f *Fault
			if !errors.As(err, &f) {
				t.Fatalf("error is %T, want *Fault", err)
			}
			if f.Name != tt.route {
				t.Errorf("Name = %q, want %q", f.Name, tt.route)
			}
		})
	}
}

func TestLocationForRoundTrip(t *testing.T) {
	tree := MustCompile(familyRoutes())
	r := testResolver()

	tests := []struct {
		route  string
		params map[string]string
	}{
		{"family", map[string]string{"fid": "f1"}},
		{"family", map[string]string{"fid": "smith & sons"}},
		{"family", map[string]string{"fid": "café"}},
		{"person", map[string]string{"fid": "f1", "pid": "42"}},
		{"person", map[string]string{"fid": "f1", "pid": "42", "tab": "pets", "q": "a=b&c"}},
		{"login", map[string]string{"from": "/family/f1?tab=x"}},
		{"home", map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			loc, err := tree.LocationFor(tt.route, tt.params)
			if err != nil {
				t.Fatalf("LocationFor() error = %v", err)
			}

			res := r.Resolve(context.Background(), tree, loc, nil)
			if !res.OK() {
				t.Fatalf("Resolve(%q) fault = %v", loc, res.Fault)
			}
			top, _ := res.Top()
			if top.Name() != tt.route {
				t.Errorf("top = %q, want %q", top.Name(), tt.route)
			}
			if len(top.Params) != len(tt.params) {
				t.Fatalf("Params = %v, want %v", top.Params, tt.params)
			}
			for k, v := range tt.params {
				if top.Params[k] != v {
					t.Errorf("Params[%q] = %q, want %q", k, top.Params[k], v)
				}
			}
		})
	}
}

func TestMustLocationForPanics(t *testing.T) {
	tree := MustCompile(familyRoutes())
	if got := tree.MustLocationFor("login", nil); got != "/login" {
		t.Errorf("MustLocationFor() = %q", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("MustLocationFor should panic for an unknown name")
		}
	}()
	tree.MustLocationFor("nope", nil)
}
