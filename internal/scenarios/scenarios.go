// Package scenarios holds the psh test suites. Each suite is a fixed
// sequence of checks over one session and stops at the first failure.
package scenarios

import (
	"context"
	"fmt"
	"sort"

	"github.com/buckleypaul/pshtest/internal/psh"
)

// Suite is one named test scenario.
type Suite struct {
	Name        string
	Description string
	Run         func(ctx context.Context, s *psh.Session) error
}

var registry = map[string]Suite{}

func register(s Suite) {
	if _, dup := registry[s.Name]; dup {
		panic("scenarios: duplicate suite " + s.Name)
	}
	registry[s.Name] = s
}

// Lookup returns the suite called name.
func Lookup(name string) (Suite, error) {
	s, ok := registry[name]
	if !ok {
		return Suite{}, fmt.Errorf("unknown suite %q (known: %v)", name, Names())
	}
	return s, nil
}

// Names lists the registered suites in order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve looks up every name, or all suites when names is empty.
func Resolve(names []string) ([]Suite, error) {
	if len(names) == 0 {
		names = Names()
	}
	suites := make([]Suite, 0, len(names))
	for _, n := range names {
		s, err := Lookup(n)
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}
	return suites, nil
}

// step is one AssertCmd call.
type step struct {
	cmd  string
	want psh.Expected
	msg  string
}

func run(ctx context.Context, s *psh.Session, steps ...step) error {
	for _, st := range steps {
		if _, err := s.AssertCmd(ctx, st.cmd, st.want, st.msg); err != nil {
			return err
		}
	}
	return nil
}
