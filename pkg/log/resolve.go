package log

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/mwantia/fabric/pkg/container"
)

// Resolve looks up the LoggerService registered in sc. The tag is either
// "logger" for the base logger or "logger:<name>" for a named child.
func Resolve(ctx context.Context, sc *container.ServiceContainer, tag string) (LoggerService, error) {
	if !strings.EqualFold(tag, "logger") && !strings.HasPrefix(strings.ToLower(tag), "logger:") {
		return nil, fmt.Errorf("unsupported logger tag '%s'", tag)
	}

	ok, resolved := sc.ResolveByType(ctx, reflect.TypeOf((*LoggerService)(nil)).Elem())
	if !ok {
		return nil, fmt.Errorf("failed to resolve '%s': no logger service registered", tag)
	}

	base, ok := resolved.(LoggerService)
	if !ok {
		return nil, fmt.Errorf("resolved logger for '%s' is not a LoggerService", tag)
	}

	if _, name, found := strings.Cut(tag, ":"); found {
		if name = strings.TrimSpace(name); name != "" {
			return base.Named(name), nil
		}
	}
	return base, nil
}
