package driver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"petit-panthere/internal/driver/credential"
	"petit-panthere/pkg/panthere"
)

// Definition describes one configured driver entry.
type Definition struct {
	// Name is the stable configured driver instance identifier.
	Name string
	// Type identifies which builder should construct this runtime.
	Type string
}

// ParseDefinitions turns a CHAT_PLATFORM value such as "slack" or
// "slack,telegram" into driver definitions named after their type.
func ParseDefinitions(raw string) ([]Definition, error) {
	definitions := make([]Definition, 0, 2)
	seen := make(map[string]struct{}, 2)
	for _, token := range strings.Split(raw, ",") {
		driverType := strings.ToLower(strings.TrimSpace(token))
		if driverType == "" {
			continue
		}
		if _, exists := seen[driverType]; exists {
			continue
		}
		seen[driverType] = struct{}{}
		definitions = append(definitions, Definition{Name: driverType, Type: driverType})
	}
	if len(definitions) == 0 {
		return nil, fmt.Errorf("parse driver definitions: no platform in %q", raw)
	}

	return definitions, nil
}

// Runtime contains one fully built driver runtime instance.
type Runtime struct {
	// Name is the configured driver instance identifier.
	Name string
	// Platform is the neutral platform the driver produces events for.
	Platform panthere.Platform
	// Driver is the inbound runtime implementation.
	Driver panthere.Driver
	// SinkDispatcher posts replies back to the platform.
	SinkDispatcher panthere.SinkDispatcher
}

// BuilderFunc builds one runtime from one configured driver definition.
// Credentials are read through lookup so callers decide where they come from.
type BuilderFunc func(
	ctx context.Context,
	definition Definition,
	lookup credential.LookupFunc,
	logger *slog.Logger,
) (Runtime, error)

// Descriptor binds one driver type token to platform metadata and a runtime builder.
type Descriptor struct {
	// Type is the driver type token from configuration (for example "slack").
	Type string
	// Platform is the neutral platform for this driver type.
	Platform panthere.Platform
	// Builder constructs one runtime instance for this driver type.
	Builder BuilderFunc
}

type registryEntry struct {
	platform panthere.Platform
	builder  BuilderFunc
}

// Registry maps driver types to runtime builders and type-level platform metadata.
type Registry struct {
	entries map[string]registryEntry
	types   []string
}

// NewRegistry creates one immutable driver registry from descriptors.
func NewRegistry(descriptors []Descriptor) (*Registry, error) {
	entries := make(map[string]registryEntry, len(descriptors))
	types := make([]string, 0, len(descriptors))
	for _, descriptor := range descriptors {
		if descriptor.Type == "" {
			return nil, fmt.Errorf("new registry: empty descriptor type")
		}
		if descriptor.Platform == "" {
			return nil, fmt.Errorf("new registry type %s: empty platform", descriptor.Type)
		}
		if descriptor.Builder == nil {
			return nil, fmt.Errorf("new registry type %s: nil builder", descriptor.Type)
		}
		if _, exists := entries[descriptor.Type]; exists {
			return nil, fmt.Errorf("new registry type %s: duplicate", descriptor.Type)
		}

		entries[descriptor.Type] = registryEntry{
			platform: descriptor.Platform,
			builder:  descriptor.Builder,
		}
		types = append(types, descriptor.Type)
	}
	sort.Strings(types)

	return &Registry{
		entries: entries,
		types:   types,
	}, nil
}

// Types returns all registered driver types in sorted order.
func (r *Registry) Types() []string {
	if r == nil {
		return nil
	}

	types := make([]string, len(r.types))
	copy(types, r.types)

	return types
}

// PlatformForType resolves one registered driver type to its neutral platform.
func (r *Registry) PlatformForType(driverType string) (panthere.Platform, error) {
	if r == nil {
		return "", fmt.Errorf("resolve platform: nil registry")
	}

	entry, exists := r.entries[driverType]
	if !exists {
		return "", fmt.Errorf("unsupported type %s (supported: %s)", driverType, strings.Join(r.types, ", "))
	}

	return entry.platform, nil
}

// Build builds every definition in order. The first failing builder aborts
// the whole set; its error wraps whatever the builder returned, so a
// *credential.MissingError stays reachable through errors.As.
func (r *Registry) Build(
	ctx context.Context,
	definitions []Definition,
	lookup credential.LookupFunc,
	logger *slog.Logger,
) ([]Runtime, error) {
	if r == nil {
		return nil, fmt.Errorf("build drivers: nil registry")
	}
	if logger == nil {
		logger = slog.Default()
	}

	runtimes := make([]Runtime, 0, len(definitions))
	seenNames := make(map[string]struct{}, len(definitions))
	for _, definition := range definitions {
		if definition.Name == "" {
			return nil, fmt.Errorf("build driver: empty name")
		}
		if _, exists := seenNames[definition.Name]; exists {
			return nil, fmt.Errorf("build driver %s: duplicate name", definition.Name)
		}
		seenNames[definition.Name] = struct{}{}
		if definition.Type == "" {
			return nil, fmt.Errorf("build driver %s: empty type", definition.Name)
		}

		entry, exists := r.entries[definition.Type]
		if !exists {
			return nil, fmt.Errorf(
				"build driver %s: unsupported type %s (supported: %s)",
				definition.Name,
				definition.Type,
				strings.Join(r.types, ", "),
			)
		}

		runtime, err := entry.builder(ctx, definition, lookup, logger)
		if err != nil {
			return nil, fmt.Errorf("build driver %s type %s: %w", definition.Name, definition.Type, err)
		}
		if runtime.Driver == nil {
			return nil, fmt.Errorf("build driver %s type %s: nil driver", definition.Name, definition.Type)
		}
		if runtime.Name == "" {
			runtime.Name = definition.Name
		}
		if runtime.Platform == "" {
			runtime.Platform = entry.platform
		}

		runtimes = append(runtimes, runtime)
	}

	return runtimes, nil
}

// CompositeSinkDispatcher routes outbound messages to the sink of the
// platform named by the request target.
type CompositeSinkDispatcher struct {
	byPlatform map[panthere.Platform]panthere.SinkDispatcher
}

// NewCompositeSinkDispatcher creates a composite dispatcher from runtime sinks.
func NewCompositeSinkDispatcher(runtimes []Runtime) (*CompositeSinkDispatcher, error) {
	byPlatform := make(map[panthere.Platform]panthere.SinkDispatcher, len(runtimes))
	for _, runtime := range runtimes {
		if runtime.SinkDispatcher == nil {
			continue
		}
		if runtime.Platform == "" {
			return nil, fmt.Errorf("new composite sink dispatcher %s: missing platform", runtime.Name)
		}
		if _, exists := byPlatform[runtime.Platform]; exists {
			return nil, fmt.Errorf("new composite sink dispatcher: duplicate sink for platform %s", runtime.Platform)
		}
		byPlatform[runtime.Platform] = runtime.SinkDispatcher
	}

	return &CompositeSinkDispatcher{byPlatform: byPlatform}, nil
}

// SendMessage routes send-message requests to one concrete sink.
func (d *CompositeSinkDispatcher) SendMessage(
	ctx context.Context,
	request panthere.SendMessageRequest,
) (*panthere.OutboundMessage, error) {
	dispatcher, err := d.resolve(request.Target)
	if err != nil {
		return nil, fmt.Errorf("resolve sink for send message: %w", err)
	}

	response, err := dispatcher.SendMessage(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("route send message: %w", err)
	}

	return response, nil
}

// Platforms returns the platforms that have a sink, sorted.
func (d *CompositeSinkDispatcher) Platforms() []panthere.Platform {
	if d == nil {
		return nil
	}
	platforms := make([]panthere.Platform, 0, len(d.byPlatform))
	for platform := range d.byPlatform {
		platforms = append(platforms, platform)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })

	return platforms
}

func (d *CompositeSinkDispatcher) resolve(target panthere.OutboundTarget) (panthere.SinkDispatcher, error) {
	if d == nil {
		return nil, fmt.Errorf("nil dispatcher")
	}
	if len(d.byPlatform) == 0 {
		return nil, fmt.Errorf("%w: no sinks configured", panthere.ErrOutboundUnsupported)
	}

	if target.Platform != "" {
		dispatcher, exists := d.byPlatform[target.Platform]
		if !exists {
			return nil, fmt.Errorf("%w: no sink for platform %s", panthere.ErrOutboundUnsupported, target.Platform)
		}
		return dispatcher, nil
	}
	if len(d.byPlatform) == 1 {
		for _, dispatcher := range d.byPlatform {
			return dispatcher, nil
		}
	}

	return nil, fmt.Errorf("%w: missing target platform", panthere.ErrOutboundUnsupported)
}

var _ panthere.SinkDispatcher = (*CompositeSinkDispatcher)(nil)
