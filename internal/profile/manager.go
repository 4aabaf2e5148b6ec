package profile

import (
	"sync"

	"github.com/Iron-Ham/negotiator/internal/errors"
	"github.com/Iron-Ham/negotiator/internal/event"
	"github.com/Iron-Ham/negotiator/internal/logging"
)

// Manager holds the profile table and the active profile. It is safe for
// concurrent use. Activation changes are published as ProfileActivatedEvent.
type Manager struct {
	mu           sync.RWMutex
	profiles     map[string]Profile
	rules        map[string]string // context -> label
	defaultLabel string
	context      string
	active       string

	bus    *event.Bus
	logger *logging.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithBus publishes profile events to bus.
func WithBus(bus *event.Bus) Option {
	return func(m *Manager) { m.bus = bus }
}

// WithLogger sets the manager's logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithDefault sets the label used when no context rule matches.
func WithDefault(label string) Option {
	return func(m *Manager) { m.defaultLabel = label }
}

// WithContextRules maps context names to profile labels.
func WithContextRules(rules map[string]string) Option {
	return func(m *Manager) {
		for k, v := range rules {
			m.rules[k] = v
		}
	}
}

// NewManager creates an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		profiles: make(map[string]Profile),
		rules:    make(map[string]string),
		logger:   logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Update merges profiles into the table by label, replacing existing
// entries. If the active profile is among them it is republished.
func (m *Manager) Update(profiles ...Profile) {
	m.mu.Lock()
	refreshed := false
	labels := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if p.Label == "" {
			continue
		}
		m.profiles[p.Label] = p.clone()
		labels = append(labels, p.Label)
		if p.Label == m.active {
			refreshed = true
		}
	}
	active, ctx := m.active, m.context
	m.mu.Unlock()

	m.logger.Info("profiles updated", "labels", labels)
	m.bus.Publish(event.NewProfilesUpdatedEvent(labels))
	if refreshed {
		m.logger.Info("active profile refreshed", "label", active)
		m.bus.Publish(event.NewProfileActivatedEvent(active, ctx))
	}
}

// Apply loads a parsed profile document: rules and default are merged in,
// profiles go through Update, and the current context is re-resolved.
func (m *Manager) Apply(f *File) error {
	m.mu.Lock()
	for k, v := range f.ContextRules {
		m.rules[k] = v
	}
	if f.Default != "" {
		m.defaultLabel = f.Default
	}
	ctx, hasActive := m.context, m.active != ""
	m.mu.Unlock()

	m.Update(f.Profiles...)

	switch {
	case ctx != "":
		return m.SetContext(ctx)
	case !hasActive && m.Resolve("") != "":
		return m.SetContext("")
	}
	return nil
}

// LoadFile reads path and applies it. When the document selects a label
// that no profile carries, the error names that label.
func (m *Manager) LoadFile(path string) error {
	f, err := ReadFile(path)
	if err != nil {
		return err
	}
	if err := m.Apply(f); err != nil {
		return errors.NewProfileError("apply profiles", err).
			WithLabel(m.Resolve(m.Context())).WithPath(path)
	}
	return nil
}

// Resolve returns the label a context selects: its rule if one exists,
// otherwise the default label.
func (m *Manager) Resolve(context string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolveLocked(context)
}

func (m *Manager) resolveLocked(context string) string {
	if label, ok := m.rules[context]; ok {
		return label
	}
	return m.defaultLabel
}

// SetContext records the current context and activates the profile it
// selects. Activation is published only when the active label changes.
func (m *Manager) SetContext(context string) error {
	m.mu.Lock()
	label := m.resolveLocked(context)
	if _, ok := m.profiles[label]; !ok {
		m.mu.Unlock()
		return errors.NewNotFoundError("profile", label).WithCause(errors.ErrProfileNotFound)
	}
	m.context = context
	changed := m.active != label
	m.active = label
	m.mu.Unlock()

	if changed {
		m.logger.Info("active profile changed", "label", label, "context", context)
		m.bus.Publish(event.NewProfileActivatedEvent(label, context))
	}
	return nil
}

// Activate selects a profile by label directly, bypassing context rules.
func (m *Manager) Activate(label string) error {
	m.mu.Lock()
	if _, ok := m.profiles[label]; !ok {
		m.mu.Unlock()
		return errors.NewNotFoundError("profile", label).WithCause(errors.ErrProfileNotFound)
	}
	changed := m.active != label
	m.active = label
	ctx := m.context
	m.mu.Unlock()

	if changed {
		m.bus.Publish(event.NewProfileActivatedEvent(label, ctx))
	}
	return nil
}

// Active returns a copy of the active profile.
func (m *Manager) Active() (Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == "" {
		return Profile{}, errors.ErrNoActiveProfile
	}
	return m.profiles[m.active].clone(), nil
}

// Get returns a copy of the profile with the given label.
func (m *Manager) Get(label string) (Profile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[label]
	return p.clone(), ok
}

// Labels returns all known labels, sorted.
func (m *Manager) Labels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedLabels(m.profiles)
}

// Context returns the last context passed to SetContext.
func (m *Manager) Context() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.context
}
