// Package featureflags evaluates the FEATURE_FLAGS setting, a comma separated
// list such as "realtime_notifications=on,webp_previews=25%".
package featureflags

import (
	"fmt"
	"hash/fnv"
	"maps"
	"strconv"
	"strings"
)

// Flags read by the server.
const (
	// RealtimeNotifications gates the notifications WebSocket.
	RealtimeNotifications = "realtime_notifications"
	// WebPPreviews makes the media store write a downscaled WebP next to
	// every uploaded image.
	WebPPreviews = "webp_previews"
)

// Known lists every flag the server evaluates. Unset flags are off.
var Known = []string{RealtimeNotifications, WebPPreviews}

// rollout is the share of users, 0 to 100, that see a flag.
type rollout int

// Manager holds parsed flags. A nil Manager reports every flag as off.
type Manager struct {
	raw     map[string]string
	rollout map[string]rollout
	invalid []string
}

// NewManager parses raw. Entries that cannot be parsed are ignored and
// reported by Invalid.
func NewManager(raw string) *Manager {
	m := &Manager{raw: map[string]string{}, rollout: map[string]rollout{}}

	for _, entry := range strings.Split(raw, ",") {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		name, value, ok := strings.Cut(entry, "=")
		name, value = normalize(name), normalize(value)
		if !ok || name == "" || value == "" {
			m.invalid = append(m.invalid, strings.TrimSpace(entry))
			continue
		}
		r, err := parseRollout(value)
		if err != nil {
			m.invalid = append(m.invalid, strings.TrimSpace(entry))
			continue
		}
		m.raw[name] = value
		m.rollout[name] = r
	}
	return m
}

func parseRollout(value string) (rollout, error) {
	switch value {
	case "on", "true", "1":
		return 100, nil
	case "off", "false", "0":
		return 0, nil
	}
	pct, found := strings.CutSuffix(value, "%")
	if !found {
		return 0, fmt.Errorf("unknown flag value %q", value)
	}
	n, err := strconv.Atoi(pct)
	if err != nil {
		return 0, fmt.Errorf("bad percentage %q", value)
	}
	return rollout(min(max(n, 0), 100)), nil
}

// Enabled reports whether name is on for userID. Partial rollouts are
// deterministic per user and never reach anonymous callers (userID 0).
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	name = normalize(name)
	switch r := m.rollout[name]; {
	case r >= 100:
		return true
	case r <= 0 || userID == 0:
		return false
	default:
		return bucket(name, userID) < int(r)
	}
}

// Raw returns a copy of the configured values.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m.raw)
}

// Snapshot evaluates every known and configured flag for userID.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(Known))
	for _, name := range Known {
		out[name] = m.Enabled(name, userID)
	}
	if m != nil {
		for name := range m.rollout {
			out[name] = m.Enabled(name, userID)
		}
	}
	return out
}

// Invalid returns the entries NewManager could not parse.
func (m *Manager) Invalid() []string {
	if m == nil {
		return nil
	}
	return m.invalid
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// bucket maps (name, userID) onto 0..99.
func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write(strconv.AppendUint(nil, uint64(userID), 10))
	return int(h.Sum32() % 100)
}
