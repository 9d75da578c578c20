package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dokzlo13/triggerd/internal/debounce"
)

const (
	resetSegment  = "reset"
	eventsSegment = "events"
)

// IngressTopics returns the subscription patterns for prefix.
func IngressTopics(prefix string) []string {
	return []string{
		prefix + "/+/+",
		prefix + "/+/" + resetSegment + "/+",
	}
}

// EventTopic is where recorded events are published.
func EventTopic(prefix string, kind debounce.Kind, name string) string {
	return fmt.Sprintf("%s/%s/%s/%s", prefix, eventsSegment, kind, name)
}

// ParseTopic splits an ingress topic into kind and device name.
// reset is true for <prefix>/<kind>/reset/<name>.
func ParseTopic(prefix, topic string) (kind debounce.Kind, name string, reset bool, err error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", "", false, fmt.Errorf("%w: %s", ErrUnsupportedTopic, topic)
	}

	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 2 && parts[0] != eventsSegment:
		kind, name = debounce.Kind(parts[0]), parts[1]
	case len(parts) == 3 && parts[1] == resetSegment:
		kind, name, reset = debounce.Kind(parts[0]), parts[2], true
	default:
		return "", "", false, fmt.Errorf("%w: %s", ErrUnsupportedTopic, topic)
	}

	if name == "" {
		return "", "", false, fmt.Errorf("%w: empty device name in %s", ErrUnsupportedTopic, topic)
	}
	return kind, name, reset, nil
}

// ParsePayload reads the activation flag. An empty payload means active.
func ParsePayload(payload []byte) (bool, error) {
	s := strings.ToLower(strings.TrimSpace(string(payload)))
	switch s {
	case "", "true", "on", "1":
		return true, nil
	case "false", "off", "0":
		return false, nil
	}

	var body struct {
		Active *bool `json:"active"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.Active == nil {
		return false, fmt.Errorf("%w: %q", ErrInvalidPayload, s)
	}
	return *body.Active, nil
}
