package mqtt

import (
	"context"
	"sync"

	"github.com/dokzlo13/triggerd/internal/debounce"
)

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	mu         sync.Mutex
	handlers   map[string]MessageHandler
	published  []published
	publishErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: make(map[string]MessageHandler)}
}

func (f *fakeClient) Subscribe(topic string, _ byte, handler MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeClient) Publish(topic string, qos byte, _ bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{topic: topic, qos: qos, payload: payload})
	return nil
}

func (f *fakeClient) IsConnected() bool { return true }
func (f *fakeClient) Close() error      { return nil }

// deliver routes a message to the handler registered for pattern.
func (f *fakeClient) deliver(pattern, topic string, payload []byte) error {
	f.mu.Lock()
	h := f.handlers[pattern]
	f.mu.Unlock()
	return h(topic, payload)
}

type call struct {
	kind   debounce.Kind
	name   string
	active bool
}

type fakeHandler struct {
	calls  []call
	result debounce.Result
}

func (f *fakeHandler) Handle(_ context.Context, kind debounce.Kind, name string, active bool) debounce.Result {
	f.calls = append(f.calls, call{kind, name, active})
	return f.result
}
