package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hkcm91/stickernest/pkg/eventbus"
	"github.com/hkcm91/stickernest/pkg/events"
)

// MockEventBus is a mock implementation of eventbus.EventBus interface.
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, key string, event eventbus.Event) error {
	args := m.Called(ctx, key, event)

	return args.Error(0)
}

func (m *MockEventBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	args := m.Called(eventType, handler)

	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()

	return args.Error(0)
}

func (m *MockEventBus) GenerateID() string {
	args := m.Called()

	return args.String(0)
}

// MockEmissionBus is a mock implementation of eventbus.EmissionBus interface.
type MockEmissionBus struct {
	mock.Mock
}

func (m *MockEmissionBus) PublishEmission(ctx context.Context, emission *events.WidgetEmitted) error {
	args := m.Called(ctx, emission)

	return args.Error(0)
}

func (m *MockEmissionBus) HandleEmissions(handler eventbus.EmissionHandler) error {
	args := m.Called(handler)

	return args.Error(0)
}

func (m *MockEmissionBus) SubscribeToEmissions(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockEmissionBus) Close() error {
	args := m.Called()

	return args.Error(0)
}
