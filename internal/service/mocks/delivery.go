package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendText(ctx context.Context, recipientID, text string) error {
	args := m.Called(ctx, recipientID, text)
	return args.Error(0)
}

func (m *MockNotifier) SendPhoto(ctx context.Context, recipientID, path, caption string) error {
	args := m.Called(ctx, recipientID, path, caption)
	return args.Error(0)
}

func (m *MockNotifier) SendVideo(ctx context.Context, recipientID, path, caption string) error {
	args := m.Called(ctx, recipientID, path, caption)
	return args.Error(0)
}

func (m *MockNotifier) SendDocument(ctx context.Context, recipientID, path, caption string) error {
	args := m.Called(ctx, recipientID, path, caption)
	return args.Error(0)
}

type MockFileStorage struct {
	mock.Mock
}

func (m *MockFileStorage) Delete(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockFileStorage) Exists(path string) (bool, error) {
	args := m.Called(path)
	return args.Bool(0), args.Error(1)
}
