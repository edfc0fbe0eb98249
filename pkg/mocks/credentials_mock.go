package mocks

import "github.com/stretchr/testify/mock"

// MockCredentialStore is a mock implementation of credentials.Store interface.
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Encrypt(plaintext string) (string, error) {
	args := m.Called(plaintext)

	return args.String(0), args.Error(1)
}

func (m *MockCredentialStore) Decrypt(encrypted string) (string, error) {
	args := m.Called(encrypted)

	return args.String(0), args.Error(1)
}
