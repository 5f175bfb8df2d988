// Package mocks provides test doubles for the sheets client.
package mocks

import (
	"context"

	sheets "github.com/sells-group/leadscore/pkg/sheets"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Values provides a mock function with given fields: ctx, spreadsheetID, readRange
func (_m *MockClient) Values(ctx context.Context, spreadsheetID string, readRange string) (*sheets.ValueRange, error) {
	ret := _m.Called(ctx, spreadsheetID, readRange)

	if len(ret) == 0 {
		panic("no return value specified for Values")
	}

	var r0 *sheets.ValueRange
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (*sheets.ValueRange, error)); ok {
		return rf(ctx, spreadsheetID, readRange)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string) *sheets.ValueRange); ok {
		r0 = rf(ctx, spreadsheetID, readRange)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*sheets.ValueRange)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, spreadsheetID, readRange)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
