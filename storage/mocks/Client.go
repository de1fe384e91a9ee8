package mocks

import (
	"context"

	"github.com/bitrise-io/go-objectupload/storage"
	"github.com/stretchr/testify/mock"
)

type Client struct {
	mock.Mock
}

func (_m *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	ret := _m.Called(ctx, bucket)

	var r0 bool
	if rf, ok := ret.Get(0).(func(context.Context, string) bool); ok {
		r0 = rf(ctx, bucket)
	} else {
		r0, _ = ret.Get(0).(bool)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, bucket)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *Client) MakeBucket(ctx context.Context, bucket string) error {
	ret := _m.Called(ctx, bucket)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		r0 = rf(ctx, bucket)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (_m *Client) PutObject(ctx context.Context, input storage.PutObjectInput) (storage.ObjectInfo, error) {
	ret := _m.Called(ctx, input)

	var r0 storage.ObjectInfo
	if rf, ok := ret.Get(0).(func(context.Context, storage.PutObjectInput) storage.ObjectInfo); ok {
		r0 = rf(ctx, input)
	} else {
		r0, _ = ret.Get(0).(storage.ObjectInfo)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, storage.PutObjectInput) error); ok {
		r1 = rf(ctx, input)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}
