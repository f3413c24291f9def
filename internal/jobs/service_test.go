package jobs

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoppulse/recsys-backend/pkg/logger"
)

func jobsTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "jobs-test", Output: io.Discard})
}

type fakeLock struct {
	held  bool
	fails bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.fails {
		return false, errors.New("redis down")
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func TestRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	failing := &countingJob{name: "feature-sync", err: errors.New("boom")}
	trailing := &countingJob{name: "inference"}
	service, err := NewService(ServiceParams{
		Logger:   jobsTestLogger(),
		Registry: NewRegistry(failing, trailing),
		Lock:     &fakeLock{},
	})
	require.NoError(t, err)

	require.NoError(t, service.runCycle(context.Background()))
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, trailing.runs)
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &countingJob{name: "feature-sync"}
	lock := &fakeLock{held: true}
	service, err := NewService(ServiceParams{
		Logger:   jobsTestLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, service.runCycle(context.Background()))
	assert.Zero(t, job.runs)
}

func TestRunCycleSurfacesLockErrors(t *testing.T) {
	service, err := NewService(ServiceParams{
		Logger:   jobsTestLogger(),
		Registry: NewRegistry(&countingJob{name: "feature-sync"}),
		Lock:     &fakeLock{fails: true},
	})
	require.NoError(t, err)

	assert.Error(t, service.runCycle(context.Background()))
}

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &fakeLock{}})
	assert.Error(t, err)

	_, err = NewService(ServiceParams{Logger: jobsTestLogger()})
	assert.Error(t, err)
}

func TestFuncJobWrapsServiceMethod(t *testing.T) {
	calls := 0
	job := NewJob("inference", func(context.Context) error {
		calls++
		return nil
	})
	assert.Equal(t, "inference", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, calls)
}

type fakeLockStore struct {
	values map[string]string
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}}
}

func (s *fakeLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *fakeLockStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (s *fakeLockStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func TestRedisLockAcquireReleaseRoundTrip(t *testing.T) {
	store := newFakeLockStore()
	lock, err := NewRedisLock(store, "locks:test", time.Minute)
	require.NoError(t, err)

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	second, err := NewRedisLock(store, "locks:test", time.Minute)
	require.NoError(t, err)
	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(context.Background()))
	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseIgnoresStolenLock(t *testing.T) {
	store := newFakeLockStore()
	lock, err := NewRedisLock(store, "locks:test", time.Minute)
	require.NoError(t, err)

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// Simulate TTL expiry plus takeover by another worker.
	store.values["locks:test"] = "someone-else"
	require.NoError(t, lock.Release(context.Background()))
	assert.Equal(t, "someone-else", store.values["locks:test"])
}
