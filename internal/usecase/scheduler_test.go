package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureDriver struct {
	job     func(time.Time)
	stopped bool
	stopErr error
}

func (d *captureDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *captureDriver) Stop(context.Context) error {
	d.stopped = true
	return d.stopErr
}

func TestSchedulerRunsDetectorTick(t *testing.T) {
	t.Parallel()

	repo := &memoryRepo{}
	detector := NewChangeDetector(nil, repo, &recordingNotifier{}, nil, nil)
	driver := &captureDriver{stopErr: errors.New("still running")}
	s := NewScheduler(driver, detector, nil)

	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)
	driver.job(time.Now())

	err := s.Stop(context.Background())
	assert.True(t, driver.stopped)
	assert.EqualError(t, err, "still running")
}

func TestSchedulerWithoutDriver(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, nil, nil)
	assert.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}
