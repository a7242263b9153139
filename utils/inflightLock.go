package utils

import (
	"context"
	"errors"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/training_reports/config"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

var ErrLockNotObtained = errors.New("a report for this selection is already being generated")

var localLocks = struct {
	mu   sync.Mutex
	held map[string]struct{}
}{held: map[string]struct{}{}}

// AcquireReportLock refuses a second concurrent generation for the same key.
// Redis (shared across instances) is preferred; if it is not connected or errors,
// an in-process lock is used instead. The returned release func is idempotent.
func AcquireReportLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if redisLock := config.GetRedisLock(); redisLock != nil {
		lock, err := redisLock.Obtain(ctx, "lock:report:"+key, ttl, nil)
		switch {
		case errors.Is(err, redislock.ErrNotObtained):
			return nil, ErrLockNotObtained
		case err != nil:
			config.GetLogger().WithFields(logrus.Fields{
				"field": "AcquireReportLock",
				"key":   key,
			}).Warn("error obtaining redis lock; falling back to local lock: " + err.Error())
		default:
			var once sync.Once
			return func() {
				once.Do(func() {
					if releaseErr := lock.Release(context.Background()); releaseErr != nil && !errors.Is(releaseErr, redislock.ErrLockNotHeld) {
						config.GetLogger().WithFields(logrus.Fields{
							"field": "AcquireReportLock",
							"key":   key,
						}).Warn("failed to release redis lock: " + releaseErr.Error())
					}
				})
			}, nil
		}
	}
	return acquireLocalLock(key)
}

func acquireLocalLock(key string) (func(), error) {
	localLocks.mu.Lock()
	defer localLocks.mu.Unlock()
	if _, busy := localLocks.held[key]; busy {
		return nil, ErrLockNotObtained
	}
	localLocks.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			localLocks.mu.Lock()
			delete(localLocks.held, key)
			localLocks.mu.Unlock()
		})
	}, nil
}
