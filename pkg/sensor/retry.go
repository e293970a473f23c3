package sensor

import (
	"time"

	"github.com/golang/glog"
)

func (s *Sensor) tries() int {
	if s.Config.TryCount < 1 {
		return 1
	}
	return s.Config.TryCount
}

// retry runs fn until it succeeds, fails with an error not retryable,
// or TryCount attempts are made.
func (s *Sensor) retry(what string, fn func() error) (attempts int, err error) {
	limit := s.tries()
	for attempts = 1; ; attempts++ {
		if err = fn(); err == nil || !IsRetryable(err) || attempts >= limit {
			return
		}
		glog.V(1).Infof("%s attempt %d/%d: %v", what, attempts, limit, err)
		time.Sleep(s.Config.RetryInterval)
	}
}
