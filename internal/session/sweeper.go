package session

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// NewSweeper schedules periodic removal of expired sessions from s.
// The returned scheduler is not started.
func NewSweeper(s Sweeper, schedule string, log *logrus.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if n := s.Sweep(time.Now()); n > 0 {
			log.Infof("Swept %d expired sessions", n)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid session sweep schedule %q: %w", schedule, err)
	}
	return c, nil
}
