package runner

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/loadworks/swarmload/internal/vuser"
)

const defaultGracePeriod = 5 * time.Second

// Factory creates one virtual user. id is the user's spawn ordinal.
type Factory func(id int) (*vuser.User, error)

// Options configure a Runner.
type Options struct {
	TargetUsers    int           // concurrent users to ramp up to
	SpawnRate      float64       // users spawned per second
	GracePeriod    time.Duration // max wait for users to terminate on stop
	Factory        Factory       // virtual user constructor (required)
	Logger         *zap.Logger
	LimiterFactory func(perSecond float64) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.TargetUsers <= 0 {
		o.TargetUsers = 1
	}
	if o.SpawnRate <= 0 {
		o.SpawnRate = 1
	}
	if o.GracePeriod <= 0 {
		o.GracePeriod = defaultGracePeriod
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(perSecond float64) *rate.Limiter {
			// Burst of 1 keeps the ramp smooth instead of front-loading it.
			return rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}
