package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/loadworks/swarmload/internal/vuser"
)

// loggingInteractor logs each failed interaction before passing the error on.
type loggingInteractor struct {
	next   vuser.Interactor
	logger *zap.Logger
}

func (l *loggingInteractor) Labels() (string, string) {
	return l.next.Labels()
}

func (l *loggingInteractor) Interact(ctx context.Context, host string, rec vuser.OverheadRecorder) error {
	err := l.next.Interact(ctx, host, rec)
	if err != nil && ctx.Err() == nil {
		method, name := l.next.Labels()
		l.logger.Warn("interaction failed",
			zap.String("method", method),
			zap.String("scenario", name),
			zap.Error(err))
	}
	return err
}
