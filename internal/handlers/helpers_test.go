package handlers

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jason-s-yu/chroma/internal/models"
	"github.com/jason-s-yu/chroma/internal/session"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestCoordinator(t *testing.T, roundSeconds int, codes ...string) *session.Coordinator {
	t.Helper()
	i := 0
	nextCode := func() string {
		c := codes[i%len(codes)]
		i++
		return c
	}
	logger := quietLogger()
	reg := session.NewRegistry(session.NewMemoryStore(), session.WithCodeGenerator(nextCode))
	router := session.NewPresenceRouter(logger)
	rounds := session.NewRoundScheduler(router, logger, session.WithTickInterval(10*time.Millisecond))
	coord := session.NewCoordinator(reg, router, rounds, logger,
		session.WithRoundSeconds(roundSeconds),
		session.WithTargetPicker(func(p []models.RoundTarget) models.RoundTarget { return p[0] }),
	)
	t.Cleanup(coord.Shutdown)
	return coord
}

func newTestServer(t *testing.T, coord *session.Coordinator) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(quietLogger(), coord, nil))
	t.Cleanup(srv.Close)
	return srv
}
