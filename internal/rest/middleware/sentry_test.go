package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/contractflow/contractflow/internal/config"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

type SentrySuite struct {
	suite.Suite
	mu       sync.Mutex
	captured []*sentry.Event
	hub      *sentry.Hub
}

func TestSentry(t *testing.T) {
	suite.Run(t, new(SentrySuite))
}

func (s *SentrySuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.captured = nil

	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.captured = append(s.captured, event)
			return nil
		},
	})
	s.Require().NoError(err)
	s.hub = sentry.NewHub(client, sentry.NewScope())
}

func (s *SentrySuite) newRouter(enabled bool) *gin.Engine {
	cfg := &config.Configuration{}
	cfg.Sentry.Enabled = enabled

	router := gin.New()
	router.Use(
		func(c *gin.Context) {
			c.Request = c.Request.WithContext(sentry.SetHubOnContext(c.Request.Context(), s.hub))
			c.Next()
		},
		RequestIDMiddleware,
		SentryMiddleware(cfg),
		SentryTagsMiddleware,
	)
	handler := func(c *gin.Context) {
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureMessage("contract lookup failed")
		}
		c.Status(http.StatusInternalServerError)
	}
	router.GET("/v1/contracts/:id", handler)
	router.POST("/v1/cron/settlements/run", handler)
	return router
}

func (s *SentrySuite) serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(HeaderRequestID, "req-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func (s *SentrySuite) TestCapturedEventsCarryRequestTags() {
	w := s.serve(s.newRouter(true), http.MethodGet, "/v1/contracts/contract_42")
	s.Equal(http.StatusInternalServerError, w.Code)

	s.Require().Len(s.captured, 1)
	tags := s.captured[0].Tags
	s.Equal("req-1", tags["request_id"])
	s.Equal("/v1/contracts/:id", tags["route"])
	s.Equal("contract_42", tags["contract_id"])
}

func (s *SentrySuite) TestRoutesWithoutContractSkipThatTag() {
	s.serve(s.newRouter(true), http.MethodPost, "/v1/cron/settlements/run")

	s.Require().Len(s.captured, 1)
	tags := s.captured[0].Tags
	s.Equal("/v1/cron/settlements/run", tags["route"])
	s.NotContains(tags, "contract_id")
}

func (s *SentrySuite) TestDisabledSentryStillServes() {
	w := s.serve(s.newRouter(false), http.MethodGet, "/v1/contracts/contract_42")
	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("req-1", w.Header().Get(HeaderRequestID))
	s.Empty(s.captured)
}
