// Package server exposes the scheduler and the pipeline over HTTP.
package server

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/route"

	"github.com/tgifai/crawlwatch/internal/crawl"
	"github.com/tgifai/crawlwatch/internal/pipeline"
	"github.com/tgifai/crawlwatch/internal/schedule"
)

const APIPrefix = "/api/v1"

// Jobs is the scheduler surface used by the API.
type Jobs interface {
	Validate(date, clock string) error
	Add(ctx context.Context, in schedule.NewJob) (schedule.JobView, error)
	Cancel(ctx context.Context, id string) (schedule.JobView, error)
	Delete(ctx context.Context, id string) error
	UpdateName(ctx context.Context, id, name string) (schedule.JobView, error)
	UpdateFrequency(ctx context.Context, id, frequency string) (schedule.JobView, error)
	List() []schedule.JobView
	Get(id string) (schedule.JobView, error)
}

// Runs is the pipeline surface used by the API.
type Runs interface {
	Submit(ctx context.Context, req *crawl.Request) (*pipeline.Task, error)
	History() *pipeline.History
}

type Options struct {
	Jobs   Jobs
	Runs   Runs
	APIKey string
}

type Server struct {
	jobs   Jobs
	runs   Runs
	apiKey string
}

func New(opts Options) *Server {
	return &Server{jobs: opts.Jobs, runs: opts.Runs, apiKey: opts.APIKey}
}

// Register mounts every route on e.
func (s *Server) Register(e *route.Engine) {
	e.GET("/health", s.health)

	api := e.Group(APIPrefix, s.auth())
	jobs := api.Group("/jobs", s.requireJobs())
	jobs.GET("", s.listJobs)
	jobs.POST("", s.addJob)
	jobs.POST("/validate", s.validateJob)
	jobs.GET("/:id", s.getJob)
	jobs.POST("/:id/cancel", s.cancelJob)
	jobs.PATCH("/:id", s.updateJob)
	jobs.DELETE("/:id", s.deleteJob)

	api.POST("/crawls", s.submitCrawl)
	api.GET("/runs", s.listRuns)
}

func (s *Server) requireJobs() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if s.jobs == nil {
			c.AbortWithStatusJSON(consts.StatusServiceUnavailable, Response{Error: "scheduler is disabled"})
			return
		}
		c.Next(ctx)
	}
}

func (s *Server) auth() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if s.apiKey == "" {
			c.Next(ctx)
			return
		}
		if string(c.GetHeader("Authorization")) != "Bearer "+s.apiKey {
			unauthorized(c)
			return
		}
		c.Next(ctx)
	}
}
