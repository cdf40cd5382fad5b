package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/tgifai/crawlwatch/internal/crawl"
	"github.com/tgifai/crawlwatch/internal/pipeline"
	"github.com/tgifai/crawlwatch/internal/schedule"
)

const defaultRunLimit = 20

type validateRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type updateRequest struct {
	Name      *string `json:"name"`
	Frequency *string `json:"frequency"`
}

func (s *Server) health(_ context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{"status": "ok"})
}

func (s *Server) listJobs(_ context.Context, c *app.RequestContext) {
	ok(c, s.jobs.List())
}

func (s *Server) getJob(_ context.Context, c *app.RequestContext) {
	view, err := s.jobs.Get(c.Param("id"))
	reply(c, view, err)
}

func (s *Server) addJob(ctx context.Context, c *app.RequestContext) {
	var in schedule.NewJob
	if err := decode(c, &in); err != nil {
		reply(c, nil, err)
		return
	}
	view, err := s.jobs.Add(ctx, in)
	reply(c, view, err)
}

func (s *Server) validateJob(_ context.Context, c *app.RequestContext) {
	var in validateRequest
	if err := decode(c, &in); err != nil {
		reply(c, nil, err)
		return
	}
	reply(c, utils.H{"valid": true}, s.jobs.Validate(in.Date, in.Time))
}

func (s *Server) cancelJob(ctx context.Context, c *app.RequestContext) {
	view, err := s.jobs.Cancel(ctx, c.Param("id"))
	reply(c, view, err)
}

func (s *Server) deleteJob(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	reply(c, utils.H{"id": id}, s.jobs.Delete(ctx, id))
}

// updateJob applies a rename and/or a frequency change. The frequency is
// applied last so the reply carries the re-armed trigger.
func (s *Server) updateJob(ctx context.Context, c *app.RequestContext) {
	var in updateRequest
	if err := decode(c, &in); err != nil {
		reply(c, nil, err)
		return
	}
	if in.Name == nil && in.Frequency == nil {
		reply(c, nil, fmt.Errorf("%w: name or frequency is required", schedule.ErrValidation))
		return
	}

	id := c.Param("id")
	var (
		view     schedule.JobView
		warnings error
	)
	if in.Name != nil {
		v, err := s.jobs.UpdateName(ctx, id, *in.Name)
		if err != nil && !schedule.IsWarning(err) {
			reply(c, nil, err)
			return
		}
		view, warnings = v, errors.Join(warnings, err)
	}
	if in.Frequency != nil {
		v, err := s.jobs.UpdateFrequency(ctx, id, *in.Frequency)
		if err != nil && !schedule.IsWarning(err) {
			reply(c, v, err)
			return
		}
		view, warnings = v, errors.Join(warnings, err)
	}
	reply(c, view, warnings)
}

func (s *Server) submitCrawl(ctx context.Context, c *app.RequestContext) {
	if s.runs == nil {
		fail(c, consts.StatusServiceUnavailable, errors.New("pipeline is disabled"), nil)
		return
	}
	req, err := crawl.DecodeRequest(c.Request.Body())
	if err != nil {
		fail(c, consts.StatusBadRequest, err, nil)
		return
	}
	task, err := s.runs.Submit(ctx, req)
	switch {
	case err == nil:
		c.JSON(consts.StatusAccepted, Response{Success: true, Data: task})
	case errors.Is(err, pipeline.ErrLaneFull), errors.Is(err, pipeline.ErrStopped):
		fail(c, consts.StatusServiceUnavailable, err, nil)
	default:
		fail(c, consts.StatusBadRequest, err, nil)
	}
}

func (s *Server) listRuns(_ context.Context, c *app.RequestContext) {
	limit := defaultRunLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fail(c, consts.StatusBadRequest, fmt.Errorf("invalid limit %q", raw), nil)
			return
		}
		limit = n
	}
	var h *pipeline.History
	if s.runs != nil {
		h = s.runs.History()
	}
	runs, err := h.List(limit)
	if err != nil {
		fail(c, consts.StatusInternalServerError, err, nil)
		return
	}
	if runs == nil {
		runs = []pipeline.Outcome{}
	}
	ok(c, runs)
}

func decode(c *app.RequestContext, v interface{}) error {
	body := c.Request.Body()
	if len(body) == 0 {
		return fmt.Errorf("%w: request body is empty", schedule.ErrValidation)
	}
	if err := sonic.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", schedule.ErrValidation, err)
	}
	return nil
}
