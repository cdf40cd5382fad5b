package server

import (
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/tgifai/crawlwatch/internal/pkg/logs"
	"github.com/tgifai/crawlwatch/internal/schedule"
)

// Response is the envelope of every API reply.
type Response struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Warning string      `json:"warning,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c *app.RequestContext, data interface{}) {
	c.JSON(consts.StatusOK, Response{Success: true, Data: data})
}

func fail(c *app.RequestContext, status int, err error, data interface{}) {
	c.JSON(status, Response{Success: false, Error: err.Error(), Data: data})
}

func unauthorized(c *app.RequestContext) {
	c.AbortWithStatusJSON(consts.StatusUnauthorized, Response{Success: false, Error: "unauthorized"})
}

// reply maps a scheduler outcome onto a status code. A persistence failure
// alone is a warning on a successful reply; a trigger failure returns the
// job it kept in error state.
func reply(c *app.RequestContext, data interface{}, err error) {
	switch {
	case err == nil:
		ok(c, data)
	case schedule.IsWarning(err):
		logs.Warn("[server] %s %s: %v", c.Method(), c.Path(), err)
		c.JSON(consts.StatusOK, Response{Success: true, Warning: err.Error(), Data: data})
	case errors.Is(err, schedule.ErrValidation):
		fail(c, consts.StatusBadRequest, err, nil)
	case errors.Is(err, schedule.ErrNotFound):
		fail(c, consts.StatusNotFound, err, nil)
	case errors.Is(err, schedule.ErrTrigger):
		fail(c, consts.StatusUnprocessableEntity, err, data)
	default:
		logs.Error("[server] %s %s: %v", c.Method(), c.Path(), err)
		fail(c, consts.StatusInternalServerError, err, nil)
	}
}
