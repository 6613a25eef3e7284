package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"carolinalumpers.com/clockin/clockin"
	"carolinalumpers.com/clockin/web/common"
	"carolinalumpers.com/clockin/web/middlewares"
	"github.com/gin-gonic/gin"
)

// Service is the admission surface the handlers drive.
type Service interface {
	SubmitClockIn(ctx context.Context, req clockin.Request) clockin.Result
	Report(ctx context.Context, workerID string, days int) (*clockin.Report, error)
}

func Register(r gin.IRouter, svc Service) {
	r.POST("/clockins", ClockInHandler(svc))
	r.GET("/workers/:workerId/history", HistoryHandler(svc))
	r.GET("/exec", ExecHandler(svc))
}

// StatusFor maps a rejection reason to its HTTP status.
func StatusFor(reason clockin.Reason) int {
	switch reason {
	case clockin.ReasonMissingWorkerID:
		return http.StatusBadRequest
	case clockin.ReasonWorkerNotFound:
		return http.StatusNotFound
	case clockin.ReasonWorkerInactive, clockin.ReasonWorkerNameMissing:
		return http.StatusForbidden
	case clockin.ReasonDuplicateSubmission, clockin.ReasonTooSoonSinceLastScan:
		return http.StatusConflict
	case clockin.ReasonOutOfWindow:
		return http.StatusUnprocessableEntity
	case clockin.ReasonLockTimeout, clockin.ReasonDirectoryUnavailable, clockin.ReasonStoreUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func ClockInHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body ClockInRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			code := ""
			if strings.TrimSpace(body.WorkerID) == "" {
				code = string(clockin.ReasonMissingWorkerID)
			}
			c.JSON(http.StatusBadRequest, common.NewCodedErrorResponse(code, common.FormatBindingError(err), nil))
			return
		}

		submit(c, svc, clockin.Request{
			WorkerID: body.WorkerID,
			Notes:    body.Notes,
			TaskID:   body.TaskID,
			DeviceID: deviceID(c, body.DeviceID),
		})
	}
}

func HistoryHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var query HistoryQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
			return
		}
		report(c, svc, c.Param("workerId"), query.Days)
	}
}

// ExecHandler serves the single-URL form used by printed QR codes:
// /exec?action=clockin&workerId=... or /exec?action=report&workerId=...
func ExecHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var query ExecQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
			return
		}

		switch query.Action {
		case "report":
			report(c, svc, query.WorkerID, query.Days)
		default:
			submit(c, svc, clockin.Request{
				WorkerID: query.WorkerID,
				Notes:    query.Notes,
				TaskID:   query.TaskID,
				DeviceID: deviceID(c, ""),
			})
		}
	}
}

func submit(c *gin.Context, svc Service, req clockin.Request) {
	res := svc.SubmitClockIn(c.Request.Context(), req)
	if res.Accepted {
		c.JSON(http.StatusCreated, common.NewSuccessMessage(res.Message, res))
		return
	}
	c.JSON(StatusFor(res.Reason), common.NewCodedErrorResponse(string(res.Reason), res.Message, res))
}

func report(c *gin.Context, svc Service, workerID string, days int) {
	rep, err := svc.Report(c.Request.Context(), workerID, days)
	if err != nil {
		var rej *clockin.Rejection
		if errors.As(err, &rej) {
			c.JSON(StatusFor(rej.Reason), common.NewCodedErrorResponse(string(rej.Reason), rej.Message, nil))
			return
		}
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(rep))
}

// deviceID prefers the device named in the token over the request body.
func deviceID(c *gin.Context, fromBody string) string {
	if id := c.GetString(middlewares.DeviceIDKey); id != "" {
		return id
	}
	return fromBody
}
