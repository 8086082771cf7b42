package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core/audit"
	"github.com/sumano/oms/core/user"
)

const (
	defaultStatisticsDays = 30
	defaultCleanupDays    = 90
)

type auditApi struct {
	svc     audit.ServiceInterface
	userSvc user.ServiceInterface
}

func registerAuditAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc audit.ServiceInterface, userSvc user.ServiceInterface) {
	api := auditApi{svc: svc, userSvc: userSvc}

	sg := g.Group("/security-events", jwt, adminMiddleware())
	sg.GET("", api.query)
	sg.GET("/statistics", api.statistics)
	sg.POST("/resolve", api.resolve)
	sg.POST("/cleanup", api.cleanup)
}

func (api *auditApi) query(ctx echo.Context) error {
	var filter audit.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []audit.SecurityEvent{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	events, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying security events")
	}
	if events == nil {
		events = []audit.SecurityEvent{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *auditApi) statistics(ctx echo.Context) error {
	since := time.Now().AddDate(0, 0, -daysParam(ctx, defaultStatisticsDays))
	stats, err := api.svc.GetStatistics(ctx.Request().Context(), since)
	if err != nil {
		return errors.Wrap(err, "computing security event statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *auditApi) resolve(ctx echo.Context) error {
	var data audit.BulkResolve
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkResolve")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	n, err := api.svc.Resolve(ctx.Request().Context(), data.IDs, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "resolving security events")
	}
	return ctx.JSON(http.StatusOK, map[string]int{"resolved": n})
}

func (api *auditApi) cleanup(ctx echo.Context) error {
	cutoff := time.Now().AddDate(0, 0, -daysParam(ctx, defaultCleanupDays))
	n, err := api.svc.Cleanup(ctx.Request().Context(), cutoff)
	if err != nil {
		return errors.Wrap(err, "cleaning up security events")
	}
	return ctx.JSON(http.StatusOK, map[string]int{"deleted": n})
}

func daysParam(ctx echo.Context, def int) int {
	if days, err := strconv.Atoi(ctx.QueryParam("days")); err == nil && days > 0 {
		return days
	}
	return def
}
