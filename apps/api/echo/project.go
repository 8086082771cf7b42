package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core/project"
	"github.com/sumano/oms/core/user"
)

type projectApi struct {
	svc     project.ServiceInterface
	userSvc user.ServiceInterface
}

func registerProjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc project.ServiceInterface, userSvc user.ServiceInterface) {
	api := projectApi{svc: svc, userSvc: userSvc}

	pg := g.Group("/projects", jwt)
	pg.GET("", api.query)
	pg.GET("/statistics", api.statistics, staffMiddleware())
	pg.POST("", api.create, staffMiddleware())
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update, staffMiddleware())
	pg.DELETE("", api.destroy, adminMiddleware())
	pg.POST("/:id/transition-status", api.transition, staffMiddleware())
	pg.GET("/:id/history", api.history, staffMiddleware())
}

func (api *projectApi) create(ctx echo.Context) error {
	var data project.NewProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProject")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	proj, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating project")
	}
	return ctx.JSON(http.StatusCreated, proj)
}

func (api *projectApi) query(ctx echo.Context) error {
	var filter project.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []project.Project{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	projects, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}
	if projects == nil {
		projects = []project.Project{}
	}
	return ctx.JSON(http.StatusOK, projects)
}

func (api *projectApi) retrieve(ctx echo.Context) error {
	proj, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding project"), project.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, proj)
}

func (api *projectApi) update(ctx echo.Context) error {
	var data project.UpdateProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProject")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	proj, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "updating project"), project.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, proj)
}

func (api *projectApi) destroy(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs != nil {
		if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
			return errors.Wrap(err, "deleting projects")
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *projectApi) transition(ctx echo.Context) error {
	var data project.NewTransition
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTransition")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	proj, err := api.svc.Transition(ctx.Request().Context(), ctx.Param("id"), data, claims.Subject)
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "transitioning project"), project.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, proj)
}

func (api *projectApi) history(ctx echo.Context) error {
	trs, err := api.svc.History(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "querying project history"), project.ErrNotFound)
	}
	if trs == nil {
		trs = []project.StatusTransition{}
	}
	return ctx.JSON(http.StatusOK, trs)
}

func (api *projectApi) statistics(ctx echo.Context) error {
	stats, err := api.svc.GetStatistics(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing project statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}
