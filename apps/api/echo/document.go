package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/document"
	"github.com/sumano/oms/core/user"
)

type documentApi struct {
	svc     document.ServiceInterface
	userSvc user.ServiceInterface
}

func registerDocumentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc document.ServiceInterface, userSvc user.ServiceInterface) {
	api := documentApi{svc: svc, userSvc: userSvc}

	tg := g.Group("/document-templates", jwt, staffMiddleware())
	tg.POST("", api.createTemplate)
	tg.GET("", api.queryTemplates)
	tg.GET("/:id", api.retrieveTemplate)
	tg.PUT("/:id", api.updateTemplate)
	tg.POST("/:id/publish", api.publishTemplate)
	tg.POST("/:id/archive", api.archiveTemplate)
	tg.DELETE("", api.destroyTemplates, adminMiddleware())

	dg := g.Group("/documents", jwt)
	dg.POST("", api.generate, staffMiddleware())
	dg.GET("", api.queryInstances)
	dg.GET("/:id", api.retrieveInstance)
	dg.GET("/:id/download", api.downloadInstance)
	dg.POST("/:id/sign", api.signInstance)
	dg.POST("/:id/archive", api.archiveInstance, staffMiddleware())
	dg.DELETE("", api.destroyInstances, adminMiddleware())
}

// Template handlers

func (api *documentApi) createTemplate(ctx echo.Context) error {
	var data document.NewTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTemplate")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	tmpl, err := api.svc.CreateTemplate(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating document template")
	}
	return ctx.JSON(http.StatusCreated, tmpl)
}

func (api *documentApi) queryTemplates(ctx echo.Context) error {
	var filter document.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []document.Template{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	tmpls, err := api.svc.QueryTemplates(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying document templates")
	}
	if tmpls == nil {
		tmpls = []document.Template{}
	}
	return ctx.JSON(http.StatusOK, tmpls)
}

func (api *documentApi) retrieveTemplate(ctx echo.Context) error {
	tmpl, err := api.svc.GetTemplate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding document template"), document.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, tmpl)
}

func (api *documentApi) updateTemplate(ctx echo.Context) error {
	var data document.UpdateTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTemplate")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	tmpl, err := api.svc.UpdateTemplate(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return httpNotFoundOr(httpBadRequestOr(errors.Wrap(err, "updating document template"), document.ErrNotEditable), document.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, tmpl)
}

func (api *documentApi) publishTemplate(ctx echo.Context) error {
	tmpl, err := api.svc.PublishTemplate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "publishing document template"), document.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, tmpl)
}

func (api *documentApi) archiveTemplate(ctx echo.Context) error {
	tmpl, err := api.svc.ArchiveTemplate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "archiving document template"), document.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, tmpl)
}

func (api *documentApi) destroyTemplates(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs != nil {
		if err := api.svc.DeleteTemplates(ctx.Request().Context(), query.IDs...); err != nil {
			return errors.Wrap(err, "deleting document templates")
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Instance handlers

func (api *documentApi) generate(ctx echo.Context) error {
	var data document.NewInstance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInstance")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	inst, err := api.svc.Generate(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "generating document"), document.ErrNotFound)
	}
	return ctx.JSON(http.StatusCreated, inst)
}

func (api *documentApi) queryInstances(ctx echo.Context) error {
	var filter document.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []document.Instance{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	insts, err := api.svc.QueryInstances(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying documents")
	}
	if insts == nil {
		insts = []document.Instance{}
	}
	return ctx.JSON(http.StatusOK, insts)
}

func (api *documentApi) retrieveInstance(ctx echo.Context) error {
	inst, err := api.svc.GetInstance(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding document"), document.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, inst)
}

// downloadInstance serves the rendered document as a printable HTML file.
func (api *documentApi) downloadInstance(ctx echo.Context) error {
	inst, err := api.svc.GetInstance(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding document"), document.ErrNotFound)
	}

	filename := core.Slugify(inst.Title) + ".html"
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.HTML(http.StatusOK, inst.RenderedHTML)
}

func (api *documentApi) signInstance(ctx echo.Context) error {
	inst, err := api.svc.MarkSigned(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "signing document"), document.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *documentApi) archiveInstance(ctx echo.Context) error {
	inst, err := api.svc.ArchiveInstance(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "archiving document"), document.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *documentApi) destroyInstances(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs != nil {
		if err := api.svc.DeleteInstances(ctx.Request().Context(), query.IDs...); err != nil {
			return errors.Wrap(err, "deleting documents")
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}
