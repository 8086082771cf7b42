package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core/acceptance"
	"github.com/sumano/oms/core/document"
	"github.com/sumano/oms/core/project"
	"github.com/sumano/oms/core/user"
)

type acceptanceApi struct {
	svc         acceptance.ServiceInterface
	projectSvc  project.ServiceInterface
	documentSvc document.ServiceInterface
	userSvc     user.ServiceInterface
}

func registerAcceptanceAPI(
	g *echo.Group, jwt echo.MiddlewareFunc,
	svc acceptance.ServiceInterface, projectSvc project.ServiceInterface,
	documentSvc document.ServiceInterface, userSvc user.ServiceInterface,
) {
	api := acceptanceApi{svc: svc, projectSvc: projectSvc, documentSvc: documentSvc, userSvc: userSvc}

	ag := g.Group("/acceptances", jwt)
	ag.POST("", api.create, staffMiddleware())
	ag.GET("", api.query, staffMiddleware())
	ag.GET("/:id", api.retrieve)
	ag.POST("/:id/sign", api.sign)
	ag.POST("/:id/generate-certificate", api.generateCertificate, staffMiddleware())
	ag.DELETE("", api.destroy, adminMiddleware())

	g.GET("/projects/:id/acceptance", api.retrieveByProject, jwt)
}

func (api *acceptanceApi) create(ctx echo.Context) error {
	var data acceptance.NewAcceptance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAcceptance")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	a, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating acceptance")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *acceptanceApi) query(ctx echo.Context) error {
	var filter acceptance.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []acceptance.Acceptance{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	accs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying acceptances")
	}
	if accs == nil {
		accs = []acceptance.Acceptance{}
	}
	return ctx.JSON(http.StatusOK, accs)
}

func (api *acceptanceApi) retrieve(ctx echo.Context) error {
	a, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding acceptance"), acceptance.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *acceptanceApi) retrieveByProject(ctx echo.Context) error {
	a, err := api.svc.GetByProjectID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding acceptance by project"), acceptance.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *acceptanceApi) sign(ctx echo.Context) error {
	var data acceptance.NewSignature
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSignature")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	a, err := api.svc.Sign(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return httpNotFoundOr(httpBadRequestOr(errors.Wrap(err, "signing acceptance"), acceptance.ErrAlreadySigned), acceptance.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, a)
}

// generateCertificate renders the published acceptance template with the
// recorded outcome and signatures and links the result to the record.
func (api *acceptanceApi) generateCertificate(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	a, err := api.svc.Get(rctx, ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding acceptance"), acceptance.ErrNotFound)
	}
	proj, err := api.projectSvc.Get(rctx, a.ProjectID)
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding project"), project.ErrNotFound)
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	data := map[string]interface{}{
		"project_name":       proj.Name,
		"outcome":            a.Outcome,
		"conditions":         a.Conditions,
		"feedback":           a.Feedback,
		"client_signed_by":   a.ClientSignature.Name,
		"provider_signed_by": a.ProviderSignature.Name,
	}
	inst, err := api.documentSvc.GenerateByType(
		rctx, document.TypeAcceptance, "Pilot Acceptance Certificate: "+proj.Name, proj.ID, data, claims.Subject,
	)
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "generating acceptance certificate"), document.ErrNotFound)
	}

	if _, err = api.svc.AttachDocument(rctx, a.ID, inst.ID); err != nil {
		return errors.Wrap(err, "attaching acceptance certificate")
	}
	return ctx.JSON(http.StatusCreated, inst)
}

func (api *acceptanceApi) destroy(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs != nil {
		if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
			return errors.Wrap(err, "deleting acceptances")
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}
