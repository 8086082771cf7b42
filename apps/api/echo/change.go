package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core/change"
	"github.com/sumano/oms/core/client"
	"github.com/sumano/oms/core/document"
	"github.com/sumano/oms/core/project"
	"github.com/sumano/oms/core/user"
)

type changeApi struct {
	svc         change.ServiceInterface
	clientSvc   client.ServiceInterface
	projectSvc  project.ServiceInterface
	documentSvc document.ServiceInterface
	userSvc     user.ServiceInterface
}

func registerChangeAPI(
	g *echo.Group, jwt echo.MiddlewareFunc,
	svc change.ServiceInterface, clientSvc client.ServiceInterface,
	projectSvc project.ServiceInterface, documentSvc document.ServiceInterface,
	userSvc user.ServiceInterface,
) {
	api := changeApi{svc: svc, clientSvc: clientSvc, projectSvc: projectSvc, documentSvc: documentSvc, userSvc: userSvc}

	cg := g.Group("/change-requests", jwt)
	cg.POST("", api.create)
	cg.GET("", api.query)
	cg.GET("/statistics", api.statistics, staffMiddleware())
	cg.GET("/pending", api.pending, staffMiddleware())
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("", api.destroy, adminMiddleware())

	cg.POST("/:id/submit", api.submit)
	cg.POST("/:id/start-review", api.startReview, staffMiddleware())
	cg.POST("/:id/assess", api.assess, staffMiddleware())
	cg.POST("/:id/decision", api.decide)
	cg.POST("/:id/sign", api.sign)
	cg.POST("/:id/implement", api.implement, staffMiddleware())
	cg.POST("/:id/close", api.closeRequest, staffMiddleware())
	cg.POST("/:id/generate-document", api.generateDocument, staffMiddleware())
}

func (api *changeApi) create(ctx echo.Context) error {
	var data change.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	req, err := api.svc.Create(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating change request")
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *changeApi) query(ctx echo.Context) error {
	var filter change.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []change.Request{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	reqs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying change requests")
	}
	if reqs == nil {
		reqs = []change.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *changeApi) statistics(ctx echo.Context) error {
	stats, err := api.svc.GetStatistics(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing change request statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *changeApi) pending(ctx echo.Context) error {
	queues, err := api.svc.Pending(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing pending change requests")
	}
	return ctx.JSON(http.StatusOK, queues)
}

func (api *changeApi) retrieve(ctx echo.Context) error {
	req, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding change request"), change.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *changeApi) update(ctx echo.Context) error {
	var data change.UpdateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	req, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return httpNotFoundOr(httpBadRequestOr(errors.Wrap(err, "updating change request"), change.ErrNotEditable), change.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *changeApi) destroy(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs != nil {
		if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
			return errors.Wrap(err, "deleting change requests")
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *changeApi) submit(ctx echo.Context) error {
	req, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "submitting change request"), change.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *changeApi) startReview(ctx echo.Context) error {
	req, err := api.svc.StartReview(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "reviewing change request"), change.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *changeApi) assess(ctx echo.Context) error {
	var data change.NewAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	req, err := api.svc.AssessImpact(ctx.Request().Context(), ctx.Param("id"), data, claims.Subject)
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "assessing change request"), change.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *changeApi) decide(ctx echo.Context) error {
	var data change.NewDecision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDecision")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	req, err := api.svc.Get(rctx, ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding change request"), change.ErrNotFound)
	}

	notify, err := projectContactAddresses(ctx, api.projectSvc, api.clientSvc, req.ProjectID)
	if err != nil {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "resolving contacts to notify"))
	}

	req, err = api.svc.RecordDecision(rctx, req.ID, data, notify...)
	if err != nil {
		return errors.Wrap(err, "recording change request decision")
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *changeApi) sign(ctx echo.Context) error {
	var data change.NewSignature
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSignature")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	req, err := api.svc.Sign(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return httpNotFoundOr(httpBadRequestOr(errors.Wrap(err, "signing change request"), change.ErrAlreadySigned), change.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *changeApi) implement(ctx echo.Context) error {
	req, err := api.svc.MarkImplemented(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "implementing change request"), change.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, req)
}

// generateDocument renders the published change authorization template with
// the request details and decision and links the result to the request.
func (api *changeApi) generateDocument(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	req, err := api.svc.Get(rctx, ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding change request"), change.ErrNotFound)
	}
	proj, err := api.projectSvc.Get(rctx, req.ProjectID)
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding project"), project.ErrNotFound)
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	data := map[string]interface{}{
		"request_number":     req.RequestNumber,
		"project_name":       proj.Name,
		"title":              req.Title,
		"description":        req.Description,
		"reason":             req.Reason,
		"schedule_impact":    req.Impact.ScheduleImpact,
		"cost_impact":        req.Impact.CostImpact,
		"scope_impact":       req.Impact.ScopeImpact,
		"decision":           req.Decision,
		"decision_notes":     req.DecisionNotes,
		"client_signed_by":   req.ClientSignature.Name,
		"provider_signed_by": req.ProviderSignature.Name,
	}
	inst, err := api.documentSvc.GenerateByType(
		rctx, document.TypeChange, "Change Request Authorization: "+req.RequestNumber, proj.ID, data, claims.Subject,
	)
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "generating authorization document"), document.ErrNotFound)
	}

	if _, err = api.svc.AttachDocument(rctx, req.ID, inst.ID); err != nil {
		return errors.Wrap(err, "attaching authorization document")
	}
	return ctx.JSON(http.StatusCreated, inst)
}

func (api *changeApi) closeRequest(ctx echo.Context) error {
	req, err := api.svc.Close(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "closing change request"), change.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, req)
}
