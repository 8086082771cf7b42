package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core/client"
	"github.com/sumano/oms/core/document"
	"github.com/sumano/oms/core/handover"
	"github.com/sumano/oms/core/project"
	"github.com/sumano/oms/core/user"
)

type handoverApi struct {
	svc         handover.ServiceInterface
	projectSvc  project.ServiceInterface
	documentSvc document.ServiceInterface
	clientSvc   client.ServiceInterface
	userSvc     user.ServiceInterface
}

func registerHandoverAPI(
	g *echo.Group, jwt echo.MiddlewareFunc,
	svc handover.ServiceInterface, projectSvc project.ServiceInterface,
	documentSvc document.ServiceInterface, clientSvc client.ServiceInterface,
	userSvc user.ServiceInterface,
) {
	api := handoverApi{
		svc: svc, projectSvc: projectSvc, documentSvc: documentSvc,
		clientSvc: clientSvc, userSvc: userSvc,
	}

	hg := g.Group("/handovers", jwt, staffMiddleware())
	hg.POST("", api.create)
	hg.GET("", api.query)
	hg.GET("/:id", api.retrieve)
	hg.DELETE("", api.destroy, adminMiddleware())
	hg.PUT("/:id/checklist", api.updateChecklist)
	hg.POST("/:id/decision", api.decide)
	hg.POST("/:id/generate-document", api.generateDocument)
	hg.POST("/:id/request-review", api.requestReview)

	g.GET("/projects/:id/handover", api.retrieveByProject, jwt, staffMiddleware())
}

func (api *handoverApi) create(ctx echo.Context) error {
	var data handover.NewHandover
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHandover")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	if _, err := api.projectSvc.Get(rctx, data.ProjectID); err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding project"), project.ErrNotFound)
	}

	h, err := api.svc.Create(rctx, data)
	if err != nil {
		return errors.Wrap(err, "creating handover")
	}
	return ctx.JSON(http.StatusCreated, h)
}

func (api *handoverApi) query(ctx echo.Context) error {
	var filter handover.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []handover.Handover{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	handovers, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying handovers")
	}
	if handovers == nil {
		handovers = []handover.Handover{}
	}
	return ctx.JSON(http.StatusOK, handovers)
}

func (api *handoverApi) retrieve(ctx echo.Context) error {
	h, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding handover"), handover.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, h)
}

func (api *handoverApi) retrieveByProject(ctx echo.Context) error {
	h, err := api.svc.GetByProjectID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding handover by project"), handover.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, h)
}

func (api *handoverApi) destroy(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs != nil {
		if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
			return errors.Wrap(err, "deleting handovers")
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *handoverApi) updateChecklist(ctx echo.Context) error {
	var data handover.UpdateChecklist
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateChecklist")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	h, err := api.svc.UpdateChecklist(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "updating handover checklist"), handover.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, h)
}

func (api *handoverApi) decide(ctx echo.Context) error {
	var data handover.NewDecision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDecision")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	h, err := api.svc.RecordDecision(ctx.Request().Context(), ctx.Param("id"), data, claims.Subject)
	if err != nil {
		return httpNotFoundOr(httpBadRequestOr(errors.Wrap(err, "recording handover decision"), handover.ErrAlreadyDecided), handover.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, h)
}

// generateDocument renders the published handover template with the current
// checklist state and links the resulting document to the handover.
func (api *handoverApi) generateDocument(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	h, err := api.svc.Get(rctx, ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding handover"), handover.ErrNotFound)
	}
	proj, err := api.projectSvc.Get(rctx, h.ProjectID)
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding project"), project.ErrNotFound)
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	data := map[string]interface{}{
		"project_name":          proj.Name,
		"completion_percentage": h.CompletionPercentage,
		"go_no_go_decision":     h.GoNoGoDecision,
		"decision_notes":        h.DecisionNotes,
		"section_notes":         h.SectionNotes,
		"checklist":             h.Checklist,
	}
	inst, err := api.documentSvc.GenerateByType(
		rctx, document.TypeHandover, "Pilot Handover Summary: "+proj.Name, proj.ID, data, claims.Subject,
	)
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "generating handover document"), document.ErrNotFound)
	}

	if _, err = api.svc.AttachDocument(rctx, h.ID, inst.ID); err != nil {
		return errors.Wrap(err, "attaching handover document")
	}
	return ctx.JSON(http.StatusCreated, inst)
}

func (api *handoverApi) requestReview(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	h, err := api.svc.Get(rctx, ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding handover"), handover.ErrNotFound)
	}
	proj, err := api.projectSvc.Get(rctx, h.ProjectID)
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding project"), project.ErrNotFound)
	}

	notify, err := projectContactAddresses(ctx, api.projectSvc, api.clientSvc, proj.ID)
	if err != nil {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "resolving contacts to notify"))
	}

	if err = api.svc.RequestReview(rctx, h.ID, proj.Name, notify...); err != nil {
		return errors.Wrap(err, "requesting handover review")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Review requested."})
}
