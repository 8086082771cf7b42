package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core/client"
	"github.com/sumano/oms/core/user"
)

type clientApi struct {
	svc     client.ServiceInterface
	userSvc user.ServiceInterface
}

func registerClientAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc client.ServiceInterface, userSvc user.ServiceInterface) {
	api := clientApi{svc: svc, userSvc: userSvc}

	// intake submission is public; prospects fill it in before they have accounts
	g.POST("/intakes", api.submitIntake)

	ig := g.Group("/intakes", jwt, staffMiddleware())
	ig.GET("", api.queryIntakes)
	ig.GET("/:id", api.retrieveIntake)
	ig.DELETE("", api.destroyIntakes)

	// contacts with portal accounts can read their own organization and
	// its contacts; everything else stays staff territory
	og := g.Group("/organizations", jwt)
	og.POST("", api.createOrganization, staffMiddleware())
	og.GET("", api.queryOrganizations, staffMiddleware())
	og.GET("/:id", api.retrieveOrganization)
	og.PUT("/:id", api.updateOrganization, staffMiddleware())
	og.DELETE("", api.destroyOrganizations, staffMiddleware())

	cg := g.Group("/contacts", jwt)
	cg.POST("", api.createContact, staffMiddleware())
	cg.GET("", api.queryContacts)
	cg.GET("/:id", api.retrieveContact)
	cg.PUT("/:id", api.updateContact, staffMiddleware())
	cg.DELETE("", api.destroyContacts, staffMiddleware())

	clg := g.Group("/clients", jwt, staffMiddleware())
	clg.POST("", api.createClient)
	clg.GET("", api.queryClients)
	clg.GET("/:id", api.retrieveClient)
	clg.PUT("/:id", api.updateClient)
	clg.DELETE("", api.destroyClients)
}

// callerOrgID resolves the organization a caller may read. Staff and admins
// see everything and get staff=true. Other callers are looked up as contacts
// by their user ID; callers with no contact record are rejected.
func (api *clientApi) callerOrgID(ctx echo.Context) (orgID string, staff bool, err error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", false, errors.Wrap(err, "getting context claims")
	}
	if claims.IsStaff || claims.IsAdmin {
		return "", true, nil
	}
	contact, err := api.svc.GetContactByUserID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return "", false, errHttpForbidden
	}
	return contact.OrganizationID, false, nil
}

// Organization handlers

func (api *clientApi) createOrganization(ctx echo.Context) error {
	var data client.NewOrganization
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOrganization")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	org, err := api.svc.CreateOrganization(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating organization")
	}
	return ctx.JSON(http.StatusCreated, org)
}

func (api *clientApi) queryOrganizations(ctx echo.Context) error {
	var filter client.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []client.Organization{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	orgs, err := api.svc.QueryOrganizations(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying organizations")
	}
	if orgs == nil {
		orgs = []client.Organization{}
	}
	return ctx.JSON(http.StatusOK, orgs)
}

func (api *clientApi) retrieveOrganization(ctx echo.Context) error {
	orgID, staff, err := api.callerOrgID(ctx)
	if err != nil {
		return err
	}
	if !staff && orgID != ctx.Param("id") {
		return errHttpForbidden
	}

	org, err := api.svc.GetOrganization(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding organization"), client.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, org)
}

func (api *clientApi) updateOrganization(ctx echo.Context) error {
	var data client.UpdateOrganization
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateOrganization")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	org, err := api.svc.UpdateOrganization(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "updating organization"), client.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, org)
}

func (api *clientApi) destroyOrganizations(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs != nil {
		if err := api.svc.DeleteOrganizations(ctx.Request().Context(), query.IDs...); err != nil {
			return errors.Wrap(err, "deleting organizations")
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Contact handlers

func (api *clientApi) createContact(ctx echo.Context) error {
	var data client.NewContact
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContact")
	}
	if err := data.Validate(api.svc); err != nil {
		return err
	}

	contact, err := api.svc.CreateContact(ctx.Request().Context(), data)
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "creating contact"), client.ErrNotFound)
	}
	return ctx.JSON(http.StatusCreated, contact)
}

func (api *clientApi) queryContacts(ctx echo.Context) error {
	orgID, staff, err := api.callerOrgID(ctx)
	if err != nil {
		return err
	}

	var filter client.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []client.Contact{})
	}
	if !staff {
		// non-staff callers only ever see their own organization
		filter.OrgID = orgID
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	contacts, err := api.svc.QueryContacts(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying contacts")
	}
	if contacts == nil {
		contacts = []client.Contact{}
	}
	return ctx.JSON(http.StatusOK, contacts)
}

func (api *clientApi) retrieveContact(ctx echo.Context) error {
	orgID, staff, err := api.callerOrgID(ctx)
	if err != nil {
		return err
	}

	contact, err := api.svc.GetContact(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding contact"), client.ErrNotFound)
	}
	if !staff && contact.OrganizationID != orgID {
		return errHttpForbidden
	}
	return ctx.JSON(http.StatusOK, contact)
}

func (api *clientApi) updateContact(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	contact, err := api.svc.GetContact(rctx, ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding contact"), client.ErrNotFound)
	}

	var data client.UpdateContact
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateContact")
	}
	if err := data.Validate(contact, api.svc); err != nil {
		return err
	}

	contact, err = api.svc.UpdateContact(rctx, contact.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating contact")
	}
	return ctx.JSON(http.StatusOK, contact)
}

func (api *clientApi) destroyContacts(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs != nil {
		if err := api.svc.DeleteContacts(ctx.Request().Context(), query.IDs...); err != nil {
			return errors.Wrap(err, "deleting contacts")
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Client handlers

func (api *clientApi) createClient(ctx echo.Context) error {
	var data client.NewClient
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClient")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cl, err := api.svc.CreateClient(ctx.Request().Context(), data)
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "creating client"), client.ErrNotFound)
	}
	return ctx.JSON(http.StatusCreated, cl)
}

func (api *clientApi) queryClients(ctx echo.Context) error {
	var filter client.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []client.Client{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	clients, err := api.svc.QueryClients(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying clients")
	}
	if clients == nil {
		clients = []client.Client{}
	}
	return ctx.JSON(http.StatusOK, clients)
}

func (api *clientApi) retrieveClient(ctx echo.Context) error {
	cl, err := api.svc.GetClient(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding client"), client.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, cl)
}

func (api *clientApi) updateClient(ctx echo.Context) error {
	var data client.UpdateClient
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClient")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cl, err := api.svc.UpdateClient(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "updating client"), client.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, cl)
}

func (api *clientApi) destroyClients(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs != nil {
		if err := api.svc.DeleteClients(ctx.Request().Context(), query.IDs...); err != nil {
			return errors.Wrap(err, "deleting clients")
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Intake handlers

func (api *clientApi) submitIntake(ctx echo.Context) error {
	var data client.NewIntake
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewIntake")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	intake, err := api.svc.SubmitIntake(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting intake")
	}
	return ctx.JSON(http.StatusCreated, intake)
}

func (api *clientApi) queryIntakes(ctx echo.Context) error {
	var filter client.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []client.Intake{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	intakes, err := api.svc.QueryIntakes(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying intakes")
	}
	if intakes == nil {
		intakes = []client.Intake{}
	}
	return ctx.JSON(http.StatusOK, intakes)
}

func (api *clientApi) retrieveIntake(ctx echo.Context) error {
	intake, err := api.svc.GetIntake(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding intake"), client.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, intake)
}

func (api *clientApi) destroyIntakes(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs != nil {
		if err := api.svc.DeleteIntakes(ctx.Request().Context(), query.IDs...); err != nil {
			return errors.Wrap(err, "deleting intakes")
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}
