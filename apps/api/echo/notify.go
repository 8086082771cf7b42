package echoapi

import (
	"net/mail"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core/client"
	"github.com/sumano/oms/core/project"
)

// projectContactAddresses resolves the active contacts of a project's client
// organization into email addresses, primary contact first.
func projectContactAddresses(
	ctx echo.Context, projectSvc project.ServiceInterface,
	clientSvc client.ServiceInterface, projectID string,
) ([]mail.Address, error) {
	rctx := ctx.Request().Context()

	proj, err := projectSvc.Get(rctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "finding project")
	}
	cl, err := clientSvc.GetClient(rctx, proj.ClientID)
	if err != nil {
		return nil, errors.Wrap(err, "finding client")
	}
	contacts, err := clientSvc.QueryContacts(rctx, client.QueryFilter{OrgID: cl.OrganizationID})
	if err != nil {
		return nil, errors.Wrap(err, "querying contacts")
	}

	var addrs []mail.Address
	for _, contact := range contacts {
		if contact.Status != client.OrgStatusActive || contact.Email == "" {
			continue
		}
		addr := mail.Address{Name: contact.FirstName + " " + contact.LastName, Address: contact.Email}
		if contact.IsPrimaryContact {
			addrs = append([]mail.Address{addr}, addrs...)
		} else {
			addrs = append(addrs, addr)
		}
	}
	return addrs, nil
}
