package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core/attachment"
	"github.com/sumano/oms/core/user"
)

const idempotencyKeyHeader = "Idempotency-Key"

type attachmentApi struct {
	svc     attachment.ServiceInterface
	userSvc user.ServiceInterface
}

func registerAttachmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc attachment.ServiceInterface, userSvc user.ServiceInterface) {
	api := attachmentApi{svc: svc, userSvc: userSvc}

	ag := g.Group("/attachments", jwt)
	ag.POST("", api.upload)
	ag.POST("/enqueue", api.enqueue)
	ag.GET("", api.query)
	ag.GET("/statistics", api.statistics, staffMiddleware())
	ag.GET("/mine", api.myUploads)
	ag.GET("/:id", api.retrieve)
	ag.GET("/:id/download", api.download)
	ag.DELETE("", api.destroy, staffMiddleware())
	ag.POST("/outbox/process", api.processOutbox, staffMiddleware())
}

func (api *attachmentApi) bindUpload(ctx echo.Context) (attachment.NewAttachment, error) {
	var data attachment.NewAttachment
	if err := ctx.Bind(&data); err != nil {
		return data, errors.Wrap(err, "binding to NewAttachment")
	}
	if err := data.Validate(); err != nil {
		return data, err
	}
	return data, nil
}

func (api *attachmentApi) upload(ctx echo.Context) error {
	data, err := api.bindUpload(ctx)
	if err != nil {
		return err
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file")
	}
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer src.Close()

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	at, err := api.svc.Upload(ctx.Request().Context(), data, fh.Filename, src, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "uploading attachment")
	}
	return ctx.JSON(http.StatusCreated, at)
}

// enqueue stages the upload in the outbox instead of storing it directly.
// Clients retry safely by resending with the same Idempotency-Key header.
func (api *attachmentApi) enqueue(ctx echo.Context) error {
	data, err := api.bindUpload(ctx)
	if err != nil {
		return err
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file")
	}
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer src.Close()

	key := ctx.Request().Header.Get(idempotencyKeyHeader)
	if key == "" {
		key = ctx.FormValue("idempotency_key")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	entry, err := api.svc.Enqueue(ctx.Request().Context(), data, fh.Filename, key, src, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "enqueueing attachment")
	}
	return ctx.JSON(http.StatusAccepted, entry)
}

func (api *attachmentApi) query(ctx echo.Context) error {
	var filter attachment.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []attachment.Attachment{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	ats, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying attachments")
	}
	if ats == nil {
		ats = []attachment.Attachment{}
	}
	return ctx.JSON(http.StatusOK, ats)
}

func (api *attachmentApi) statistics(ctx echo.Context) error {
	stats, err := api.svc.GetStatistics(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing attachment statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// myUploads lists the caller's own uploads regardless of role.
func (api *attachmentApi) myUploads(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	ats, err := api.svc.Query(ctx.Request().Context(), attachment.QueryFilter{UploadedByID: claims.Subject}, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying attachments")
	}
	if ats == nil {
		ats = []attachment.Attachment{}
	}
	return ctx.JSON(http.StatusOK, ats)
}

func (api *attachmentApi) retrieve(ctx echo.Context) error {
	at, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "finding attachment"), attachment.ErrNotFound)
	}
	return ctx.JSON(http.StatusOK, at)
}

func (api *attachmentApi) download(ctx echo.Context) error {
	at, rc, err := api.svc.Download(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return httpNotFoundOr(errors.Wrap(err, "downloading attachment"), attachment.ErrNotFound)
	}
	defer rc.Close()

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", at.FileName))
	return ctx.Stream(http.StatusOK, at.ContentType, rc)
}

func (api *attachmentApi) destroy(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs != nil {
		if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
			return errors.Wrap(err, "deleting attachments")
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attachmentApi) processOutbox(ctx echo.Context) error {
	done, err := api.svc.ProcessOutbox(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "processing upload outbox")
	}
	return ctx.JSON(http.StatusOK, map[string]int{"processed": done})
}
