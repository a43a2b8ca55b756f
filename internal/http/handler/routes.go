package handler

import (
	"database/sql"
	"mime"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"certdocs/internal/database"
	"certdocs/internal/http/middleware"
	"certdocs/internal/model"
	"certdocs/internal/policy"
	"certdocs/internal/service"
)

const defaultContentType = "application/octet-stream"

type policyList struct {
	Data []policy.ValidationPolicy `json:"data"`
}

type documentList struct {
	Data []model.Document `json:"data"`
}

type presignedURL struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Application and
// document routes require an actor; health, policy and swagger routes do not.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())
	app.Get("/policies", ListPolicies())
	app.Get("/swagger/*", SwaggerUI())

	apps := app.Group("/applications", middleware.Actor())
	apps.Post("/:id/documents", UploadDocument(docSvc))
	apps.Post("/:id/documents/batch", UploadBatch(docSvc))
	apps.Get("/:id/documents", ListDocuments(docSvc))
	apps.Get("/:id/requirements", Requirements(docSvc))
	apps.Get("/:id/completion", Completion(docSvc))

	docs := app.Group("/documents", middleware.Actor())
	docs.Get("/:id/download", DownloadDocument(docSvc))
	docs.Get("/:id/url", PresignDocument(docSvc))
	docs.Delete("/:id", DeleteDocument(docSvc))
}

// HealthCheck checks database connectivity.
//
//	@Summary	Readiness probe
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	errorPayload
//	@Router		/health [get]
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := database.Ping(c.UserContext(), db); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

//	@Summary	Liveness probe
//	@Tags		health
//	@Success	200
//	@Router		/healthz [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListPolicies renders the validation policy table.
//
//	@Summary	List validation policies
//	@Tags		policies
//	@Produce	json
//	@Success	200	{object}	policyList
//	@Router		/policies [get]
func ListPolicies() fiber.Handler {
	return func(c *fiber.Ctx) error {
		policies, err := policy.All()
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(policyList{Data: policies})
	}
}

// actorOf returns the actor stored by middleware.Actor.
func actorOf(c *fiber.Ctx) (model.Actor, error) {
	a, ok := middleware.ActorFromCtx(c)
	if !ok {
		return model.Actor{}, fiber.NewError(fiber.StatusUnauthorized, "missing actor")
	}
	return a, nil
}

func fileOf(fh *multipart.FileHeader, f multipart.File) model.File {
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = defaultContentType
	}
	return model.File{
		Name:        fh.Filename,
		ContentType: ct,
		Size:        fh.Size,
		Content:     f,
	}
}

// UploadDocument handles multipart/form-data with fields category and file.
//
//	@Summary	Upload a document
//	@Tags		documents
//	@Accept		multipart/form-data
//	@Produce	json
//	@Security	ActorID
//	@Param		id			path		string	true	"Application ID"
//	@Param		category	formData	string	true	"Document category"	Enums(identity, safety_permit, insurance_certificate, property_deed, other)
//	@Param		file		formData	file	true	"Document file"
//	@Success	201			{object}	model.Document
//	@Failure	400,401		{object}	errorPayload
//	@Failure	403,404		{object}	errorPayload
//	@Failure	409,422		{object}	errorPayload
//	@Failure	503			{object}	errorPayload
//	@Router		/applications/{id}/documents [post]
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		category, err := model.ParseCategory(c.FormValue("category"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_CATEGORY", err.Error())
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		doc, err := docSvc.Upload(c.UserContext(), c.Params("id"), category, fileOf(fh, f), actor)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// UploadBatch handles multipart/form-data with a category field and one or more files fields.
//
//	@Summary	Upload several documents of one category
//	@Tags		documents
//	@Accept		multipart/form-data
//	@Produce	json
//	@Security	ActorID
//	@Param		id			path		string	true	"Application ID"
//	@Param		category	formData	string	true	"Document category"	Enums(identity, safety_permit, insurance_certificate, property_deed, other)
//	@Param		files		formData	file	true	"Document files"
//	@Success	200			{object}	service.BatchResult
//	@Failure	400,401		{object}	errorPayload
//	@Failure	403,404		{object}	errorPayload
//	@Failure	409			{object}	errorPayload
//	@Router		/applications/{id}/documents/batch [post]
func UploadBatch(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILES_REQUIRED", "at least one file is required")
		}
		var raw string
		if v := form.Value["category"]; len(v) > 0 {
			raw = v[0]
		}
		category, err := model.ParseCategory(raw)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_CATEGORY", err.Error())
		}
		headers := form.File["files"]
		if len(headers) == 0 {
			return writeError(c, fiber.StatusBadRequest, "FILES_REQUIRED", "at least one file is required")
		}

		files := make([]model.File, 0, len(headers))
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file "+fh.Filename)
			}
			defer f.Close()
			files = append(files, fileOf(fh, f))
		}

		res, err := docSvc.UploadBatch(c.UserContext(), c.Params("id"), category, files, actor)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

//	@Summary	List documents of an application, newest first
//	@Tags		documents
//	@Produce	json
//	@Security	ActorID
//	@Param		id		path		string	true	"Application ID"
//	@Success	200		{object}	documentList
//	@Failure	401,403	{object}	errorPayload
//	@Failure	404		{object}	errorPayload
//	@Router		/applications/{id}/documents [get]
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		docs, err := docSvc.List(c.UserContext(), c.Params("id"), actor)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(documentList{Data: docs})
	}
}

// Requirements and Completion are not permission-checked by the service, so the
// route authorizes a read of the application first.
//
//	@Summary	Required and optional categories with upload state
//	@Tags		applications
//	@Produce	json
//	@Security	ActorID
//	@Param		id		path		string	true	"Application ID"
//	@Success	200		{object}	service.Requirements
//	@Failure	401,403	{object}	errorPayload
//	@Failure	404		{object}	errorPayload
//	@Router		/applications/{id}/requirements [get]
func Requirements(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := authorizeRead(c, docSvc); err != nil {
			return err
		}
		reqs, err := docSvc.Requirements(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(reqs)
	}
}

//	@Summary	Whether every required category has a document
//	@Tags		applications
//	@Produce	json
//	@Security	ActorID
//	@Param		id		path		string	true	"Application ID"
//	@Success	200		{object}	service.Completion
//	@Failure	401,403	{object}	errorPayload
//	@Failure	404		{object}	errorPayload
//	@Router		/applications/{id}/completion [get]
func Completion(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := authorizeRead(c, docSvc); err != nil {
			return err
		}
		res, err := docSvc.Completion(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

func authorizeRead(c *fiber.Ctx, docSvc service.DocumentService) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	if _, err := docSvc.List(c.UserContext(), c.Params("id"), actor); err != nil {
		return err
	}
	return nil
}

// DownloadDocument streams the document content as an attachment.
//
//	@Summary	Download document content
//	@Tags		documents
//	@Produce	octet-stream
//	@Security	ActorID
//	@Param		id		path		string	true	"Document ID"
//	@Success	200		{file}		binary
//	@Failure	401,403	{object}	errorPayload
//	@Failure	404,503	{object}	errorPayload
//	@Router		/documents/{id}/download [get]
func DownloadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		dl, err := docSvc.Download(c.UserContext(), c.Params("id"), actor)
		if err != nil {
			return writeServiceError(c, err)
		}

		ct := dl.MimeType
		if ct == "" {
			ct = defaultContentType
		}
		c.Set(fiber.HeaderContentType, ct)
		c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": dl.FileName}))

		size := -1
		if dl.Size > 0 {
			size = int(dl.Size)
		}
		// fasthttp closes the body stream once written
		return c.SendStream(dl.Body, size)
	}
}

//	@Summary	Time-limited download URL
//	@Tags		documents
//	@Produce	json
//	@Security	ActorID
//	@Param		id		path		string	true	"Document ID"
//	@Success	200		{object}	presignedURL
//	@Failure	401,403	{object}	errorPayload
//	@Failure	404,503	{object}	errorPayload
//	@Router		/documents/{id}/url [get]
func PresignDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		p, err := docSvc.PresignDownload(c.UserContext(), c.Params("id"), actor)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(presignedURL{URL: p.URL, ExpiresIn: int(p.ExpiresIn.Seconds())})
	}
}

//	@Summary	Delete a document
//	@Tags		documents
//	@Security	ActorID
//	@Param		id		path	string	true	"Document ID"
//	@Success	204
//	@Failure	401,403	{object}	errorPayload
//	@Failure	404,409	{object}	errorPayload
//	@Failure	503		{object}	errorPayload
//	@Router		/documents/{id} [delete]
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		if err := docSvc.Delete(c.UserContext(), c.Params("id"), actor); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
