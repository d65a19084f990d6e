package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"claimflow/internal/service"
)

type decisionRequest struct {
	Reason string `json:"reason"`
}

// pathID returns the :id parameter when it is a valid UUID.
func pathID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// ListDocuments returns documents newest first.
//
//	@Summary	List claim documents
//	@Tags		documents
//	@Produce	json
//	@Param		status	query		string	false	"Filter by status"
//	@Param		limit	query		int		false	"Page size"	default(10)
//	@Param		offset	query		int		false	"Page offset"	default(0)
//	@Success	200		{object}	service.DocumentListResult
//	@Failure	400		{object}	errorPayload
//	@Router		/documents [get]
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := docSvc.List(c.UserContext(), c.Query("status"), limit, offset)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	}
}

// UploadDocument accepts a claim document as multipart/form-data.
//
//	@Summary	Upload a claim document
//	@Tags		documents
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		file			formData	file	true	"Ticket or boarding pass (pdf, jpg, png)"
//	@Param		passenger_name	formData	string	false	"Passenger name"
//	@Param		passenger_email	formData	string	false	"Passenger email"
//	@Param		flight_number	formData	string	false	"Flight number"
//	@Success	201				{object}	model.Document
//	@Failure	400				{object}	errorPayload
//	@Failure	502				{object}	errorPayload
//	@Router		/documents [post]
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		doc, err := docSvc.Upload(c.UserContext(), service.UploadInput{
			Reader:         f,
			FileName:       fh.Filename,
			ContentType:    fh.Header.Get("Content-Type"),
			Size:           fh.Size,
			PassengerName:  c.FormValue("passenger_name"),
			PassengerEmail: c.FormValue("passenger_email"),
			FlightNumber:   c.FormValue("flight_number"),
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument returns one document with its stored stage output.
//
//	@Summary	Get a claim document
//	@Tags		documents
//	@Produce	json
//	@Param		id	path		string	true	"Document ID"
//	@Success	200	{object}	model.Document
//	@Failure	400	{object}	errorPayload
//	@Failure	404	{object}	errorPayload
//	@Router		/documents/{id} [get]
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.Get(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(doc)
	}
}

// GetDocumentStatus returns the processing status of a document.
//
//	@Summary	Get processing status
//	@Tags		documents
//	@Produce	json
//	@Param		id	path		string	true	"Document ID"
//	@Success	200	{object}	model.DocumentStatusView
//	@Failure	404	{object}	errorPayload
//	@Router		/documents/{id}/status [get]
func GetDocumentStatus(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		view, err := docSvc.Status(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(view)
	}
}

// DeleteDocument removes a document and its stored file.
//
//	@Summary	Delete a claim document
//	@Tags		documents
//	@Param		id	path	string	true	"Document ID"
//	@Success	204
//	@Failure	404	{object}	errorPayload
//	@Router		/documents/{id} [delete]
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := docSvc.Delete(c.UserContext(), id); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DownloadDocument returns a short-lived presigned link to the stored file.
//
//	@Summary	Presigned download link
//	@Tags		documents
//	@Produce	json
//	@Param		id	path		string	true	"Document ID"
//	@Success	200	{object}	map[string]string
//	@Failure	404	{object}	errorPayload
//	@Failure	502	{object}	errorPayload
//	@Router		/documents/{id}/download [get]
func DownloadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		u, err := docSvc.DownloadURL(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"url":        u,
			"expires_in": int(service.DownloadURLExpiry.Seconds()),
		})
	}
}

// ApproveDocument records a manual approval.
//
//	@Summary	Approve a claim
//	@Tags		decisions
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string			true	"Document ID"
//	@Param		body	body		decisionRequest	false	"Optional reason"
//	@Success	200		{object}	model.Document
//	@Failure	409		{object}	errorPayload
//	@Router		/documents/{id}/approve [post]
func ApproveDocument(docSvc service.DocumentService) fiber.Handler {
	return decide(docSvc, service.DecisionApprove)
}

// RejectDocument records a manual rejection.
//
//	@Summary	Reject a claim
//	@Tags		decisions
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string			true	"Document ID"
//	@Param		body	body		decisionRequest	false	"Optional reason"
//	@Success	200		{object}	model.Document
//	@Failure	409		{object}	errorPayload
//	@Router		/documents/{id}/reject [post]
func RejectDocument(docSvc service.DocumentService) fiber.Handler {
	return decide(docSvc, service.DecisionReject)
}

func decide(docSvc service.DocumentService, decision service.Decision) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var req decisionRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
			}
		}

		doc, err := docSvc.Decide(c.UserContext(), id, decision, req.Reason)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(doc)
	}
}

// ListNotifications returns the notification history of a document.
//
//	@Summary	Notification history
//	@Tags		documents
//	@Produce	json
//	@Param		id	path	string	true	"Document ID"
//	@Success	200	{array}	model.Notification
//	@Router		/documents/{id}/notifications [get]
func ListNotifications(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		items, err := docSvc.Notifications(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(items)
	}
}
