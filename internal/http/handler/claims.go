package handler

import (
	"github.com/gofiber/fiber/v2"

	"claimflow/internal/model"
	"claimflow/internal/service"
)

// ruleRequest is the body of POST /rules. is_active defaults to true.
type ruleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Condition   string `json:"condition"`
	Action      string `json:"action"`
	Priority    int    `json:"priority"`
	IsActive    *bool  `json:"is_active"`
}

func (r ruleRequest) toModel() *model.BusinessRule {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &model.BusinessRule{
		Name:        r.Name,
		Description: r.Description,
		Condition:   r.Condition,
		Action:      r.Action,
		Priority:    r.Priority,
		IsActive:    active,
	}
}

// AnalyzeClaim runs an eligibility analysis on demand.
//
//	@Summary	Analyze claim eligibility
//	@Tags		analysis
//	@Accept		json
//	@Produce	json
//	@Param		body	body		service.AnalyzeInput	true	"Document and optional evidence"
//	@Success	200		{object}	model.AnalysisResult
//	@Failure	400		{object}	errorPayload
//	@Failure	404		{object}	errorPayload
//	@Router		/analysis [post]
func AnalyzeClaim(claimSvc service.ClaimService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.AnalyzeInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		res, err := claimSvc.Analyze(c.UserContext(), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	}
}

// ListAnalyses returns the stored analyses of a document, newest first.
//
//	@Summary	Analysis history
//	@Tags		analysis
//	@Produce	json
//	@Param		id	path	string	true	"Document ID"
//	@Success	200	{array}	model.AnalysisRecord
//	@Router		/documents/{id}/analyses [get]
func ListAnalyses(claimSvc service.ClaimService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		items, err := claimSvc.AnalysisHistory(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(items)
	}
}

// ListRules returns active business rules ordered by priority; all=true includes inactive ones.
//
//	@Summary	List business rules
//	@Tags		rules
//	@Produce	json
//	@Param		all	query	bool	false	"Include inactive rules"
//	@Success	200	{array}	model.BusinessRule
//	@Router		/rules [get]
func ListRules(claimSvc service.ClaimService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := claimSvc.ListRules(c.UserContext(), c.QueryBool("all", false))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(items)
	}
}

// CreateRule adds a business rule.
//
//	@Summary	Create a business rule
//	@Tags		rules
//	@Accept		json
//	@Produce	json
//	@Param		body	body		ruleRequest	true	"Rule"
//	@Success	201		{object}	model.BusinessRule
//	@Failure	400		{object}	errorPayload
//	@Router		/rules [post]
func CreateRule(claimSvc service.ClaimService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ruleRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		rule, err := claimSvc.CreateRule(c.UserContext(), req.toModel())
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(rule)
	}
}
