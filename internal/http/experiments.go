package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jmehdipour/voidview/internal/config"
	"github.com/jmehdipour/voidview/internal/http/middleware"
	"github.com/jmehdipour/voidview/internal/model"
	"github.com/jmehdipour/voidview/internal/repository"
	"github.com/labstack/echo/v4"
)

// requireTemplates is the referential check the join store leaves to its
// callers: every id must name an existing template.
func requireTemplates(ctx context.Context, templates repository.TemplatesRepository, ids []int64) error {
	for _, id := range ids {
		tp, err := templates.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if tp == nil {
			return fmt.Errorf("%w: template %d", repository.ErrNotFound, id)
		}
	}
	return nil
}

func listExperimentsHandler(experiments repository.ExperimentsRepository, pg config.PaginationConfig) echo.HandlerFunc {
	return func(c echo.Context) error {
		page, size := pageParams(c, pg)
		f := model.ExperimentFilter{Page: page, PageSize: size}

		templateID, ok := queryID(c, "template_id")
		if !ok {
			return badRequest(c, "invalid template_id")
		}
		f.TemplateID = templateID
		if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
			st := model.ExperimentStatus(strings.ToLower(raw))
			if !st.Valid() {
				return badRequest(c, "invalid status")
			}
			f.Status = &st
		}

		items, total, err := experiments.List(c.Request().Context(), f)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, pageView[model.Experiment]{Items: items, Total: total, Page: page, PageSize: size})
	}
}

type createExperimentReq struct {
	Name          string  `json:"name"`
	TemplateIDs   []int64 `json:"template_ids"`
	ReferenceType string  `json:"reference_type"`
	Status        string  `json:"status"`
}

func createExperimentHandler(experiments repository.ExperimentsRepository, templates repository.TemplatesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, _ := middleware.UserFromCtx(c)
		var req createExperimentReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		ref, ok := model.ParseReferenceType(req.ReferenceType)
		if !ok {
			return badRequest(c, "invalid reference_type")
		}
		st, ok := model.ParseExperimentStatus(req.Status)
		if !ok {
			return badRequest(c, "invalid status")
		}

		ctx := c.Request().Context()
		if err := requireTemplates(ctx, templates, req.TemplateIDs); err != nil {
			return writeErr(c, err)
		}
		exp, err := experiments.Create(ctx, model.NewExperiment{
			Name:          req.Name,
			TemplateIDs:   req.TemplateIDs,
			CreatedBy:     caller.ID,
			ReferenceType: ref,
			Status:        st,
		})
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusCreated, exp)
	}
}

func getExperimentHandler(experiments repository.ExperimentsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		exp, err := experiments.GetDetail(c.Request().Context(), id)
		if err != nil {
			return writeErr(c, err)
		}
		if exp == nil {
			return notFound(c, "experiment", id)
		}
		return c.JSON(http.StatusOK, exp)
	}
}

type updateExperimentReq struct {
	Name          *string `json:"name"`
	Status        *string `json:"status"`
	ReferenceType *string `json:"reference_type"`
	Color         *string `json:"color"`
}

func updateExperimentHandler(experiments repository.ExperimentsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		var req updateExperimentReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		patch := model.ExperimentPatch{Name: req.Name, Color: req.Color}
		if req.Status != nil {
			st := model.ExperimentStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
			patch.Status = &st
		}
		if req.ReferenceType != nil {
			rt := model.ReferenceType(strings.ToLower(strings.TrimSpace(*req.ReferenceType)))
			patch.ReferenceType = &rt
		}

		ctx := c.Request().Context()
		if _, err := experiments.Update(ctx, id, patch); err != nil {
			return writeErr(c, err)
		}
		return respondDetail(c, experiments, id)
	}
}

func deleteExperimentHandler(experiments repository.ExperimentsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		if err := experiments.Delete(c.Request().Context(), id); err != nil {
			return writeErr(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type linkReq struct {
	TemplateIDs []int64 `json:"template_ids"`
}

func linkTemplatesHandler(experiments repository.ExperimentsRepository, templates repository.TemplatesRepository, links repository.LinksRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		var req linkReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}

		ctx := c.Request().Context()
		exp, err := experiments.GetByID(ctx, id)
		if err != nil {
			return writeErr(c, err)
		}
		if exp == nil {
			return notFound(c, "experiment", id)
		}
		if err := requireTemplates(ctx, templates, req.TemplateIDs); err != nil {
			return writeErr(c, err)
		}
		if err := links.Link(ctx, id, req.TemplateIDs); err != nil {
			return writeErr(c, err)
		}
		return respondDetail(c, experiments, id)
	}
}

func unlinkTemplateHandler(experiments repository.ExperimentsRepository, links repository.LinksRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		templateID, ok := pathID(c, "template_id")
		if !ok {
			return badRequest(c, "invalid template_id")
		}

		ctx := c.Request().Context()
		exp, err := experiments.GetByID(ctx, id)
		if err != nil {
			return writeErr(c, err)
		}
		if exp == nil {
			return notFound(c, "experiment", id)
		}
		if _, err := links.Unlink(ctx, id, templateID); err != nil {
			return writeErr(c, err)
		}
		return respondDetail(c, experiments, id)
	}
}

func respondDetail(c echo.Context, experiments repository.ExperimentsRepository, id int64) error {
	exp, err := experiments.GetDetail(c.Request().Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	if exp == nil {
		return notFound(c, "experiment", id)
	}
	return c.JSON(http.StatusOK, exp)
}

func matrixHandler(matrix repository.MatrixRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		m, err := matrix.Build(c.Request().Context())
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, m)
	}
}
