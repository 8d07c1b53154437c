package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmehdipour/voidview/internal/model"
	"github.com/jmehdipour/voidview/internal/repository"
	"github.com/labstack/echo/v4"
)

// The entity stores never check parents; these handlers do, so that an app
// is only created under an existing customer and a template under an
// existing app.

func requireCustomer(ctx context.Context, customers repository.CustomersRepository, id int64) error {
	cu, err := customers.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if cu == nil {
		return fmt.Errorf("%w: customer %d", repository.ErrNotFound, id)
	}
	return nil
}

func requireApp(ctx context.Context, apps repository.AppsRepository, id int64) error {
	a, err := apps.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("%w: app %d", repository.ErrNotFound, id)
	}
	return nil
}

// ---- customers ----

type customerReq struct {
	Name        *string `json:"name"`
	Contact     *string `json:"contact"`
	Description *string `json:"description"`
}

func listCustomersHandler(customers repository.CustomersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		out, err := customers.List(c.Request().Context())
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, out)
	}
}

func createCustomerHandler(customers repository.CustomersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req customerReq
		if err := c.Bind(&req); err != nil || req.Name == nil {
			return badRequest(c, "name is required")
		}
		cu, err := customers.Create(c.Request().Context(), model.NewCustomer{
			Name:        *req.Name,
			Contact:     req.Contact,
			Description: req.Description,
		})
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusCreated, cu)
	}
}

func getCustomerHandler(customers repository.CustomersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		cu, err := customers.GetByID(c.Request().Context(), id)
		if err != nil {
			return writeErr(c, err)
		}
		if cu == nil {
			return notFound(c, "customer", id)
		}
		return c.JSON(http.StatusOK, cu)
	}
}

func updateCustomerHandler(customers repository.CustomersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		var req customerReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		cu, err := customers.Update(c.Request().Context(), id, model.CustomerPatch{
			Name:        req.Name,
			Contact:     req.Contact,
			Description: req.Description,
		})
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, cu)
	}
}

func deleteCustomerHandler(customers repository.CustomersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		if err := customers.Delete(c.Request().Context(), id); err != nil {
			return writeErr(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// ---- apps ----

type appReq struct {
	CustomerID  *int64  `json:"customer_id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func listAppsHandler(apps repository.AppsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		customerID, ok := queryID(c, "customer_id")
		if !ok {
			return badRequest(c, "invalid customer_id")
		}
		out, err := apps.List(c.Request().Context(), customerID)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, out)
	}
}

func listCustomerAppsHandler(customers repository.CustomersRepository, apps repository.AppsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		ctx := c.Request().Context()
		if err := requireCustomer(ctx, customers, id); err != nil {
			return writeErr(c, err)
		}
		out, err := apps.List(ctx, &id)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, out)
	}
}

func createApp(c echo.Context, customers repository.CustomersRepository, apps repository.AppsRepository, customerID int64, req appReq) error {
	if req.Name == nil {
		return badRequest(c, "name is required")
	}
	ctx := c.Request().Context()
	if err := requireCustomer(ctx, customers, customerID); err != nil {
		return writeErr(c, err)
	}
	a, err := apps.Create(ctx, model.NewApp{CustomerID: customerID, Name: *req.Name, Description: req.Description})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func createAppHandler(customers repository.CustomersRepository, apps repository.AppsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req appReq
		if err := c.Bind(&req); err != nil || req.CustomerID == nil {
			return badRequest(c, "customer_id is required")
		}
		return createApp(c, customers, apps, *req.CustomerID, req)
	}
}

func createCustomerAppHandler(customers repository.CustomersRepository, apps repository.AppsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		var req appReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		return createApp(c, customers, apps, id, req)
	}
}

func getAppHandler(apps repository.AppsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		a, err := apps.GetByID(c.Request().Context(), id)
		if err != nil {
			return writeErr(c, err)
		}
		if a == nil {
			return notFound(c, "app", id)
		}
		return c.JSON(http.StatusOK, a)
	}
}

func updateAppHandler(customers repository.CustomersRepository, apps repository.AppsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		var req appReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		ctx := c.Request().Context()
		if req.CustomerID != nil {
			if err := requireCustomer(ctx, customers, *req.CustomerID); err != nil {
				return writeErr(c, err)
			}
		}
		a, err := apps.Update(ctx, id, model.AppPatch{
			CustomerID:  req.CustomerID,
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, a)
	}
}

func deleteAppHandler(apps repository.AppsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		if err := apps.Delete(c.Request().Context(), id); err != nil {
			return writeErr(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// ---- templates ----

type templateReq struct {
	AppID       *int64  `json:"app_id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func listTemplatesHandler(templates repository.TemplatesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		appID, ok := queryID(c, "app_id")
		if !ok {
			return badRequest(c, "invalid app_id")
		}
		out, err := templates.List(c.Request().Context(), appID)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, out)
	}
}

func listAppTemplatesHandler(apps repository.AppsRepository, templates repository.TemplatesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		ctx := c.Request().Context()
		if err := requireApp(ctx, apps, id); err != nil {
			return writeErr(c, err)
		}
		out, err := templates.List(ctx, &id)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, out)
	}
}

func createTemplate(c echo.Context, apps repository.AppsRepository, templates repository.TemplatesRepository, appID int64, req templateReq) error {
	if req.Name == nil {
		return badRequest(c, "name is required")
	}
	ctx := c.Request().Context()
	if err := requireApp(ctx, apps, appID); err != nil {
		return writeErr(c, err)
	}
	tp, err := templates.Create(ctx, model.NewTemplate{AppID: appID, Name: *req.Name, Description: req.Description})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, tp)
}

func createTemplateHandler(apps repository.AppsRepository, templates repository.TemplatesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req templateReq
		if err := c.Bind(&req); err != nil || req.AppID == nil {
			return badRequest(c, "app_id is required")
		}
		return createTemplate(c, apps, templates, *req.AppID, req)
	}
}

func createAppTemplateHandler(apps repository.AppsRepository, templates repository.TemplatesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		var req templateReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		return createTemplate(c, apps, templates, id, req)
	}
}

func getTemplateHandler(templates repository.TemplatesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		tp, err := templates.GetByID(c.Request().Context(), id)
		if err != nil {
			return writeErr(c, err)
		}
		if tp == nil {
			return notFound(c, "template", id)
		}
		return c.JSON(http.StatusOK, tp)
	}
}

func updateTemplateHandler(apps repository.AppsRepository, templates repository.TemplatesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		var req templateReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		ctx := c.Request().Context()
		if req.AppID != nil {
			if err := requireApp(ctx, apps, *req.AppID); err != nil {
				return writeErr(c, err)
			}
		}
		tp, err := templates.Update(ctx, id, model.TemplatePatch{
			AppID:       req.AppID,
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, tp)
	}
}

func deleteTemplateHandler(templates repository.TemplatesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		if err := templates.Delete(c.Request().Context(), id); err != nil {
			return writeErr(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
