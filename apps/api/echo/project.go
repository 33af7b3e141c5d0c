package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/devpath/core/plan"
	"github.com/trezcool/devpath/core/user"
)

type projectApi struct {
	usrSvc   *user.Service
	svc      *plan.Service
	validate *validator.Validate
}

func registerProjectAPI(
	g *echo.Group,
	auth *Auth,
	usrSvc *user.Service,
	svc *plan.Service,
	validate *validator.Validate,
) {
	api := projectApi{
		usrSvc:   usrSvc,
		svc:      svc,
		validate: validate,
	}

	pg := g.Group("/projects", auth.Middleware(), userMiddleware(usrSvc))
	pg.POST("/generate", api.generate)
	pg.POST("/save", api.save)
	pg.GET("", api.query)

	// detail endpoints
	pg.GET("/:id", api.retrieve)
	pg.PATCH("/:id/milestone", api.setMilestoneStatus)
	pg.PATCH("/:id/milestone/step", api.setStepStatus)
}

// Handlers

func (api *projectApi) generate(ctx echo.Context) error {
	var data plan.GenerateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	draft, err := api.svc.Generate(ctx.Request().Context(), data.Prompt)
	if err != nil {
		return errors.Wrap(err, "generating plan")
	}
	return ctx.JSON(http.StatusOK, draft)
}

func (api *projectApi) save(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data plan.SaveRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	proj, err := api.svc.Save(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "saving project")
	}
	return ctx.JSON(http.StatusCreated, proj)
}

func (api *projectApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	projects, err := api.svc.List(ctx.Request().Context(), usr.ID, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}
	if projects == nil {
		projects = []plan.Project{}
	}
	return ctx.JSON(http.StatusOK, projects)
}

func (api *projectApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	proj, err := api.svc.Get(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving project")
	}
	return ctx.JSON(http.StatusOK, proj)
}

func (api *projectApi) setMilestoneStatus(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data plan.MilestoneStatusRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MilestoneStatusRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	proj, err := api.svc.SetMilestoneStatus(
		ctx.Request().Context(), usr.ID, ctx.Param("id"), *data.MilestoneNumber, *data.IsCompleted,
	)
	if err != nil {
		return errors.Wrap(err, "setting milestone status")
	}
	return ctx.JSON(http.StatusOK, proj)
}

func (api *projectApi) setStepStatus(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data plan.StepStatusRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StepStatusRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	proj, err := api.svc.SetStepStatus(
		ctx.Request().Context(), usr.ID, ctx.Param("id"), *data.MilestoneNumber, *data.StepNumber, *data.IsDone,
	)
	if err != nil {
		return errors.Wrap(err, "setting step status")
	}
	return ctx.JSON(http.StatusOK, proj)
}
