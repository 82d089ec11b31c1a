package echoapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/appraisal"
	"github.com/trezcool/tathmini/core/user"
)

var reviewerRoles = []string{
	user.RoleReviewerHOD,
	user.RoleReviewerIQAC,
	user.RoleAdminPrincipal,
	user.RoleAdmin,
	user.RoleAdminOwner,
}

type appraisalApi struct {
	svc      appraisal.ServiceInterface
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

func registerAppraisalAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc appraisal.ServiceInterface,
	usrSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := appraisalApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	cg := g.Group("/cycles", jwt)
	cg.GET("", api.queryCycles)
	cg.GET("/open", api.retrieveOpenCycle)
	cg.POST("", api.createCycle, adminMiddleware())
	cg.POST("/:id/close", api.closeCycle, adminMiddleware())

	ag := g.Group("/appraisals", jwt)
	ag.GET("/caps", api.queryCaps)
	ag.GET("/me", api.retrieveMine, roleMiddleware(user.RoleTeacher))
	ag.GET("", api.query, roleMiddleware(reviewerRoles...))

	// detail endpoints
	dg := ag.Group("/:id")
	dg.GET("", api.retrieve)
	dg.GET("/audit", api.audit, roleMiddleware(reviewerRoles...))
	dg.PUT("/sections/:key", api.saveSection, roleMiddleware(user.RoleTeacher))
	dg.POST("/recalculate", api.recalculate, roleMiddleware(user.RoleTeacher))
	dg.POST("/submit", api.submit, roleMiddleware(user.RoleTeacher))
	dg.POST("/reviews/hod", api.hodReview, roleMiddleware(user.RoleReviewerHOD))
	dg.POST("/reviews/iqac", api.iqacReview, roleMiddleware(user.RoleReviewerIQAC))
	dg.POST("/reviews/principal", api.principalReview, roleMiddleware(user.RoleAdminPrincipal))
}

// Handlers

// queryCaps serves the category cap table so self-assessment and review
// screens agree with the engine.
func (api *appraisalApi) queryCaps(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, CapsResponse{
		Caps: appraisal.Caps,
		PartMaxima: map[appraisal.Part]float64{
			appraisal.PartB: appraisal.PartBMax,
			appraisal.PartC: appraisal.PartCMax,
			appraisal.PartD: appraisal.PartDMax,
		},
		GrandMax: appraisal.GrandMax,
	})
}

// retrieveMine returns the authenticated teacher's appraisal for the given
// cycle (defaulting to the open one), creating it lazily in DRAFT.
func (api *appraisalApi) retrieveMine(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rctx := ctx.Request().Context()
	var cycleID int
	if raw := ctx.QueryParam("cycle"); raw != "" {
		if cycleID, err = strconv.Atoi(raw); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "cycle", Error: "invalid cycle id"})
		}
	} else {
		cycle, err := api.svc.GetOpenCycle(rctx)
		if err != nil {
			return errors.Wrap(err, "finding open cycle")
		}
		cycleID = cycle.ID
	}

	appr, err := api.svc.GetOrCreate(rctx, ctxUsr.ID, cycleID)
	if err != nil {
		return errors.Wrap(err, "getting or creating appraisal")
	}
	data, err := api.svc.GetFullAppraisalData(rctx, appr.ID)
	if err != nil {
		return errors.Wrap(err, "loading appraisal data")
	}
	return ctx.JSON(http.StatusOK, data)
}

func (api *appraisalApi) query(ctx echo.Context) error {
	var filter appraisal.ListFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []appraisal.Appraisal{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// HODs only see their own department
	if ctxUsr.IsHOD() && !ctxUsr.IsAdmin() && !ctxUsr.IsIQAC() {
		filter.Department = ctxUsr.Department
	}

	apprs, err := api.svc.Filter(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying appraisals")
	}
	if apprs == nil {
		apprs = []appraisal.Appraisal{}
	}
	return ctx.JSON(http.StatusOK, apprs)
}

func (api *appraisalApi) retrieve(ctx echo.Context) error {
	appr, _, err := api.getAccessibleAppraisal(ctx)
	if err != nil {
		return err
	}

	data, err := api.svc.GetFullAppraisalData(ctx.Request().Context(), appr.ID)
	if err != nil {
		return errors.Wrap(err, "loading appraisal data")
	}
	return ctx.JSON(http.StatusOK, data)
}

func (api *appraisalApi) audit(ctx echo.Context) error {
	appr, _, err := api.getAccessibleAppraisal(ctx)
	if err != nil {
		return err
	}
	entries, err := api.svc.Audit(ctx.Request().Context(), appr.ID)
	if err != nil {
		return errors.Wrap(err, "querying audit trail")
	}
	if entries == nil {
		entries = []appraisal.AuditEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *appraisalApi) saveSection(ctx echo.Context) error {
	appr, ctxUsr, err := api.getOwnAppraisal(ctx)
	if err != nil {
		return err
	}

	data, err := bindSection(ctx, appraisal.SectionKey(ctx.Param("key")))
	if err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	appr, err = api.svc.SaveSection(ctx.Request().Context(), ctxUsr.ID, appr.ID, data)
	if err != nil {
		return errors.Wrap(err, "saving section")
	}
	return ctx.JSON(http.StatusOK, appr)
}

func (api *appraisalApi) recalculate(ctx echo.Context) error {
	appr, ctxUsr, err := api.getOwnAppraisal(ctx)
	if err != nil {
		return err
	}
	appr, err = api.svc.RecalculateTotals(ctx.Request().Context(), ctxUsr.ID, appr.ID)
	if err != nil {
		return errors.Wrap(err, "recalculating totals")
	}
	return ctx.JSON(http.StatusOK, appr)
}

func (api *appraisalApi) submit(ctx echo.Context) error {
	appr, ctxUsr, err := api.getOwnAppraisal(ctx)
	if err != nil {
		return err
	}
	appr, err = api.svc.Submit(ctx.Request().Context(), ctxUsr.ID, appr.ID)
	if err != nil {
		return errors.Wrap(err, "submitting appraisal")
	}
	return ctx.JSON(http.StatusOK, appr)
}

func (api *appraisalApi) hodReview(ctx echo.Context) error {
	appr, ctxUsr, err := api.getAccessibleAppraisal(ctx)
	if err != nil {
		return err
	}

	var data appraisal.ReviewInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewInput")
	}
	if err := data.Validate(api.validate, true /* allowReject */); err != nil {
		return err
	}

	appr, err = api.svc.HODReview(ctx.Request().Context(), ctxUsr, appr.ID, data)
	if err != nil {
		return errors.Wrap(err, "applying HOD review")
	}
	return ctx.JSON(http.StatusOK, appr)
}

func (api *appraisalApi) iqacReview(ctx echo.Context) error {
	appr, ctxUsr, err := api.getAccessibleAppraisal(ctx)
	if err != nil {
		return err
	}

	var data appraisal.ReviewInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewInput")
	}
	if err := data.Validate(api.validate, false); err != nil {
		return err
	}

	appr, err = api.svc.IQACReview(ctx.Request().Context(), ctxUsr, appr.ID, data)
	if err != nil {
		return errors.Wrap(err, "applying IQAC review")
	}
	return ctx.JSON(http.StatusOK, appr)
}

func (api *appraisalApi) principalReview(ctx echo.Context) error {
	appr, ctxUsr, err := api.getAccessibleAppraisal(ctx)
	if err != nil {
		return err
	}

	var data appraisal.ReviewInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewInput")
	}
	if err := data.Validate(api.validate, false); err != nil {
		return err
	}

	appr, err = api.svc.PrincipalReview(ctx.Request().Context(), ctxUsr, appr.ID, data)
	if err != nil {
		return errors.Wrap(err, "applying principal review")
	}
	return ctx.JSON(http.StatusOK, appr)
}

// Cycles

func (api *appraisalApi) queryCycles(ctx echo.Context) error {
	cycles, err := api.svc.QueryCycles(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying cycles")
	}
	if cycles == nil {
		cycles = []appraisal.Cycle{}
	}
	return ctx.JSON(http.StatusOK, cycles)
}

func (api *appraisalApi) retrieveOpenCycle(ctx echo.Context) error {
	cycle, err := api.svc.GetOpenCycle(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "finding open cycle")
	}
	return ctx.JSON(http.StatusOK, cycle)
}

func (api *appraisalApi) createCycle(ctx echo.Context) error {
	var data appraisal.NewCycle
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCycle")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cycle, err := api.svc.CreateCycle(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating cycle")
	}
	return ctx.JSON(http.StatusCreated, cycle)
}

func (api *appraisalApi) closeCycle(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	cycle, err := api.svc.CloseCycle(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "closing cycle")
	}
	return ctx.JSON(http.StatusOK, cycle)
}

// access checks

// getOwnAppraisal loads the appraisal and requires the authenticated teacher
// to be its owner.
func (api *appraisalApi) getOwnAppraisal(ctx echo.Context) (appraisal.Appraisal, user.User, error) {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return appraisal.Appraisal{}, user.User{}, errors.Wrap(err, "getting context user")
	}
	appr, err := api.loadAppraisal(ctx)
	if err != nil {
		return appraisal.Appraisal{}, user.User{}, err
	}
	if appr.TeacherID != ctxUsr.ID {
		return appraisal.Appraisal{}, user.User{}, errHttpNotFound
	}
	return appr, ctxUsr, nil
}

// getAccessibleAppraisal loads the appraisal and checks visibility: the
// owning teacher, IQAC/principal/admin, or the HOD of the teacher's
// department.
func (api *appraisalApi) getAccessibleAppraisal(ctx echo.Context) (appraisal.Appraisal, user.User, error) {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return appraisal.Appraisal{}, user.User{}, errors.Wrap(err, "getting context user")
	}
	appr, err := api.loadAppraisal(ctx)
	if err != nil {
		return appraisal.Appraisal{}, user.User{}, err
	}

	switch {
	case appr.TeacherID == ctxUsr.ID:
	case ctxUsr.IsAdmin() || ctxUsr.IsIQAC() || ctxUsr.IsPrincipal():
	case ctxUsr.IsHOD():
		teacher, err := api.usrSvc.GetByID(ctx.Request().Context(), appr.TeacherID)
		if err != nil {
			return appraisal.Appraisal{}, user.User{}, errors.Wrap(err, "finding appraisal teacher")
		}
		if teacher.Department != ctxUsr.Department {
			return appraisal.Appraisal{}, user.User{}, errHttpNotFound
		}
	default:
		return appraisal.Appraisal{}, user.User{}, errHttpNotFound
	}
	return appr, ctxUsr, nil
}

func (api *appraisalApi) loadAppraisal(ctx echo.Context) (appraisal.Appraisal, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return appraisal.Appraisal{}, errHttpNotFound
	}
	appr, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == appraisal.ErrNotFound {
			return appraisal.Appraisal{}, errHttpNotFound
		}
		return appraisal.Appraisal{}, errors.Wrap(err, "finding appraisal by ID")
	}
	return appr, nil
}

// bindSection decodes the request body into the concrete section type for
// the given key.
func bindSection(ctx echo.Context, key appraisal.SectionKey) (appraisal.SectionData, error) {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading request body")
	}
	data, err := appraisal.DecodeSection(key, body)
	if err != nil {
		if errors.Cause(err) == appraisal.ErrUnknownSection {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "key", Error: "unknown section key"})
		}
		return nil, core.NewValidationError(errors.New("invalid section payload"))
	}
	return data, nil
}

type CapsResponse struct {
	Caps       []appraisal.CategoryCap    `json:"caps"`
	PartMaxima map[appraisal.Part]float64 `json:"part_maxima"`
	GrandMax   float64                    `json:"grand_max"`
}
