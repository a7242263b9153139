package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/training_reports/config"
	"bitbucket.org/mmdatafocus/training_reports/location"
	"bitbucket.org/mmdatafocus/training_reports/middlewares"
	"bitbucket.org/mmdatafocus/training_reports/models"
	"bitbucket.org/mmdatafocus/training_reports/models/reports"
	"bitbucket.org/mmdatafocus/training_reports/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// reportLockTTL bounds how long a crashed generation can block its filter set.
const reportLockTTL = 2 * time.Minute

// backend is the training API as used by the HTTP handlers.
type backend interface {
	location.Source
	reports.MonthlySource
	GetMasterReport(ctx context.Context, rc models.RequestContext, f reports.MasterFilter) ([]reports.EmployeeReportRow, error)
	GetTrainingsReport(ctx context.Context, rc models.RequestContext, employeeId string, t reports.TrainingType) ([]reports.TrainingReportRow, error)
	GetTrainingFeedbacks(ctx context.Context, rc models.RequestContext, trainingId string) ([]reports.Feedback, error)
}

type handlers struct {
	api    backend
	loader *location.Loader
	now    func() time.Time
}

func registerRoutes(r *gin.Engine, api backend) {
	h := &handlers{api: api, loader: location.NewLoader(api), now: config.ReportNow}

	g := r.Group("/api", middlewares.SessionMiddleware())
	g.GET("/me/capabilities", h.capabilities)
	g.GET("/states", h.states)
	g.GET("/states/:stateId/divisions", h.divisions)
	g.GET("/states/:stateId/districts", h.stateDistricts)
	g.GET("/divisions/:divisionId/districts", h.divisionDistricts)

	monthly := g.Group("/reports/monthly", middlewares.RequireCapability(models.CapabilityViewMonthlyReport))
	monthly.GET("/options", h.monthlyOptions)
	monthly.GET("", h.monthlyReport)
	monthly.GET("/export", middlewares.RequireCapability(models.CapabilityExportReport), h.monthlyExport)

	master := g.Group("/reports", middlewares.RequireCapability(models.CapabilityViewMasterReport))
	master.GET("/master", h.masterReport)
	master.GET("/master/employees/:employeeId/trainings", h.employeeTrainings)
	master.GET("/trainings/:trainingId/feedbacks", h.trainingFeedbacks)

	g.POST("/sync", middlewares.RequireCapability(models.CapabilityTriggerSync), h.sync)
}

func requestContext(c *gin.Context) models.RequestContext {
	rc, _ := middlewares.GetRequestContext(c.Request.Context())
	return rc
}

// respondError maps an error to its status. Fetch notices are already logged
// where they were produced.
func respondError(c *gin.Context, err error) {
	var fe utils.FieldErrors
	var notice *utils.Notice
	switch {
	case errors.As(err, &fe):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": fe.Error(), "fields": fe})
	case errors.Is(err, models.ErrForbidden), errors.Is(err, models.ErrStateNotAllowed):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, utils.ErrLockNotObtained), errors.Is(err, reports.ErrReportInFlight):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": reports.ErrReportInFlight.Error()})
	case errors.Is(err, reports.ErrNoReport):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &notice):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": notice.Message, "notice": notice})
	default:
		c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *handlers) capabilities(c *gin.Context) {
	rc := requestContext(c)
	c.JSON(http.StatusOK, gin.H{
		"role":         rc.Role,
		"state":        rc.StateId,
		"capabilities": rc.Role.Capabilities(),
	})
}

func (h *handlers) states(c *gin.Context) {
	rc := requestContext(c)
	states, notice := h.loader.States(c.Request.Context(), rc)
	if !rc.Role.Can(models.CapabilityViewAllStates) {
		own, ok := models.FindState(states, rc.StateId)
		states = []models.State{}
		if ok {
			states = append(states, own)
		}
	}
	c.JSON(http.StatusOK, gin.H{"states": states, "notice": notice})
}

func (h *handlers) divisions(c *gin.Context) {
	rc := requestContext(c)
	stateId, err := rc.AllowedState(c.Param("stateId"))
	if err != nil {
		respondError(c, err)
		return
	}
	divisions, notice := h.loader.Divisions(c.Request.Context(), rc, stateId)
	c.JSON(http.StatusOK, gin.H{"divisions": divisions, "notice": notice})
}

func districtsBody(d location.Districts, notice *utils.Notice) gin.H {
	return gin.H{
		"districts":     d.All,
		"lighthouse":    d.Lighthouse,
		"nonLighthouse": d.NonLighthouse,
		"notice":        notice,
	}
}

func (h *handlers) stateDistricts(c *gin.Context) {
	rc := requestContext(c)
	stateId, err := rc.AllowedState(c.Param("stateId"))
	if err != nil {
		respondError(c, err)
		return
	}
	d, notice := h.loader.DistrictsByState(c.Request.Context(), rc, stateId)
	c.JSON(http.StatusOK, districtsBody(d, notice))
}

// scopeDivision rejects a division outside the caller's own state.
func (h *handlers) scopeDivision(ctx context.Context, rc models.RequestContext, divisionId string) error {
	if rc.Role.Can(models.CapabilityViewAllStates) {
		return nil
	}
	stateId, err := rc.AllowedState("")
	if err != nil {
		return err
	}
	divisions, notice := h.loader.Divisions(ctx, rc, stateId)
	if notice != nil {
		return notice
	}
	for _, d := range divisions {
		if d.Id == divisionId {
			return nil
		}
	}
	return models.ErrStateNotAllowed
}

// scopeEmployee rejects an employee missing from the master report of the
// caller's own state.
func (h *handlers) scopeEmployee(ctx context.Context, rc models.RequestContext, employeeId string) error {
	if rc.Role.Can(models.CapabilityViewAllStates) {
		return nil
	}
	stateId, err := rc.AllowedState("")
	if err != nil {
		return err
	}
	rows, err := h.api.GetMasterReport(ctx, rc, reports.MasterFilter{State: stateId})
	if err != nil {
		config.LogError(config.GetLogger(), "main", "scopeEmployee", "get master report", stateId, err)
		return utils.NewErrorNotice("Failed to fetch report data", err)
	}
	for _, r := range rows {
		if r.Id == employeeId && (r.State.Id == "" || r.State.Id == stateId) {
			return nil
		}
	}
	return models.ErrStateNotAllowed
}

// scopeTraining rejects a training that is not one of employeeId's trainings,
// or whose employee is out of scope. Feedback rows carry no state of their own.
func (h *handlers) scopeTraining(ctx context.Context, rc models.RequestContext, employeeId, trainingId string) error {
	if rc.Role.Can(models.CapabilityViewAllStates) {
		return nil
	}
	if employeeId == "" {
		return models.ErrStateNotAllowed
	}
	if err := h.scopeEmployee(ctx, rc, employeeId); err != nil {
		return err
	}
	rows, err := h.api.GetTrainingsReport(ctx, rc, employeeId, reports.TrainingTypeAll)
	if err != nil {
		config.LogError(config.GetLogger(), "main", "scopeTraining", "get trainings report", employeeId, err)
		return utils.NewErrorNotice("No trainings found for this employee", err)
	}
	for _, r := range rows {
		if r.Id == trainingId {
			return nil
		}
	}
	return models.ErrStateNotAllowed
}

func (h *handlers) divisionDistricts(c *gin.Context) {
	rc := requestContext(c)
	if err := h.scopeDivision(c.Request.Context(), rc, c.Param("divisionId")); err != nil {
		respondError(c, err)
		return
	}
	d, notice := h.loader.DistrictsByDivision(c.Request.Context(), rc, c.Param("divisionId"))
	c.JSON(http.StatusOK, districtsBody(d, notice))
}

func (h *handlers) monthlyOptions(c *gin.Context) {
	now := h.now()
	year := now.Year()
	if v := c.Query("year"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			year = n
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"years":  reports.YearOptions(now),
		"months": reports.MonthOptions(year, now),
	})
}

// bindMonthlyFilter reads stateId/year/month. Non-numeric year or month reads as unset.
func bindMonthlyFilter(c *gin.Context) reports.MonthlyFilter {
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))
	return reports.MonthlyFilter{StateId: c.Query("stateId"), Year: year, Month: month}
}

// generateMonthly runs one monthly report generation for the request, holding
// the per-(user, filter) in-flight lock for its duration.
func (h *handlers) generateMonthly(c *gin.Context, withStateName bool) (*reports.MonthlyReport, error) {
	ctx := c.Request.Context()
	rc := requestContext(c)
	filter := bindMonthlyFilter(c)
	if filter.StateId != "" || !rc.Role.Can(models.CapabilityViewAllStates) {
		stateId, err := rc.AllowedState(filter.StateId)
		if err != nil {
			return nil, err
		}
		filter.StateId = stateId
	}
	now := h.now()
	if fe := filter.Validate(now); fe != nil {
		return nil, fe
	}

	release, err := utils.AcquireReportLock(ctx, rc.UserId+":"+filter.Key(), reportLockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	districts, notice := h.loader.DistrictsByState(ctx, rc, filter.StateId)
	if notice != nil && notice.Level == utils.NoticeLevelError {
		return nil, notice
	}

	stateName := filter.StateId
	if withStateName {
		states, _ := h.loader.States(ctx, rc)
		if s, ok := models.FindState(states, filter.StateId); ok {
			stateName = s.StateName
		}
	}

	return reports.FetchMonthlyReport(ctx, h.api, rc, reports.MonthlyReportRequest{
		Filter:    filter,
		StateName: stateName,
		Districts: districts.All,
		Now:       now,
		Sync:      config.SyncBeforeReport(),
	})
}

func (h *handlers) monthlyReport(c *gin.Context) {
	report, err := h.generateMonthly(c, false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handlers) monthlyExport(c *gin.Context) {
	report, err := h.generateMonthly(c, true)
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := reports.WriteMonthlyReportExcel(report.Grid)
	if err != nil {
		respondError(c, err)
		return
	}
	fileName := report.FileName()
	ctx := c.Request.Context()
	rc := requestContext(c)
	logger := config.GetLogger()

	entry := &models.ExportLog{
		UserId:     rc.UserId,
		Role:       rc.Role,
		StateId:    report.Filter.StateId,
		Year:       report.Filter.Year,
		Month:      report.Filter.Month,
		FileName:   fileName,
		GrandTotal: report.Grid.GrandTotals.Total,
	}
	entry.CorrelationId, _ = utils.GetCorrelationIdFromContext(ctx)
	if bucket := config.ExportArchiveBucket(); bucket != "" {
		object := fmt.Sprintf("monthly-reports/%s/%s", report.GeneratedAt.Format("2006/01/02"), fileName)
		uri, err := utils.ArchiveExport(ctx, bucket, object, data)
		if err != nil {
			config.LogError(logger, "main", "monthlyExport", "archive export", object, err)
		}
		entry.ArchiveUri = uri
	}
	if err := models.RecordExport(ctx, entry); err != nil {
		config.LogError(logger, "main", "monthlyExport", "record export", entry, err)
	}
	logger.WithFields(logrus.Fields{"field": "export", "file": fileName, "user": rc.UserId}).Info("monthly report exported")

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, utils.XlsxContentType, data)
}

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		return 1
	}
	return page
}

func (h *handlers) masterReport(c *gin.Context) {
	rc := requestContext(c)
	var filter reports.MasterFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondError(c, utils.FieldErrors{"_": err.Error()})
		return
	}
	if filter.State != "" || !rc.Role.Can(models.CapabilityViewAllStates) {
		stateId, err := rc.AllowedState(filter.State)
		if err != nil {
			respondError(c, err)
			return
		}
		filter.State = stateId
	}
	if fe := filter.Validate(); fe != nil {
		respondError(c, fe)
		return
	}

	rows, err := h.api.GetMasterReport(c.Request.Context(), rc, filter)
	if err != nil {
		config.LogError(config.GetLogger(), "main", "masterReport", "get master report", filter, err)
		respondError(c, utils.NewErrorNotice("Failed to fetch report data", err))
		return
	}
	page := reports.Paginate(rows, pageParam(c), reports.MasterReportPerPage)
	if page.Total == 0 {
		page.Message = reports.NoMasterReportData
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) employeeTrainings(c *gin.Context) {
	rc := requestContext(c)
	trainingType, err := reports.ParseTrainingType(c.Query("type"))
	if err != nil {
		respondError(c, utils.FieldErrors{"type": "Please select a valid training type"})
		return
	}
	if err := h.scopeEmployee(c.Request.Context(), rc, c.Param("employeeId")); err != nil {
		respondError(c, err)
		return
	}
	rows, err := h.api.GetTrainingsReport(c.Request.Context(), rc, c.Param("employeeId"), trainingType)
	if err != nil {
		config.LogError(config.GetLogger(), "main", "employeeTrainings", "get trainings report", c.Param("employeeId"), err)
		respondError(c, utils.NewErrorNotice("No trainings found for this employee", err))
		return
	}
	page := reports.Paginate(rows, pageParam(c), reports.MasterReportPerPage)
	if page.Total == 0 {
		page.Message = "No training data available for this selection"
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) trainingFeedbacks(c *gin.Context) {
	rc := requestContext(c)
	var filter reports.FeedbackFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondError(c, utils.FieldErrors{"_": err.Error()})
		return
	}
	if fe := filter.Validate(); fe != nil {
		respondError(c, fe)
		return
	}
	if err := h.scopeTraining(c.Request.Context(), rc, c.Query("employeeId"), c.Param("trainingId")); err != nil {
		respondError(c, err)
		return
	}
	feedbacks, err := h.api.GetTrainingFeedbacks(c.Request.Context(), rc, c.Param("trainingId"))
	if err != nil {
		config.LogError(config.GetLogger(), "main", "trainingFeedbacks", "get feedbacks", c.Param("trainingId"), err)
		respondError(c, utils.NewErrorNotice("No feedbacks", err))
		return
	}
	body := gin.H{
		"feedbacks": reports.FilterFeedbacks(feedbacks, filter),
		"summary":   reports.SummarizeFeedbacks(feedbacks),
	}
	if len(feedbacks) == 0 {
		body["notice"] = utils.NewInfoNotice("No feedbacks available for this training")
	}
	c.JSON(http.StatusOK, body)
}

func (h *handlers) sync(c *gin.Context) {
	msg, err := h.api.SyncDetails(c.Request.Context(), requestContext(c))
	if err != nil {
		config.LogError(config.GetLogger(), "main", "sync", "sync details", nil, err)
		respondError(c, utils.NewErrorNotice("Failed to sync details", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": msg,
		"notice":  &utils.Notice{Level: utils.NoticeLevelSuccess, Title: "Success", Message: msg},
	})
}
