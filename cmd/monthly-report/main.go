// monthly-report generates one state's monthly training report and writes it
// as an xlsx workbook.
//
// Usage:
//
//	monthly-report --state <stateId> --year 2025 --month 7 [--out dir] [--sync]
//
// The bearer token is read from --token or REPORT_API_TOKEN. Role and own
// state come from the token claims when API_SECRET is set, otherwise from
// --role and --own-state.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"bitbucket.org/mmdatafocus/training_reports/config"
	"bitbucket.org/mmdatafocus/training_reports/models"
	"bitbucket.org/mmdatafocus/training_reports/reportview"
	"bitbucket.org/mmdatafocus/training_reports/trainingapi"
	"bitbucket.org/mmdatafocus/training_reports/utils"
	"github.com/sirupsen/logrus"
)

func main() {
	stateId := flag.String("state", "", "Required for SUPERADMIN: state id")
	year := flag.Int("year", 0, "Required: report year")
	month := flag.Int("month", 0, "Required: report month (1-12)")
	outDir := flag.String("out", ".", "Directory the workbook is written to")
	token := flag.String("token", os.Getenv("REPORT_API_TOKEN"), "Bearer token for the training API")
	roleFlag := flag.String("role", "SUPERADMIN", "Role when the token cannot be verified locally")
	ownState := flag.String("own-state", "", "Own state id for SRM when the token cannot be verified locally")
	sync := flag.Bool("sync", config.SyncBeforeReport(), "Run sync-details before fetching")
	flag.Parse()

	logger := config.GetLogger()
	if strings.TrimSpace(*token) == "" {
		fmt.Fprintln(os.Stderr, "--token or REPORT_API_TOKEN is required")
		os.Exit(1)
	}

	rc, err := requestContext(*token, *roleFlag, *ownState)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid session: %v\n", err)
		os.Exit(1)
	}

	api, err := trainingapi.NewClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	view := reportview.NewMonthlyView(api, rc, reportview.WithSync(*sync))
	if _, notice := view.LoadStates(ctx); notice != nil {
		fmt.Fprintln(os.Stderr, notice.Message)
		os.Exit(1)
	}
	if *stateId != "" {
		if notice := view.SelectState(ctx, *stateId); notice != nil && notice.Level == utils.NoticeLevelError {
			fmt.Fprintln(os.Stderr, notice.Message)
			os.Exit(1)
		}
	}
	view.SelectYear(*year)
	view.SelectMonth(*month)

	report, err := view.Generate(ctx)
	if err != nil {
		var fe utils.FieldErrors
		if errors.As(err, &fe) {
			for field, msg := range fe {
				fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
			}
		} else {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		os.Exit(1)
	}
	if report.Notice != nil {
		fmt.Fprintln(os.Stderr, report.Notice.Message)
	}

	data, name, err := view.Export()
	if err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}
	path := filepath.Join(*outDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
		os.Exit(1)
	}

	logger.WithFields(logrus.Fields{
		"field": "monthly-report",
		"state": report.Filter.StateId,
		"total": report.Grid.GrandTotals.Total,
	}).Info("wrote " + path)
}

func requestContext(token, roleFlag, ownState string) (models.RequestContext, error) {
	if strings.TrimSpace(os.Getenv("API_SECRET")) != "" {
		claim, err := utils.JwtValidate(token)
		if err != nil {
			return models.RequestContext{}, err
		}
		role, err := models.ParseRole(claim.Role)
		if err != nil {
			return models.RequestContext{}, err
		}
		return models.RequestContext{Token: token, Role: role, StateId: claim.StateId, UserId: claim.ID}, nil
	}
	role, err := models.ParseRole(roleFlag)
	if err != nil {
		return models.RequestContext{}, err
	}
	return models.RequestContext{Token: token, Role: role, StateId: ownState}, nil
}
