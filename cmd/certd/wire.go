package main

import (
	"context"
	"fmt"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/api"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/artifact"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/certificate"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/config"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/landings"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/notify"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/payload"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/refdata"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/ruleengine"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/session"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/store"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/tasks"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"
)

// app is the wired service graph shared by every command.
type app struct {
	docs         *store.SQLiteStore
	sessions     session.Store
	payloads     *payload.Service
	validator    *landings.Validator
	orchestrator *certificate.Orchestrator
	tasks        *tasks.Runner

	closers []func() error
}

// buildApp opens the stores and connects the collaborators described by cfg.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "buildApp")
	defer timer.Stop()

	a := &app{}

	docs, err := store.Open(cfg.Storage.Driver, cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	a.docs = docs
	a.closers = append(a.closers, docs.Close)

	switch cfg.Session.Backend {
	case "redis":
		rs, err := session.DialRedis(ctx, cfg.Session.RedisAddr, cfg.Session.RedisDB, cfg.GetSessionTTL())
		if err != nil {
			a.Close()
			return nil, err
		}
		a.sessions = rs
		a.closers = append(a.closers, rs.Close)
	default:
		a.sessions = session.NewMemoryStore()
	}

	ref := refdata.NewClient(cfg.Integrations.ReferenceData)
	flags := store.NewFlagStore(docs, map[string]bool{
		types.Rule3C: cfg.Validation.Blocking3C,
		types.Rule3D: cfg.Validation.Blocking3D,
		types.Rule4A: cfg.Validation.Blocking4A,
	})
	notifier := notify.NewNotifier(
		notify.NewMailClient(cfg.Integrations.Notification),
		notify.NewBlobClient(cfg.Integrations.Artifact),
		cfg.Notifications,
	)

	a.payloads = payload.NewService(docs, a.sessions)
	a.validator = landings.NewValidator(ref, docs)
	a.tasks = tasks.NewRunner()
	a.orchestrator = certificate.New(certificate.ConfigFrom(cfg.Validation), certificate.Deps{
		Docs:       docs,
		Errors:     session.NewErrorStore(a.sessions),
		Overlay:    a.payloads,
		RefData:    ref,
		RuleEngine: ruleengine.NewClient(cfg.Integrations.RuleEngine),
		Flags:      flags,
		Artifacts:  artifact.NewClient(cfg.Integrations.Artifact),
		Notifier:   notifier,
		Reporter:   notify.NewReportClient(cfg.Integrations.Reporting),
		Tasks:      a.tasks,
	})

	logging.Boot("certd wired (store=%s/%s, session=%s)", cfg.Storage.Driver, cfg.Storage.DatabasePath, cfg.Session.Backend)
	return a, nil
}

// server returns the HTTP API over the wired services.
func (a *app) server() *api.Server {
	return api.NewServer(a.payloads, a.validator, a.orchestrator)
}

// Close waits for background tasks and releases the stores in reverse order.
func (a *app) Close() error {
	if a.tasks != nil {
		a.tasks.Wait()
		started, failed := a.tasks.Stats()
		logging.Boot("Background tasks drained: %d started, %d failed", started, failed)
	}
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = fmt.Errorf("close: %w", err)
		}
	}
	return first
}
