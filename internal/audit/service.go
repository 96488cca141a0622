// Package audit keeps the device-history and security-log trails. Both are
// append-only from the caller's view and capped to the newest entries.
package audit

import (
	"context"
	"strconv"
	"sync"
	"time"

	pkgerrors "github.com/mechflow/mechflow-backend/pkg/errors"
	"github.com/mechflow/mechflow-backend/pkg/kv"
	"github.com/mechflow/mechflow-backend/pkg/metrics"
	"github.com/mechflow/mechflow-backend/pkg/models"
)

// maxEntries caps each trail; oldest entries are evicted first.
const maxEntries = 50

const timeLayout = "Jan 2, 2006 3:04:05 PM"

// Service exposes the audit trails.
type Service interface {
	RecordDevice(ctx context.Context, params DeviceParams) (models.DeviceRecord, error)
	DeviceHistory(ctx context.Context) ([]models.DeviceRecord, error)
	RecordSecurityEvent(ctx context.Context, params SecurityParams) error
	SecurityLog(ctx context.Context) ([]models.SecurityLogEntry, error)
}

// DeviceParams describes the client that just authenticated.
type DeviceParams struct {
	UserAgent string
	Platform  string
	Language  string
	Portal    string
}

// SecurityParams describes an auth-related action worth logging.
type SecurityParams struct {
	Action     string
	Identifier string
	RemoteAddr string
	Portal     string
}

type service struct {
	mu    sync.Mutex
	store kv.Store
	mets  *metrics.StoreMetrics
	now   func() time.Time
}

// NewService wires the audit-trail dependencies.
func NewService(store kv.Store, mets *metrics.StoreMetrics) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "kv store required")
	}
	return &service{store: store, mets: mets, now: time.Now}, nil
}

func (s *service) RecordDevice(ctx context.Context, params DeviceParams) (models.DeviceRecord, error) {
	if params.UserAgent == "" {
		return models.DeviceRecord{}, pkgerrors.New(pkgerrors.CodeValidation, "user agent required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var history []models.DeviceRecord
	if _, err := kv.LoadJSON(ctx, s.store, kv.KeyDeviceHistory, &history); err != nil {
		return models.DeviceRecord{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read device history")
	}

	now := s.now()
	record := models.DeviceRecord{
		ID:        "DEV-" + strconv.FormatInt(now.UnixMilli(), 10),
		UserAgent: params.UserAgent,
		Platform:  params.Platform,
		Language:  params.Language,
		Portal:    params.Portal,
		Time:      now.Format(timeLayout),
	}

	history = append([]models.DeviceRecord{record}, history...)
	if len(history) > maxEntries {
		history = history[:maxEntries]
	}

	if err := kv.SaveJSON(ctx, s.store, kv.KeyDeviceHistory, history); err != nil {
		return models.DeviceRecord{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write device history")
	}
	s.mets.IncMutation("device_history")
	return record, nil
}

func (s *service) DeviceHistory(ctx context.Context) ([]models.DeviceRecord, error) {
	var history []models.DeviceRecord
	if _, err := kv.LoadJSON(ctx, s.store, kv.KeyDeviceHistory, &history); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read device history")
	}
	return history, nil
}

func (s *service) RecordSecurityEvent(ctx context.Context, params SecurityParams) error {
	if params.Action == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "action required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var log []models.SecurityLogEntry
	if _, err := kv.LoadJSON(ctx, s.store, kv.KeySecurityLogs, &log); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read security log")
	}

	entry := models.SecurityLogEntry{
		Action:     params.Action,
		Identifier: params.Identifier,
		RemoteAddr: params.RemoteAddr,
		Portal:     params.Portal,
		Time:       s.now().Format(timeLayout),
	}

	log = append([]models.SecurityLogEntry{entry}, log...)
	if len(log) > maxEntries {
		log = log[:maxEntries]
	}

	if err := kv.SaveJSON(ctx, s.store, kv.KeySecurityLogs, log); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write security log")
	}
	s.mets.IncMutation("security_logs")
	return nil
}

func (s *service) SecurityLog(ctx context.Context) ([]models.SecurityLogEntry, error) {
	var log []models.SecurityLogEntry
	if _, err := kv.LoadJSON(ctx, s.store, kv.KeySecurityLogs, &log); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read security log")
	}
	return log, nil
}
