// Package notifications maintains the capped alert log and fans alerts out
// to the platform notifier.
package notifications

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/mechflow/mechflow-backend/pkg/alerts"
	"github.com/mechflow/mechflow-backend/pkg/enums"
	pkgerrors "github.com/mechflow/mechflow-backend/pkg/errors"
	"github.com/mechflow/mechflow-backend/pkg/events"
	"github.com/mechflow/mechflow-backend/pkg/kv"
	"github.com/mechflow/mechflow-backend/pkg/logger"
	"github.com/mechflow/mechflow-backend/pkg/metrics"
	"github.com/mechflow/mechflow-backend/pkg/models"
)

// maxEntries caps the log; the oldest entries are evicted first.
const maxEntries = 50

const displayTimeLayout = "Jan 2, 2006 3:04 PM"

// Service exposes notification log operations.
type Service interface {
	Add(ctx context.Context, params AddParams) (models.Notification, error)
	List(ctx context.Context, role enums.Role, email string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// AddParams describes a new log entry. Email is set only for
// customer-targeted entries.
type AddParams struct {
	Role    enums.Role
	Type    enums.NotificationType
	Title   string
	Message string
	Data    map[string]any
	Email   string
}

type service struct {
	mu       sync.Mutex
	store    kv.Store
	bus      *events.Bus
	notifier alerts.Notifier
	mets     *metrics.StoreMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the notification log dependencies. The notifier may be
// alerts.Noop for environments without an alerting capability.
func NewService(store kv.Store, bus *events.Bus, notifier alerts.Notifier, mets *metrics.StoreMetrics, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "kv store required")
	}
	if bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "event bus required")
	}
	if notifier == nil {
		notifier = alerts.Noop{}
	}
	return &service{
		store:    store,
		bus:      bus,
		notifier: notifier,
		mets:     mets,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Add(ctx context.Context, params AddParams) (models.Notification, error) {
	if !params.Role.IsValid() {
		return models.Notification{}, pkgerrors.New(pkgerrors.CodeValidation, "notification role required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.load(ctx)
	if err != nil {
		return models.Notification{}, err
	}

	now := s.now()
	notification := models.Notification{
		ID:        "NOTIF-" + strconv.FormatInt(now.UnixMilli(), 10),
		Role:      params.Role,
		Type:      params.Type,
		Title:     params.Title,
		Message:   params.Message,
		Data:      params.Data,
		Time:      now.Format(displayTimeLayout),
		Timestamp: now.UnixMilli(),
		Email:     params.Email,
	}

	log = append([]models.Notification{notification}, log...)
	if len(log) > maxEntries {
		log = log[:maxEntries]
	}

	if err := kv.SaveJSON(ctx, s.store, kv.KeyNotifications, log); err != nil {
		return models.Notification{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write notifications")
	}
	s.mets.IncMutation("notifications")
	s.bus.Publish(ctx, events.Event{Name: events.NotificationAdded, Payload: notification})
	s.deliverAlert(ctx, notification)

	return notification, nil
}

// deliverAlert is best effort: missing capability or a refused delivery
// never fails the mutation.
func (s *service) deliverAlert(ctx context.Context, notification models.Notification) {
	if err := s.notifier.Notify(ctx, notification.Title, notification.Message); err != nil {
		s.mets.IncAlert("skipped")
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "notification_id", notification.ID), "alerts.delivery_skipped")
		}
		return
	}
	s.mets.IncAlert("delivered")
}

func (s *service) List(ctx context.Context, role enums.Role, email string) ([]models.Notification, error) {
	log, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]models.Notification, 0, len(log))
	for _, notification := range log {
		switch role {
		case enums.RoleMechanic:
			if notification.Role == enums.RoleMechanic {
				matches = append(matches, notification)
			}
		case enums.RoleCustomer:
			if notification.Role == enums.RoleCustomer && notification.Email == email {
				matches = append(matches, notification)
			}
		}
	}
	return matches, nil
}

func (s *service) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.load(ctx)
	if err != nil {
		return err
	}

	for i := range log {
		if log[i].ID != id {
			continue
		}
		log[i].Read = true
		if err := kv.SaveJSON(ctx, s.store, kv.KeyNotifications, log); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write notifications")
		}
		s.mets.IncMutation("notifications")
		s.bus.Publish(ctx, events.Event{Name: events.NotificationUpdated, Payload: log[i]})
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
}

func (s *service) load(ctx context.Context) ([]models.Notification, error) {
	var log []models.Notification
	if _, err := kv.LoadJSON(ctx, s.store, kv.KeyNotifications, &log); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read notifications")
	}
	return log, nil
}
