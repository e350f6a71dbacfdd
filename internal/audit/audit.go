package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Action names the security event being recorded
type Action string

const (
	ActionLogin             Action = "login"
	ActionLoginFailed       Action = "login_failed"
	ActionTokenRefresh      Action = "token_refresh"
	ActionRefreshRenewed    Action = "refresh_token_renewed"
	ActionUserRegistered    Action = "user_registered"
	ActionKeyRotated        Action = "key_rotated"
	ActionPermissionChanged Action = "permission_changed"
)

// Status represents the outcome of an action
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

const defaultWriteTimeout = 2 * time.Second

// Event represents an audit event
type Event struct {
	ID           uuid.UUID      `json:"id"`
	Action       Action         `json:"action"`
	Status       Status         `json:"status"`
	Subject      string         `json:"subject,omitempty"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	RequestID    string         `json:"requestId,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ErrorMessage string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// Store persists events.
type Store interface {
	Insert(ctx context.Context, event *Event) error
	Query(ctx context.Context, filter QueryFilter) ([]*Event, error)
}

// Logger writes events in the background so a slow store never delays a
// response. Wait blocks until pending writes have finished.
type Logger struct {
	store   Store
	log     logrus.FieldLogger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewLogger(store Store, log logrus.FieldLogger) *Logger {
	return &Logger{store: store, log: log, timeout: defaultWriteTimeout}
}

// Log records an audit event synchronously
func (l *Logger) Log(ctx context.Context, event *Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return l.store.Insert(ctx, event)
}

// Record logs an event built from the request asynchronously.
func (l *Logger) Record(c echo.Context, action Action, status Status, subject string, metadata map[string]any) {
	l.dispatch(fromRequest(c, action, status, subject, metadata))
}

// RecordError logs a failed action with the error text.
func (l *Logger) RecordError(c echo.Context, action Action, subject string, err error) {
	event := fromRequest(c, action, StatusFailure, subject, nil)
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	l.dispatch(event)
}

func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]*Event, error) {
	return l.store.Query(ctx, filter)
}

func (l *Logger) Wait() {
	l.wg.Wait()
}

func (l *Logger) dispatch(event *Event) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()
		if err := l.Log(ctx, event); err != nil {
			l.log.WithError(err).WithField("action", event.Action).Error("audit log failed")
		}
	}()
}

func fromRequest(c echo.Context, action Action, status Status, subject string, metadata map[string]any) *Event {
	return &Event{
		Action:    action,
		Status:    status,
		Subject:   subject,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
		Metadata:  metadata,
	}
}

// QueryFilter narrows Query; zero fields do not filter.
type QueryFilter struct {
	Subject   string
	Action    Action
	Status    Status
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

const defaultQueryLimit = 100

// whereClause builds the shared filter for Query starting at placeholder $1.
func (f QueryFilter) whereClause() (string, []any) {
	clause := " WHERE 1=1"
	args := []any{}
	add := func(column, op string, v any) {
		args = append(args, v)
		clause += fmt.Sprintf(" AND %s %s $%d", column, op, len(args))
	}

	if f.Subject != "" {
		add("subject", "=", f.Subject)
	}
	if f.Action != "" {
		add("action", "=", f.Action)
	}
	if f.Status != "" {
		add("status", "=", f.Status)
	}
	if f.StartTime != nil {
		add("created_at", ">=", *f.StartTime)
	}
	if f.EndTime != nil {
		add("created_at", "<=", *f.EndTime)
	}

	clause += " ORDER BY created_at DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	args = append(args, limit)
	clause += fmt.Sprintf(" LIMIT $%d", len(args))

	if f.Offset > 0 {
		args = append(args, f.Offset)
		clause += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return clause, args
}

func encodeMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	return json.Marshal(metadata)
}
