package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"erpadmin/internal/lock"
	"erpadmin/internal/metrics"
	"erpadmin/internal/repository"
	"erpadmin/internal/websocket"
	pkgerrors "erpadmin/pkg/errors"
	"erpadmin/pkg/logger"
	"erpadmin/pkg/pagination"

	"gorm.io/gorm"
)

// Infra bundles the collaborators shared by every write path.
type Infra struct {
	Tx      repository.TransactionManager
	Audit   AuditService
	Locker  lock.Locker
	Events  websocket.Publisher
	Metrics *metrics.Metrics
	Log     *logger.Logger
	Now     func() time.Time
}

func (i Infra) now() time.Time {
	if i.Now != nil {
		return i.Now().UTC()
	}
	return time.Now().UTC()
}

func (i Infra) logger() *logger.Logger {
	if i.Log == nil {
		return logger.Nop()
	}
	return i.Log
}

func (i Infra) publish(ctx context.Context, eventType string, payload any) {
	if i.Events == nil {
		return
	}
	i.Events.Publish(ctx, eventType, payload)
}

// withLock runs fn while holding the record lock for kind/id.
func (i Infra) withLock(ctx context.Context, kind, id string, fn func() error) error {
	if i.Locker == nil {
		return fn()
	}
	release, err := i.Locker.Acquire(ctx, lock.Key(kind, id))
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			i.Metrics.IncLockTimeout(kind)
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("%s %s is being modified, retry later", kind, id))
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "acquire record lock")
	}
	defer func() {
		if err := release(); err != nil {
			i.logger().Error(i.logger().WithField(ctx, "lock", lock.Key(kind, id)), "lock.release_failed", err)
		}
	}()
	return fn()
}

// storageError maps repository failures onto coded errors. Errors that are
// already coded pass through.
func storageError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", entity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, entity+" already exists")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing "+entity)
	}
}

func invalid(format string, args ...any) error {
	return pkgerrors.Newf(pkgerrors.CodeValidation, format, args...)
}

func normalizePage(page, limit int) (int, int) {
	p := pagination.Normalize(page, limit)
	return p.Page, p.Limit
}
