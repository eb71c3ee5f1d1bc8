package app

import (
	"time"

	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/linkupcampus/linkup/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Auditor records marketplace writes. Without a database it only logs.
type Auditor struct {
	db *gorm.DB
}

func NewAuditor(db *gorm.DB) *Auditor {
	return &Auditor{db: db}
}

func (a *Auditor) Record(ev Event) {
	zap.L().Info("audit",
		zap.String("action", ev.Action),
		zap.String("actor", ev.Actor),
		zap.String("ip", ev.IP),
		zap.String("target", ev.Target))
	if a.db == nil {
		return
	}
	desc := ev.Detail
	if ev.Target != "" {
		desc = ev.Target + " " + desc
	}
	if err := a.db.Create(&domain.OprLog{
		ID:        common.UUIDint64(),
		OprName:   ev.Actor,
		OprIp:     ev.IP,
		OptAction: ev.Action,
		OptDesc:   desc,
		OptTime:   time.Now(),
	}).Error; err != nil {
		zap.L().Error("write audit log failed", zap.Error(err))
	}
}

// Purge deletes entries older than keepDays.
func (a *Auditor) Purge(keepDays int) int64 {
	if a.db == nil || keepDays <= 0 {
		return 0
	}
	res := a.db.Where("opt_time < ?", time.Now().Add(-time.Hour*24*time.Duration(keepDays))).
		Delete(&domain.OprLog{})
	if res.Error != nil {
		zap.L().Error("purge audit log failed", zap.Error(res.Error))
		return 0
	}
	return res.RowsAffected
}

// Recent returns the latest audit entries, newest first.
func (a *Auditor) Recent(limit int) ([]domain.OprLog, error) {
	if a.db == nil {
		return []domain.OprLog{}, nil
	}
	var logs []domain.OprLog
	err := a.db.Order("opt_time DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
