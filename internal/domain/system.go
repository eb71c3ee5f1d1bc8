package domain

import (
	"time"
)

// OprLog is the local audit trail of marketplace writes.
type OprLog struct {
	ID        int64     `json:"id,string" gorm:"primaryKey"`
	OprName   string    `json:"opr_name" gorm:"index"`
	OprIp     string    `json:"opr_ip"`
	OptAction string    `json:"opt_action" gorm:"index"`
	OptDesc   string    `json:"opt_desc"`
	OptTime   time.Time `json:"opt_time" gorm:"index"`
}

// TableName Specify table name
func (OprLog) TableName() string {
	return "linkup_opr_log"
}

// Audit actions
const (
	ActionSignup        = "signup"
	ActionLogin         = "login"
	ActionServiceCreate = "service_create"
	ActionServiceUpdate = "service_update"
	ActionServiceDelete = "service_delete"
	ActionServiceRate   = "service_rate"
	ActionImageUpload   = "image_upload"
)
