package model

// AccessLog 访问日志，票据安全事件也写入此表
type AccessLog struct {
	BaseModel
	UserID    string `gorm:"column:userid;type:varchar(50);index" json:"userid"`
	Action    string `gorm:"type:varchar(100);index;not null" json:"action"`
	Target    string `gorm:"column:table_name;type:varchar(50)" json:"table_name,omitempty"`
	RecordID  string `gorm:"type:varchar(50)" json:"record_id,omitempty"`
	Detail    string `gorm:"type:varchar(500)" json:"detail,omitempty"`
	IPAddress string `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent string `gorm:"type:varchar(500)" json:"user_agent"`
}

// TableName 指定表名
func (AccessLog) TableName() string {
	return "access_logs"
}
