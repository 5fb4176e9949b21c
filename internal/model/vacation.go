package model

import (
	"errors"
	"math"
	"time"
)

// 请假类型枚举，持久化为字符串。
const (
	VacationTypeVacation      = "VACATION"
	VacationTypePersonalLeave = "PERSONAL_LEAVE"
	VacationTypeSickLeave     = "SICK_LEAVE"
	VacationTypeMaternity     = "MATERNITY"
	VacationTypeOther         = "OTHER"
)

// 申请状态机：PENDING -> {APPROVED, REJECTED, CANCELLED}。
// 三个目标状态都是终态，进入后不允许任何后续迁移。
const (
	VacationStatusPending   = "PENDING"
	VacationStatusApproved  = "APPROVED"
	VacationStatusRejected  = "REJECTED"
	VacationStatusCancelled = "CANCELLED"
)

// ErrBalanceExceeded 表示管理员把总天数调到低于 used + pending，余额会变负。
var ErrBalanceExceeded = errors.New("total days below used plus pending days")

// IsValidVacationType 检查请假类型是否为枚举值之一。
func IsValidVacationType(t string) bool {
	switch t {
	case VacationTypeVacation, VacationTypePersonalLeave, VacationTypeSickLeave,
		VacationTypeMaternity, VacationTypeOther:
		return true
	}
	return false
}

// VacationRequest 对应数据库中 vacation_requests 表，每条请假申请一条记录。
// SupervisorID/SupervisorEmail 是创建时解析出的审批人（上级的用户 ID），
// 之后不再变化：后续的组织调整不会改变既有申请的审批人。
type VacationRequest struct {
	ID                string     `gorm:"type:varchar(64);primaryKey" json:"id"`
	RequesterID       uint       `gorm:"not null;index" json:"requesterId"`
	RequesterEmail    string     `gorm:"type:varchar(255);not null" json:"requesterEmail"`
	RequesterName     string     `gorm:"type:varchar(255);not null" json:"requesterName"`
	SupervisorID      uint       `gorm:"not null;index" json:"supervisorId"`
	SupervisorEmail   string     `gorm:"type:varchar(255);not null" json:"supervisorEmail"`
	StartDate         string     `gorm:"type:varchar(10);not null" json:"startDate"`
	EndDate           string     `gorm:"type:varchar(10);not null" json:"endDate"`
	TotalDays         int        `gorm:"not null" json:"totalDays"`
	Type              string     `gorm:"type:varchar(32);not null" json:"type"`
	Reason            string     `gorm:"type:varchar(1024)" json:"reason,omitempty"`
	Status            string     `gorm:"type:varchar(16);not null;index" json:"status"`
	SupervisorComment string     `gorm:"type:varchar(1024)" json:"supervisorComment,omitempty"`
	ResolvedAt        *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定 GORM 使用的表名
func (VacationRequest) TableName() string {
	return "vacation_requests"
}

// VacationBalance 对应数据库中 vacation_balances 表，每个（用户，年度）一条记录。
// AvailableDays 是派生值（total - used - pending），冗余持久化以便直接读取。
// 每次计数器变动后都必须重新计算，保持不变量成立。
type VacationBalance struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_balance_user_year" json:"userId"`
	UserEmail     string    `gorm:"type:varchar(255);not null" json:"userEmail"`
	UserName      string    `gorm:"type:varchar(255);not null" json:"userName"`
	TotalDays     int       `gorm:"not null" json:"totalDays"`
	UsedDays      int       `gorm:"not null;default:0" json:"usedDays"`
	PendingDays   int       `gorm:"not null;default:0" json:"pendingDays"`
	AvailableDays int       `gorm:"not null" json:"availableDays"`
	Year          int       `gorm:"not null;uniqueIndex:idx_balance_user_year" json:"year"`
	UpdatedBy     string    `gorm:"type:varchar(255);not null" json:"updatedBy"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定 GORM 使用的表名
func (VacationBalance) TableName() string {
	return "vacation_balances"
}

// recompute 按不变量 available = total - used - pending 重算派生值。
func (b *VacationBalance) recompute() {
	b.AvailableDays = b.TotalDays - b.UsedDays - b.PendingDays
}

// CanReserve 判断可用天数是否足够预留 days 天。
func (b *VacationBalance) CanReserve(days int) bool {
	return b.AvailableDays >= days
}

// Reserve 把 days 天计入 pending（申请创建）。
// 调用方必须先用 CanReserve 校验余额充足。
func (b *VacationBalance) Reserve(days int) {
	b.PendingDays += days
	b.recompute()
}

// Consume 把 days 天从 pending 转入 used（申请批准）。
// pending 减法按规则下限截断到 0。
func (b *VacationBalance) Consume(days int) {
	b.PendingDays -= days
	if b.PendingDays < 0 {
		b.PendingDays = 0
	}
	b.UsedDays += days
	b.recompute()
}

// Release 把 days 天从 pending 退回可用池（申请被拒绝或撤销）。
// pending 减法按规则下限截断到 0。
func (b *VacationBalance) Release(days int) {
	b.PendingDays -= days
	if b.PendingDays < 0 {
		b.PendingDays = 0
	}
	b.recompute()
}

// SetTotal 管理员重设年度总天数并重算可用天数。
// 总天数不允许低于 used + pending（可用天数不能为负），违反时返回 ErrBalanceExceeded。
func (b *VacationBalance) SetTotal(totalDays int) error {
	if totalDays < b.UsedDays+b.PendingDays {
		return ErrBalanceExceeded
	}
	b.TotalDays = totalDays
	b.recompute()
	return nil
}

// DateLayout 是申请起止日期的存储格式。
const DateLayout = "2006-01-02"

// InclusiveDays 计算两个日期之间的包含式天数：起止两端都算在内，
// 同一天的申请记 1 天。差值取绝对值，起止顺序颠倒时不报错，
// 沿用"由调用方保证 start <= end"的宽松语义。
func InclusiveDays(start, end time.Time) int {
	diff := math.Abs(end.Sub(start).Hours() / 24)
	return int(math.Ceil(diff)) + 1
}
