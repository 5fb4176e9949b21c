package repository

import (
	"errors"
	"fmt"
	"time"

	"hr_vacation_go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrInsufficientBalance 表示年度可用天数不足以覆盖本次申请。
	ErrInsufficientBalance = errors.New("insufficient vacation balance")
	// ErrRequestNotPending 表示申请已不处于 PENDING 状态，终态不可再迁移。
	ErrRequestNotPending = errors.New("vacation request is not pending")
	// ErrBalanceNotFound 表示该用户当年没有余额记录。
	ErrBalanceNotFound = errors.New("vacation balance not found")
)

// VacationRepository 定义请假申请与年度余额的持久化操作接口。
//
// 申请状态迁移与余额计数器变动必须一起生效，因此写路径都封装为
// 单个事务方法，并对余额行加 SELECT ... FOR UPDATE 锁：
// 同一用户的并发申请会在行锁上串行化，消除"两次读到同一 available、
// 双双成功导致超卖"的丢失更新竞态。这是对原始设计的显式加强。
type VacationRepository interface {
	// CreateRequestReservingDays 在一个事务中校验并预留余额天数，然后落库申请：
	// 锁定 (requester, year) 的余额行 -> 可用天数不足返回 ErrInsufficientBalance
	// -> pending += totalDays 并重算 available -> 插入 PENDING 申请。
	// 余额记录不存在时返回 ErrBalanceNotFound。
	CreateRequestReservingDays(request *model.VacationRequest, year int) error

	// ResolveRequest 审批终局（APPROVED / REJECTED）：
	// 锁定申请行 -> 非 PENDING 返回 ErrRequestNotPending -> 写入终态、审批意见、
	// 判定时间 -> 锁定创建年度的余额行 -> 批准则 pending 转 used，驳回则退回可用池。
	ResolveRequest(requestID, status, comment string, now time.Time) (*model.VacationRequest, error)

	// CancelRequest 申请人撤销：同 ResolveRequest 的事务结构，
	// 状态置 CANCELLED，天数走与驳回相同的退回路径。
	CancelRequest(requestID string, now time.Time) (*model.VacationRequest, error)

	FindRequestByID(id string) (*model.VacationRequest, error)
	// FindByRequester 按创建时间倒序（最新在前）。
	FindByRequester(requesterID uint) ([]model.VacationRequest, error)
	// FindPendingBySupervisor 按创建时间正序（最早在前），近似先到先审。
	FindPendingBySupervisor(supervisorID uint) ([]model.VacationRequest, error)
	// FindAllRequests 按创建时间倒序。
	FindAllRequests() ([]model.VacationRequest, error)

	CreateBalance(balance *model.VacationBalance) error
	FindBalance(userID uint, year int) (*model.VacationBalance, error)
	FindAllBalances() ([]model.VacationBalance, error)
	// UpdateBalanceTotal 在事务中锁定余额行并重设总天数。
	// 新总数低于 used + pending 时返回 model.ErrBalanceExceeded。
	UpdateBalanceTotal(userID uint, year, totalDays int, updatedBy string) (*model.VacationBalance, error)
}

// vacationRepository 请假申请与余额仓库实现
type vacationRepository struct {
	db *gorm.DB
}

func NewVacationRepository(db *gorm.DB) VacationRepository {
	return &vacationRepository{db: db}
}

// lockBalance 在事务内对 (userID, year) 的余额行加排他锁。
func lockBalance(tx *gorm.DB, userID uint, year int) (*model.VacationBalance, error) {
	var balance model.VacationBalance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND year = ?", userID, year).
		First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// saveBalanceCounters 回写计数器字段和操作者。
func saveBalanceCounters(tx *gorm.DB, balance *model.VacationBalance) error {
	return tx.Model(&model.VacationBalance{}).
		Where("id = ?", balance.ID).
		Updates(map[string]interface{}{
			"total_days":     balance.TotalDays,
			"used_days":      balance.UsedDays,
			"pending_days":   balance.PendingDays,
			"available_days": balance.AvailableDays,
			"updated_by":     balance.UpdatedBy,
		}).Error
}

func (r *vacationRepository) CreateRequestReservingDays(request *model.VacationRequest, year int) error {
	if request == nil {
		return fmt.Errorf("vacation request is nil")
	}
	if request.ID == "" {
		return fmt.Errorf("request id is required")
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		balance, err := lockBalance(tx, request.RequesterID, year)
		if err != nil {
			return err
		}

		// 行锁之内复核余额，杜绝并发创建导致的超卖。
		if !balance.CanReserve(request.TotalDays) {
			return ErrInsufficientBalance
		}

		balance.Reserve(request.TotalDays)
		if err := saveBalanceCounters(tx, balance); err != nil {
			return err
		}

		return tx.Create(request).Error
	})
}

func (r *vacationRepository) ResolveRequest(requestID, status, comment string, now time.Time) (*model.VacationRequest, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request id is required")
	}
	if status != model.VacationStatusApproved && status != model.VacationStatusRejected {
		return nil, fmt.Errorf("invalid resolution status: %s", status)
	}

	var request model.VacationRequest
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", requestID).
			First(&request).Error; err != nil {
			return err
		}
		if request.Status != model.VacationStatusPending {
			return ErrRequestNotPending
		}

		if err := tx.Model(&model.VacationRequest{}).
			Where("id = ?", requestID).
			Updates(map[string]interface{}{
				"status":             status,
				"supervisor_comment": comment,
				"resolved_at":        now,
				"updated_at":         now,
			}).Error; err != nil {
			return err
		}

		// 退回/核销的是创建时扣减的那一行余额（按创建年度定位）。
		balance, err := lockBalance(tx, request.RequesterID, request.CreatedAt.Year())
		if err != nil {
			return err
		}
		if status == model.VacationStatusApproved {
			balance.Consume(request.TotalDays)
		} else {
			balance.Release(request.TotalDays)
		}
		if err := saveBalanceCounters(tx, balance); err != nil {
			return err
		}

		request.Status = status
		request.SupervisorComment = comment
		request.ResolvedAt = &now
		request.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *vacationRepository) CancelRequest(requestID string, now time.Time) (*model.VacationRequest, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request id is required")
	}

	var request model.VacationRequest
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", requestID).
			First(&request).Error; err != nil {
			return err
		}
		if request.Status != model.VacationStatusPending {
			return ErrRequestNotPending
		}

		if err := tx.Model(&model.VacationRequest{}).
			Where("id = ?", requestID).
			Updates(map[string]interface{}{
				"status":     model.VacationStatusCancelled,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		balance, err := lockBalance(tx, request.RequesterID, request.CreatedAt.Year())
		if err != nil {
			return err
		}
		balance.Release(request.TotalDays)
		if err := saveBalanceCounters(tx, balance); err != nil {
			return err
		}

		request.Status = model.VacationStatusCancelled
		request.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *vacationRepository) FindRequestByID(id string) (*model.VacationRequest, error) {
	if id == "" {
		return nil, fmt.Errorf("request id is required")
	}

	var request model.VacationRequest
	if err := r.db.Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *vacationRepository) FindByRequester(requesterID uint) ([]model.VacationRequest, error) {
	var requests []model.VacationRequest
	if err := r.db.Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *vacationRepository) FindPendingBySupervisor(supervisorID uint) ([]model.VacationRequest, error) {
	var requests []model.VacationRequest
	if err := r.db.Where("supervisor_id = ? AND status = ?", supervisorID, model.VacationStatusPending).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *vacationRepository) FindAllRequests() ([]model.VacationRequest, error) {
	var requests []model.VacationRequest
	if err := r.db.Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *vacationRepository) CreateBalance(balance *model.VacationBalance) error {
	if balance == nil {
		return fmt.Errorf("vacation balance is nil")
	}
	return r.db.Create(balance).Error
}

func (r *vacationRepository) FindBalance(userID uint, year int) (*model.VacationBalance, error) {
	var balance model.VacationBalance
	err := r.db.Where("user_id = ? AND year = ?", userID, year).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, err
	}
	return &balance, nil
}

func (r *vacationRepository) FindAllBalances() ([]model.VacationBalance, error) {
	var balances []model.VacationBalance
	if err := r.db.Order("year DESC, user_id ASC").Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

func (r *vacationRepository) UpdateBalanceTotal(userID uint, year, totalDays int, updatedBy string) (*model.VacationBalance, error) {
	var result *model.VacationBalance
	err := r.db.Transaction(func(tx *gorm.DB) error {
		balance, err := lockBalance(tx, userID, year)
		if err != nil {
			return err
		}
		if err := balance.SetTotal(totalDays); err != nil {
			return err
		}
		balance.UpdatedBy = updatedBy
		if err := saveBalanceCounters(tx, balance); err != nil {
			return err
		}
		result = balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
