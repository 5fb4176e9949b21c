package repository

import (
	"errors"
	"testing"
	"time"

	"hr_vacation_go/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockVacationRepo(t *testing.T) (VacationRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open() error: %v", err)
	}

	return NewVacationRepository(gdb), mock
}

func balanceRows(userID uint, year, total, used, pending int) *sqlmock.Rows {
	now := time.Now()
	available := total - used - pending
	return sqlmock.NewRows([]string{
		"id", "user_id", "user_email", "user_name", "total_days", "used_days", "pending_days", "available_days", "year", "updated_by", "created_at", "updated_at",
	}).AddRow(1, userID, "emp@example.com", "Employee", total, used, pending, available, year, "99", now, now)
}

func requestRows(id, status string, totalDays int, createdAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "requester_id", "requester_email", "requester_name", "supervisor_id", "supervisor_email",
		"start_date", "end_date", "total_days", "type", "reason", "status", "supervisor_comment", "resolved_at", "created_at", "updated_at",
	}).AddRow(id, 1, "emp@example.com", "Employee", 2, "lead@example.com",
		"2025-06-10", "2025-06-12", totalDays, model.VacationTypeVacation, "", status, "", nil, createdAt, createdAt)
}

func pendingRequest(id string, days int) *model.VacationRequest {
	return &model.VacationRequest{
		ID:              id,
		RequesterID:     1,
		RequesterEmail:  "emp@example.com",
		RequesterName:   "Employee",
		SupervisorID:    2,
		SupervisorEmail: "lead@example.com",
		StartDate:       "2025-06-10",
		EndDate:         "2025-06-12",
		TotalDays:       days,
		Type:            model.VacationTypeVacation,
		Status:          model.VacationStatusPending,
	}
}

// TestVacationRepository_CreateRequestReservingDays 验证创建路径在一个事务里
// 先锁余额行、预留天数、再落库申请。
func TestVacationRepository_CreateRequestReservingDays(t *testing.T) {
	repo, mock := newMockVacationRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `vacation_balances` WHERE user_id = \\? AND year = \\? .*FOR UPDATE").
		WithArgs(1, 2025, 1).
		WillReturnRows(balanceRows(1, 2025, 10, 0, 0))
	mock.ExpectExec("UPDATE `vacation_balances` SET .* WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `vacation_requests`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.CreateRequestReservingDays(pendingRequest("req-1", 3), 2025); err != nil {
		t.Fatalf("CreateRequestReservingDays() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVacationRepository_CreateRequestReservingDays_Insufficient(t *testing.T) {
	repo, mock := newMockVacationRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `vacation_balances` WHERE user_id = \\? AND year = \\? .*FOR UPDATE").
		WithArgs(1, 2025, 1).
		WillReturnRows(balanceRows(1, 2025, 10, 5, 3))
	mock.ExpectRollback()

	err := repo.CreateRequestReservingDays(pendingRequest("req-1", 3), 2025)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVacationRepository_CreateRequestReservingDays_NoBalance(t *testing.T) {
	repo, mock := newMockVacationRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `vacation_balances` WHERE user_id = \\? AND year = \\? .*FOR UPDATE").
		WithArgs(1, 2025, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.CreateRequestReservingDays(pendingRequest("req-1", 3), 2025)
	if !errors.Is(err, ErrBalanceNotFound) {
		t.Fatalf("expected ErrBalanceNotFound, got: %v", err)
	}
}

func TestVacationRepository_ResolveRequest_Approve(t *testing.T) {
	repo, mock := newMockVacationRepo(t)

	createdAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `vacation_requests` WHERE id = \\? .*FOR UPDATE").
		WithArgs("req-1", 1).
		WillReturnRows(requestRows("req-1", model.VacationStatusPending, 3, createdAt))
	mock.ExpectExec("UPDATE `vacation_requests` SET .* WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .* FROM `vacation_balances` WHERE user_id = \\? AND year = \\? .*FOR UPDATE").
		WithArgs(1, 2025, 1).
		WillReturnRows(balanceRows(1, 2025, 10, 0, 3))
	mock.ExpectExec("UPDATE `vacation_balances` SET .* WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	resolved, err := repo.ResolveRequest("req-1", model.VacationStatusApproved, "ok", now)
	if err != nil {
		t.Fatalf("ResolveRequest() error: %v", err)
	}
	if resolved.Status != model.VacationStatusApproved || resolved.SupervisorComment != "ok" {
		t.Fatalf("unexpected resolved request: %+v", resolved)
	}
	if resolved.ResolvedAt == nil || !resolved.ResolvedAt.Equal(now) {
		t.Fatalf("resolved_at not set: %+v", resolved.ResolvedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVacationRepository_ResolveRequest_NotPending(t *testing.T) {
	repo, mock := newMockVacationRepo(t)

	createdAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `vacation_requests` WHERE id = \\? .*FOR UPDATE").
		WithArgs("req-1", 1).
		WillReturnRows(requestRows("req-1", model.VacationStatusApproved, 3, createdAt))
	mock.ExpectRollback()

	_, err := repo.ResolveRequest("req-1", model.VacationStatusRejected, "", time.Now())
	if !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("expected ErrRequestNotPending, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVacationRepository_ResolveRequest_InvalidStatus(t *testing.T) {
	repo, _ := newMockVacationRepo(t)

	if _, err := repo.ResolveRequest("req-1", model.VacationStatusCancelled, "", time.Now()); err == nil {
		t.Fatalf("CANCELLED is not a resolution status, expect error")
	}
}

func TestVacationRepository_CancelRequest(t *testing.T) {
	repo, mock := newMockVacationRepo(t)

	createdAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `vacation_requests` WHERE id = \\? .*FOR UPDATE").
		WithArgs("req-1", 1).
		WillReturnRows(requestRows("req-1", model.VacationStatusPending, 3, createdAt))
	mock.ExpectExec("UPDATE `vacation_requests` SET .* WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .* FROM `vacation_balances` WHERE user_id = \\? AND year = \\? .*FOR UPDATE").
		WithArgs(1, 2025, 1).
		WillReturnRows(balanceRows(1, 2025, 10, 0, 3))
	mock.ExpectExec("UPDATE `vacation_balances` SET .* WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	cancelled, err := repo.CancelRequest("req-1", now)
	if err != nil {
		t.Fatalf("CancelRequest() error: %v", err)
	}
	if cancelled.Status != model.VacationStatusCancelled {
		t.Fatalf("unexpected status: %s", cancelled.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVacationRepository_FindPendingBySupervisor(t *testing.T) {
	repo, mock := newMockVacationRepo(t)

	createdAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .* FROM `vacation_requests` WHERE supervisor_id = \\? AND status = \\? ORDER BY created_at ASC").
		WithArgs(2, model.VacationStatusPending).
		WillReturnRows(requestRows("req-1", model.VacationStatusPending, 3, createdAt))

	requests, err := repo.FindPendingBySupervisor(2)
	if err != nil {
		t.Fatalf("FindPendingBySupervisor() error: %v", err)
	}
	if len(requests) != 1 || requests[0].ID != "req-1" {
		t.Fatalf("unexpected requests: %+v", requests)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVacationRepository_UpdateBalanceTotal_BelowCommitted(t *testing.T) {
	repo, mock := newMockVacationRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `vacation_balances` WHERE user_id = \\? AND year = \\? .*FOR UPDATE").
		WithArgs(1, 2025, 1).
		WillReturnRows(balanceRows(1, 2025, 10, 5, 3))
	mock.ExpectRollback()

	_, err := repo.UpdateBalanceTotal(1, 2025, 4, "99")
	if !errors.Is(err, model.ErrBalanceExceeded) {
		t.Fatalf("expected ErrBalanceExceeded, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVacationRepository_UpdateBalanceTotal_Success(t *testing.T) {
	repo, mock := newMockVacationRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `vacation_balances` WHERE user_id = \\? AND year = \\? .*FOR UPDATE").
		WithArgs(1, 2025, 1).
		WillReturnRows(balanceRows(1, 2025, 10, 2, 1))
	mock.ExpectExec("UPDATE `vacation_balances` SET .* WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	balance, err := repo.UpdateBalanceTotal(1, 2025, 15, "99")
	if err != nil {
		t.Fatalf("UpdateBalanceTotal() error: %v", err)
	}
	if balance.TotalDays != 15 || balance.AvailableDays != 12 || balance.UpdatedBy != "99" {
		t.Fatalf("unexpected balance: %+v", balance)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVacationRepository_FindBalance_NotFound(t *testing.T) {
	repo, mock := newMockVacationRepo(t)

	mock.ExpectQuery("SELECT .* FROM `vacation_balances` WHERE user_id = \\? AND year = \\?").
		WithArgs(1, 2030, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindBalance(1, 2030)
	if !errors.Is(err, ErrBalanceNotFound) {
		t.Fatalf("expected ErrBalanceNotFound, got: %v", err)
	}
}
