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

func newMockOrgRepo(t *testing.T) (OrganizationRepository, sqlmock.Sqlmock) {
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

	return NewOrganizationRepository(gdb), mock
}

func orgNodeRows(id, supervisorID string, level int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "user_email", "user_name", "supervisor_id", "position", "department", "level", "created_at", "updated_at",
	}).AddRow(id, 1, "emp@example.com", "Employee", supervisorID, "Engineer", "Eng", level, now, now)
}

func TestOrganizationRepository_Create(t *testing.T) {
	repo, mock := newMockOrgRepo(t)

	node := &model.OrganizationNode{
		ID:           "node-1",
		UserID:       1,
		UserEmail:    "emp@example.com",
		UserName:     "Employee",
		SupervisorID: model.RootSupervisor,
		Position:     "Engineer",
		Department:   "Eng",
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `organization_nodes`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.Create(node); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrganizationRepository_FindByUserID(t *testing.T) {
	repo, mock := newMockOrgRepo(t)

	mock.ExpectQuery("SELECT .* FROM `organization_nodes` WHERE user_id = \\? ORDER BY .* LIMIT \\?").
		WithArgs(1, 1).
		WillReturnRows(orgNodeRows("node-1", model.RootSupervisor, 0))

	node, err := repo.FindByUserID(1)
	if err != nil {
		t.Fatalf("FindByUserID() error: %v", err)
	}
	if node == nil || node.ID != "node-1" {
		t.Fatalf("unexpected node: %+v", node)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrganizationRepository_Update_RowsAffectedZero(t *testing.T) {
	repo, mock := newMockOrgRepo(t)

	node := &model.OrganizationNode{
		ID:         "missing",
		Position:   "Engineer",
		Department: "Eng",
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `organization_nodes` SET .* WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Update(node)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got: %v", err)
	}
}

func TestOrganizationRepository_Delete_HasSubordinates(t *testing.T) {
	repo, mock := newMockOrgRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `organization_nodes` WHERE id = \\? ORDER BY .* LIMIT \\?").
		WithArgs("lead", 1).
		WillReturnRows(orgNodeRows("lead", model.RootSupervisor, 0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `organization_nodes` WHERE supervisor_id = \\?").
		WithArgs("lead").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.Delete("lead")
	if !errors.Is(err, ErrNodeHasSubordinates) {
		t.Fatalf("expected ErrNodeHasSubordinates, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrganizationRepository_Delete_Success(t *testing.T) {
	repo, mock := newMockOrgRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `organization_nodes` WHERE id = \\? ORDER BY .* LIMIT \\?").
		WithArgs("leaf", 1).
		WillReturnRows(orgNodeRows("leaf", "lead", 1))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `organization_nodes` WHERE supervisor_id = \\?").
		WithArgs("leaf").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectExec("DELETE FROM `organization_nodes` WHERE id = \\?").
		WithArgs("leaf").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Delete("leaf"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// TestOrganizationRepository_ReassignSupervisor_CascadesLevels 验证改挂后
// 传递下属的层级在同一事务内逐层重算。
func TestOrganizationRepository_ReassignSupervisor_CascadesLevels(t *testing.T) {
	repo, mock := newMockOrgRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `organization_nodes` SET .* WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// 第一层下属
	mock.ExpectQuery("SELECT .* FROM `organization_nodes` WHERE supervisor_id = \\?").
		WithArgs("node-1").
		WillReturnRows(orgNodeRows("sub-1", "node-1", 1))
	mock.ExpectExec("UPDATE `organization_nodes` SET .* WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// 第二层为空，递归终止
	mock.ExpectQuery("SELECT .* FROM `organization_nodes` WHERE supervisor_id = \\?").
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	if err := repo.ReassignSupervisor("node-1", "new-lead", 2); err != nil {
		t.Fatalf("ReassignSupervisor() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrganizationRepository_ReassignSupervisor_NotFound(t *testing.T) {
	repo, mock := newMockOrgRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `organization_nodes` SET .* WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ReassignSupervisor("missing", "new-lead", 2)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
