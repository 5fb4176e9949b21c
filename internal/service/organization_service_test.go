package service

import (
	"errors"
	"testing"

	"hr_vacation_go/internal/model"
	"hr_vacation_go/internal/repository"

	"gorm.io/gorm"
)

type fakeOrgRepo struct {
	createFn             func(node *model.OrganizationNode) error
	findByIDFn           func(id string) (*model.OrganizationNode, error)
	findByUserIDFn       func(userID uint) (*model.OrganizationNode, error)
	findBySupervisorIDFn func(supervisorID string) ([]model.OrganizationNode, error)
	findAllFn            func() ([]model.OrganizationNode, error)
	updateFn             func(node *model.OrganizationNode) error
	deleteFn             func(nodeID string) error
	reassignFn           func(nodeID, newSupervisorID string, newLevel int) error
}

func (f *fakeOrgRepo) Create(node *model.OrganizationNode) error {
	if f.createFn != nil {
		return f.createFn(node)
	}
	return nil
}
func (f *fakeOrgRepo) FindByID(id string) (*model.OrganizationNode, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeOrgRepo) FindByUserID(userID uint) (*model.OrganizationNode, error) {
	if f.findByUserIDFn != nil {
		return f.findByUserIDFn(userID)
	}
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeOrgRepo) FindBySupervisorID(supervisorID string) ([]model.OrganizationNode, error) {
	if f.findBySupervisorIDFn != nil {
		return f.findBySupervisorIDFn(supervisorID)
	}
	return []model.OrganizationNode{}, nil
}
func (f *fakeOrgRepo) FindAll() ([]model.OrganizationNode, error) {
	if f.findAllFn != nil {
		return f.findAllFn()
	}
	return []model.OrganizationNode{}, nil
}
func (f *fakeOrgRepo) Update(node *model.OrganizationNode) error {
	if f.updateFn != nil {
		return f.updateFn(node)
	}
	return nil
}
func (f *fakeOrgRepo) Delete(nodeID string) error {
	if f.deleteFn != nil {
		return f.deleteFn(nodeID)
	}
	return nil
}
func (f *fakeOrgRepo) ReassignSupervisor(nodeID, newSupervisorID string, newLevel int) error {
	if f.reassignFn != nil {
		return f.reassignFn(nodeID, newSupervisorID, newLevel)
	}
	return nil
}

func TestOrganizationService_CreateNode_RootWhenNoSupervisor(t *testing.T) {
	var created *model.OrganizationNode
	repo := &fakeOrgRepo{
		createFn: func(node *model.OrganizationNode) error {
			created = node
			return nil
		},
	}
	svc := NewOrganizationService(repo, &fakeAudit{})

	node, err := svc.CreateNode(1, "ceo@example.com", "CEO", "Chief", "Exec", "", 99, "admin@example.com")
	if err != nil {
		t.Fatalf("CreateNode() error = %v", err)
	}
	if node.SupervisorID != model.RootSupervisor || node.Level != 0 {
		t.Fatalf("root node should have ROOT supervisor and level 0: %+v", node)
	}
	if created == nil || created.ID == "" {
		t.Fatalf("node should be persisted with a generated id")
	}
}

func TestOrganizationService_CreateNode_LevelFromSupervisor(t *testing.T) {
	repo := &fakeOrgRepo{
		findByIDFn: func(id string) (*model.OrganizationNode, error) {
			return &model.OrganizationNode{ID: "lead", Level: 2}, nil
		},
	}
	svc := NewOrganizationService(repo, &fakeAudit{})

	node, err := svc.CreateNode(2, "dev@example.com", "Dev", "Engineer", "Eng", "lead", 99, "admin@example.com")
	if err != nil {
		t.Fatalf("CreateNode() error = %v", err)
	}
	if node.SupervisorID != "lead" || node.Level != 3 {
		t.Fatalf("expect supervisor=lead level=3, got %+v", node)
	}
}

func TestOrganizationService_CreateNode_DuplicateUser(t *testing.T) {
	repo := &fakeOrgRepo{
		findByUserIDFn: func(userID uint) (*model.OrganizationNode, error) {
			return &model.OrganizationNode{ID: "existing", UserID: userID}, nil
		},
	}
	svc := NewOrganizationService(repo, &fakeAudit{})

	_, err := svc.CreateNode(1, "a@example.com", "A", "Engineer", "Eng", "", 99, "admin@example.com")
	if !errors.Is(err, ErrNodeAlreadyExists) {
		t.Fatalf("expect ErrNodeAlreadyExists, got %v", err)
	}
}

func TestOrganizationService_CreateNode_SupervisorNotFound(t *testing.T) {
	repo := &fakeOrgRepo{}
	svc := NewOrganizationService(repo, &fakeAudit{})

	_, err := svc.CreateNode(1, "a@example.com", "A", "Engineer", "Eng", "missing", 99, "admin@example.com")
	if !errors.Is(err, ErrSupervisorNotFound) {
		t.Fatalf("expect ErrSupervisorNotFound, got %v", err)
	}
}

func TestOrganizationService_DeleteNode_SubordinatesGuard(t *testing.T) {
	repo := &fakeOrgRepo{
		deleteFn: func(nodeID string) error {
			return repository.ErrNodeHasSubordinates
		},
	}
	svc := NewOrganizationService(repo, &fakeAudit{})

	err := svc.DeleteNode("lead", 99, "admin@example.com")
	if !errors.Is(err, ErrNodeHasSubordinates) {
		t.Fatalf("expect ErrNodeHasSubordinates, got %v", err)
	}
}

func TestOrganizationService_DeleteNode_NotFoundMapped(t *testing.T) {
	repo := &fakeOrgRepo{
		deleteFn: func(nodeID string) error {
			return gorm.ErrRecordNotFound
		},
	}
	svc := NewOrganizationService(repo, &fakeAudit{})

	err := svc.DeleteNode("missing", 99, "admin@example.com")
	if !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expect ErrNodeNotFound, got %v", err)
	}
}

func TestOrganizationService_AssignSupervisor_Self(t *testing.T) {
	svc := NewOrganizationService(&fakeOrgRepo{}, &fakeAudit{})

	_, err := svc.AssignSupervisor("node-a", "node-a", 99, "admin@example.com")
	if !errors.Is(err, ErrSelfSupervisor) {
		t.Fatalf("expect ErrSelfSupervisor, got %v", err)
	}
}

// TestOrganizationService_AssignSupervisor_CycleDetected 构造 a -> b -> c 链，
// 尝试把 a 挂到自己的传递下属 c 下面，应在写入前被环检测拦截。
func TestOrganizationService_AssignSupervisor_CycleDetected(t *testing.T) {
	nodes := map[string]*model.OrganizationNode{
		"a": {ID: "a", SupervisorID: model.RootSupervisor, Level: 0},
		"b": {ID: "b", SupervisorID: "a", Level: 1},
		"c": {ID: "c", SupervisorID: "b", Level: 2},
	}
	reassigned := false
	repo := &fakeOrgRepo{
		findByIDFn: func(id string) (*model.OrganizationNode, error) {
			if n, ok := nodes[id]; ok {
				return n, nil
			}
			return nil, gorm.ErrRecordNotFound
		},
		findBySupervisorIDFn: func(supervisorID string) ([]model.OrganizationNode, error) {
			var subs []model.OrganizationNode
			for _, n := range nodes {
				if n.SupervisorID == supervisorID {
					subs = append(subs, *n)
				}
			}
			return subs, nil
		},
		reassignFn: func(nodeID, newSupervisorID string, newLevel int) error {
			reassigned = true
			return nil
		},
	}
	svc := NewOrganizationService(repo, &fakeAudit{})

	_, err := svc.AssignSupervisor("a", "c", 99, "admin@example.com")
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expect ErrCycleDetected, got %v", err)
	}
	if reassigned {
		t.Fatalf("reassign must not run when a cycle is detected")
	}
}

func TestOrganizationService_AssignSupervisor_Success(t *testing.T) {
	nodes := map[string]*model.OrganizationNode{
		"a":    {ID: "a", SupervisorID: model.RootSupervisor, Level: 0},
		"b":    {ID: "b", SupervisorID: "a", Level: 1},
		"solo": {ID: "solo", SupervisorID: model.RootSupervisor, Level: 0},
	}
	var gotNode, gotSupervisor string
	var gotLevel int
	repo := &fakeOrgRepo{
		findByIDFn: func(id string) (*model.OrganizationNode, error) {
			if n, ok := nodes[id]; ok {
				return n, nil
			}
			return nil, gorm.ErrRecordNotFound
		},
		findBySupervisorIDFn: func(supervisorID string) ([]model.OrganizationNode, error) {
			var subs []model.OrganizationNode
			for _, n := range nodes {
				if n.SupervisorID == supervisorID {
					subs = append(subs, *n)
				}
			}
			return subs, nil
		},
		reassignFn: func(nodeID, newSupervisorID string, newLevel int) error {
			gotNode, gotSupervisor, gotLevel = nodeID, newSupervisorID, newLevel
			return nil
		},
	}
	audit := &fakeAudit{}
	svc := NewOrganizationService(repo, audit)

	node, err := svc.AssignSupervisor("solo", "b", 99, "admin@example.com")
	if err != nil {
		t.Fatalf("AssignSupervisor() error = %v", err)
	}
	if gotNode != "solo" || gotSupervisor != "b" || gotLevel != 2 {
		t.Fatalf("unexpected reassign args: node=%s supervisor=%s level=%d", gotNode, gotSupervisor, gotLevel)
	}
	if node.SupervisorID != "b" || node.Level != 2 {
		t.Fatalf("returned node not updated: %+v", node)
	}
	if len(audit.actions) != 1 || audit.actions[0] != model.AuditActionHierarchyUpdated {
		t.Fatalf("expect HIERARCHY_UPDATED audit, got %v", audit.actions)
	}
}

func TestOrganizationService_CreateNode_AuditFailurePropagates(t *testing.T) {
	repo := &fakeOrgRepo{}
	audit := &fakeAudit{
		recordFn: func(action, entityType, entityID string, actorID uint, actorEmail string, details map[string]interface{}) error {
			return errors.New("audit store down")
		},
	}
	svc := NewOrganizationService(repo, audit)

	// 层级变更是合规关键路径，审计失败要向上传播
	_, err := svc.CreateNode(1, "a@example.com", "A", "Engineer", "Eng", "", 99, "admin@example.com")
	if err == nil {
		t.Fatalf("expect error when audit write fails")
	}
}

func TestOrganizationService_GetTree(t *testing.T) {
	repo := &fakeOrgRepo{
		findAllFn: func() ([]model.OrganizationNode, error) {
			return []model.OrganizationNode{
				{ID: "root", SupervisorID: model.RootSupervisor},
				{ID: "child", SupervisorID: "root"},
			}, nil
		},
	}
	svc := NewOrganizationService(repo, &fakeAudit{})

	nodes, tree, err := svc.GetTree()
	if err != nil {
		t.Fatalf("GetTree() error = %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expect 2 flat nodes, got %d", len(nodes))
	}
	if len(tree) != 1 || tree[0].ID != "root" || len(tree[0].Children) != 1 {
		t.Fatalf("unexpected tree: %+v", tree)
	}
}
