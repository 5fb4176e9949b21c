package service

import "errors"

// 哨兵错误：对外统一语义，隐藏底层实现细节。
// Handler 层通过 mapServiceError 把它们翻译成 HTTP 状态码和稳定的消息文本，
// 消息文本本身就是对外契约（调用方没有结构化错误码可用）。
var (
	// ErrInvalidInput 请求参数缺失或非法
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal 内部错误（对外不暴露细节）
	ErrInternal = errors.New("internal server error")

	// ErrNodeNotFound 组织节点不存在
	ErrNodeNotFound = errors.New("organization node not found")
	// ErrSupervisorNotFound 指定的上级节点不存在（或引用已失效）
	ErrSupervisorNotFound = errors.New("supervisor not found")
	// ErrNodeAlreadyExists 该用户已经有组织节点
	ErrNodeAlreadyExists = errors.New("user already has an organization node")
	// ErrNodeHasSubordinates 节点还有直接下属，不能删除
	ErrNodeHasSubordinates = errors.New("node has subordinates")
	// ErrSelfSupervisor 不能把自己设为自己的上级
	ErrSelfSupervisor = errors.New("cannot assign self as supervisor")
	// ErrCycleDetected 改挂会让节点成为自己的祖先，形成审批死循环
	ErrCycleDetected = errors.New("circular hierarchy detected")

	// ErrNotInHierarchy 申请人不在组织层级中
	ErrNotInHierarchy = errors.New("user is not part of the organization hierarchy")
	// ErrNoSupervisor 申请人没有上级（根节点不能发起申请）
	ErrNoSupervisor = errors.New("user does not have a supervisor assigned")
	// ErrRequestNotFound 请假申请不存在
	ErrRequestNotFound = errors.New("vacation request not found")
	// ErrRequestNotPending 申请已进入终态，不可再审批或撤销
	ErrRequestNotPending = errors.New("request is not pending")
	// ErrNotRequestSupervisor 审批人不是创建时登记的上级
	ErrNotRequestSupervisor = errors.New("not the supervisor of this request")
	// ErrNotRequestOwner 只有申请人本人可以撤销
	ErrNotRequestOwner = errors.New("not the owner of this request")
	// ErrNoBalanceAssigned 申请人当年没有被分配余额
	ErrNoBalanceAssigned = errors.New("no vacation balance assigned")
	// ErrInsufficientBalance 可用天数不足
	ErrInsufficientBalance = errors.New("insufficient vacation balance")
	// ErrBalanceNotFound 余额记录不存在（查询场景）
	ErrBalanceNotFound = errors.New("vacation balance not found")
	// ErrInvalidAdjustment 管理员把总天数调到低于 used + pending
	ErrInvalidAdjustment = errors.New("total days below committed days")
)
