package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
)

// Fact 状态转换产生的通知事实
// 引擎只决定事实何时产生,投递方式由消费方决定
type Fact struct {
	Kind        model.NotificationKind `json:"kind"`
	RecipientID string                 `json:"recipient_id"`
	ProcessID   string                 `json:"process_id"`
	QueryID     string                 `json:"query_id,omitempty"`
	Metadata    model.Metadata         `json:"metadata,omitempty"`
}

// Emitter 通知事实的消费方
// Dispatch 在事务提交之后调用,事实行已经随事务落库
type Emitter interface {
	Dispatch(facts []Fact)
}

// NopEmitter 不投递任何事实的实现,用于测试和迁移命令
type NopEmitter struct{}

// Dispatch 实现 Emitter
func (NopEmitter) Dispatch([]Fact) {}

// Engine 流程工作流审批引擎
// 每个操作是一次事务: 读写文档台账、法定人数计算和指针推进在同一事务内完成,
// 事务内产生的通知事实在提交后交给 Emitter
type Engine struct {
	db      *gorm.DB
	emitter Emitter
	// 步骤实例的默认处理期限,超时由 SLA 监控器发现
	stepDeadline time.Duration
}

// Option 引擎可选配置
type Option func(*Engine)

// WithStepDeadline 设置步骤实例的处理期限
func WithStepDeadline(d time.Duration) Option {
	return func(e *Engine) {
		e.stepDeadline = d
	}
}

// New 创建引擎
func New(db *gorm.DB, emitter Emitter, opts ...Option) *Engine {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	e := &Engine{
		db:           db,
		emitter:      emitter,
		stepDeadline: 48 * time.Hour,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result 修改类操作的返回值
// 派生标志随每次调用返回,调用层不自行重算
type Result struct {
	Process *model.ProcessModel `json:"process"`
	Flags   Flags               `json:"flags"`
}

// txResult 在事务内累积的输出
type txResult struct {
	process *model.ProcessModel
	flags   Flags
	facts   []Fact
}

// run 在单个事务内执行操作,提交成功后投递事实
// 存储层的序列化冲突不在引擎内重试,直接以 Conflict 上抛
func (e *Engine) run(ctx context.Context, fn func(tx *gorm.DB, out *txResult) error) (*Result, error) {
	out := &txResult{}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, out)
	})
	if err != nil {
		return nil, err
	}
	if len(out.facts) > 0 {
		e.emitter.Dispatch(out.facts)
	}
	return &Result{Process: out.process, Flags: out.flags}, nil
}

// newID 生成主键
func newID() string {
	return uuid.New().String()
}

// lockForUpdate 对后续 SELECT 加行级写锁
// 一致同意类投票必须串行读出票据行,否则并发的最后两张赞成票
// 在 READ COMMITTED 下会互相看不见,谁都不触发补齐;
// sqlite 不支持 FOR UPDATE,整库写串行本身已保证互斥
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// loadProcess 加载流程,不存在时返回 NotFound
func loadProcess(tx *gorm.DB, processID string) (*model.ProcessModel, error) {
	var proc model.ProcessModel
	if err := tx.Where("id = ?", processID).First(&proc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("process %s not found", processID)
		}
		return nil, err
	}
	return &proc, nil
}

// loadProcessDocuments 加载流程主干的文档条目(不含连接器文档)
func loadProcessDocuments(tx *gorm.DB, processID string) ([]model.DocumentEntryModel, error) {
	var docs []model.DocumentEntryModel
	err := tx.Where("process_id = ? AND connector_id = ?", processID, "").
		Order("created_at ASC").Find(&docs).Error
	return docs, err
}

// loadConnectors 加载流程的全部连接器
func loadConnectors(tx *gorm.DB, processID string) ([]model.ConnectorModel, error) {
	var connectors []model.ConnectorModel
	err := tx.Where("process_id = ?", processID).Order("created_at ASC").Find(&connectors).Error
	return connectors, err
}

// saveProcess 乐观锁保存流程
// 版本号不匹配说明有并发写入,以 Conflict 上抛由调用方重试整个动作
func saveProcess(tx *gorm.DB, proc *model.ProcessModel) error {
	oldVersion := proc.Version
	proc.Version = oldVersion + 1
	proc.UpdatedAt = time.Now()
	res := tx.Model(&model.ProcessModel{}).
		Where("id = ? AND version = ?", proc.ID, oldVersion).
		Select("*").Omit("id", "created_at").
		Updates(proc)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return conflict("", "process %s was modified concurrently", proc.ID)
	}
	return nil
}

// resolveActors 把执行人引用展开为具体用户 ID 集合
// 直接指定的用户原样保留,角色/部门型引用查询归属表展开
func resolveActors(tx *gorm.DB, refs []model.ActorRef) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, ref := range refs {
		if ref.UserID != "" {
			add(ref.UserID)
			continue
		}
		if ref.RoleID == "" {
			continue
		}
		query := tx.Model(&model.UserRoleModel{}).Where("role_id = ?", ref.RoleID)
		if ref.DepartmentID != "" {
			query = query.Where("department_id = ?", ref.DepartmentID)
		}
		var userIDs []string
		if err := query.Distinct().Pluck("user_id", &userIDs).Error; err != nil {
			return nil, err
		}
		for _, id := range userIDs {
			add(id)
		}
	}
	return ids, nil
}

// isStepActor 操作人是否为步骤的执行人(含角色展开)
func isStepActor(tx *gorm.DB, step *model.Step, actorID string) (bool, error) {
	if step == nil {
		return false, nil
	}
	if step.HasAssignee(actorID) {
		return true, nil
	}
	resolved, err := resolveActors(tx, step.Assignees)
	if err != nil {
		return false, err
	}
	for _, id := range resolved {
		if id == actorID {
			return true, nil
		}
	}
	return false, nil
}

// computeFlags 计算派生标志
func computeFlags(tx *gorm.DB, proc *model.ProcessModel) (Flags, error) {
	docs, err := loadProcessDocuments(tx, proc.ID)
	if err != nil {
		return Flags{}, err
	}
	connectors, err := loadConnectors(tx, proc.ID)
	if err != nil {
		return Flags{}, err
	}
	step := proc.CurrentStep()
	var resolved []string
	if step != nil {
		resolved, err = resolveActors(tx, step.Assignees)
		if err != nil {
			return Flags{}, err
		}
	}
	return Flags{
		IsForwardable:         StepForwardable(step, resolved, docs) && headGateOpen(proc, connectors),
		IsRevertable:          StepRevertable(proc),
		MaxReceiverStepNumber: proc.MaxReceiverStepNumber,
	}, nil
}

// refreshRevertBlocked 重算并回写回退阻塞标志
func refreshRevertBlocked(tx *gorm.DB, proc *model.ProcessModel) error {
	docs, err := loadProcessDocuments(tx, proc.ID)
	if err != nil {
		return err
	}
	step := proc.CurrentStep()
	var resolved []string
	if step != nil {
		resolved, err = resolveActors(tx, step.Assignees)
		if err != nil {
			return err
		}
	}
	proc.RevertBlocked = computeRevertBlocked(step, resolved, docs)
	return nil
}

// emitFact 在事务内落库通知事实并缓存待投递
func emitFact(tx *gorm.DB, out *txResult, fact Fact) error {
	row := &model.NotificationModel{
		ID:          newID(),
		Kind:        fact.Kind,
		RecipientID: fact.RecipientID,
		ProcessID:   fact.ProcessID,
		QueryID:     fact.QueryID,
		Metadata:    fact.Metadata,
		Status:      model.NotificationStatusActive,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := row.Validate(); err != nil {
		return invariant("notification fact invalid: %v", err)
	}
	if err := tx.Create(row).Error; err != nil {
		return err
	}
	out.facts = append(out.facts, fact)
	return nil
}

// recordHistory 写入指针变更历史
func recordHistory(tx *gorm.DB, processID string, fromStep, toStep int, action, reason, operator string) error {
	return tx.Create(&model.StateHistoryModel{
		ID:        newID(),
		ProcessID: processID,
		FromStep:  fromStep,
		ToStep:    toStep,
		Action:    action,
		Reason:    reason,
		Operator:  operator,
		CreatedAt: time.Now(),
	}).Error
}

// createStepInstances 为步骤的每个展开后执行人创建步骤实例
func (e *Engine) createStepInstances(tx *gorm.DB, proc *model.ProcessModel, step *model.Step, via, queryID string) ([]string, error) {
	resolved, err := resolveActors(tx, step.Assignees)
	if err != nil {
		return nil, err
	}
	if len(resolved) == 0 {
		return nil, failed(ReasonNotAssignee, "step %d of process %s has no resolvable assignees", step.StepNumber, proc.ID)
	}
	deadline := time.Now().Add(e.stepDeadline)
	now := time.Now()
	for _, userID := range resolved {
		inst := &model.StepInstanceModel{
			ID:         newID(),
			ProcessID:  proc.ID,
			StepNumber: step.StepNumber,
			AssigneeID: userID,
			Status:     model.StepInstanceStatusPending,
			Deadline:   &deadline,
			CreatedVia: via,
			QueryID:    queryID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Create(inst).Error; err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

// Get 只读加载流程与派生标志
func (e *Engine) Get(ctx context.Context, processID string) (*Result, error) {
	return e.run(ctx, func(tx *gorm.DB, out *txResult) error {
		proc, err := loadProcess(tx, processID)
		if err != nil {
			return err
		}
		flags, err := computeFlags(tx, proc)
		if err != nil {
			return err
		}
		out.process = proc
		out.flags = flags
		return nil
	})
}
