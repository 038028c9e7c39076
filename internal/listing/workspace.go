package listing

import (
	"context"
	"errors"

	"medservice-console/internal/bulk"
	"medservice-console/internal/resource"
)

var (
	// ErrEmptySelection 批量删除时没有选中任何记录
	ErrEmptySelection = errors.New("no records selected")
	// ErrConfirmationRequired 批量删除未经用户确认
	ErrConfirmationRequired = errors.New("bulk delete requires explicit confirmation")
)

// Mutator 资源写操作
type Mutator interface {
	Save(ctx context.Context, form resource.Form) (message string, err error)
	Delete(ctx context.Context, id int) (message string, err error)
	BulkDelete(ctx context.Context, ids []int, confirm bool) (*bulk.Result, error)
}

// Workspace 列表 + 写操作：写成功后按当前参数重新拉取，不做乐观更新
type Workspace struct {
	List    *Controller
	mutator Mutator
}

// NewWorkspace 组合列表控制器与写操作
func NewWorkspace(ctl *Controller, m Mutator) *Workspace {
	return &Workspace{List: ctl, mutator: m}
}

// Save 创建或更新；成功后重新拉取
func (w *Workspace) Save(ctx context.Context, form resource.Form) (string, error) {
	msg, err := w.mutator.Save(ctx, form)
	if err != nil {
		return "", err
	}
	w.List.Refresh()
	return msg, nil
}

// Delete 删除单条记录；无论成败都重新拉取
func (w *Workspace) Delete(ctx context.Context, id int) (string, error) {
	msg, err := w.mutator.Delete(ctx, id)
	w.List.Refresh()
	return msg, err
}

// BulkDelete 删除当前选中的记录；未确认时保留选择且不发起删除，
// 执行后无论结果如何都清空选择并重新拉取
func (w *Workspace) BulkDelete(ctx context.Context, confirm bool) (*bulk.Result, error) {
	if !confirm {
		return nil, ErrConfirmationRequired
	}
	ids := w.List.Selected()
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}

	res, err := w.mutator.BulkDelete(ctx, ids, confirm)
	w.List.ClearSelection()
	w.List.Refresh()
	return res, err
}
