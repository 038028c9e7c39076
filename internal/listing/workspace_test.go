package listing

import (
	"context"
	"errors"
	"testing"

	"medservice-console/internal/bulk"
	"medservice-console/internal/resource"
	pkgerrors "medservice-console/pkg/errors"
)

type mockMutator struct {
	saveErr   error
	deleteErr error
	failIDs   map[int]bool
	bulkIDs   []int
	bulkCalls int
}

func (m *mockMutator) Save(_ context.Context, _ resource.Form) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	return "Division created successfully", nil
}

func (m *mockMutator) Delete(_ context.Context, _ int) (string, error) {
	if m.deleteErr != nil {
		return "", m.deleteErr
	}
	return "Division deleted successfully", nil
}

func (m *mockMutator) BulkDelete(ctx context.Context, ids []int, _ bool) (*bulk.Result, error) {
	m.bulkCalls++
	m.bulkIDs = ids
	return bulk.Run(ctx, ids, 0, func(_ context.Context, id int) error {
		if m.failIDs[id] {
			return pkgerrors.NewAPIError(500, "")
		}
		return nil
	}), nil
}

func TestWorkspace_SaveRefetchesCurrentQuery(t *testing.T) {
	f := &stubFetcher{}
	ctl := loaded(t, f)
	ctl.SetFilter("status", "active")
	ctl.Wait()
	ctl.SetPage(2)
	ctl.Wait()
	before := f.count()

	ws := NewWorkspace(ctl, &mockMutator{})
	msg, err := ws.Save(context.Background(), &resource.NamedForm{Name: "IT"})
	if err != nil {
		t.Fatalf("不应报错: %v", err)
	}
	ctl.Wait()

	if msg != "Division created successfully" {
		t.Errorf("提示消息错误: %q", msg)
	}
	if f.count() != before+1 {
		t.Fatalf("保存成功后应重新拉取一次，实际 %d → %d", before, f.count())
	}
	q := f.last()
	if q.Page != 2 || q.Filters["status"] != "active" {
		t.Errorf("重新拉取应沿用当前参数，实际 %+v", q)
	}
}

func TestWorkspace_SaveFailureNoRefetch(t *testing.T) {
	f := &stubFetcher{}
	ctl := loaded(t, f)
	before := f.count()

	ws := NewWorkspace(ctl, &mockMutator{saveErr: &pkgerrors.ValidationError{Status: 422, Fields: map[string][]string{"name": {"taken"}}}})
	if _, err := ws.Save(context.Background(), &resource.NamedForm{Name: "IT"}); err == nil {
		t.Fatal("期望返回错误")
	}
	ctl.Wait()
	if f.count() != before {
		t.Errorf("失败时不应重新拉取")
	}
}

func TestWorkspace_DeleteAlwaysRefetches(t *testing.T) {
	f := &stubFetcher{}
	ctl := loaded(t, f)
	before := f.count()

	ws := NewWorkspace(ctl, &mockMutator{deleteErr: errors.New("boom")})
	if _, err := ws.Delete(context.Background(), 1); err == nil {
		t.Fatal("期望返回错误")
	}
	ctl.Wait()
	if f.count() != before+1 {
		t.Errorf("删除后应重新拉取")
	}
}

func TestWorkspace_BulkDeletePartialFailure(t *testing.T) {
	f := &stubFetcher{}
	ctl := loaded(t, f)
	ctl.SelectAll()
	before := f.count()

	m := &mockMutator{failIDs: map[int]bool{3: true}}
	ws := NewWorkspace(ctl, m)
	res, err := ws.BulkDelete(context.Background(), true)
	if err != nil {
		t.Fatalf("不应报错: %v", err)
	}
	ctl.Wait()

	if len(m.bulkIDs) != 3 {
		t.Errorf("应删除选中的 3 条，实际 %v", m.bulkIDs)
	}
	if got := res.Summary(); got != "deleted 2 records, 1 failed" {
		t.Errorf("汇总消息错误: %q", got)
	}
	if sel := ctl.Selected(); len(sel) != 0 {
		t.Errorf("批量删除后选择应被清空，实际 %v", sel)
	}
	if f.count() != before+1 {
		t.Errorf("批量删除后应重新拉取")
	}
}

func TestWorkspace_BulkDeleteEmptySelection(t *testing.T) {
	ctl := loaded(t, &stubFetcher{})
	ws := NewWorkspace(ctl, &mockMutator{})
	if _, err := ws.BulkDelete(context.Background(), true); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("期望 ErrEmptySelection，实际 %v", err)
	}
}

func TestWorkspace_BulkDeleteRequiresConfirmation(t *testing.T) {
	f := &stubFetcher{}
	ctl := loaded(t, f)
	ctl.SelectAll()
	before := f.count()

	m := &mockMutator{}
	ws := NewWorkspace(ctl, m)
	if _, err := ws.BulkDelete(context.Background(), false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("期望 ErrConfirmationRequired，实际 %v", err)
	}
	ctl.Wait()

	if m.bulkCalls != 0 {
		t.Errorf("未确认时不应调用删除，实际 %d 次", m.bulkCalls)
	}
	if sel := ctl.Selected(); len(sel) != 3 {
		t.Errorf("未确认时应保留选择，实际 %v", sel)
	}
	if f.count() != before {
		t.Errorf("未确认时不应重新拉取")
	}
}
