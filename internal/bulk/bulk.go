// Package bulk 批量删除：每个 ID 一个 DELETE 请求，全部并发发出，
// 等待全部结束后汇总逐条结果。
package bulk

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	pkgerrors "medservice-console/pkg/errors"
)

// DeleteFunc 删除单条记录
type DeleteFunc func(ctx context.Context, id int) error

// Outcome 单条删除结果
type Outcome struct {
	ID    int    `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Err   error  `json:"-"`
}

// Result 批量删除汇总
type Result struct {
	Outcomes  []Outcome `json:"outcomes"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
}

// Summary "deleted N records" 或 "deleted N records, M failed"
func (r *Result) Summary() string {
	if r.Failed == 0 {
		return fmt.Sprintf("deleted %d records", r.Succeeded)
	}
	return fmt.Sprintf("deleted %d records, %d failed", r.Succeeded, r.Failed)
}

// FailedIDs 失败的 ID，升序
func (r *Result) FailedIDs() []int {
	ids := make([]int, 0, r.Failed)
	for _, o := range r.Outcomes {
		if !o.OK {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Run 对去重后的 ids 并发执行 del；limit <= 0 表示不限并发。
// 单条失败不会取消其他请求，ctx 取消时尚未开始的请求也会以 ctx.Err() 记为失败。
func Run(ctx context.Context, ids []int, limit int, del DeleteFunc) *Result {
	unique := Dedupe(ids)
	outcomes := make([]Outcome, len(unique))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, id := range unique {
		i, id := i, id
		g.Go(func() error {
			err := ctx.Err()
			if err == nil {
				err = del(ctx, id)
			}
			outcomes[i] = Outcome{ID: id, OK: err == nil, Err: err}
			if err != nil {
				outcomes[i].Error = pkgerrors.UserMessage(err)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.OK {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}
	return res
}

// Dedupe 去重、去掉非正数并升序排列
func Dedupe(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
