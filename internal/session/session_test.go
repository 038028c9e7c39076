package session

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	s := &Session{Token: "tok", Role: "admin"}
	ctx := WithSession(context.Background(), s)

	got, ok := FromContext(ctx)
	if !ok || got != s {
		t.Fatal("应能从 context 取回同一会话")
	}
	if got.BearerToken() != "tok" {
		t.Errorf("期望 BearerToken=tok，实际=%s", got.BearerToken())
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Error("空 context 不应取到会话")
	}
}

func TestSortedPermissions(t *testing.T) {
	s := &Session{Permissions: []string{"view-division", "", "edit-division", "view-division"}}
	got := s.SortedPermissions()
	if len(got) != 2 || got[0] != "edit-division" || got[1] != "view-division" {
		t.Errorf("期望去重排序结果，实际=%v", got)
	}

	var nilSess *Session
	if nilSess.Has("x") || nilSess.BearerToken() != "" {
		t.Error("nil 会话应安全返回零值")
	}
}
