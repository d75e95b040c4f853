package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finpath/internal/domain/user"
)

func TestHandleMe_Get(t *testing.T) {
	repo := &MockUserRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*user.User, error) {
			return &user.User{ID: id, Email: "ravi@example.com", Name: "Ravi"}, nil
		},
	}
	handler := NewUserHandler(repo)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), "user-1")
	rec := httptest.NewRecorder()
	handler.HandleMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got user.User
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Email != "ravi@example.com" {
		t.Errorf("email = %q", got.Email)
	}
}

func TestHandleMe_Unauthorized(t *testing.T) {
	handler := NewUserHandler(&MockUserRepo{})

	rec := httptest.NewRecorder()
	handler.HandleMe(rec, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandleMe_Update(t *testing.T) {
	var gotParams user.UpdateUserParams
	repo := &MockUserRepo{
		UpdateFunc: func(ctx context.Context, userID string, params user.UpdateUserParams) (*user.User, error) {
			gotParams = params
			return &user.User{ID: userID, Name: *params.Name}, nil
		},
	}
	handler := NewUserHandler(repo)

	body := strings.NewReader(`{"name":"Ravi K"}`)
	req := withUser(httptest.NewRequest(http.MethodPatch, "/api/users/me", body), "user-1")
	rec := httptest.NewRecorder()
	handler.HandleMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotParams.Name == nil || *gotParams.Name != "Ravi K" {
		t.Errorf("update params not passed through: %+v", gotParams)
	}
	if gotParams.Mobile != nil {
		t.Errorf("mobile should stay unset, got %v", *gotParams.Mobile)
	}
}

func TestHandleMe_Delete(t *testing.T) {
	deleted := ""
	repo := &MockUserRepo{
		DeleteFunc: func(ctx context.Context, userID string) error {
			deleted = userID
			return nil
		},
	}
	handler := NewUserHandler(repo)

	req := withUser(httptest.NewRequest(http.MethodDelete, "/api/users/me", nil), "user-1")
	rec := httptest.NewRecorder()
	handler.HandleMe(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if deleted != "user-1" {
		t.Errorf("deleted user = %q, want user-1", deleted)
	}

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "access_token" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("access_token cookie not cleared on account deletion")
	}
}

func TestHandleMe_DeleteUnknownUser(t *testing.T) {
	repo := &MockUserRepo{
		DeleteFunc: func(ctx context.Context, userID string) error {
			return user.ErrUserNotFound
		},
	}
	handler := NewUserHandler(repo)

	req := withUser(httptest.NewRequest(http.MethodDelete, "/api/users/me", nil), "ghost")
	rec := httptest.NewRecorder()
	handler.HandleMe(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
