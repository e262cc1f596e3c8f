package handlers

import (
	"revisionaid/internal/models"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// SignupRequest is the body of POST /v1/auth/signup. Email fields are plain
// strings so the sign-up rules report which address is wrong.
type SignupRequest struct {
	UserEmail      string `json:"user_email"`
	UserName       string `json:"user_name"`
	UserPassword   string `json:"user_password"`
	ParentEmail    string `json:"parent_email"`
	ParentName     string `json:"parent_name"`
	ParentPassword string `json:"parent_password"`
	Course         string `json:"course"`
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Email    openapi_types.Email `json:"email" binding:"required"`
	Password string              `json:"password" binding:"required"`
	IsParent bool                `json:"is_parent"`
}

// AuthResponse is returned by sign-up and login.
type AuthResponse struct {
	User  models.Principal `json:"user"`
	Token string           `json:"token"`
}

// AuthStatusResponse is returned by GET /v1/auth/status.
type AuthStatusResponse struct {
	Authenticated bool              `json:"authenticated"`
	User          *models.Principal `json:"user,omitempty"`
}

// AnswerRequest is the body of POST /v1/quiz/answer.
type AnswerRequest struct {
	QuestionID int    `json:"question_id" binding:"required,min=1"`
	Answer     string `json:"answer" binding:"required"`
}

// TopicsResponse is returned by GET /v1/topics.
type TopicsResponse struct {
	Topics []models.Topic `json:"topics"`
}
