package services

import (
	"context"
	"database/sql"
	"strings"

	"revisionaid/internal/config"
	"revisionaid/internal/models"
	"revisionaid/internal/observability"
	"revisionaid/internal/store"
	contextutils "revisionaid/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// SignupRequest carries a new student account and its linked parent login.
type SignupRequest struct {
	UserEmail      string
	UserName       string
	UserPassword   string
	ParentEmail    string
	ParentName     string
	ParentPassword string
	Course         string
}

// UserServiceInterface defines the interface for account operations.
type UserServiceInterface interface {
	Signup(ctx context.Context, req SignupRequest) (*models.User, error)
	Authenticate(ctx context.Context, email, password string, isParent bool) (*models.Principal, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ResolveStudent(ctx context.Context, principal models.Principal) (*models.User, error)
}

// ParentNotifier is told about new accounts so the linked parent can be emailed.
type ParentNotifier interface {
	SendParentWelcome(ctx context.Context, user *models.User) error
}

// UserService provides methods for account management.
type UserService struct {
	store      store.Store
	cfg        *config.Config
	logger     *observability.Logger
	notifier   ParentNotifier
	bcryptCost int
}

var _ UserServiceInterface = (*UserService)(nil)

// NewUserServiceWithLogger creates a UserService. notifier may be nil.
func NewUserServiceWithLogger(s store.Store, cfg *config.Config, notifier ParentNotifier, logger *observability.Logger) *UserService {
	return &UserService{
		store:      s,
		cfg:        cfg,
		logger:     logger,
		notifier:   notifier,
		bcryptCost: bcrypt.DefaultCost,
	}
}

func validationError(message string) error {
	return contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn, message, "")
}

func missingField(message string) error {
	return contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityWarn, message, "")
}

// validateAccountHalf checks one side (student or parent) of a sign-up.
func validateAccountHalf(who, email, name, password string) error {
	if !contextutils.CheckLength(email) {
		return validationError(who + " email needs to be less than 255 characters.")
	}
	if strings.TrimSpace(email) == "" {
		return missingField("You need to submit a " + strings.ToLower(who) + " email address.")
	}
	if !contextutils.IsValidEmail(email) {
		return validationError("The " + strings.ToLower(who) + " email address is not valid.")
	}
	if strings.TrimSpace(name) == "" {
		return missingField("You need to submit a " + strings.ToLower(who) + " name.")
	}
	if !contextutils.CheckLength(name) {
		return validationError(who + " name needs to be less than 255 characters.")
	}
	if !contextutils.IsPasswordLengthValid(password) {
		return validationError(who + " password needs to be at least 6 characters and no more than 255.")
	}
	if !contextutils.IsPasswordComplex(password) {
		return validationError(who + " password needs to contain at least one upper case character, one lower case character and a special character.")
	}
	return nil
}

// ValidateSignup applies the sign-up rules in the order a user fixes them:
// student fields first, then parent fields.
func ValidateSignup(req SignupRequest) error {
	if err := validateAccountHalf("User", req.UserEmail, req.UserName, req.UserPassword); err != nil {
		return err
	}
	if err := validateAccountHalf("Parent", req.ParentEmail, req.ParentName, req.ParentPassword); err != nil {
		return err
	}
	if !contextutils.CheckLength(req.Course) {
		return validationError("Course needs to be less than 255 characters.")
	}
	return nil
}

// Signup creates the account and every performance row for it in one
// transaction. The parent is notified afterwards if email is enabled.
func (s *UserService) Signup(ctx context.Context, req SignupRequest) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "Signup",
		observability.AttributeUserEmail(req.UserEmail),
	)
	defer observability.FinishSpan(span, &err)

	if s.cfg != nil && s.cfg.IsSignupDisabled() {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "Sign-ups are currently disabled.")
	}

	if err := ValidateSignup(req); err != nil {
		return nil, err
	}

	exists, err := s.store.UserEmailExists(ctx, req.UserEmail)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, contextutils.WrapError(contextutils.ErrRecordExists, "There is already an account with this user email.")
	}
	exists, err = s.store.ParentEmailExists(ctx, req.ParentEmail)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, contextutils.WrapError(contextutils.ErrRecordExists, "There is already an account with this parent email.")
	}

	userHash, err := bcrypt.GenerateFromPassword([]byte(req.UserPassword), s.bcryptCost)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to hash user password")
	}
	parentHash, err := bcrypt.GenerateFromPassword([]byte(req.ParentPassword), s.bcryptCost)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to hash parent password")
	}

	questionIDs, err := s.store.ListQuestionIDs(ctx)
	if err != nil {
		return nil, err
	}
	topicIDs, err := s.store.ListTopicIDs(ctx)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:                req.UserEmail,
		Name:                 req.UserName,
		HashedPassword:       string(userHash),
		ParentEmail:          req.ParentEmail,
		ParentName:           req.ParentName,
		ParentHashedPassword: string(parentHash),
		Course:               sql.NullString{String: req.Course, Valid: req.Course != ""},
	}
	if err := s.store.CreateUserWithPerformance(ctx, user, questionIDs, topicIDs); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("performance.question_rows", len(questionIDs)),
		attribute.Int("performance.topic_rows", len(topicIDs)),
	)
	s.logger.Info(ctx, "User signed up", map[string]interface{}{
		"user_email":    user.Email,
		"parent_email":  user.ParentEmail,
		"question_rows": len(questionIDs),
		"topic_rows":    len(topicIDs),
	})

	if s.notifier != nil {
		if err := s.notifier.SendParentWelcome(ctx, user); err != nil {
			s.logger.Warn(ctx, "Failed to notify parent of new account", map[string]interface{}{
				"user_email":   user.Email,
				"parent_email": user.ParentEmail,
				"error":        err.Error(),
			})
		}
	}

	return user, nil
}

// Authenticate checks a student or parent login. Parents are looked up by the
// parent email of the account they are linked to.
func (s *UserService) Authenticate(ctx context.Context, email, password string, isParent bool) (result0 *models.Principal, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "Authenticate",
		observability.AttributeUserEmail(email),
		attribute.Bool("auth.is_parent", isParent),
	)
	defer observability.FinishSpan(span, &err)

	var user *models.User
	if isParent {
		user, err = s.store.GetUserByParentEmail(ctx, email)
	} else {
		user, err = s.store.GetUserByEmail(ctx, email)
	}
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			s.logger.Info(ctx, "Login for unknown email", map[string]interface{}{"email": email, "is_parent": isParent})
			return nil, contextutils.WrapError(contextutils.ErrInvalidCredentials, "Invalid email or password.")
		}
		return nil, err
	}

	hash, name := user.HashedPassword, user.Name
	if isParent {
		hash, name = user.ParentHashedPassword, user.ParentName
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		s.logger.Info(ctx, "Login with wrong password", map[string]interface{}{"email": email, "is_parent": isParent})
		return nil, contextutils.WrapError(contextutils.ErrInvalidCredentials, "Invalid email or password.")
	}

	return &models.Principal{Email: email, Name: name, IsParent: isParent}, nil
}

// GetUserByEmail returns the student account for email.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserByEmail", observability.AttributeUserEmail(email))
	defer observability.FinishSpan(span, &err)

	return s.store.GetUserByEmail(ctx, email)
}

// ResolveStudent returns the student account a principal acts for: the
// student themselves, or the student linked to a parent login.
func (s *UserService) ResolveStudent(ctx context.Context, principal models.Principal) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "ResolveStudent",
		observability.AttributeUserEmail(principal.Email),
		attribute.Bool("auth.is_parent", principal.IsParent),
	)
	defer observability.FinishSpan(span, &err)

	if principal.IsParent {
		return s.store.GetUserByParentEmail(ctx, principal.Email)
	}
	return s.store.GetUserByEmail(ctx, principal.Email)
}
