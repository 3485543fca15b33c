package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"bizdir/app/models"
	"bizdir/app/repository"
	"bizdir/internal/pkg/env"
	"bizdir/internal/pkg/jobqueue"
	"bizdir/internal/pkg/mail"
	"bizdir/internal/pkg/session"
	"bizdir/internal/pkg/statistics"
)

// HandleAuthRegister creates an inactive account and queues the activation
// email. The account stays unusable until the activation link is visited.
func HandleAuthRegister(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.FormValue("username"))
	email := strings.TrimSpace(strings.ToLower(c.FormValue("email")))
	password := c.FormValue("password")

	user, err := models.CreateUser(name, email, password)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := user.GenerateActivationToken(); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to prepare activation")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	if existing, err := userRepo.GetByEmail(email); err == nil && existing != nil {
		return jsonError(c, fiber.StatusConflict, "conflict", "An account with this email already exists")
	}
	if err := userRepo.Create(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create account")
	}

	activationLink := fmt.Sprintf("%s/activate?token=%s", env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000"), user.ActivationToken)
	if _, err := jobqueue.GetManager().GetQueue().EnqueueEmail(user.Email, "Activate your account", mail.ActivationBody(user.Name, activationLink)); err != nil {
		log.Errorf("failed to enqueue activation email for %s: %v", user.Email, err)
	}

	// Update statistics after registration
	go statistics.UpdateStatisticsCache()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Registration successful. Please check your inbox to activate your account.",
	})
}

// HandleAuthActivate flips an account to active via its emailed token.
func HandleAuthActivate(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Missing activation token")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByActivationToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Invalid or expired activation token")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to look up token")
	}

	user.Status = models.STATUS_ACTIVE
	user.ActivationToken = ""
	if err := userRepo.Update(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to activate account")
	}

	return c.JSON(fiber.Map{"message": "Account activated. You can log in now."})
}

// HandleAuthLoginPage is the target of auth redirects for clients without a
// session.
func HandleAuthLoginPage(c *fiber.Ctx) error {
	if isLoggedIn(c) {
		return c.JSON(fiber.Map{"message": "Already logged in"})
	}
	return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Please log in")
}

// HandleAuthLogin authenticates by email and password and establishes the
// session. Login failures stay deliberately vague.
func HandleAuthLogin(c *fiber.Ctx) error {
	email := strings.TrimSpace(strings.ToLower(c.FormValue("email")))
	password := c.FormValue("password")

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByEmail(email)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "There is a problem with the login process")
	}
	if !models.CheckPasswordHash(password, user.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "There is a problem with the login process")
	}
	if !user.IsActive() {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Please activate your account first")
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to open session")
	}

	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, user.ID)
	sess.Set(USER_NAME, user.Name)
	sess.Set(USER_EMAIL, user.Email)
	sess.Set(USER_IS_ADMIN, user.Role == models.ROLE_ADMIN)

	if err := sess.Save(); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save session")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := userRepo.Update(user); err != nil {
		log.Errorf("failed to record last login for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Login successful",
		"user_id":  user.ID,
		"username": user.Name,
		"is_admin": user.Role == models.ROLE_ADMIN,
	})
}

// HandleAuthLogout drops the caller's session.
func HandleAuthLogout(c *fiber.Ctx) error {
	if err := session.DestroySession(c); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to end session")
	}

	c.Locals(FROM_PROTECTED, false)

	return c.JSON(fiber.Map{"message": "Logged out"})
}
