package handlers

import (
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/fiftydrive/fifty-drive-backend/internal/models"
	"github.com/fiftydrive/fifty-drive-backend/internal/orders"
	"github.com/fiftydrive/fifty-drive-backend/pkg/utils"
)

var phonePattern = regexp.MustCompile(`^\+?\d{10,15}$`)

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"fullName" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=passenger driver"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func Register(store orders.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RegisterInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if !phonePattern.MatchString(input.Phone) {
			c.JSON(400, gin.H{"error": "Phone number must be 10 to 15 digits, optionally prefixed with +"})
			return
		}

		if _, err := store.UserByEmail(c.Request.Context(), input.Email); err == nil {
			c.JSON(409, gin.H{"error": "Email already registered"})
			return
		}

		user := models.User{
			Email:    input.Email,
			FullName: input.FullName,
			Phone:    input.Phone,
			Role:     models.Role(input.Role),
			Rating:   models.DefaultRating,
		}
		if err := user.SetPassword(input.Password); err != nil {
			c.JSON(500, gin.H{"error": "Failed to hash password"})
			return
		}

		if err := store.CreateUser(c.Request.Context(), &user); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(201, gin.H{
			"message": "User created successfully",
			"user":    userResponse(&user),
		})
	}
}

func Login(store orders.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		user, err := store.UserByEmail(c.Request.Context(), input.Email)
		if err != nil {
			c.JSON(401, gin.H{"error": "Invalid credentials"})
			return
		}

		if err := user.CheckPassword(input.Password); err != nil {
			c.JSON(401, gin.H{"error": "Invalid credentials"})
			return
		}

		token, err := utils.GenerateToken(user)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(200, gin.H{
			"token": token,
			"user":  userResponse(user),
		})
	}
}

// CurrentUser returns the authenticated user's profile, including the
// driver profile for drivers.
func CurrentUser(store orders.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		user, err := store.UserByID(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}

		resp := gin.H{"user": userResponse(user)}
		if user.Role == models.RoleDriver {
			if profile, err := store.DriverProfile(c.Request.Context(), userID); err == nil {
				resp["driverProfile"] = profile
			}
		}
		c.JSON(200, resp)
	}
}

func userResponse(u *models.User) gin.H {
	return gin.H{
		"id":       u.ID,
		"email":    u.Email,
		"fullName": u.FullName,
		"phone":    u.Phone,
		"role":     u.Role,
		"rating":   u.Rating,
	}
}
