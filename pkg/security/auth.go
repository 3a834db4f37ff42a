package security

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/NatiEfraim/tokyo-api-sub000/internal/repository"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

var (
	jwtSecretOnce sync.Once
	jwtSecret     []byte
)

// jwtKey resolves the signing key lazily so importing this package never
// aborts a process that does not issue or verify tokens.
func jwtKey() ([]byte, error) {
	jwtSecretOnce.Do(func() {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			if err := godotenv.Load(); err == nil {
				secret = os.Getenv("JWT_SECRET")
			}
		}
		jwtSecret = []byte(secret)
	})

	if len(jwtSecret) == 0 {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	return jwtSecret, nil
}

func AuthenticateUser(username, password string, repo *repository.Repository) (*models.User, error) {
	var user models.User

	query := repo.GoquDBWrapper.
		Select("id", "username", "password_hash", "role").
		From("users").
		Where(goqu.Ex{"username": username, "deleted": false})

	if _, err := query.Executor().ScanStruct(&user); err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, err
	}

	return &user, nil
}

func GenerateJWT(userID string, role string, username string) (string, error) {
	claims := jwt.MapClaims{
		"userID":   userID,
		"role":     role,
		"username": username,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	}

	key, err := jwtKey()
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// CurrentUserID resolves the acting user from the JWT claims set by the
// middleware. Business operations take this value explicitly instead of
// reaching into the request context themselves.
func CurrentUserID(c *gin.Context) (int, error) {
	raw, exists := c.Get("userID")
	if !exists {
		return 0, fmt.Errorf("no authenticated user in context")
	}

	id, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("userID claim is not a string")
	}

	userID, err := strconv.Atoi(id)
	if err != nil {
		return 0, fmt.Errorf("userID claim is not numeric: %w", err)
	}

	return userID, nil
}
