package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/dgrijalva/jwt-go"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"project-tracker/workspace-service/models"
)

func secretKey() ([]byte, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	return []byte(secret), nil
}

// GenerateToken issues a signed token carrying the user's id, email and role.
func GenerateToken(user models.User) (string, error) {
	secret, err := secretKey()
	if err != nil {
		return "", err
	}
	claims := jwt.MapClaims{
		"user_id": user.ID.Hex(),
		"email":   user.Email,
		"role":    string(user.Role),
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses the token and returns its claims when the signature
// and expiry check out.
func ValidateToken(tokenString string) (jwt.MapClaims, error) {
	secret, err := secretKey()
	if err != nil {
		return nil, err
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error parsing token: %v", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// ExtractUserIDFromToken returns the user id claim of a valid token.
func ExtractUserIDFromToken(tokenString string) (primitive.ObjectID, error) {
	claims, err := ValidateToken(tokenString)
	if err != nil {
		return primitive.NilObjectID, err
	}
	raw, exists := claims["user_id"]
	if !exists {
		return primitive.NilObjectID, fmt.Errorf("user_id claim not found in token")
	}
	hex, ok := raw.(string)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("user_id claim has unexpected type")
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid user id in token: %v", err)
	}
	return id, nil
}
