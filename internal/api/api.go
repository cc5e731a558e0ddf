// Package api contains the echo HTTP handlers.
package api

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"ecommerce-backend/internal/apperr"
	"ecommerce-backend/internal/service"
)

func errorJSON(c echo.Context, err error) error {
	return c.JSON(apperr.HTTPStatus(err), map[string]string{"error": apperr.Message(err)})
}

// currentUserID extracts the authenticated user id from the JWT the
// echo-jwt middleware has already validated.
func currentUserID(c echo.Context) (int64, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return 0, echo.ErrUnauthorized
	}
	claims, ok := token.Claims.(*service.JwtCustomClaims)
	if !ok {
		return 0, echo.ErrUnauthorized
	}
	userID, err := claims.UserID()
	if err != nil {
		return 0, echo.ErrUnauthorized
	}
	return userID, nil
}
