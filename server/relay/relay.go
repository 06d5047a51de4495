package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JRI98/clutch/internal/tokenhash"
	"github.com/JRI98/clutch/server/handlers"
	"github.com/JRI98/clutch/server/services"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
)

type Credential struct {
	Digest tokenhash.Digest
	Sender services.Sender
}

// ParseCredentials reads "token:Name[,token:Name...]". Sender ids follow
// the order of the list, starting at 1.
func ParseCredentials(list string) ([]Credential, error) {
	var credentials []Credential
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		token, name, ok := strings.Cut(entry, ":")
		token = strings.TrimSpace(token)
		name = strings.TrimSpace(name)
		if !ok || token == "" || name == "" {
			return nil, fmt.Errorf("invalid credential %d: expected token:Name", len(credentials)+1)
		}

		digest, err := tokenhash.New(token)
		if err != nil {
			return nil, fmt.Errorf("could not hash token: %w", err)
		}

		credentials = append(credentials, Credential{
			Digest: digest,
			Sender: services.Sender{ID: len(credentials) + 1, Name: name},
		})
	}

	if len(credentials) == 0 {
		return nil, errors.New("no credentials configured")
	}

	return credentials, nil
}

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpError *echo.HTTPError
	if !errors.As(err, &httpError) {
		httpError = echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)).SetInternal(err)
	}

	var sendError error
	if c.Request().Method == http.MethodHead {
		sendError = c.NoContent(httpError.Code)
	} else {
		sendError = c.JSON(httpError.Code, map[string]any{
			"error": map[string]any{
				"code":    httpError.Code,
				"message": fmt.Sprint(httpError.Message),
			},
		})
	}

	if sendError != nil {
		slog.Error("HTTPErrorHandler send error", slog.Any("sendError", sendError), slog.Any("httpError", httpError))
	}
}

func authenticate(credentials []Credential) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authorizationHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(authorizationHeader, "Bearer ")
			if !ok || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
			}

			for _, credential := range credentials {
				if credential.Digest.Matches(token) {
					handlers.SetSender(c, credential.Sender)
					return next(c)
				}
			}

			return echo.NewHTTPError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
	}
}

// New builds the relay HTTP server around handler.
func New(handler *handlers.Handler, credentials []Credential, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.RequestID())

	e.Use(slogecho.NewWithConfig(logger, slogecho.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithUserAgent:    true,
		WithRequestID:    true,
		WithRequestBody:  false,
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			return fmt.Errorf("[PANIC RECOVER] %v\n%s", err, stack)
		},
		DisableErrorHandler: true,
	}))

	e.Use(middleware.Secure())

	api := e.Group("/v2", authenticate(credentials))
	api.GET("/room/:room/history/latest", handler.LatestHistory)
	api.POST("/room/:room/message", handler.SendMessage)

	return e
}
