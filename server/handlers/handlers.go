package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/JRI98/clutch/server/services"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	DefaultMaxResults = 75

	senderKey = "sender"
)

type Handler struct {
	Store services.RoomStore
	Now   func() time.Time
}

func NewHandler(store services.RoomStore) *Handler {
	return &Handler{
		Store: store,
		Now:   time.Now,
	}
}

func (h *Handler) Cleanup() error {
	return h.Store.Close()
}

func validateData[T any](c echo.Context) (*T, error) {
	res := new(T)

	if err := c.Bind(res); err != nil {
		return nil, err
	}

	if err := c.Validate(res); err != nil {
		return nil, err
	}

	return res, nil
}

func SetSender(c echo.Context, sender services.Sender) {
	c.Set(senderKey, sender)
}

func getSender(c echo.Context) services.Sender {
	sender, ok := c.Get(senderKey).(services.Sender)
	if !ok {
		panic(errors.New("could not get sender from context"))
	}

	return sender
}

func newEchoHTTPError(code int, message string, err *error) *echo.HTTPError {
	if err != nil {
		return echo.NewHTTPError(code, message).SetInternal(*err)
	}
	return echo.NewHTTPError(code, message)
}

type HistoryResponse struct {
	Items      []services.Message `json:"items"`
	MaxResults int                `json:"maxResults"`
}

// roomParam returns the decoded room name. Echo routes on URL.RawPath when
// the request carries one (e.g. an escaped slash) and on the already decoded
// URL.Path otherwise, so only the first case needs unescaping.
func roomParam(c echo.Context) (string, error) {
	room := c.Param("room")
	if c.Request().URL.RawPath != "" {
		unescaped, err := url.PathUnescape(room)
		if err != nil {
			return "", newEchoHTTPError(http.StatusNotFound, "Room not found", nil)
		}
		room = unescaped
	}
	if room == "" {
		return "", newEchoHTTPError(http.StatusNotFound, "Room not found", nil)
	}
	return room, nil
}

func (h *Handler) LatestHistory(c echo.Context) error {
	room, err := roomParam(c)
	if err != nil {
		return err
	}

	maxResults := DefaultMaxResults
	if raw := c.QueryParam("max-results"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > services.MaxRecent {
			return newEchoHTTPError(http.StatusBadRequest, fmt.Sprintf("max-results must be between 1 and %d", services.MaxRecent), nil)
		}
		maxResults = parsed
	}

	messages, err := h.Store.Recent(c.Request().Context(), room, maxResults)
	if err != nil {
		return newEchoHTTPError(http.StatusInternalServerError, "Could not get history", &err)
	}

	return c.JSON(http.StatusOK, HistoryResponse{
		Items:      messages,
		MaxResults: maxResults,
	})
}

type SendMessageData struct {
	Message string `json:"message" validate:"required,max=10000"`
}

type SendMessageResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) SendMessage(c echo.Context) error {
	sender := getSender(c)

	room, err := roomParam(c)
	if err != nil {
		return err
	}

	data, err := validateData[SendMessageData](c)
	if err != nil {
		return fmt.Errorf("could not validate data: %w", err)
	}

	message := services.Message{
		ID:      uuid.NewString(),
		Date:    h.Now().UTC(),
		From:    sender,
		Message: data.Message,
		Type:    services.MessageType,
	}

	err = h.Store.Append(c.Request().Context(), room, message)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRoom) {
			return newEchoHTTPError(http.StatusNotFound, "Room not found", &err)
		}
		return newEchoHTTPError(http.StatusInternalServerError, "Could not send message", &err)
	}

	return c.JSON(http.StatusCreated, SendMessageResponse{
		ID:        message.ID,
		Timestamp: message.Date,
	})
}
