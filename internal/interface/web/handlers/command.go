package handlers

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/swaplink-labs/swaplink/internal/core/application"
	"github.com/swaplink-labs/swaplink/internal/core/domain"
	"github.com/swaplink-labs/swaplink/internal/core/ports"
)

// Command is the closed set of operations accepted by the command endpoint.
type Command string

const (
	CommandSignInToServer                 Command = "signInToServer"
	CommandCreateSwap                     Command = "createSwap"
	CommandCloseSwap                      Command = "closeSwap"
	CommandGetSwap                        Command = "getSwap"
	CommandSubmitSwap                     Command = "submitSwap"
	CommandAddApproveTransaction          Command = "addApproveTransaction"
	CommandAddSubmitSwapTransactions      Command = "addSubmitSwapTransactions"
	CommandAddSubmitCancelTransactions    Command = "addSubmitCancelTransactions"
	CommandAddSubmitExecutionTransactions Command = "addSubmitExecutionTransactions"
	CommandSubmitCancelSwap               Command = "submitCancelSwap"
	CommandLockSwap                       Command = "lockSwap"
	CommandExecuteSwap                    Command = "executeSwap"
	CommandApprove                        Command = "approve"
)

type commandFn func(ctx context.Context, h *Handler, userId string, data json.RawMessage) (any, error)

type commandDef struct {
	requiresAuth bool
	run          commandFn
}

// commands maps each command tag to its payload handler. Commands carrying a
// wallet token authenticate against the wallet directly; the rest need a
// server session.
var commands = map[Command]commandDef{
	CommandSignInToServer:                 {run: signInToServer},
	CommandCreateSwap:                     {run: createSwap},
	CommandCloseSwap:                      {requiresAuth: true, run: closeSwap},
	CommandGetSwap:                        {run: getSwap},
	CommandSubmitSwap:                     {run: submitSwap},
	CommandAddApproveTransaction:          {requiresAuth: true, run: addApproveTransaction},
	CommandAddSubmitSwapTransactions:      {requiresAuth: true, run: addSubmitSwapTransactions},
	CommandAddSubmitCancelTransactions:    {requiresAuth: true, run: addSubmitCancelTransactions},
	CommandAddSubmitExecutionTransactions: {requiresAuth: true, run: addSubmitExecutionTransactions},
	CommandSubmitCancelSwap:               {run: submitCancelSwap},
	CommandLockSwap:                       {requiresAuth: true, run: lockSwap},
	CommandExecuteSwap:                    {run: executeSwap},
	CommandApprove:                        {run: approve},
}

type Handler struct {
	svc      *application.Service
	sessions ports.SessionManager
}

func NewHandler(svc *application.Service, sessions ports.SessionManager) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

type commandRequest struct {
	Command Command         `json:"command"`
	Data    json.RawMessage `json:"data"`
}

// Command is the single entrypoint for the command envelope API.
func (h *Handler) Command(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		unauthorized(c, "invalid request body")
		return
	}
	def, ok := commands[req.Command]
	if !ok {
		unauthorized(c, "unknown command")
		return
	}

	userId := ""
	if def.requiresAuth {
		var err error
		if userId, err = h.authenticate(c); err != nil {
			unauthorized(c, err.Error())
			return
		}
	}

	result, err := def.run(c.Request.Context(), h, userId, req.Data)
	if err != nil {
		internalError(c, req.Command, err)
		return
	}
	c.JSON(200, result)
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

func (h *Handler) authenticate(c *gin.Context) (string, error) {
	token := bearerToken(c)
	if token == "" {
		return "", domain.Authorizationf("missing bearer token")
	}
	return h.sessions.Verify(token)
}

func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func unauthorized(c *gin.Context, msg string) {
	c.JSON(401, gin.H{"error": msg})
}

// internalError surfaces classified domain errors with their message and
// hides everything else behind a generic message.
func internalError(c *gin.Context, command Command, err error) {
	var (
		validation *domain.ValidationError
		authz      *domain.AuthorizationError
		conflict   *domain.ConflictError
		chainState *domain.ChainStateError
		notFound   *domain.NotFoundError
	)
	if errors.As(err, &validation) || errors.As(err, &authz) || errors.As(err, &conflict) ||
		errors.As(err, &chainState) || errors.As(err, &notFound) {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	log.WithError(err).WithField("command", command).Error("command failed")
	c.JSON(500, gin.H{"error": "internal error"})
}

func decode[T any](data json.RawMessage) (*T, error) {
	var payload T
	if len(data) == 0 {
		return nil, domain.Validationf("missing command data")
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, domain.Validationf("invalid command data: %v", err)
	}
	return &payload, nil
}
