package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/agentchat/pkg/conversation"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListResponse is the body of GET /conversations.
type ListResponse struct {
	Count         int                          `json:"count"`
	Conversations []*conversation.Conversation `json:"conversations"`
}

// RenameRequest is the body of PATCH /conversations/:id.
type RenameRequest struct {
	Name string `json:"name"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleListConversations(c *fiber.Ctx) error {
	list, err := s.store.List(c.UserContext())
	if err != nil {
		s.logger.Error("failed to list conversations", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list conversations"})
	}

	return c.JSON(ListResponse{
		Count:         len(list),
		Conversations: list,
	})
}

func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	conv, err := s.store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.storeError(c, err, "failed to get conversation")
	}

	return c.JSON(conv)
}

func (s *Server) handleRenameConversation(c *fiber.Ctx) error {
	var req RenameRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "name is required"})
	}

	id := c.Params("id")
	if err := s.store.Rename(c.UserContext(), id, name); err != nil {
		return s.storeError(c, err, "failed to rename conversation")
	}

	conv, err := s.store.Get(c.UserContext(), id)
	if err != nil {
		return s.storeError(c, err, "failed to get conversation")
	}

	return c.JSON(conv)
}

func (s *Server) handleDeleteConversation(c *fiber.Ctx) error {
	if err := s.store.Delete(c.UserContext(), c.Params("id")); err != nil {
		return s.storeError(c, err, "failed to delete conversation")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleDeleteMessage(c *fiber.Ctx) error {
	if err := s.store.DeleteMessage(c.UserContext(), c.Params("id"), c.Params("messageID")); err != nil {
		return s.storeError(c, err, "failed to delete message")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// storeError maps a store error to a response: NotFoundError is a 404,
// anything else a logged 500.
func (s *Server) storeError(c *fiber.Ctx, err error, msg string) error {
	var notFound conversation.NotFoundError
	if errors.As(err, &notFound) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: notFound.Error()})
	}

	s.logger.Error(msg, "error", err, "path", c.Path())
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: msg})
}
